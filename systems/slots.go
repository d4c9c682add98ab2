package systems

import (
	"log/slog"

	"github.com/mlange-42/ark/ecs"

	"github.com/rascar-capac/ludum-dare-56/components"
)

// FreeSpots returns the number of unoccupied spots.
func (p *Population) FreeSpots() int {
	return countFree(p.spots)
}

// FreeDestinations returns the number of unoccupied destinations.
func (p *Population) FreeDestinations() int {
	return countFree(p.destinations)
}

// SpotOccupant returns the ID holding spot i, or 0 when free.
func (p *Population) SpotOccupant(i int) uint32 {
	return p.spots[i]
}

// DestinationOccupant returns the ID holding destination i, or 0 when free.
func (p *Population) DestinationOccupant(i int) uint32 {
	return p.destinations[i]
}

// AssignSpot moves bogbog id onto spot, releasing whatever it held.
// A negative spot leaves the bogbog unassigned. Returns false if the bogbog
// is unknown or the spot is out of range or held by another bogbog.
func (p *Population) AssignSpot(id uint32, spot int) bool {
	e, ok := p.byID[id]
	if !ok {
		return false
	}
	if spot >= len(p.spots) {
		return false
	}
	if spot >= 0 && p.spots[spot] != noOccupant && p.spots[spot] != id {
		return false
	}

	p.release(e)
	p.wanderMap.Get(e).Reset()
	if spot >= 0 {
		p.bindSpot(e, spot)
	}
	return true
}

// AssignDestination moves bogbog id towards dest, releasing whatever it held,
// and schedules its next reassignment. A negative dest leaves it unassigned.
func (p *Population) AssignDestination(id uint32, dest int, instant bool) bool {
	e, ok := p.byID[id]
	if !ok {
		return false
	}
	if dest >= len(p.destinations) {
		return false
	}
	if dest >= 0 && p.destinations[dest] != noOccupant && p.destinations[dest] != id {
		return false
	}

	if dest < 0 {
		p.release(e)
		p.wanderMap.Get(e).Reset()
		return true
	}
	p.bindDestination(e, dest, instant)
	return true
}

// TickDestinations advances the simulation clock to now and gives a new
// random destination to every wandering bogbog whose timer elapsed.
func (p *Population) TickDestinations(now float64) {
	p.now = now

	for _, e := range p.roster {
		if p.assignMap.Get(e).IsSpot() {
			continue
		}
		w := p.wanderMap.Get(e)
		if w.Scheduled && now < w.NextReassign {
			continue
		}

		dest := p.randomFree(p.destinations)
		if dest < 0 {
			p.logNoFreeDestination(p.bogbogMap.Get(e).ID)
			continue
		}
		p.bindDestination(e, dest, false)
	}
}

// AssignSpotsPass redistributes bogbogs between spots and destinations.
// A random count in [0, min(spots, population)] of bogbogs, drawn without
// replacement, take random spots; the rest wander.
func (p *Population) AssignSpotsPass() {
	n := p.Count()
	if n == 0 {
		return
	}

	for _, e := range p.roster {
		if p.assignMap.Get(e).IsSpot() {
			p.release(e)
			p.wanderMap.Get(e).Reset()
		}
	}

	free := freeIndices(p.spots)
	count := p.rng.Intn(min(len(free), n) + 1)

	order := p.rng.Perm(n)
	spotOrder := p.rng.Perm(len(free))

	// chosen holds the roster in draw order; the first count take spots.
	chosen := make([]ecs.Entity, n)
	for i, idx := range order {
		chosen[i] = p.roster[idx]
	}

	for i := 0; i < count; i++ {
		p.bindSpot(chosen[i], free[spotOrder[i]])
	}

	for _, e := range chosen[count:] {
		if !p.assignMap.Get(e).IsNone() {
			continue
		}
		dest := p.randomFree(p.destinations)
		if dest < 0 {
			p.logNoFreeDestination(p.bogbogMap.Get(e).ID)
			continue
		}
		p.bindDestination(e, dest, true)
	}

	slog.Debug("spots_pass", "population", n, "on_spots", count)
}

// release frees the slot held by e, if any, and clears its assignment.
// Releasing an already free slot is a no-op.
func (p *Population) release(e ecs.Entity) {
	a := p.assignMap.Get(e)
	id := p.bogbogMap.Get(e).ID

	switch a.Kind {
	case components.SlotSpot:
		if p.spots[a.Index] == id {
			p.spots[a.Index] = noOccupant
		}
	case components.SlotDestination:
		if p.destinations[a.Index] == id {
			p.destinations[a.Index] = noOccupant
		}
	}
	*a = components.Unassigned
}

func (p *Population) bindSpot(e ecs.Entity, spot int) {
	p.release(e)
	p.spots[spot] = p.bogbogMap.Get(e).ID
	*p.assignMap.Get(e) = components.Assignment{Kind: components.SlotSpot, Index: spot}
	p.wanderMap.Get(e).Reset()
}

func (p *Population) bindDestination(e ecs.Entity, dest int, instant bool) {
	p.release(e)
	p.destinations[dest] = p.bogbogMap.Get(e).ID
	*p.assignMap.Get(e) = components.Assignment{Kind: components.SlotDestination, Index: dest}

	w := p.wanderMap.Get(e)
	w.NextReassign = p.now + p.cfg.ReassignDuration.Random(p.rng)
	w.Scheduled = true
	w.Arrived = instant
}

// randomFree returns a uniformly drawn free slot index, or -1.
func (p *Population) randomFree(slots []uint32) int {
	free := freeIndices(slots)
	if len(free) == 0 {
		return -1
	}
	return free[p.rng.Intn(len(free))]
}

func freeIndices(slots []uint32) []int {
	var free []int
	for i, occupant := range slots {
		if occupant == noOccupant {
			free = append(free, i)
		}
	}
	return free
}

func countFree(slots []uint32) int {
	n := 0
	for _, occupant := range slots {
		if occupant == noOccupant {
			n++
		}
	}
	return n
}
