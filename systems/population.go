package systems

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"

	"github.com/mlange-42/ark/ecs"

	"github.com/rascar-capac/ludum-dare-56/components"
	"github.com/rascar-capac/ludum-dare-56/config"
	"github.com/rascar-capac/ludum-dare-56/events"
	"github.com/rascar-capac/ludum-dare-56/traits"
)

// noOccupant marks a free slot. Bogbog IDs start at 1.
const noOccupant uint32 = 0

// TraitReader is the view of the trait engine the population needs.
type TraitReader interface {
	ID(name string) int
	Len() int
	Value(id int) float64
	Status(id int) traits.Status
	AtLeast(id int, s traits.Status) bool
}

// Creature is a by-value copy of one bogbog's components.
type Creature struct {
	Bogbog     components.Bogbog
	Assignment components.Assignment
	Wander     components.Wander
	Attributes components.Attributes
}

// ID returns the bogbog's identifier.
func (c Creature) ID() uint32 {
	return c.Bogbog.ID
}

// PopulationCountChanged is published whenever the living count changes.
type PopulationCountChanged struct {
	Count    int
	Previous int
}

// AllPopulationDead is published when a death tick finds no living bogbog.
type AllPopulationDead struct {
	Tick int
}

// BogbogSpawned is published for every birth.
type BogbogSpawned struct {
	ID   uint32
	Tick int
}

// BogbogKilled is published for every death.
type BogbogKilled struct {
	ID   uint32
	Tick int
}

// PopulationSnapshot is a deep copy of the population, restorable with Restore.
type PopulationSnapshot struct {
	Living       []Creature
	Dead         []Creature
	Spots        []uint32
	Destinations []uint32
	NextID       uint32
	Now          float64
}

// Population owns the bogbog roster and the spot/destination slots.
// Living bogbogs are ECS entities; dead ones are kept by value.
type Population struct {
	world  *ecs.World
	mapper *ecs.Map4[components.Bogbog, components.Assignment, components.Wander, components.Attributes]
	attrFilter *ecs.Filter1[components.Attributes]

	bogbogMap *ecs.Map[components.Bogbog]
	assignMap *ecs.Map[components.Assignment]
	wanderMap *ecs.Map[components.Wander]
	attrMap   *ecs.Map[components.Attributes]

	roster []ecs.Entity // living, in spawn order
	byID   map[uint32]ecs.Entity
	dead   []Creature

	spots        []uint32 // slot index -> occupant ID
	destinations []uint32
	nextID       uint32
	now          float64 // last simulation clock value seen

	cfg      config.PopulationConfig
	capacity int
	reproID  int
	hurtID   int

	traits TraitReader
	rng    *rand.Rand
	bus    *events.Bus
}

// NewPopulation creates an empty population sized from cfg.
// It subscribes to trait changes to keep trait-gated attributes in sync.
func NewPopulation(cfg *config.Config, tr TraitReader, rng *rand.Rand, bus *events.Bus) *Population {
	if cfg.Population.Destinations < 1 {
		panic("systems: population needs at least one destination slot")
	}

	w := ecs.NewWorld()
	p := &Population{
		world:      w,
		mapper:     ecs.NewMap4[components.Bogbog, components.Assignment, components.Wander, components.Attributes](w),
		attrFilter: ecs.NewFilter1[components.Attributes](w),
		bogbogMap:  ecs.NewMap[components.Bogbog](w),
		assignMap:  ecs.NewMap[components.Assignment](w),
		wanderMap:  ecs.NewMap[components.Wander](w),
		attrMap:    ecs.NewMap[components.Attributes](w),

		byID:         make(map[uint32]ecs.Entity),
		spots:        make([]uint32, cfg.Population.Spots),
		destinations: make([]uint32, cfg.Population.Destinations),
		nextID:       1,

		cfg:      cfg.Population,
		capacity: cfg.Derived.Capacity,
		reproID:  tr.ID(cfg.Population.ReproductionTrait),
		hurtID:   tr.ID(cfg.Population.HurtTrait),

		traits: tr,
		rng:    rng,
		bus:    bus,
	}

	events.Subscribe(bus, p.onTraitChanged)

	return p
}

// SpawnInitial creates n bogbogs at tick.
func (p *Population) SpawnInitial(n int, tick int) {
	for i := 0; i < n; i++ {
		p.Spawn(tick)
	}
}

// Count returns the number of living bogbogs.
func (p *Population) Count() int {
	return len(p.roster)
}

// DeadCount returns the number of dead bogbogs.
func (p *Population) DeadCount() int {
	return len(p.dead)
}

// Capacity is the maximum living population: one destination always stays free.
func (p *Population) Capacity() int {
	return p.capacity
}

// Now returns the last simulation clock value seen.
func (p *Population) Now() float64 {
	return p.now
}

// entities returns the number of live ECS entities backing the roster.
func (p *Population) entities() int {
	return p.world.Stats().Entities.Used
}

// Creatures returns the living bogbogs in spawn order.
func (p *Population) Creatures() []Creature {
	out := make([]Creature, len(p.roster))
	for i, e := range p.roster {
		out[i] = p.creature(e)
	}
	return out
}

// Dead returns the dead bogbogs in order of death.
func (p *Population) Dead() []Creature {
	return slices.Clone(p.dead)
}

// Creature returns the living bogbog with the given ID.
func (p *Population) Creature(id uint32) (Creature, bool) {
	e, ok := p.byID[id]
	if !ok {
		return Creature{}, false
	}
	return p.creature(e), true
}

func (p *Population) creature(e ecs.Entity) Creature {
	b, a, w, attr := p.mapper.Get(e)
	return Creature{Bogbog: *b, Assignment: *a, Wander: *w, Attributes: *attr}
}

// Spawn creates a bogbog unless the population is at capacity.
// It prefers a free spot with probability SpotChance when both a spot and a
// destination are free, otherwise takes a destination (placed instantly),
// otherwise a spot. Returns the new ID and whether a bogbog was created.
func (p *Population) Spawn(tick int) (uint32, bool) {
	if p.Count() >= p.capacity {
		return 0, false
	}

	prev := p.Count()
	id := p.nextID
	p.nextID++

	e := p.mapper.NewEntity(
		&components.Bogbog{ID: id, Alive: true, BirthTick: tick},
		&components.Assignment{Kind: components.SlotNone, Index: -1},
		&components.Wander{},
		&components.Attributes{},
	)
	p.roster = append(p.roster, e)
	p.byID[id] = e

	spot := p.randomFree(p.spots)
	dest := p.randomFree(p.destinations)
	switch {
	case spot >= 0 && dest >= 0:
		if p.rng.Float64() < p.cfg.SpotChance {
			p.bindSpot(e, spot)
		} else {
			p.bindDestination(e, dest, true)
		}
	case dest >= 0:
		p.bindDestination(e, dest, true)
	case spot >= 0:
		p.bindSpot(e, spot)
	}

	p.syncAttributes(e)

	events.Publish(p.bus, BogbogSpawned{ID: id, Tick: tick})
	events.Publish(p.bus, PopulationCountChanged{Count: p.Count(), Previous: prev})
	return id, true
}

// Kill releases the bogbog's slot and moves it to the dead roster.
// Killing an unknown or already dead bogbog is a no-op.
func (p *Population) Kill(id uint32, tick int) bool {
	e, ok := p.byID[id]
	if !ok {
		return false
	}

	prev := p.Count()
	p.release(e)

	c := p.creature(e)
	c.Bogbog.Alive = false
	c.Bogbog.DeathTick = tick
	p.dead = append(p.dead, c)

	p.roster = slices.DeleteFunc(p.roster, func(other ecs.Entity) bool { return other == e })
	delete(p.byID, id)
	p.world.RemoveEntity(e)

	events.Publish(p.bus, BogbogKilled{ID: id, Tick: tick})
	events.Publish(p.bus, PopulationCountChanged{Count: p.Count(), Previous: prev})
	return true
}

// Snapshot deep-copies the living roster, dead roster and slot maps.
func (p *Population) Snapshot() PopulationSnapshot {
	return PopulationSnapshot{
		Living:       p.Creatures(),
		Dead:         p.Dead(),
		Spots:        slices.Clone(p.spots),
		Destinations: slices.Clone(p.destinations),
		NextID:       p.nextID,
		Now:          p.now,
	}
}

// Restore replaces the whole population with snap. Living bogbogs are
// re-created as fresh entities in the snapshot's roster order.
func (p *Population) Restore(snap PopulationSnapshot) {
	prev := p.Count()

	for _, e := range p.roster {
		p.world.RemoveEntity(e)
	}
	p.roster = p.roster[:0]
	clear(p.byID)

	for _, c := range snap.Living {
		b, a, w, attr := c.Bogbog, c.Assignment, c.Wander, c.Attributes
		e := p.mapper.NewEntity(&b, &a, &w, &attr)
		p.roster = append(p.roster, e)
		p.byID[c.ID()] = e
	}

	p.dead = slices.Clone(snap.Dead)
	p.spots = slices.Clone(snap.Spots)
	p.destinations = slices.Clone(snap.Destinations)
	p.nextID = snap.NextID
	p.now = snap.Now

	if p.Count() != prev {
		events.Publish(p.bus, PopulationCountChanged{Count: p.Count(), Previous: prev})
	}
}

// onTraitChanged enables a trait's attribute on every bogbog unless the trait
// dropped to NotPossessed.
func (p *Population) onTraitChanged(e traits.TraitChanged) {
	if !e.StatusChanged() {
		return
	}
	enabled := e.NewStatus != traits.NotPossessed

	query := p.attrFilter.Query()
	for query.Next() {
		attr := query.Get()
		attr.Set(e.Trait, enabled)
	}
}

// syncAttributes aligns one bogbog's attributes with current trait statuses.
func (p *Population) syncAttributes(e ecs.Entity) {
	attr := p.attrMap.Get(e)
	for id := 0; id < p.traits.Len(); id++ {
		attr.Set(id, p.traits.Status(id) != traits.NotPossessed)
	}
}

// SyncAttributes aligns every living bogbog's attributes with current trait statuses.
func (p *Population) SyncAttributes() {
	for _, e := range p.roster {
		p.syncAttributes(e)
	}
}

// CheckConsistency verifies that slot maps and assignments reference each other.
func (p *Population) CheckConsistency() error {
	var errs []error

	held := func(slots []uint32, kind components.SlotKind) {
		for i, occupant := range slots {
			if occupant == noOccupant {
				continue
			}
			e, ok := p.byID[occupant]
			if !ok {
				errs = append(errs, fmt.Errorf("%s %d held by missing bogbog %d", kind, i, occupant))
				continue
			}
			a := p.assignMap.Get(e)
			if a.Kind != kind || a.Index != i {
				errs = append(errs, fmt.Errorf("%s %d held by bogbog %d assigned to %s %d", kind, i, occupant, a.Kind, a.Index))
			}
		}
	}
	held(p.spots, components.SlotSpot)
	held(p.destinations, components.SlotDestination)

	for _, e := range p.roster {
		b := p.bogbogMap.Get(e)
		a := p.assignMap.Get(e)
		switch a.Kind {
		case components.SlotSpot:
			if a.Index < 0 || a.Index >= len(p.spots) || p.spots[a.Index] != b.ID {
				errs = append(errs, fmt.Errorf("bogbog %d assigned to spot %d it does not hold", b.ID, a.Index))
			}
		case components.SlotDestination:
			if a.Index < 0 || a.Index >= len(p.destinations) || p.destinations[a.Index] != b.ID {
				errs = append(errs, fmt.Errorf("bogbog %d assigned to destination %d it does not hold", b.ID, a.Index))
			}
		}
	}

	if p.Count() > p.capacity {
		errs = append(errs, fmt.Errorf("population %d exceeds capacity %d", p.Count(), p.capacity))
	}

	return errors.Join(errs...)
}

func (p *Population) logNoFreeDestination(id uint32) {
	slog.Warn("no_free_destination",
		"bogbog", id,
		"population", p.Count(),
		"destinations", len(p.destinations),
	)
}
