package systems

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/rascar-capac/ludum-dare-56/config"
	"github.com/rascar-capac/ludum-dare-56/events"
	"github.com/rascar-capac/ludum-dare-56/ranges"
	"github.com/rascar-capac/ludum-dare-56/traits"
)

type fixture struct {
	cfg    *config.Config
	bus    *events.Bus
	traits *traits.Engine
	pop    *Population
}

func newFixture(t *testing.T, mutate func(c *config.Config)) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Population.Initial = 0
	if mutate != nil {
		mutate(cfg)
	}
	if err := cfg.Prepare(); err != nil {
		t.Fatalf("prepare config: %v", err)
	}

	bus := events.NewBus()
	eng := traits.NewEngine(cfg, bus)
	pop := NewPopulation(cfg, eng, rand.New(rand.NewSource(42)), bus)
	return &fixture{cfg: cfg, bus: bus, traits: eng, pop: pop}
}

func (f *fixture) setTrait(name string, v float64) {
	f.traits.SetValue(f.traits.ID(name), v)
}

func mustConsistent(t *testing.T, p *Population) {
	t.Helper()
	if err := p.CheckConsistency(); err != nil {
		t.Fatalf("population inconsistent: %v", err)
	}
}

func TestSpawnNeverExceedsCapacity(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Population.Destinations = 5
		c.Population.Spots = 2
	})

	spawned := 0
	for i := 0; i < 20; i++ {
		if _, ok := f.pop.Spawn(1); ok {
			spawned++
		}
		if f.pop.Count() > f.pop.Capacity() {
			t.Fatalf("population %d exceeds capacity %d", f.pop.Count(), f.pop.Capacity())
		}
		mustConsistent(t, f.pop)
	}

	if f.pop.Capacity() != 4 {
		t.Errorf("capacity = %d, want destinations-1 = 4", f.pop.Capacity())
	}
	if spawned != 4 {
		t.Errorf("spawned %d, want 4", spawned)
	}
	if f.pop.FreeDestinations() < 1 {
		t.Error("at least one destination must stay free at capacity")
	}
}

func TestSpawnPublishesCountChanges(t *testing.T) {
	f := newFixture(t, nil)

	var counts []int
	events.Subscribe(f.bus, func(e PopulationCountChanged) { counts = append(counts, e.Count) })

	f.pop.SpawnInitial(3, 1)

	if !reflect.DeepEqual(counts, []int{1, 2, 3}) {
		t.Errorf("count events = %v, want [1 2 3]", counts)
	}
	for _, c := range f.pop.Creatures() {
		if c.Assignment.IsNone() {
			t.Errorf("bogbog %d spawned without a slot", c.ID())
		}
	}
}

func TestSpawnSyncsAttributes(t *testing.T) {
	f := newFixture(t, nil)
	f.setTrait("fluffiness", 0.5)
	f.setTrait("hurt", 0)

	id, _ := f.pop.Spawn(1)
	c, _ := f.pop.Creature(id)

	if !c.Attributes.Has(f.traits.ID("fluffiness")) {
		t.Error("fluffiness attribute should be enabled")
	}
	if c.Attributes.Has(f.traits.ID("hurt")) {
		t.Error("hurt attribute should be disabled")
	}

	f.setTrait("hurt", 0.1)
	c, _ = f.pop.Creature(id)
	if !c.Attributes.Has(f.traits.ID("hurt")) {
		t.Error("hurt attribute should follow the trait leaving not_possessed")
	}

	f.setTrait("fluffiness", 0)
	c, _ = f.pop.Creature(id)
	if c.Attributes.Has(f.traits.ID("fluffiness")) {
		t.Error("fluffiness attribute should be disabled at not_possessed")
	}
}

func TestAssignSpotAndDestinationStayReciprocal(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Population.SpotChance = 0 })

	id, _ := f.pop.Spawn(1)
	c, _ := f.pop.Creature(id)
	if !c.Assignment.IsDestination() {
		t.Fatalf("expected spawn on a destination, got %+v", c.Assignment)
	}
	oldDest := c.Assignment.Index

	if !f.pop.AssignSpot(id, 2) {
		t.Fatal("AssignSpot failed")
	}
	c, _ = f.pop.Creature(id)
	if !c.Assignment.IsSpot() || c.Assignment.Index != 2 {
		t.Errorf("assignment = %+v, want spot 2", c.Assignment)
	}
	if f.pop.SpotOccupant(2) != id {
		t.Errorf("spot 2 occupant = %d, want %d", f.pop.SpotOccupant(2), id)
	}
	if f.pop.DestinationOccupant(oldDest) != 0 {
		t.Errorf("destination %d not released", oldDest)
	}
	if c.Wander.Scheduled {
		t.Error("assigning a spot should reset wander state")
	}

	other, _ := f.pop.Spawn(1)
	if f.pop.AssignSpot(other, 2) {
		t.Error("AssignSpot onto an occupied spot should fail")
	}

	free := -1
	for i := 0; i < f.cfg.Population.Destinations; i++ {
		if f.pop.DestinationOccupant(i) == 0 {
			free = i
			break
		}
	}
	if !f.pop.AssignDestination(id, free, true) {
		t.Fatal("AssignDestination failed")
	}
	if f.pop.SpotOccupant(2) != 0 {
		t.Error("spot 2 not released by destination assignment")
	}
	c, _ = f.pop.Creature(id)
	if !c.Wander.Arrived || !c.Wander.Scheduled {
		t.Errorf("instant destination should be arrived and scheduled: %+v", c.Wander)
	}

	if !f.pop.AssignSpot(id, -1) {
		t.Fatal("AssignSpot(nil) failed")
	}
	c, _ = f.pop.Creature(id)
	if !c.Assignment.IsNone() || f.pop.DestinationOccupant(free) != 0 {
		t.Errorf("expected unassigned bogbog and free destination, got %+v", c.Assignment)
	}
	mustConsistent(t, f.pop)
}

func TestReassignmentScheduledWithinDuration(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Population.SpotChance = 0
		c.Population.ReassignDuration = ranges.FloatRange{Min: 2, Max: 4}
	})
	f.pop.TickDestinations(10)
	id, _ := f.pop.Spawn(1)

	c, _ := f.pop.Creature(id)
	if c.Wander.NextReassign < 12 || c.Wander.NextReassign >= 14 {
		t.Errorf("next reassignment %v outside [12,14)", c.Wander.NextReassign)
	}

	f.pop.TickDestinations(11)
	after, _ := f.pop.Creature(id)
	if after.Wander != c.Wander || after.Assignment != c.Assignment {
		t.Error("destination changed before its timer elapsed")
	}

	f.pop.TickDestinations(14)
	after, _ = f.pop.Creature(id)
	if after.Wander.NextReassign < 16 {
		t.Errorf("expected a new schedule from t=14, got %v", after.Wander.NextReassign)
	}
	if after.Assignment.Index == c.Assignment.Index {
		t.Error("reassignment should pick a different, currently free destination")
	}
	mustConsistent(t, f.pop)
}

func TestTickDestinationsSkipsSpots(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Population.SpotChance = 1 })
	id, _ := f.pop.Spawn(1)

	f.pop.TickDestinations(100)
	c, _ := f.pop.Creature(id)
	if !c.Assignment.IsSpot() {
		t.Errorf("bogbog on a spot was moved: %+v", c.Assignment)
	}
}

func TestAssignSpotsPassKeepsSlotsConsistent(t *testing.T) {
	f := newFixture(t, nil)
	f.pop.SpawnInitial(10, 1)

	for i := 0; i < 50; i++ {
		f.pop.AssignSpotsPass()
		mustConsistent(t, f.pop)

		onSpots := 0
		for _, c := range f.pop.Creatures() {
			switch {
			case c.Assignment.IsSpot():
				onSpots++
			case c.Assignment.IsNone():
				t.Fatalf("bogbog %d left unassigned after pass", c.ID())
			}
		}
		if onSpots > f.cfg.Population.Spots {
			t.Fatalf("%d bogbogs on %d spots", onSpots, f.cfg.Population.Spots)
		}
	}
}

func TestTickDeathScenario(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Population.Destinations = 7
		c.Population.DeathRatio = ranges.FloatRange{Min: 0.4, Max: 0.4}
	})
	f.setTrait("hurt", 0.5)
	f.pop.SpawnInitial(5, 1)

	if f.pop.Capacity() != 6 {
		t.Fatalf("capacity = %d, want 6", f.pop.Capacity())
	}

	var countEvents, killed []int
	events.Subscribe(f.bus, func(e PopulationCountChanged) { countEvents = append(countEvents, e.Count) })
	events.Subscribe(f.bus, func(e BogbogKilled) { killed = append(killed, int(e.ID)) })

	deaths := f.pop.TickDeath(1, 1)

	if deaths != 2 || f.pop.Count() != 3 {
		t.Errorf("deaths=%d count=%d, want 2 and 3", deaths, f.pop.Count())
	}
	if !reflect.DeepEqual(countEvents, []int{4, 3}) {
		t.Errorf("count events = %v, want one per death [4 3]", countEvents)
	}
	if !reflect.DeepEqual(killed, []int{1, 2}) {
		t.Errorf("killed %v, want earliest spawned [1 2]", killed)
	}
	if f.pop.DeadCount() != 2 {
		t.Errorf("dead roster = %d, want 2", f.pop.DeadCount())
	}
	for _, d := range f.pop.Dead() {
		if d.Bogbog.Alive || d.Bogbog.DeathTick != 2 || !d.Assignment.IsNone() {
			t.Errorf("unexpected dead record %+v", d)
		}
	}
	mustConsistent(t, f.pop)
}

func TestTickDeathGatedOnHurt(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Population.DeathRatio = ranges.FloatRange{Min: 1, Max: 1}
	})
	f.setTrait("hurt", 0.2) // below discovered
	f.pop.SpawnInitial(4, 1)

	if deaths := f.pop.TickDeath(5, 1); deaths != 0 {
		t.Errorf("deaths = %d with undeveloped hurt trait, want 0", deaths)
	}
}

func TestTickDeathSignalsExtinction(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Population.DeathRatio = ranges.FloatRange{Min: 1, Max: 1}
	})
	f.setTrait("hurt", 0.9)
	f.pop.SpawnInitial(3, 1)

	var extinct []int
	events.Subscribe(f.bus, func(e AllPopulationDead) { extinct = append(extinct, e.Tick) })

	deaths := f.pop.TickDeath(3, 10)

	if deaths != 3 {
		t.Errorf("deaths = %d, want 3", deaths)
	}
	if !reflect.DeepEqual(extinct, []int{12}) {
		t.Errorf("extinction events = %v, want [12]", extinct)
	}
}

func TestTickDeathRandomSelection(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Population.DeathSelection = config.DeathSelectionRandom
		c.Population.DeathRatio = ranges.FloatRange{Min: 0.5, Max: 0.5}
	})
	f.setTrait("hurt", 0.5)
	f.pop.SpawnInitial(8, 1)

	if deaths := f.pop.TickDeath(1, 1); deaths != 4 {
		t.Errorf("deaths = %d, want 4", deaths)
	}
	mustConsistent(t, f.pop)
}

func TestTickReproduction(t *testing.T) {
	tests := []struct {
		name       string
		initial    int
		horniness  float64
		wantBirths int
	}{
		{"undeveloped trait", 4, 0.2, 0},
		{"single bogbog", 1, 0.9, 0},
		{"certain births", 2, 0.9, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(c *config.Config) {
				c.Population.ReproductionProbability = ranges.FloatRange{Min: 1, Max: 1}
			})
			f.setTrait("horniness", tt.horniness)
			f.pop.SpawnInitial(tt.initial, 1)

			births := f.pop.TickReproduction(3, 1)
			if births != tt.wantBirths {
				t.Errorf("births = %d, want %d", births, tt.wantBirths)
			}
			if f.pop.Count() != tt.initial+tt.wantBirths {
				t.Errorf("count = %d, want %d", f.pop.Count(), tt.initial+tt.wantBirths)
			}
		})
	}
}

func TestTickReproductionStopsAtCapacity(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Population.Destinations = 4
		c.Population.ReproductionProbability = ranges.FloatRange{Min: 1, Max: 1}
	})
	f.setTrait("horniness", 1)
	f.pop.SpawnInitial(2, 1)

	births := f.pop.TickReproduction(10, 1)
	if births != 1 || f.pop.Count() != 3 {
		t.Errorf("births=%d count=%d, want 1 and 3", births, f.pop.Count())
	}
}

func TestProbabilitiesRemapGateRange(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Population.GateRange = ranges.FloatRange{Min: 0.3, Max: 1}
		c.Population.ReproductionProbability = ranges.FloatRange{Min: 0.1, Max: 0.8}
		c.Population.DeathRatio = ranges.FloatRange{Min: 0, Max: 0.7}
	})
	f.setTrait("horniness", 0.65)
	f.setTrait("hurt", 0.1)

	if got := f.pop.ReproductionProbability(); got < 0.449 || got > 0.451 {
		t.Errorf("reproduction probability = %v, want 0.45", got)
	}
	if got := f.pop.DeathRatio(); got != 0 {
		t.Errorf("death ratio below gate range = %v, want clamped 0", got)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Population.DeathRatio = ranges.FloatRange{Min: 0.3, Max: 0.3}
		c.Population.ReproductionProbability = ranges.FloatRange{Min: 0.5, Max: 0.5}
	})
	f.pop.SpawnInitial(6, 1)
	f.setTrait("hurt", 0.5)
	f.pop.TickDeath(1, 1)
	f.pop.TickDestinations(3)

	snap := f.pop.Snapshot()
	beforeLiving := f.pop.Creatures()
	beforeDead := f.pop.Dead()

	f.setTrait("horniness", 0.9)
	f.pop.TickDeath(2, 2)
	f.pop.TickReproduction(4, 2)
	f.pop.AssignSpotsPass()
	f.pop.TickDestinations(20)

	var restoredCount []int
	events.Subscribe(f.bus, func(e PopulationCountChanged) { restoredCount = append(restoredCount, e.Count) })
	f.pop.Restore(snap)

	if !reflect.DeepEqual(f.pop.Creatures(), beforeLiving) {
		t.Errorf("living roster not restored:\n got %+v\nwant %+v", f.pop.Creatures(), beforeLiving)
	}
	if !reflect.DeepEqual(f.pop.Dead(), beforeDead) {
		t.Errorf("dead roster not restored")
	}
	if !reflect.DeepEqual(f.pop.Snapshot(), snap) {
		t.Error("snapshot after restore differs from the restored snapshot")
	}
	if f.pop.Now() != 3 {
		t.Errorf("clock = %v, want 3", f.pop.Now())
	}
	mustConsistent(t, f.pop)

	// New spawns after restore reuse the snapshot's ID sequence.
	id, _ := f.pop.Spawn(5)
	if id != snap.NextID {
		t.Errorf("spawned id %d, want %d", id, snap.NextID)
	}
}

func TestRestorePublishesCountChangeOnlyWhenDifferent(t *testing.T) {
	f := newFixture(t, nil)
	f.pop.SpawnInitial(3, 1)
	snap := f.pop.Snapshot()

	var got []PopulationCountChanged
	events.Subscribe(f.bus, func(e PopulationCountChanged) { got = append(got, e) })

	f.pop.Restore(snap)
	if len(got) != 0 {
		t.Errorf("restore with equal count published %d events", len(got))
	}

	f.pop.Spawn(2)
	got = nil
	f.pop.Restore(snap)
	if len(got) != 1 || got[0].Count != 3 || got[0].Previous != 4 {
		t.Errorf("unexpected restore events %+v", got)
	}
}

func TestKillUnknownIsNoop(t *testing.T) {
	f := newFixture(t, nil)
	id, _ := f.pop.Spawn(1)

	if !f.pop.Kill(id, 2) {
		t.Fatal("first kill should succeed")
	}
	if f.pop.Kill(id, 3) {
		t.Error("killing a dead bogbog should be a no-op")
	}
	if f.pop.AssignSpot(id, 0) || f.pop.AssignDestination(id, 0, false) {
		t.Error("dead bogbogs cannot be assigned")
	}
	mustConsistent(t, f.pop)
}

func TestKillAndRestoreFreeEntities(t *testing.T) {
	f := newFixture(t, nil)
	base := f.pop.entities()

	f.pop.SpawnInitial(6, 1)
	snap := f.pop.Snapshot()
	first := f.pop.byID[snap.Living[0].ID()]

	for i := 0; i < 1000; i++ {
		f.pop.Restore(snap)
	}
	if got := f.pop.entities(); got != base+f.pop.Count() {
		t.Fatalf("after repeated restores: %d entities for %d bogbogs", got-base, f.pop.Count())
	}
	if f.pop.world.Alive(first) {
		t.Error("entity replaced by restore is still alive")
	}

	victim := f.pop.Creatures()[0].ID()
	e := f.pop.byID[victim]
	f.pop.Kill(victim, 2)
	if f.pop.world.Alive(e) {
		t.Error("killed bogbog's entity is still alive")
	}
	if got := f.pop.entities(); got != base+f.pop.Count() {
		t.Errorf("after kill: %d entities for %d bogbogs", got-base, f.pop.Count())
	}
}

func TestRandomOperationsKeepInvariants(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Population.Destinations = 9
		c.Population.Spots = 3
	})
	f.setTrait("horniness", 0.8)
	f.setTrait("hurt", 0.4)
	rng := rand.New(rand.NewSource(3))

	now := 0.0
	for i := 0; i < 300; i++ {
		switch rng.Intn(5) {
		case 0:
			f.pop.Spawn(i)
		case 1:
			f.pop.TickDeath(1, i)
		case 2:
			f.pop.TickReproduction(2, i)
		case 3:
			f.pop.AssignSpotsPass()
		case 4:
			now += rng.Float64() * 5
			f.pop.TickDestinations(now)
		}
		mustConsistent(t, f.pop)
	}
}
