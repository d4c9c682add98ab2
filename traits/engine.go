package traits

import (
	"fmt"

	"github.com/rascar-capac/ludum-dare-56/config"
	"github.com/rascar-capac/ludum-dare-56/events"
	"github.com/rascar-capac/ludum-dare-56/ranges"
)

// Type is the static definition of a trait.
type Type struct {
	ID                   int
	Name                 string
	Hidden               bool
	Initial              float64
	InfluenceLossPerTick float64
	Influences           []InfluenceGroup
}

// State is the mutable record of one trait.
type State struct {
	Value     float64
	Status    Status
	LastDelta float64 // change applied by the last refresh, for fluctuation display
}

// TraitChanged is published whenever a trait's value or status changes.
type TraitChanged struct {
	Trait     int
	Name      string
	OldValue  float64
	NewValue  float64
	OldStatus Status
	NewStatus Status
}

// StatusChanged reports whether the change crossed a tier boundary.
func (e TraitChanged) StatusChanged() bool {
	return e.OldStatus != e.NewStatus
}

// Snapshot is a deep copy of every trait state, restorable with Engine.Restore.
type Snapshot []State

// Engine owns every trait state and applies influence passes to them.
type Engine struct {
	types      []Type
	index      map[string]int
	states     []State
	thresholds Thresholds
	bus        *events.Bus
}

// NewEngine builds trait types from cfg and seeds their initial values.
// cfg must have been prepared (validated, derived values computed).
func NewEngine(cfg *config.Config, bus *events.Bus) *Engine {
	e := &Engine{
		types:  make([]Type, len(cfg.Traits)),
		index:  make(map[string]int, len(cfg.Traits)),
		states: make([]State, len(cfg.Traits)),
		thresholds: Thresholds{
			Discovered: cfg.Status.Discovered,
			Great:      cfg.Status.Great,
		},
		bus: bus,
	}

	for i, tc := range cfg.Traits {
		e.index[tc.Name] = i
	}

	for i, tc := range cfg.Traits {
		t := Type{
			ID:                   i,
			Name:                 tc.Name,
			Hidden:               tc.Hidden,
			Initial:              tc.Initial,
			InfluenceLossPerTick: tc.InfluenceLossPerTick,
			Influences:           make([]InfluenceGroup, len(tc.Influences)),
		}
		for gi, gc := range tc.Influences {
			group := InfluenceGroup{
				InfluencePerTick: gc.InfluencePerTick,
				Conditions:       make([]Condition, len(gc.Conditions)),
			}
			for ci, cc := range gc.Conditions {
				group.Conditions[ci] = e.buildCondition(cc)
			}
			t.Influences[gi] = group
		}
		e.types[i] = t

		v := ranges.Clamp01(tc.Initial)
		e.states[i] = State{Value: v, Status: e.thresholds.StatusOf(v)}
	}

	return e
}

func (e *Engine) buildCondition(cc config.ConditionConfig) Condition {
	if cc.Trait != "" {
		return Condition{
			Source:     SourceTrait,
			Name:       cc.Trait,
			Trait:      e.ID(cc.Trait),
			IsRange:    cc.IsRange,
			Thresholds: cc.Thresholds,
		}
	}
	return Condition{
		Source:     SourceParameter,
		Name:       cc.Parameter,
		Trait:      -1,
		IsRange:    cc.IsRange,
		Thresholds: cc.Thresholds,
	}
}

// ID returns the index of the named trait. Unknown names panic.
func (e *Engine) ID(name string) int {
	id, ok := e.index[name]
	if !ok {
		panic(fmt.Sprintf("traits: unknown trait %q", name))
	}
	return id
}

// Len returns the number of tracked traits.
func (e *Engine) Len() int {
	return len(e.types)
}

// Type returns the definition of trait id.
func (e *Engine) Type(id int) Type {
	return e.types[e.check(id)]
}

// Thresholds returns the tier boundaries.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// State returns the current state of trait id.
func (e *Engine) State(id int) State {
	return e.states[e.check(id)]
}

// Value returns the current value of trait id.
func (e *Engine) Value(id int) float64 {
	return e.State(id).Value
}

// Status returns the current status of trait id.
func (e *Engine) Status(id int) Status {
	return e.State(id).Status
}

// DisplayStatus is the status shown to players. A hidden trait that is still
// developing reads as NotPossessed until it is discovered.
func (e *Engine) DisplayStatus(id int) Status {
	st := e.Status(id)
	if st == Unknown && e.types[id].Hidden {
		return NotPossessed
	}
	return st
}

// AtLeast reports whether trait id has reached status s.
func (e *Engine) AtLeast(id int, s Status) bool {
	return e.Status(id) >= s
}

// Snapshot returns a deep copy of all trait states.
func (e *Engine) Snapshot() Snapshot {
	out := make(Snapshot, len(e.states))
	copy(out, e.states)
	return out
}

// Restore replaces all trait states with snap and publishes TraitChanged for
// every trait that differs, so subscribers can revert provisional changes.
func (e *Engine) Restore(snap Snapshot) {
	if len(snap) != len(e.states) {
		panic(fmt.Sprintf("traits: snapshot has %d traits, engine tracks %d", len(snap), len(e.states)))
	}
	for id, next := range snap {
		prev := e.states[id]
		e.states[id] = next
		e.publish(id, prev, next)
	}
}

// SetValue forces trait id to v (clamped) and recomputes its status.
func (e *Engine) SetValue(id int, v float64) {
	prev := e.states[e.check(id)]
	next := e.settle(prev.Value, ranges.Clamp01(v))
	e.states[id] = next
	e.publish(id, prev, next)
}

// Refresh applies tickCount ticks worth of influence to trait id in one step.
func (e *Engine) Refresh(id int, tickCount int, params Parameters) {
	prev := e.states[e.check(id)]
	next := e.settle(prev.Value, e.influence(id, tickCount, params, e.states))
	e.states[id] = next
	e.publish(id, prev, next)
}

// RefreshAll refreshes every trait once, in configured order. Each trait is
// updated in place, so a condition on an earlier trait sees the value it
// reached earlier in the same pass. Change events are published once every
// trait has settled.
func (e *Engine) RefreshAll(tickCount int, params Parameters) {
	before := e.Snapshot()
	for id := range e.types {
		e.states[id] = e.settle(before[id].Value, e.influence(id, tickCount, params, e.states))
	}
	for id := range e.types {
		e.publish(id, before[id], e.states[id])
	}
}

// influence computes the clamped value of trait id after tickCount ticks.
func (e *Engine) influence(id int, tickCount int, params Parameters, states []State) float64 {
	t := e.types[id]
	ticks := float64(tickCount)

	var total float64
	satisfied := false
	for _, group := range t.Influences {
		ratio := group.Ratio(params, states)
		if ratio > 0 {
			satisfied = true
			total += ticks * group.InfluencePerTick * ratio
		}
	}
	if !satisfied {
		total = -ticks * t.InfluenceLossPerTick
	}

	return ranges.Clamp01(states[id].Value + total)
}

func (e *Engine) settle(old, v float64) State {
	return State{Value: v, Status: e.thresholds.StatusOf(v), LastDelta: v - old}
}

func (e *Engine) publish(id int, prev, next State) {
	if prev.Value == next.Value && prev.Status == next.Status {
		return
	}
	events.Publish(e.bus, TraitChanged{
		Trait:     id,
		Name:      e.types[id].Name,
		OldValue:  prev.Value,
		NewValue:  next.Value,
		OldStatus: prev.Status,
		NewStatus: next.Status,
	})
}

func (e *Engine) check(id int) int {
	if id < 0 || id >= len(e.types) {
		panic(fmt.Sprintf("traits: unknown trait index %d", id))
	}
	return id
}
