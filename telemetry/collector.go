package telemetry

import (
	"slices"

	"github.com/rascar-capac/ludum-dare-56/events"
	"github.com/rascar-capac/ludum-dare-56/systems"
	"github.com/rascar-capac/ludum-dare-56/traits"
)

type counters struct {
	births      int
	deaths      int
	extinctions int
	great       []string
}

func (c *counters) add(o counters) {
	c.births += o.births
	c.deaths += o.deaths
	c.extinctions += o.extinctions
	c.great = append(c.great, o.great...)
}

// Collector counts population and trait events off the bus.
// Events land in a pending window that is either folded into the current
// day (Apply) or thrown away (Discard), mirroring the preview lifecycle.
type Collector struct {
	runID string

	pending counters
	day     counters

	previews int
	discards int
	dayIndex int

	unsubscribe []func()
}

// NewCollector creates a collector subscribed to bus.
func NewCollector(bus *events.Bus, runID string) *Collector {
	c := &Collector{runID: runID, dayIndex: 1}
	if bus == nil {
		return c
	}
	c.unsubscribe = []func(){
		events.Subscribe(bus, func(systems.BogbogSpawned) { c.pending.births++ }),
		events.Subscribe(bus, func(systems.BogbogKilled) { c.pending.deaths++ }),
		events.Subscribe(bus, func(systems.AllPopulationDead) { c.pending.extinctions++ }),
		events.Subscribe(bus, c.onTraitChanged),
	}
	return c
}

func (c *Collector) onTraitChanged(e traits.TraitChanged) {
	if e.StatusChanged() && e.NewStatus == traits.Great {
		c.pending.great = append(c.pending.great, e.Name)
	}
}

// Close detaches the collector from the bus.
func (c *Collector) Close() {
	for _, unsubscribe := range c.unsubscribe {
		unsubscribe()
	}
	c.unsubscribe = nil
}

// RunID returns the run identifier stamped on every record.
func (c *Collector) RunID() string {
	return c.runID
}

// Day returns the 1-based index of the day being collected.
func (c *Collector) Day() int {
	return c.dayIndex
}

// BeginPreview starts a fresh pending window for a preview pass.
func (c *Collector) BeginPreview() {
	c.pending = counters{}
	c.previews++
}

// PreviewRecord describes the pending window of the running preview.
func (c *Collector) PreviewRecord(attempt, tickCount, before, after int, params traits.Parameters) PreviewRecord {
	return PreviewRecord{
		RunID:      c.runID,
		Day:        c.dayIndex,
		Attempt:    attempt,
		TickCount:  tickCount,
		Before:     before,
		After:      after,
		Births:     c.pending.births,
		Deaths:     c.pending.deaths,
		Extinct:    c.pending.extinctions > 0,
		Parameters: FormatValues(params),
	}
}

// Discard drops the pending window.
func (c *Collector) Discard() {
	c.pending = counters{}
	c.discards++
}

// Apply folds the pending window into the current day.
func (c *Collector) Apply() {
	c.day.add(c.pending)
	c.pending = counters{}
}

// DayState is the simulation state sampled when a day is committed.
type DayState struct {
	Tick       int
	TickCount  int
	Population int
	Dead       int
	Parameters traits.Parameters
	Traits     map[string]float64
	Great      int
}

// Flush produces the record for the current day and starts the next one.
func (c *Collector) Flush(s DayState) DayRecord {
	values := make([]float64, 0, len(s.Traits))
	for _, v := range s.Traits {
		values = append(values, v)
	}
	slices.Sort(values)
	mean, std := TraitStats(values)

	rec := DayRecord{
		RunID:        c.runID,
		Day:          c.dayIndex,
		Tick:         s.Tick,
		TickCount:    s.TickCount,
		Population:   s.Population,
		Dead:         s.Dead,
		Births:       c.day.births,
		Deaths:       c.day.deaths,
		Extinctions:  c.day.extinctions,
		Previews:     c.previews,
		Discards:     c.discards,
		TraitMean:    mean,
		TraitStd:     std,
		GreatTraits:  s.Great,
		Parameters:   FormatValues(s.Parameters),
		Traits:       FormatValues(s.Traits),
		ReachedGreat: slices.Clone(c.day.great),
	}

	c.day = counters{}
	c.previews = 0
	c.discards = 0
	c.dayIndex++
	return rec
}
