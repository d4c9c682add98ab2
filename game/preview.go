package game

import (
	"fmt"
	"log/slog"
	"maps"

	"github.com/rascar-capac/ludum-dare-56/events"
	"github.com/rascar-capac/ludum-dare-56/telemetry"
	"github.com/rascar-capac/ludum-dare-56/traits"
)

// Preview applies tickCount ticks under params on top of a snapshot of the
// current state. A running preview is discarded first. Parameters missing
// from params keep their committed value; values are clamped to their legal
// range and tickCount to the configured tick-count range.
//
// Once the attempt limit is reached Preview returns ErrAttemptsExhausted and
// leaves everything, including a running preview, untouched.
func (g *Game) Preview(params traits.Parameters, tickCount int) error {
	if g.attempts >= g.cfg.Simulation.AttemptLimit {
		slog.Debug("preview_rejected", "attempts", g.attempts, "limit", g.cfg.Simulation.AttemptLimit)
		return ErrAttemptsExhausted
	}
	if g.preview != nil {
		_ = g.ClosePreview(false)
	}

	params = g.normalize(params)
	tickCount = g.cfg.Simulation.TickCount.Clamp(tickCount)
	before := g.population.Count()

	g.bus.Hold()
	g.collector.BeginPreview()

	g.perfCollector.StartPass()
	g.perfCollector.StartPhase(telemetry.PhaseSnapshot)
	g.preview = &previewState{
		traits:     g.traits.Snapshot(),
		population: g.population.Snapshot(),
		totalTicks: g.totalTicks,
		params:     params,
		tickCount:  tickCount,
	}
	g.attempts++
	g.advance(params, tickCount)
	g.perfCollector.EndPass()

	events.Publish(g.bus, Previewed{
		Parameters: maps.Clone(params),
		TickCount:  tickCount,
		Attempt:    g.attempts,
		TotalTicks: g.totalTicks,
	})
	g.bus.Release()

	g.recordPreview(before)
	return nil
}

// ClosePreview ends the running preview. Discarding restores traits, then the
// population, then the tick counter. Committing keeps the previewed state
// but, unlike Commit, leaves parameters and attempts alone.
func (g *Game) ClosePreview(commit bool) error {
	p := g.preview
	if p == nil {
		return ErrNotPreviewing
	}
	g.preview = nil

	g.bus.Hold()
	if !commit {
		g.perfCollector.StartPass()
		g.perfCollector.StartPhase(telemetry.PhaseRestore)
		g.traits.Restore(p.traits)
		g.population.Restore(p.population)
		g.totalTicks = p.totalTicks
		g.perfCollector.EndPass()
	}
	events.Publish(g.bus, PreviewClosed{Committing: commit})
	g.bus.Release()

	if commit {
		g.collector.Apply()
	} else {
		g.collector.Discard()
	}
	return nil
}

// Commit makes the running preview the new baseline: its parameters become
// the committed ones and the attempt counter resets.
func (g *Game) Commit() error {
	p := g.preview
	if p == nil {
		return ErrNotPreviewing
	}

	g.bus.Hold()
	_ = g.ClosePreview(true)
	g.parameters = p.params
	g.attempts = 0
	events.Publish(g.bus, Committed{
		Parameters: maps.Clone(p.params),
		TickCount:  p.tickCount,
		TotalTicks: g.totalTicks,
	})
	g.bus.Release()

	g.flushDay(p.tickCount)
	return nil
}

// TickSimulationStep advances the simulation clock, reassigning destinations
// of wandering bogbogs whose timer elapsed.
func (g *Game) TickSimulationStep(now float64) {
	g.population.TickDestinations(now)
}

// SkipTicks applies n ticks under the committed parameters directly, without
// snapshot or attempt. A running preview is discarded first.
func (g *Game) SkipTicks(n int) {
	if n <= 0 {
		return
	}
	if g.preview != nil {
		_ = g.ClosePreview(false)
	}

	g.bus.Hold()
	g.perfCollector.StartPass()
	g.advance(g.parameters, n)
	g.perfCollector.EndPass()
	g.bus.Release()

	g.collector.Apply()
	slog.Info("ticks_skipped", "ticks", n, "total_ticks", g.totalTicks, "population", g.population.Count())
}

// advance runs the tick pipeline: deaths, births, spot redistribution, then
// trait evolution. The counter moves first so events carry the new ticks.
func (g *Game) advance(params traits.Parameters, tickCount int) {
	start := g.totalTicks
	g.totalTicks += tickCount

	g.perfCollector.StartPhase(telemetry.PhaseDeath)
	deaths := g.population.TickDeath(tickCount, start)

	g.perfCollector.StartPhase(telemetry.PhaseReproduction)
	births := g.population.TickReproduction(tickCount, start)

	g.perfCollector.StartPhase(telemetry.PhaseSpots)
	g.population.AssignSpotsPass()

	g.perfCollector.StartPhase(telemetry.PhaseTraits)
	g.traits.RefreshAll(tickCount, params)

	slog.Debug("pass_applied",
		"from_tick", start,
		"to_tick", g.totalTicks,
		"deaths", deaths,
		"births", births,
		"population", g.population.Count(),
	)
}

// normalize fills missing parameters from the committed ones and clamps each
// value into its legal range. Unknown names are a programming error.
func (g *Game) normalize(params traits.Parameters) traits.Parameters {
	out := maps.Clone(g.parameters)
	for name, v := range params {
		idx, ok := g.cfg.Derived.ParameterIndex[name]
		if !ok {
			panic(fmt.Sprintf("game: unknown parameter %q", name))
		}
		out[name] = g.cfg.Parameters[idx].Range.Clamp(v)
	}
	return out
}
