package game

import (
	"log/slog"

	"github.com/rascar-capac/ludum-dare-56/telemetry"
	"github.com/rascar-capac/ludum-dare-56/traits"
)

// recordPreview logs and writes the record of the preview just applied.
func (g *Game) recordPreview(before int) {
	rec := g.collector.PreviewRecord(g.attempts, g.preview.tickCount, before, g.population.Count(), g.preview.params)

	if g.logStats {
		slog.Info("preview",
			"day", rec.Day,
			"attempt", rec.Attempt,
			"tick_count", rec.TickCount,
			"population_before", rec.Before,
			"population_after", rec.After,
			"births", rec.Births,
			"deaths", rec.Deaths,
		)
	}
	if err := g.outputManager.WritePreview(rec); err != nil {
		slog.Error("failed to write preview", "error", err)
	}
}

// flushDay closes the collector's day after a commit and handles bookmarks.
func (g *Game) flushDay(tickCount int) {
	values := make(map[string]float64, g.traits.Len())
	great := 0
	for id := 0; id < g.traits.Len(); id++ {
		status := g.traits.DisplayStatus(id)
		if status == traits.Great {
			great++
		}
		t := g.traits.Type(id)
		if t.Hidden && status == traits.NotPossessed {
			continue
		}
		values[t.Name] = g.traits.Value(id)
	}

	rec := g.collector.Flush(telemetry.DayState{
		Tick:       g.totalTicks,
		TickCount:  tickCount,
		Population: g.population.Count(),
		Dead:       g.population.DeadCount(),
		Parameters: g.parameters,
		Traits:     values,
		Great:      great,
	})
	g.days = append(g.days, rec)
	perfStats := g.perfCollector.Stats()

	if g.logStats {
		rec.LogStats()
		perfStats.LogStats()
	}

	if err := g.outputManager.WriteDay(rec); err != nil {
		slog.Error("failed to write day", "error", err)
	}
	if err := g.outputManager.WritePerf(perfStats, g.runID, rec.Day); err != nil {
		slog.Error("failed to write perf", "error", err)
	}

	for _, bm := range g.bookmarkDetector.Check(rec) {
		if g.logStats {
			bm.LogBookmark()
		}
		if err := g.outputManager.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
	}
}

// Summary aggregates every committed day so far.
func (g *Game) Summary() telemetry.Summary {
	return telemetry.Summarize(g.days)
}
