// Package game coordinates previews and commits of simulated days.
package game

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math/rand"

	"github.com/google/uuid"

	"github.com/rascar-capac/ludum-dare-56/config"
	"github.com/rascar-capac/ludum-dare-56/events"
	"github.com/rascar-capac/ludum-dare-56/systems"
	"github.com/rascar-capac/ludum-dare-56/telemetry"
	"github.com/rascar-capac/ludum-dare-56/traits"
)

var (
	// ErrAttemptsExhausted rejects a preview once the attempt limit is reached.
	ErrAttemptsExhausted = errors.New("game: no preview attempts left")
	// ErrNotPreviewing rejects closing or committing when no preview is running.
	ErrNotPreviewing = errors.New("game: no preview in progress")
)

// Previewed is published once a preview pass has been applied.
type Previewed struct {
	Parameters traits.Parameters
	TickCount  int
	Attempt    int
	TotalTicks int
}

// PreviewClosed is published when a preview ends, either way.
type PreviewClosed struct {
	Committing bool
}

// Committed is published once a preview has become the new baseline.
type Committed struct {
	Parameters traits.Parameters
	TickCount  int
	TotalTicks int
}

// Options configures a new Game.
type Options struct {
	Config *config.Config // nil uses the embedded defaults
	Bus    *events.Bus    // nil creates a private bus
	Rand   *rand.Rand     // nil seeds one from Seed
	Seed   int64

	OutputDir string // empty disables CSV output
	LogStats  bool   // log day records, bookmarks and perf stats
	RunID     string // empty generates one
}

// previewState holds what a discard must put back.
type previewState struct {
	traits     traits.Snapshot
	population systems.PopulationSnapshot
	totalTicks int
	params     traits.Parameters
	tickCount  int
}

// Game owns the trait engine and the population and runs them through
// preview/commit transactions.
type Game struct {
	cfg *config.Config
	rng *rand.Rand
	bus *events.Bus

	traits     *traits.Engine
	population *systems.Population

	parameters traits.Parameters
	totalTicks int
	attempts   int

	preview *previewState // nil when idle

	// Telemetry
	runID            string
	logStats         bool
	collector        *telemetry.Collector
	perfCollector    *telemetry.PerfCollector
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager
	days             []telemetry.DayRecord
}

// NewGame creates a game from cfg seeded with seed, without file output.
func NewGame(cfg *config.Config, seed int64) *Game {
	g, err := NewGameWithOptions(Options{Config: cfg, Seed: seed})
	if err != nil {
		panic(fmt.Sprintf("game: %v", err))
	}
	return g
}

// NewGameWithOptions creates a game and spawns the initial population.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	bus := opts.Bus
	if bus == nil {
		bus = events.NewBus()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(opts.Seed))
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.New().String()
	}

	engine := traits.NewEngine(cfg, bus)

	g := &Game{
		cfg:        cfg,
		rng:        rng,
		bus:        bus,
		traits:     engine,
		population: systems.NewPopulation(cfg, engine, rng, bus),
		parameters: cfg.InitialParameters(),
		totalTicks: cfg.Simulation.StartTick,

		runID:            runID,
		logStats:         opts.LogStats,
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.HistorySize),
		bookmarkDetector: telemetry.NewBookmarkDetector(cfg.Telemetry),
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("creating output: %w", err)
	}
	g.outputManager = om
	if err := om.WriteConfig(cfg); err != nil {
		om.Close()
		return nil, fmt.Errorf("writing config: %w", err)
	}

	g.population.SpawnInitial(cfg.Population.Initial, g.totalTicks)
	// Subscribed after the initial spawn so those births are not part of a day.
	g.collector = telemetry.NewCollector(bus, runID)

	slog.Info("game_created",
		"run_id", runID,
		"population", g.population.Count(),
		"capacity", g.population.Capacity(),
		"traits", engine.Len(),
		"attempt_limit", cfg.Simulation.AttemptLimit,
	)

	return g, nil
}

// Close discards a running preview and closes telemetry output.
func (g *Game) Close() error {
	_ = g.ClosePreview(false)
	g.collector.Close()
	return g.outputManager.Close()
}

// Config returns the configuration the game was built with.
func (g *Game) Config() *config.Config {
	return g.cfg
}

// Bus returns the event bus.
func (g *Game) Bus() *events.Bus {
	return g.bus
}

// RunID identifies this run in telemetry output.
func (g *Game) RunID() string {
	return g.runID
}

// TotalTicks returns the tick counter, including a running preview's ticks.
func (g *Game) TotalTicks() int {
	return g.totalTicks
}

// Attempts returns the number of previews made since the last commit.
func (g *Game) Attempts() int {
	return g.attempts
}

// AttemptsLeft returns how many previews can still be made before committing.
func (g *Game) AttemptsLeft() int {
	return max(g.cfg.Simulation.AttemptLimit-g.attempts, 0)
}

// IsPreviewing reports whether a preview is running.
func (g *Game) IsPreviewing() bool {
	return g.preview != nil
}

// Parameters returns a copy of the committed parameters.
func (g *Game) Parameters() traits.Parameters {
	return maps.Clone(g.parameters)
}

// PreviewParameters returns a copy of the running preview's parameters, or
// nil when idle.
func (g *Game) PreviewParameters() traits.Parameters {
	if g.preview == nil {
		return nil
	}
	return maps.Clone(g.preview.params)
}

// PreviewTickCount returns the running preview's tick count, or 0 when idle.
func (g *Game) PreviewTickCount() int {
	if g.preview == nil {
		return 0
	}
	return g.preview.tickCount
}

// Traits returns the trait engine.
func (g *Game) Traits() *traits.Engine {
	return g.traits
}

// Population returns the population manager.
func (g *Game) Population() *systems.Population {
	return g.population
}

// TraitsBeforePreview returns trait states as they were before the running
// preview, or the current ones when idle.
func (g *Game) TraitsBeforePreview() traits.Snapshot {
	if g.preview == nil {
		return g.traits.Snapshot()
	}
	return append(traits.Snapshot(nil), g.preview.traits...)
}

// PopulationBeforePreview returns the living count before the running
// preview, or the current one when idle.
func (g *Game) PopulationBeforePreview() int {
	if g.preview == nil {
		return g.population.Count()
	}
	return len(g.preview.population.Living)
}

// Days returns the records of every committed day so far.
func (g *Game) Days() []telemetry.DayRecord {
	return append([]telemetry.DayRecord(nil), g.days...)
}

// Perf returns pass timing statistics.
func (g *Game) Perf() telemetry.PerfStats {
	return g.perfCollector.Stats()
}
