package main

import (
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/rascar-capac/ludum-dare-56/config"
	"github.com/rascar-capac/ludum-dare-56/game"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output day records, bookmarks and perf stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	days := flag.Int("days", 10, "Number of days to play")
	ticksPerDay := flag.Int("ticks-per-day", 0, "Ticks per preview (0 = random within the configured range)")
	policyName := flag.String("preview-policy", string(game.PolicyLast), "Which preview to commit: last or best")
	verbose := flag.Bool("verbose", false, "Enable debug logging")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	policy, err := game.ParsePolicy(*policyName)
	if err != nil {
		slog.Error("invalid flag", "error", err)
		os.Exit(2)
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	g, err := game.NewGameWithOptions(game.Options{
		Config:    config.Cfg(),
		Seed:      rngSeed,
		OutputDir: *outputDir,
		LogStats:  *logStats,
	})
	if err != nil {
		slog.Error("failed to create game", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := g.Close(); err != nil {
			slog.Error("failed to close output", "error", err)
		}
	}()

	slog.Info("starting headless run",
		"run_id", g.RunID(),
		"seed", rngSeed,
		"days", *days,
		"policy", policy,
		"output_dir", *outputDir,
	)

	// The driver's choices use their own stream so a seed replays the same run.
	player := game.NewAutoplay(policy, *ticksPerDay, rand.New(rand.NewSource(rngSeed+1)))
	for day := 1; day <= *days; day++ {
		if err := player.PlayDay(g); err != nil {
			slog.Error("day failed", "day", day, "error", err)
			break
		}
		if g.Population().Count() == 0 {
			slog.Info("population extinct", "day", day, "tick", g.TotalTicks())
			break
		}
	}

	g.Summary().LogStats()
}
