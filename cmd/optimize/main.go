// Command optimize searches for the care parameters that keep a bogbog
// population alive longest, using CMA-ES.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/rascar-capac/ludum-dare-56/config"
	"github.com/rascar-capac/ludum-dare-56/telemetry"
)

type options struct {
	configPath  string
	outputDir   string
	days        int
	ticksPerDay int
	seeds       int
	maxEvals    int
	stepSize    float64
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Base config YAML file (empty = use defaults)")
	flag.StringVar(&opts.outputDir, "output", "", "Output directory for results")
	flag.IntVar(&opts.days, "days", 30, "Days played per run")
	flag.IntVar(&opts.ticksPerDay, "ticks-per-day", 3, "Ticks per committed day")
	flag.IntVar(&opts.seeds, "seeds", 3, "Seeds per evaluation")
	flag.IntVar(&opts.maxEvals, "max-evals", 200, "Maximum number of evaluations")
	flag.Float64Var(&opts.stepSize, "step", 0.3, "Initial CMA-ES step size in normalized parameter space")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := run(opts); err != nil {
		slog.Error("optimize_failed", "error", err)
		os.Exit(1)
	}
}

// search tracks the best parameters seen across evaluations.
type search struct {
	params *ParamVector
	days   int
	rows   *searchLog
	logger *slog.Logger
	evals  int
	start  time.Time

	best       Report
	bestValues []float64
}

func (s *search) observe(rep Report, values []float64) {
	s.evals++
	if s.bestValues == nil || rep.Fitness < s.best.Fitness {
		s.best, s.bestValues = rep, values
	}

	if err := s.rows.record(s.evals, rep, values); err != nil {
		s.logger.Warn("search_log_write_failed", "error", err)
	}

	s.logger.Info("evaluation",
		"eval", s.evals,
		"survived_days", fmt.Sprintf("%.1f/%d", rep.SurvivedDays, s.days),
		"extinct_seeds", rep.Extinct,
		"occupancy", fmt.Sprintf("%.2f", rep.Occupancy),
		"best_survived_days", fmt.Sprintf("%.1f", s.best.SurvivedDays),
		"elapsed", time.Since(s.start).Round(time.Second),
	)
}

// named maps the best vector back onto parameter names.
func (s *search) named() map[string]float64 {
	out := make(map[string]float64, len(s.bestValues))
	for i, spec := range s.params.Specs {
		out[spec.Name] = s.bestValues[i]
	}
	return out
}

func run(opts options) error {
	if opts.outputDir == "" {
		return errors.New("-output is required")
	}
	if err := os.MkdirAll(opts.outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := config.Init(opts.configPath); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	baseCfg := config.Cfg()
	params := NewParamVector(baseCfg)

	seeds := make([]int64, opts.seeds)
	for i := range seeds {
		seeds[i] = int64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(params, opts.days, opts.ticksPerDay, seeds, baseCfg)

	logFile, err := os.Create(filepath.Join(opts.outputDir, "optimize_log.csv"))
	if err != nil {
		return fmt.Errorf("create search log: %w", err)
	}
	defer logFile.Close()
	sl, err := newSearchLog(logFile, params)
	if err != nil {
		return err
	}

	// Games log through the default logger; keep them to warnings.
	loud := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	defer slog.SetDefault(loud)

	s := &search{params: params, days: opts.days, rows: sl, logger: loud, start: time.Now()}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			values := params.Clamp(params.Denormalize(x))
			rep := evaluator.Evaluate(values)
			s.observe(rep, values)
			return rep.Fitness
		},
	}

	loud.Info("search_started",
		"parameters", params.Dim(),
		"seeds", opts.seeds,
		"days", opts.days,
		"ticks_per_day", opts.ticksPerDay,
		"max_evals", opts.maxEvals,
	)

	method := &optimize.CmaEsChol{InitStepSize: opts.stepSize}
	settings := &optimize.Settings{FuncEvaluations: opts.maxEvals}
	if _, err := optimize.Minimize(problem, params.Normalize(params.DefaultVector()), settings, method); err != nil {
		loud.Warn("search_stopped", "error", err)
	}
	if s.bestValues == nil {
		return errors.New("no evaluation completed")
	}

	best := s.named()
	loud.Info("search_finished",
		"evals", s.evals,
		"survived_days", s.best.SurvivedDays,
		"all_days_survived", math.Abs(s.best.SurvivedDays-float64(opts.days)) < 1e-9,
		"great_traits", s.best.GreatTraits,
		"parameters", telemetry.FormatValues(best),
	)

	bestCfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}
	params.ApplyToConfig(bestCfg, s.bestValues)
	out := filepath.Join(opts.outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(out); err != nil {
		return fmt.Errorf("write best config: %w", err)
	}
	loud.Info("best_config_written", "path", out)
	return nil
}
