package main

import (
	"slices"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/rascar-capac/ludum-dare-56/config"
	"github.com/rascar-capac/ludum-dare-56/game"
	"github.com/rascar-capac/ludum-dare-56/traits"
)

// FitnessEvaluator plays headless runs with a fixed parameter vector and
// scores how well the population did.
type FitnessEvaluator struct {
	params      *ParamVector
	days        int
	ticksPerDay int
	seeds       []int64
	baseConfig  *config.Config
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, days, ticksPerDay int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		days:        days,
		ticksPerDay: ticksPerDay,
		seeds:       seeds,
		baseConfig:  baseCfg,
	}
}

// Report is the outcome of one evaluation, averaged over seeds.
type Report struct {
	Fitness      float64 // lower is better
	SurvivedDays float64
	Occupancy    float64 // mean living count over capacity
	Stability    float64 // 1 - coefficient of variation of the living count
	GreatTraits  float64
	Extinct      int // seeds whose population died out before the last day
}

// Quality is occupancy plus stability, in [0, 2].
func (r Report) Quality() float64 {
	return r.Occupancy + r.Stability
}

// runResult captures what one seeded run produced.
type runResult struct {
	survivedDays int
	populations  []float64 // living count after each committed day
	greatTraits  int       // great traits at the end of the run
}

// Evaluate runs every seed in parallel and averages their reports.
func (fe *FitnessEvaluator) Evaluate(x []float64) Report {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	results := make([]*runResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runSimulation(cfg, s)
		}(i, seed)
	}
	wg.Wait()

	var rep Report
	for _, r := range results {
		occupancy, stability := fe.occupancy(r), stabilityOf(r.populations)
		rep.Fitness += fitnessOf(r, occupancy+stability)
		rep.SurvivedDays += float64(r.survivedDays)
		rep.Occupancy += occupancy
		rep.Stability += stability
		rep.GreatTraits += float64(r.greatTraits)
		if r.survivedDays < fe.days {
			rep.Extinct++
		}
	}

	n := float64(len(fe.seeds))
	rep.Fitness /= n
	rep.SurvivedDays /= n
	rep.Occupancy /= n
	rep.Stability /= n
	rep.GreatTraits /= n
	return rep
}

// runSimulation commits the configured parameters every day until the run
// ends or the population dies out.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) *runResult {
	g, err := game.NewGameWithOptions(game.Options{Config: cfg, Seed: seed, RunID: "optimize"})
	if err != nil {
		return &runResult{}
	}
	defer g.Close()

	r := &runResult{}
	for day := 0; day < fe.days; day++ {
		if err := g.Preview(nil, fe.ticksPerDay); err != nil {
			break
		}
		if err := g.Commit(); err != nil {
			break
		}
		r.populations = append(r.populations, float64(g.Population().Count()))
		if g.Population().Count() == 0 {
			break
		}
		r.survivedDays++
	}

	for id := 0; id < g.Traits().Len(); id++ {
		if g.Traits().Status(id) == traits.Great {
			r.greatTraits++
		}
	}
	return r
}

// copyConfig clones the base config so parallel evaluations never share
// parameter slices.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	cfg.Parameters = slices.Clone(fe.baseConfig.Parameters)
	return &cfg
}

// fitnessOf rewards surviving days, scaled by run quality and the number of
// traits that ended great. An immediately extinct run scores 0.
func fitnessOf(r *runResult, quality float64) float64 {
	if r.survivedDays == 0 {
		return 0
	}
	return -(float64(r.survivedDays) * (1 + quality + 0.1*float64(r.greatTraits)))
}

// occupancy is the mean living count as a share of capacity.
func (fe *FitnessEvaluator) occupancy(r *runResult) float64 {
	capacity := float64(fe.baseConfig.Derived.Capacity)
	if len(r.populations) == 0 || capacity <= 0 {
		return 0
	}
	return clamp01(stat.Mean(r.populations, nil) / capacity)
}

// stabilityOf penalizes boom and bust cycles: 1 minus the coefficient of
// variation of the daily living count.
func stabilityOf(populations []float64) float64 {
	if len(populations) == 0 {
		return 0
	}
	if len(populations) < 2 {
		return 1
	}
	mean, std := stat.PopMeanStdDev(populations, nil)
	if mean == 0 {
		return 0
	}
	return clamp01(1 - std/mean)
}

func clamp01(x float64) float64 {
	return min(max(x, 0), 1)
}
