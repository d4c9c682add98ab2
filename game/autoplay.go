package game

import (
	"fmt"
	"math/rand"

	"github.com/rascar-capac/ludum-dare-56/traits"
)

// Policy picks which preview an Autoplay commits.
type Policy string

const (
	// PolicyLast commits whatever the last attempt produced.
	PolicyLast Policy = "last"
	// PolicyBest spends the last attempt replaying the parameters that gave
	// the largest population, then commits it.
	PolicyBest Policy = "best"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyLast, PolicyBest:
		return p, nil
	}
	return "", fmt.Errorf("unknown preview policy %q", s)
}

// Autoplay drives a Game headlessly, one day at a time, with random
// parameter vectors.
type Autoplay struct {
	Policy      Policy
	TicksPerDay int     // 0 draws a tick count from the configured range
	StepsPerDay int     // simulation clock steps between two days
	StepSeconds float64 // clock advance per step

	rng *rand.Rand
	now float64
}

// NewAutoplay creates a driver drawing its choices from rng.
func NewAutoplay(policy Policy, ticksPerDay int, rng *rand.Rand) *Autoplay {
	return &Autoplay{
		Policy:      policy,
		TicksPerDay: ticksPerDay,
		StepsPerDay: 10,
		StepSeconds: 0.5,
		rng:         rng,
	}
}

// PlayDay lets bogbogs wander for a while, spends every attempt left on
// previews and commits one of them.
func (a *Autoplay) PlayDay(g *Game) error {
	for i := 0; i < a.StepsPerDay; i++ {
		a.now += a.StepSeconds
		g.TickSimulationStep(a.now)
	}

	attempts := g.AttemptsLeft()
	if attempts == 0 {
		return ErrAttemptsExhausted
	}

	var best traits.Parameters
	bestTicks, bestPop := 0, -1
	for attempt := 1; attempt <= attempts; attempt++ {
		params, ticks := a.RandomParameters(g), a.tickCount(g)
		if a.Policy == PolicyBest && attempt == attempts && best != nil {
			params, ticks = best, bestTicks
		}

		if err := g.Preview(params, ticks); err != nil {
			return fmt.Errorf("preview %d: %w", attempt, err)
		}
		if pop := g.Population().Count(); pop > bestPop {
			best, bestTicks, bestPop = params, ticks, pop
		}
	}

	return g.Commit()
}

// RandomParameters draws every configured parameter uniformly in its range.
func (a *Autoplay) RandomParameters(g *Game) traits.Parameters {
	out := make(traits.Parameters, len(g.cfg.Parameters))
	for _, p := range g.cfg.Parameters {
		out[p.Name] = p.Range.Random(a.rng)
	}
	return out
}

func (a *Autoplay) tickCount(g *Game) int {
	if a.TicksPerDay > 0 {
		return a.TicksPerDay
	}
	r := g.cfg.Simulation.TickCount
	return r.Min + a.rng.Intn(r.Max-r.Min+1)
}
