package systems

import (
	"log/slog"
	"math"

	"github.com/rascar-capac/ludum-dare-56/config"
	"github.com/rascar-capac/ludum-dare-56/events"
	"github.com/rascar-capac/ludum-dare-56/traits"
)

// deathCountSlack absorbs float error so an exact product like 5*0.4 does not ceil to 3.
const deathCountSlack = 1e-9

// ReproductionProbability is the per-tick spawn chance for the current
// reproduction trait value.
func (p *Population) ReproductionProbability() float64 {
	v := p.traits.Value(p.reproID)
	return p.cfg.GateRange.RemapTo(v, p.cfg.ReproductionProbability.Min, p.cfg.ReproductionProbability.Max, true)
}

// DeathRatio is the share of the population dying per tick for the current
// hurt trait value.
func (p *Population) DeathRatio() float64 {
	v := p.traits.Value(p.hurtID)
	return p.cfg.GateRange.RemapTo(v, p.cfg.DeathRatio.Min, p.cfg.DeathRatio.Max, true)
}

// TickReproduction runs tickCount reproduction rolls starting after startTick.
// Nothing happens unless the reproduction trait is at least Discovered and
// there is at least a pair. Returns the number of births.
func (p *Population) TickReproduction(tickCount int, startTick int) int {
	if !p.traits.AtLeast(p.reproID, traits.Discovered) || p.Count() < 2 {
		return 0
	}

	chance := p.ReproductionProbability()
	births := 0
	for i := 0; i < tickCount; i++ {
		if p.Count() >= p.capacity {
			continue
		}
		if p.rng.Float64() < chance {
			if _, ok := p.Spawn(startTick + i + 1); ok {
				births++
			}
		}
	}
	return births
}

// TickDeath runs tickCount death ticks starting after startTick, gated on the
// hurt trait being at least Discovered. Each tick kills ceil(population *
// DeathRatio) bogbogs; a tick that finds nobody alive publishes
// AllPopulationDead and stops. Returns the number of deaths.
func (p *Population) TickDeath(tickCount int, startTick int) int {
	if !p.traits.AtLeast(p.hurtID, traits.Discovered) {
		return 0
	}

	ratio := p.DeathRatio()
	deaths := 0
	for i := 0; i < tickCount; i++ {
		tick := startTick + i + 1
		if p.Count() == 0 {
			slog.Info("all_population_dead", "tick", tick, "dead", p.DeadCount())
			events.Publish(p.bus, AllPopulationDead{Tick: tick})
			return deaths
		}

		n := int(math.Ceil(float64(p.Count())*ratio - deathCountSlack))
		for _, id := range p.victims(n) {
			if p.Kill(id, tick) {
				deaths++
			}
		}
	}
	return deaths
}

// victims picks n living IDs according to the configured selection policy.
func (p *Population) victims(n int) []uint32 {
	n = min(max(n, 0), p.Count())
	ids := make([]uint32, 0, n)

	if p.cfg.DeathSelection == config.DeathSelectionRandom {
		for _, idx := range p.rng.Perm(p.Count())[:n] {
			ids = append(ids, p.bogbogMap.Get(p.roster[idx]).ID)
		}
		return ids
	}

	for _, e := range p.roster[:n] {
		ids = append(ids, p.bogbogMap.Get(e).ID)
	}
	return ids
}
