package traits

import (
	"fmt"
	"maps"

	"github.com/rascar-capac/ludum-dare-56/ranges"
)

// Parameters maps a parameter name to its current value.
type Parameters map[string]float64

// Clone returns an independent copy.
func (p Parameters) Clone() Parameters {
	return maps.Clone(p)
}

// Source says what a condition reads.
type Source uint8

const (
	SourceParameter Source = iota
	SourceTrait
)

// Condition reads a parameter or a trait and turns it into an influence ratio.
type Condition struct {
	Source     Source
	Name       string // parameter or trait name
	Trait      int    // trait index when Source is SourceTrait
	IsRange    bool
	Thresholds ranges.FloatRange
}

// Evaluate returns the condition's influence ratio in [0,1].
//
// A trait below Discovered never exerts influence. In range mode the ratio is
// all or nothing; otherwise the value is remapped from the thresholds onto
// [0,1]. A parameter missing from params is a programming error and panics.
func (c Condition) Evaluate(params Parameters, states []State) float64 {
	var v float64
	switch c.Source {
	case SourceTrait:
		if c.Trait < 0 || c.Trait >= len(states) {
			panic(fmt.Sprintf("traits: condition references unknown trait %q (index %d)", c.Name, c.Trait))
		}
		st := states[c.Trait]
		if st.Status < Discovered {
			return 0
		}
		v = st.Value
	default:
		pv, ok := params[c.Name]
		if !ok {
			panic(fmt.Sprintf("traits: condition references unknown parameter %q", c.Name))
		}
		v = pv
	}

	if c.IsRange {
		if c.Thresholds.Contains(v) {
			return 1
		}
		return 0
	}
	return c.Thresholds.Ratio(v)
}

// InfluenceGroup is a conjunction of conditions with a per-tick delta.
type InfluenceGroup struct {
	InfluencePerTick float64
	Conditions       []Condition
}

// Ratio is the product of the group's condition ratios; an empty group is fully satisfied.
func (g InfluenceGroup) Ratio(params Parameters, states []State) float64 {
	ratio := 1.0
	for _, c := range g.Conditions {
		ratio *= c.Evaluate(params, states)
		if ratio == 0 {
			return 0
		}
	}
	return ratio
}
