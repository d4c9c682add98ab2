// Package ranges provides numeric intervals with containment, clamping and
// linear remapping between intervals.
package ranges

import (
	"math"
	"math/rand"
)

// FloatRange is a closed interval [Min, Max].
type FloatRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Amplitude returns Max - Min.
func (r FloatRange) Amplitude() float64 {
	return r.Max - r.Min
}

// Center returns the midpoint of the range.
func (r FloatRange) Center() float64 {
	return (r.Max + r.Min) * 0.5
}

// Contains reports whether v lies in [Min, Max], both ends inclusive.
func (r FloatRange) Contains(v float64) bool {
	return r.Min <= v && v <= r.Max
}

// Clamp restricts v to [Min, Max].
func (r FloatRange) Clamp(v float64) float64 {
	return math.Min(math.Max(v, r.Min), r.Max)
}

// Random draws a uniform value in [Min, Max).
func (r FloatRange) Random(rng *rand.Rand) float64 {
	return r.Min + rng.Float64()*r.Amplitude()
}

// RemapTo maps v from this range onto [toMin, toMax].
// A degenerate source range maps everything to toMin.
func (r FloatRange) RemapTo(v, toMin, toMax float64, clamp bool) float64 {
	out := Remap(v, r.Min, r.Max, toMin, toMax)
	if clamp {
		out = clampOrdered(out, toMin, toMax)
	}
	return out
}

// RemapFrom maps v from [fromMin, fromMax] onto this range.
func (r FloatRange) RemapFrom(v, fromMin, fromMax float64, clamp bool) float64 {
	out := Remap(v, fromMin, fromMax, r.Min, r.Max)
	if clamp {
		out = r.Clamp(out)
	}
	return out
}

// Ratio maps v from this range onto [0, 1], clamped.
func (r FloatRange) Ratio(v float64) float64 {
	return r.RemapTo(v, 0, 1, true)
}

// Remap linearly maps v from [fromMin, fromMax] onto [toMin, toMax] without clamping.
func Remap(v, fromMin, fromMax, toMin, toMax float64) float64 {
	span := fromMax - fromMin
	if span == 0 {
		return toMin
	}
	return toMin + (v-fromMin)/span*(toMax-toMin)
}

// Clamp01 restricts v to [0, 1].
func Clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}

// clampOrdered clamps v between a and b regardless of which one is larger.
func clampOrdered(v, a, b float64) float64 {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	return math.Min(math.Max(v, lo), hi)
}

// IntRange is a half-open interval [Min, Max).
type IntRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Contains reports whether v lies in [Min, Max).
func (r IntRange) Contains(v int) bool {
	return r.Min <= v && v < r.Max
}

// Clamp restricts v to [Min, Max] (inclusive upper bound, for selectors).
func (r IntRange) Clamp(v int) int {
	return min(max(v, r.Min), r.Max)
}

// Random draws a uniform integer in [Min, Max). Returns Min if the range is empty.
func (r IntRange) Random(rng *rand.Rand) int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.Intn(r.Max-r.Min)
}
