// Package main provides CMA-ES optimization for bogbog care parameters.
package main

import (
	"github.com/rascar-capac/ludum-dare-56/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Parameter name as used in previews
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates one spec per configured simulation parameter.
func NewParamVector(cfg *config.Config) *ParamVector {
	specs := make([]ParamSpec, len(cfg.Parameters))
	for i, p := range cfg.Parameters {
		specs[i] = ParamSpec{
			Name:    p.Name,
			Min:     p.Range.Min,
			Max:     p.Range.Max,
			Default: p.Range.Clamp(p.Initial),
		}
	}
	return &ParamVector{Specs: specs}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		if spec.Max > spec.Min {
			normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
		}
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig stores values as the initial parameters of cfg.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)
	for i, spec := range pv.Specs {
		idx, ok := cfg.Derived.ParameterIndex[spec.Name]
		if !ok {
			continue
		}
		cfg.Parameters[idx].Initial = clamped[i]
	}
}

// ExtractFromConfig reads the initial parameters of cfg in spec order.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	v := pv.DefaultVector()
	for i, spec := range pv.Specs {
		if idx, ok := cfg.Derived.ParameterIndex[spec.Name]; ok {
			v[i] = cfg.Parameters[idx].Initial
		}
	}
	return v
}
