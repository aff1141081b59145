// Package main provides CMA-ES search over the genetic algorithm
// hyperparameters, scoring each candidate by short training runs.
package main

import (
	"math"

	"github.com/pthm-cable/duel/config"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
	Integer bool    // Rounded before use
}

// ParamVector holds the set of all tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of tunable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "mutation_rate", Path: "evolution.mutation_rate", Min: 0.01, Max: 0.5, Default: 0.15},
			{Name: "mutation_strength", Path: "evolution.mutation_strength", Min: 0.05, Max: 1.0, Default: 0.4},
			{Name: "crossover_rate", Path: "evolution.crossover_rate", Min: 0.0, Max: 1.0, Default: 0.7},
			{Name: "tournament_size", Path: "evolution.tournament_size", Min: 2, Max: 10, Default: 5, Integer: true},
			{Name: "elite_count", Path: "evolution.elite_count", Min: 0, Max: 12, Default: 5, Integer: true},
		},
	}
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
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
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

// Clamp ensures all values are within bounds, rounding the integer
// parameters.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		if spec.Integer {
			val = math.Round(val)
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	cfg.Evolution.MutationRate = clamped[0]
	cfg.Evolution.MutationStrength = clamped[1]
	cfg.Evolution.CrossoverRate = clamped[2]
	cfg.Evolution.TournamentSize = int(clamped[3])
	cfg.Evolution.EliteCount = int(clamped[4])

	if cfg.Evolution.EliteCount > cfg.Evolution.PopulationSize {
		cfg.Evolution.EliteCount = cfg.Evolution.PopulationSize
	}
}

// ExtractFromConfig extracts current parameter values from a Config.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Evolution.MutationRate,
		cfg.Evolution.MutationStrength,
		cfg.Evolution.CrossoverRate,
		float64(cfg.Evolution.TournamentSize),
		float64(cfg.Evolution.EliteCount),
	}
}
