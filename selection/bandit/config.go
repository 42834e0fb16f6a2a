// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bandit

import (
	"log/slog"
)

// =============================================================================
// Algorithms
// =============================================================================

// Algorithm identifies a bandit selection algorithm.
type Algorithm string

const (
	// AlgorithmUCB1 is deterministic upper-confidence-bound selection.
	AlgorithmUCB1 Algorithm = "ucb1"

	// AlgorithmThompson samples each arm's Beta posterior.
	AlgorithmThompson Algorithm = "thompson"

	// AlgorithmEpsilonGreedy explores uniformly with probability ε.
	AlgorithmEpsilonGreedy Algorithm = "epsilon_greedy"

	// AlgorithmSoftmax samples a Boltzmann distribution over means.
	AlgorithmSoftmax Algorithm = "softmax"

	// AlgorithmEXP3 maintains adversarial multiplicative weights.
	AlgorithmEXP3 Algorithm = "exp3"

	// AlgorithmContextual scores arms with a linear model over the
	// selection context, falling back to UCB1 without one.
	AlgorithmContextual Algorithm = "contextual"
)

// ParseAlgorithm maps an identifier to an Algorithm.
//
// Outputs:
//
//	Algorithm - The parsed algorithm, or AlgorithmUCB1 when unknown.
//	bool - False when the identifier was unknown and the UCB1
//	       fallback applies.
func ParseAlgorithm(name string) (Algorithm, bool) {
	switch Algorithm(name) {
	case AlgorithmUCB1, AlgorithmThompson, AlgorithmEpsilonGreedy,
		AlgorithmSoftmax, AlgorithmEXP3, AlgorithmContextual:
		return Algorithm(name), true
	default:
		return AlgorithmUCB1, false
	}
}

// Algorithms returns every known algorithm identifier.
func Algorithms() []Algorithm {
	return []Algorithm{
		AlgorithmUCB1,
		AlgorithmThompson,
		AlgorithmEpsilonGreedy,
		AlgorithmSoftmax,
		AlgorithmEXP3,
		AlgorithmContextual,
	}
}

// =============================================================================
// Configuration
// =============================================================================

// Default hyperparameters.
const (
	// DefaultEpsilon is the ε-greedy exploration probability.
	DefaultEpsilon = 0.1

	// DefaultTemperature is the Softmax temperature.
	DefaultTemperature = 1.0

	// DefaultExploration is the UCB exploration bonus K.
	DefaultExploration = 2.0

	// DefaultHistoryLimit bounds each arm's contextual sample history.
	DefaultHistoryLimit = 128

	// minContextualPulls is the pull count below which Contextual-UCB
	// force-explores an arm.
	minContextualPulls = 5

	// refitThreshold is the history size above which the contextual
	// linear model is refitted.
	refitThreshold = 10

	// successThreshold converts a normalized reward into a Beta
	// posterior observation: normalized >= 0.7 counts as a success.
	successThreshold = 0.7
)

// Config configures a Selector.
//
// # Description
//
//	Zero-valued fields take defaults; out-of-range values are clamped
//	by New rather than rejected.
type Config struct {
	// Algorithm selects the variant. An unrecognized value soft-falls
	// back to UCB1 with a logged warning.
	Algorithm Algorithm

	// Epsilon is the ε-greedy exploration probability in [0, 1].
	// Zero is honored as pure greedy; DefaultConfig uses 0.1.
	Epsilon float64

	// Temperature is the Softmax temperature. Must be positive.
	Temperature float64

	// Exploration is the UCB exploration bonus K.
	Exploration float64

	// HistoryLimit bounds the per-arm contextual sample history.
	HistoryLimit int

	// Seed seeds the selector's random source. Zero picks a
	// time-derived seed (non-deterministic).
	Seed int64

	// Logger for warnings and debug output. Nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the default selector configuration.
func DefaultConfig() *Config {
	return &Config{
		Algorithm:    AlgorithmUCB1,
		Epsilon:      DefaultEpsilon,
		Temperature:  DefaultTemperature,
		Exploration:  DefaultExploration,
		HistoryLimit: DefaultHistoryLimit,
	}
}

// normalize clamps and defaults config fields in place.
func (c *Config) normalize() {
	if c.Epsilon < 0 {
		c.Epsilon = 0
	}
	if c.Epsilon > 1 {
		c.Epsilon = 1
	}
	if c.Temperature <= 0 {
		c.Temperature = DefaultTemperature
	}
	if c.Exploration <= 0 {
		c.Exploration = DefaultExploration
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
