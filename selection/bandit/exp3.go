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
	"math"

	"github.com/AleutianAI/AleutianSelect/selection"
)

// =============================================================================
// EXP3 (adversarial)
// =============================================================================

// exp3Strategy maintains one multiplicative weight per arm and samples
// the mixed distribution
//
//	p_i = (1-γ) * w_i / Σw + γ/n
//
// with γ = min(1, sqrt(n·ln n / totalPulls)). Before any pull γ is 1,
// which degenerates to the uniform distribution and guards the
// division by zero.
type exp3Strategy struct{}

func (e *exp3Strategy) name() Algorithm { return AlgorithmEXP3 }

func (e *exp3Strategy) pick(s *Selector, views []view, _ *selection.SelectionContext) int {
	return s.sampleCategorical(e.distribution(s, views))
}

// observe applies the importance-weighted multiplicative update to the
// chosen arm's weight: w *= exp(γ/n * reward/p_chosen).
func (e *exp3Strategy) observe(s *Selector, idx int, normalized float64, _ *selection.SelectionContext) {
	views := s.snapshot()
	probs := e.distribution(s, views)
	gamma := e.gamma(s, len(views))

	p := probs[idx]
	if p <= 0 {
		return
	}
	estimate := normalized / p

	a := s.arms[idx]
	a.mu.Lock()
	a.weight *= math.Exp(gamma * estimate / float64(len(views)))
	a.mu.Unlock()
}

// distribution returns the mixed sampling probabilities in arena order.
// The result sums to 1.
func (e *exp3Strategy) distribution(s *Selector, views []view) []float64 {
	n := len(views)
	gamma := e.gamma(s, n)

	sum := 0.0
	for _, v := range views {
		sum += v.weight
	}
	probs := make([]float64, n)
	for i, v := range views {
		probs[i] = (1-gamma)*(v.weight/sum) + gamma/float64(n)
	}
	return probs
}

// gamma computes the exploration mix for n arms.
func (e *exp3Strategy) gamma(s *Selector, n int) float64 {
	total := float64(s.totalPulls.Load())
	if total <= 0 {
		return 1
	}
	return math.Min(1, math.Sqrt(float64(n)*math.Log(float64(n))/total))
}
