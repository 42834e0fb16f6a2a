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
// Thompson Sampling
// =============================================================================

// thompsonStrategy draws one sample per arm from its Beta(successes,
// failures) posterior and plays the argmax.
type thompsonStrategy struct{}

func (t *thompsonStrategy) name() Algorithm { return AlgorithmThompson }

func (t *thompsonStrategy) pick(s *Selector, views []view, _ *selection.SelectionContext) int {
	best := 0
	bestSample := math.Inf(-1)
	for i, v := range views {
		if sample := s.betaSample(v.successes, v.failures); sample > bestSample {
			best = i
			bestSample = sample
		}
	}
	return best
}

func (t *thompsonStrategy) observe(*Selector, int, float64, *selection.SelectionContext) {}

// =============================================================================
// Beta / Gamma Sampling
// =============================================================================

// betaSample draws from Beta(alpha, beta) via two gamma draws.
func (s *Selector) betaSample(alpha, beta float64) float64 {
	if alpha <= 0 {
		alpha = 1
	}
	if beta <= 0 {
		beta = 1
	}
	x := s.gammaSample(alpha)
	y := s.gammaSample(beta)
	if x+y == 0 {
		return 0.5
	}
	return x / (x + y)
}

// gammaSample draws from Gamma(shape, 1) using Marsaglia and Tsang's
// method, boosted for shape < 1.
func (s *Selector) gammaSample(shape float64) float64 {
	if shape < 1 {
		return s.gammaSample(shape+1) * math.Pow(s.float64n(), 1.0/shape)
	}
	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9.0*d)
	for {
		var x, v float64
		for {
			x = s.normFloat64()
			v = 1.0 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := s.float64n()
		if u < 1.0-0.0331*(x*x)*(x*x) {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v
		}
	}
}
