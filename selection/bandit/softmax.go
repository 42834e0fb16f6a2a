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
// Softmax (Boltzmann exploration)
// =============================================================================

// softmaxStrategy samples the Boltzmann distribution over normalized
// means: each arm scores mean/100 (0.5 when unpulled), scores are
// exponentiated by 1/temperature and normalized into probabilities.
type softmaxStrategy struct {
	temperature float64
}

func (sm *softmaxStrategy) name() Algorithm { return AlgorithmSoftmax }

func (sm *softmaxStrategy) pick(s *Selector, views []view, _ *selection.SelectionContext) int {
	return s.sampleCategorical(sm.distribution(views))
}

func (sm *softmaxStrategy) observe(*Selector, int, float64, *selection.SelectionContext) {}

// distribution returns the sampling probabilities in arena order.
// The result sums to 1.
func (sm *softmaxStrategy) distribution(views []view) []float64 {
	scores := make([]float64, len(views))
	maxScore := math.Inf(-1)
	for i, v := range views {
		score := 0.5
		if v.pulls > 0 {
			score = v.mean / 100.0
		}
		scores[i] = score / sm.temperature
		if scores[i] > maxScore {
			maxScore = scores[i]
		}
	}

	// Shift by the max before exponentiating for numeric stability.
	sum := 0.0
	probs := make([]float64, len(scores))
	for i, sc := range scores {
		probs[i] = math.Exp(sc - maxScore)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
