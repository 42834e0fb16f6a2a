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
// UCB1
// =============================================================================

// ucb1Strategy scores arms with the upper confidence bound
//
//	mean/100 + sqrt(K * ln(totalPulls) / pulls)
//
// Any never-pulled arm is returned immediately, which also guards the
// log and division against zero pulls.
type ucb1Strategy struct {
	exploration float64
}

func (u *ucb1Strategy) name() Algorithm { return AlgorithmUCB1 }

func (u *ucb1Strategy) pick(s *Selector, views []view, _ *selection.SelectionContext) int {
	if idx, ok := firstUnpulled(views); ok {
		return idx
	}
	total := float64(s.totalPulls.Load())
	best := 0
	bestScore := math.Inf(-1)
	for i, v := range views {
		score := v.mean/100.0 + ucbBonus(u.exploration, total, v.pulls)
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	return best
}

func (u *ucb1Strategy) observe(*Selector, int, float64, *selection.SelectionContext) {}

// ucbBonus computes sqrt(K * ln(total) / pulls). Callers guarantee
// pulls > 0.
func ucbBonus(k, total float64, pulls int) float64 {
	if total < 1 {
		total = 1
	}
	return math.Sqrt(k * math.Log(total) / float64(pulls))
}

// firstUnpulled returns the arena index of the first never-pulled arm.
func firstUnpulled(views []view) (int, bool) {
	for i, v := range views {
		if v.pulls == 0 {
			return i, true
		}
	}
	return 0, false
}
