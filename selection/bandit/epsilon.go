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
	"github.com/AleutianAI/AleutianSelect/selection"
)

// =============================================================================
// ε-greedy
// =============================================================================

// epsilonGreedyStrategy explores uniformly at random with probability
// ε and otherwise exploits the highest mean reward.
//
// Unpulled arms score 0 in the exploit branch, so a pulled arm with
// any positive mean always beats them there; only the exploration
// branch reaches cold arms. This cold-start bias is preserved from the
// reference behavior.
type epsilonGreedyStrategy struct {
	epsilon float64
}

func (e *epsilonGreedyStrategy) name() Algorithm { return AlgorithmEpsilonGreedy }

func (e *epsilonGreedyStrategy) pick(s *Selector, views []view, _ *selection.SelectionContext) int {
	if e.epsilon > 0 && s.float64n() < e.epsilon {
		return s.intn(len(views))
	}
	best := 0
	for i, v := range views {
		if v.mean > views[best].mean {
			best = i
		}
	}
	return best
}

func (e *epsilonGreedyStrategy) observe(*Selector, int, float64, *selection.SelectionContext) {}
