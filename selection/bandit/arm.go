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
	"sync"
)

// =============================================================================
// Arm Arena
// =============================================================================

// arm is one entry in the selector's arena. Each arm carries its own
// mutex so concurrent updates to different arms never contend.
//
// Mutated only through Selector.Update; never destroyed except by
// Selector.Reset.
type arm struct {
	mu sync.Mutex

	id string

	// pulls and total track the running mean reward (raw [0,100]).
	pulls int
	total float64

	// Beta posterior over success probability, prior Beta(1,1).
	successes float64
	failures  float64

	// weight is the EXP3 multiplicative weight.
	weight float64

	// coef is the fitted linear model for Contextual-UCB. Nil until
	// enough samples accumulate and a least-squares fit succeeds.
	coef []float64

	// history is the bounded (context, normalized reward) sample
	// buffer for the contextual fit.
	history []ctxSample
}

// ctxSample is one contextual observation.
type ctxSample struct {
	features []float64
	reward   float64 // normalized to [0,1]
}

// newArm returns an arm at its priors.
func newArm(id string) *arm {
	return &arm{
		id:        id,
		successes: 1,
		failures:  1,
		weight:    1,
	}
}

// resetLocked restores the arm to its priors. Caller holds a.mu.
func (a *arm) resetLocked() {
	a.pulls = 0
	a.total = 0
	a.successes = 1
	a.failures = 1
	a.weight = 1
	a.coef = nil
	a.history = nil
}

// view is an immutable snapshot of one arm's statistics, taken under
// the arm's lock so scoring never reads torn state.
type view struct {
	id         string
	pulls      int
	mean       float64 // raw mean reward in [0,100], 0 when unpulled
	successes  float64
	failures   float64
	weight     float64
	coef       []float64
	historyLen int
}

// snapshot captures the arm's statistics.
func (a *arm) snapshot() view {
	a.mu.Lock()
	defer a.mu.Unlock()
	v := view{
		id:         a.id,
		pulls:      a.pulls,
		successes:  a.successes,
		failures:   a.failures,
		weight:     a.weight,
		coef:       a.coef,
		historyLen: len(a.history),
	}
	if a.pulls > 0 {
		v.mean = a.total / float64(a.pulls)
	}
	return v
}

// ArmStats is the exported per-arm statistics snapshot.
type ArmStats struct {
	// ID is the arm identifier.
	ID string `json:"id"`

	// Pulls is how many rewards the arm has received.
	Pulls int `json:"pulls"`

	// MeanReward is the running mean raw reward in [0,100].
	MeanReward float64 `json:"mean_reward"`

	// Successes and Failures are the Beta posterior parameters
	// (both start at the uniform prior 1).
	Successes float64 `json:"successes"`
	Failures  float64 `json:"failures"`
}
