// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package bandit implements multi-armed bandit selection over a fixed
// arm set with six algorithm variants: UCB1, Thompson Sampling,
// ε-greedy, Softmax, EXP3, and a linear contextual UCB.
//
// # Description
//
// A Selector is constructed with its arm set and one algorithm variant;
// the variant is resolved once at construction, not re-dispatched per
// call. Rewards arrive in [0,100] and are normalized internally.
//
// # Thread Safety
//
// Selector is safe for concurrent use. Arm statistics live in an arena
// with per-entry locks, so concurrent updates to different arms do not
// contend and no increments are lost.
package bandit

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/AleutianSelect/selection"
)

// Sentinel errors for stateful API misuse. These are surfaced rather
// than absorbed because silent misrouting permanently corrupts the
// learned statistics.
var (
	// ErrNoArms is returned when a selector is built or queried with
	// zero registered arms.
	ErrNoArms = errors.New("bandit: no arms registered")

	// ErrUnknownArm is returned when a reward targets an arm that was
	// not registered at construction time.
	ErrUnknownArm = errors.New("bandit: unknown arm")

	// ErrNoDistribution is returned by Distribution for algorithms
	// that do not sample a categorical distribution.
	ErrNoDistribution = errors.New("bandit: algorithm has no sampling distribution")
)

// =============================================================================
// Strategy Interface
// =============================================================================

// strategy is the closed set of algorithm variants. Exactly one is
// resolved at construction time.
type strategy interface {
	// name reports the algorithm identifier.
	name() Algorithm

	// pick returns the arena index of the arm to play.
	pick(s *Selector, views []view, sctx *selection.SelectionContext) int

	// observe lets the variant react to a reward for views[idx].
	// Called after the arm's base statistics are updated.
	observe(s *Selector, idx int, normalized float64, sctx *selection.SelectionContext)
}

// =============================================================================
// Selector
// =============================================================================

// Selector selects among a fixed arm set using one algorithm variant.
type Selector struct {
	cfg    Config
	logger *slog.Logger
	strat  strategy

	arms  []*arm
	index map[string]int

	totalPulls atomic.Int64

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates a Selector over the given arm ids.
//
// # Description
//
//	The algorithm named in cfg is resolved once here. An unknown
//	identifier soft-falls back to UCB1 with a logged warning; an
//	empty or duplicate-laden arm set is a contract violation and
//	errors out.
//
// Inputs:
//
//	cfg - Selector configuration. Nil uses DefaultConfig.
//	armIDs - The fixed arm set. Must be non-empty and unique.
//
// Outputs:
//
//	*Selector - The selector.
//	error - ErrNoArms for an empty set; a duplicate error otherwise.
func New(cfg *Config, armIDs []string) (*Selector, error) {
	if len(armIDs) == 0 {
		return nil, ErrNoArms
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	conf := *cfg
	conf.normalize()

	arms := make([]*arm, 0, len(armIDs))
	index := make(map[string]int, len(armIDs))
	for _, id := range armIDs {
		if _, dup := index[id]; dup {
			return nil, fmt.Errorf("bandit: duplicate arm %q", id)
		}
		index[id] = len(arms)
		arms = append(arms, newArm(id))
	}

	seed := conf.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Selector{
		cfg:    conf,
		logger: conf.Logger,
		arms:   arms,
		index:  index,
		rng:    rand.New(rand.NewSource(seed)),
	}
	s.strat = s.resolveStrategy(conf.Algorithm)
	return s, nil
}

// resolveStrategy maps the configured algorithm to its variant,
// falling back to UCB1 for unknown identifiers.
func (s *Selector) resolveStrategy(alg Algorithm) strategy {
	parsed, known := ParseAlgorithm(string(alg))
	if !known {
		s.logger.Warn("unknown bandit algorithm, falling back to UCB1",
			slog.String("algorithm", string(alg)),
		)
	}
	switch parsed {
	case AlgorithmThompson:
		return &thompsonStrategy{}
	case AlgorithmEpsilonGreedy:
		return &epsilonGreedyStrategy{epsilon: s.cfg.Epsilon}
	case AlgorithmSoftmax:
		return &softmaxStrategy{temperature: s.cfg.Temperature}
	case AlgorithmEXP3:
		return &exp3Strategy{}
	case AlgorithmContextual:
		return &contextualStrategy{exploration: s.cfg.Exploration}
	default:
		return &ucb1Strategy{exploration: s.cfg.Exploration}
	}
}

// Algorithm returns the resolved algorithm (after any fallback).
func (s *Selector) Algorithm() Algorithm {
	return s.strat.name()
}

// Arms returns the registered arm ids in arena order.
func (s *Selector) Arms() []string {
	ids := make([]string, len(s.arms))
	for i, a := range s.arms {
		ids[i] = a.id
	}
	return ids
}

// Select chooses an arm for the current episode.
//
// Inputs:
//
//	sctx - Optional selection context. Only Contextual-UCB consumes
//	       it; nil is always valid.
//
// Outputs:
//
//	string - The chosen arm id.
//	error - ErrNoArms if the selector has no arms.
func (s *Selector) Select(sctx *selection.SelectionContext) (string, error) {
	if len(s.arms) == 0 {
		return "", ErrNoArms
	}
	views := s.snapshot()
	idx := s.strat.pick(s, views, sctx)
	id := s.arms[idx].id
	recordSelection(string(s.strat.name()), id)
	return id, nil
}

// Update records a reward for an arm.
//
// # Description
//
//	The raw reward is clamped to [0,100] and normalized to [0,1].
//	Base statistics (pulls, mean, Beta posterior with the 0.7
//	success threshold) update under the arm's own lock; the variant
//	then observes the reward (EXP3 weight update, contextual history
//	and refit).
//
// Inputs:
//
//	armID - The arm that produced the outcome.
//	reward - Raw reward in [0,100]. Out-of-range values are clamped.
//	sctx - Optional selection context, consumed by Contextual-UCB.
//
// Outputs:
//
//	error - ErrUnknownArm for unregistered arms.
func (s *Selector) Update(armID string, reward float64, sctx *selection.SelectionContext) error {
	idx, ok := s.index[armID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownArm, armID)
	}
	if reward < 0 {
		reward = 0
	}
	if reward > 100 {
		reward = 100
	}
	normalized := reward / 100.0

	a := s.arms[idx]
	a.mu.Lock()
	a.pulls++
	a.total += reward
	if normalized >= successThreshold {
		a.successes++
	} else {
		a.failures++
	}
	a.mu.Unlock()
	s.totalPulls.Add(1)

	s.strat.observe(s, idx, normalized, sctx)
	recordUpdate(string(s.strat.name()), normalized)
	return nil
}

// BestArm returns the pure-exploitation choice: the arm with the
// highest mean reward, unpulled arms treated as 0.
//
// Outputs:
//
//	string - The best arm id.
//	error - ErrNoArms if the selector has no arms.
func (s *Selector) BestArm() (string, error) {
	if len(s.arms) == 0 {
		return "", ErrNoArms
	}
	views := s.snapshot()
	best := 0
	for i, v := range views {
		if v.mean > views[best].mean {
			best = i
		}
	}
	return views[best].id, nil
}

// Reset restores every arm to its priors and zeroes the pull total.
func (s *Selector) Reset() {
	for _, a := range s.arms {
		a.mu.Lock()
		a.resetLocked()
		a.mu.Unlock()
	}
	s.totalPulls.Store(0)
}

// Stats returns a point-in-time statistics snapshot per arm, in arena
// order.
func (s *Selector) Stats() []ArmStats {
	views := s.snapshot()
	out := make([]ArmStats, len(views))
	for i, v := range views {
		out[i] = ArmStats{
			ID:         v.id,
			Pulls:      v.pulls,
			MeanReward: v.mean,
			Successes:  v.successes,
			Failures:   v.failures,
		}
	}
	return out
}

// TotalPulls returns the number of rewards recorded since the last
// Reset.
func (s *Selector) TotalPulls() int {
	return int(s.totalPulls.Load())
}

// Distribution returns the categorical sampling distribution the
// current algorithm would draw from, in arena order.
//
// # Description
//
//	Only Softmax and EXP3 sample a distribution; other algorithms
//	return ErrNoDistribution. The probabilities sum to 1.
func (s *Selector) Distribution() ([]float64, error) {
	views := s.snapshot()
	switch st := s.strat.(type) {
	case *softmaxStrategy:
		return st.distribution(views), nil
	case *exp3Strategy:
		return st.distribution(s, views), nil
	default:
		return nil, ErrNoDistribution
	}
}

// snapshot captures all arm statistics, locking each arm briefly.
func (s *Selector) snapshot() []view {
	views := make([]view, len(s.arms))
	for i, a := range s.arms {
		views[i] = a.snapshot()
	}
	return views
}

// float64n returns a uniform float in [0,1) from the seeded source.
func (s *Selector) float64n() float64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Float64()
}

// intn returns a uniform int in [0,n) from the seeded source.
func (s *Selector) intn(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(n)
}

// normFloat64 returns a standard normal draw from the seeded source.
func (s *Selector) normFloat64() float64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.NormFloat64()
}

// sampleCategorical draws an index from a probability vector. The
// final index absorbs any floating-point remainder.
func (s *Selector) sampleCategorical(probs []float64) int {
	u := s.float64n()
	acc := 0.0
	for i, p := range probs {
		acc += p
		if u < acc {
			return i
		}
	}
	return len(probs) - 1
}
