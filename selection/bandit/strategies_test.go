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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianSelect/selection"
)

// =============================================================================
// UCB1
// =============================================================================

func TestUCB1PlaysEveryArmOnce(t *testing.T) {
	s := newTestSelector(t, AlgorithmUCB1, "a", "b", "c", "d")

	seen := make(map[string]bool)
	for i := 0; i < 4; i++ {
		arm, err := s.Select(nil)
		require.NoError(t, err)
		assert.False(t, seen[arm], "arm %s selected twice during cold start", arm)
		seen[arm] = true
		require.NoError(t, s.Update(arm, 50, nil))
	}
	assert.Len(t, seen, 4)
}

func TestUCB1PrefersHigherMeanAtEqualPulls(t *testing.T) {
	s := newTestSelector(t, AlgorithmUCB1, "x", "y", "z")
	rewards := map[string]float64{"x": 50, "y": 90, "z": 10}
	for i := 0; i < 3; i++ {
		arm, err := s.Select(nil)
		require.NoError(t, err)
		require.NoError(t, s.Update(arm, rewards[arm], nil))
	}

	// All arms have one pull: the exploration bonus is identical, so
	// the highest mean decides.
	arm, err := s.Select(nil)
	require.NoError(t, err)
	assert.Equal(t, "y", arm)
}

func TestUCB1Deterministic(t *testing.T) {
	run := func() []string {
		s := newTestSelector(t, AlgorithmUCB1, "a", "b", "c")
		rewards := map[string]float64{"a": 30, "b": 70, "c": 50}
		var picks []string
		for i := 0; i < 20; i++ {
			arm, err := s.Select(nil)
			require.NoError(t, err)
			picks = append(picks, arm)
			require.NoError(t, s.Update(arm, rewards[arm], nil))
		}
		return picks
	}
	assert.Equal(t, run(), run())
}

func TestUCBBonusGuardsZeroTotal(t *testing.T) {
	// total < 1 is treated as 1, so the bonus is 0, not NaN.
	if b := ucbBonus(2.0, 0, 1); b != 0 {
		t.Errorf("ucbBonus with zero total = %v, want 0", b)
	}
}

// =============================================================================
// Thompson Sampling
// =============================================================================

func TestThompsonConvergesToBetterArm(t *testing.T) {
	s := newTestSelector(t, AlgorithmThompson, "good", "bad")
	rewards := map[string]float64{"good": 90, "bad": 10}

	goodInFinal := 0
	for i := 0; i < 200; i++ {
		arm, err := s.Select(nil)
		require.NoError(t, err)
		require.NoError(t, s.Update(arm, rewards[arm], nil))
		if i >= 180 && arm == "good" {
			goodInFinal++
		}
	}
	assert.GreaterOrEqual(t, goodInFinal, 14,
		"thompson picked the better arm only %d/20 times late on", goodInFinal)
}

func TestBetaSampleRange(t *testing.T) {
	s := newTestSelector(t, AlgorithmThompson, "a")
	for i := 0; i < 1000; i++ {
		x := s.betaSample(3, 7)
		if x < 0 || x > 1 {
			t.Fatalf("beta sample %v outside [0,1]", x)
		}
	}
}

func TestBetaSampleSkew(t *testing.T) {
	s := newTestSelector(t, AlgorithmThompson, "a")
	sum := 0.0
	const n = 2000
	for i := 0; i < n; i++ {
		sum += s.betaSample(9, 1)
	}
	// Beta(9,1) has mean 0.9.
	assert.InDelta(t, 0.9, sum/n, 0.05)
}

// =============================================================================
// ε-greedy
// =============================================================================

func TestEpsilonZeroIsPureGreedy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Algorithm = AlgorithmEpsilonGreedy
	cfg.Epsilon = 0
	cfg.Seed = 1
	s, err := New(cfg, []string{"a", "b"})
	require.NoError(t, err)

	require.NoError(t, s.Update("a", 80, nil))
	require.NoError(t, s.Update("b", 20, nil))
	for i := 0; i < 50; i++ {
		arm, err := s.Select(nil)
		require.NoError(t, err)
		assert.Equal(t, "a", arm)
	}
}

func TestEpsilonGreedyExplores(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Algorithm = AlgorithmEpsilonGreedy
	cfg.Epsilon = 0.5
	cfg.Seed = 1
	s, err := New(cfg, []string{"a", "b"})
	require.NoError(t, err)

	require.NoError(t, s.Update("a", 80, nil))
	require.NoError(t, s.Update("b", 20, nil))

	picks := make(map[string]int)
	for i := 0; i < 200; i++ {
		arm, err := s.Select(nil)
		require.NoError(t, err)
		picks[arm]++
	}
	// With ε=0.5 the worse arm is reached roughly a quarter of the time.
	assert.Greater(t, picks["b"], 20)
	assert.Greater(t, picks["a"], picks["b"])
}

// Unpulled arms score zero in the exploit branch, so exploitation
// never reaches them once any arm has a positive mean.
func TestEpsilonGreedyColdStartBias(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Algorithm = AlgorithmEpsilonGreedy
	cfg.Epsilon = 0
	cfg.Seed = 1
	s, err := New(cfg, []string{"warm", "cold"})
	require.NoError(t, err)

	require.NoError(t, s.Update("warm", 1, nil)) // tiny but positive mean
	for i := 0; i < 20; i++ {
		arm, err := s.Select(nil)
		require.NoError(t, err)
		assert.Equal(t, "warm", arm)
	}
}

// =============================================================================
// Softmax
// =============================================================================

func TestSoftmaxDistributionSumsToOne(t *testing.T) {
	s := newTestSelector(t, AlgorithmSoftmax, "a", "b", "c")
	require.NoError(t, s.Update("a", 90, nil))
	require.NoError(t, s.Update("b", 10, nil))
	// c stays unpulled and scores the neutral 0.5.

	probs, err := s.Distribution()
	require.NoError(t, err)
	require.Len(t, probs, 3)

	sum := 0.0
	for _, p := range probs {
		assert.Greater(t, p, 0.0)
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-6)

	// Ordering follows the means: a (0.9) > c (0.5 neutral) > b (0.1).
	assert.Greater(t, probs[0], probs[2])
	assert.Greater(t, probs[2], probs[1])
}

func TestSoftmaxTemperatureSharpness(t *testing.T) {
	build := func(temp float64) []float64 {
		cfg := DefaultConfig()
		cfg.Algorithm = AlgorithmSoftmax
		cfg.Temperature = temp
		cfg.Seed = 1
		s, err := New(cfg, []string{"a", "b"})
		require.NoError(t, err)
		require.NoError(t, s.Update("a", 90, nil))
		require.NoError(t, s.Update("b", 10, nil))
		probs, err := s.Distribution()
		require.NoError(t, err)
		return probs
	}

	sharp := build(0.1)
	soft := build(10)
	assert.Greater(t, sharp[0], soft[0], "low temperature should concentrate mass")
	assert.InDelta(t, 0.5, soft[0], 0.05, "high temperature approaches uniform")
}

// =============================================================================
// EXP3
// =============================================================================

func TestEXP3DistributionSumsToOne(t *testing.T) {
	s := newTestSelector(t, AlgorithmEXP3, "a", "b", "c")

	// Before any pull γ=1: purely uniform.
	probs, err := s.Distribution()
	require.NoError(t, err)
	for _, p := range probs {
		assert.InDelta(t, 1.0/3.0, p, 1e-12)
	}

	for i := 0; i < 30; i++ {
		arm, err := s.Select(nil)
		require.NoError(t, err)
		reward := 10.0
		if arm == "a" {
			reward = 90.0
		}
		require.NoError(t, s.Update(arm, reward, nil))
	}

	probs, err = s.Distribution()
	require.NoError(t, err)
	sum := 0.0
	for _, p := range probs {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
	// The rewarded arm accumulates weight.
	assert.Greater(t, probs[0], probs[1])
	assert.Greater(t, probs[0], probs[2])
}

func TestEXP3GammaShrinksWithPulls(t *testing.T) {
	s := newTestSelector(t, AlgorithmEXP3, "a", "b")
	e := &exp3Strategy{}

	assert.Equal(t, 1.0, e.gamma(s, 2), "γ is 1 before any pull")

	for i := 0; i < 100; i++ {
		require.NoError(t, s.Update("a", 50, nil))
	}
	g := e.gamma(s, 2)
	want := math.Min(1, math.Sqrt(2*math.Log(2)/100))
	assert.InDelta(t, want, g, 1e-12)
}

// =============================================================================
// Contextual UCB
// =============================================================================

func TestContextualFallsBackWithoutContext(t *testing.T) {
	s := newTestSelector(t, AlgorithmContextual, "a", "b")
	seen := make(map[string]bool)
	for i := 0; i < 2; i++ {
		arm, err := s.Select(nil)
		require.NoError(t, err)
		seen[arm] = true
		require.NoError(t, s.Update(arm, 50, nil))
	}
	// UCB1 fallback: both arms get their cold-start pull.
	assert.Len(t, seen, 2)
}

func TestContextualForceExploresColdArms(t *testing.T) {
	s := newTestSelector(t, AlgorithmContextual, "a", "b")
	sctx := &selection.SelectionContext{Features: []float64{1.0}}

	counts := make(map[string]int)
	for i := 0; i < 10; i++ {
		arm, err := s.Select(sctx)
		require.NoError(t, err)
		counts[arm]++
		require.NoError(t, s.Update(arm, 50, sctx), "update %d", i)
	}
	// Least-pulled-first forced exploration keeps the arms level.
	assert.Equal(t, 5, counts["a"])
	assert.Equal(t, 5, counts["b"])
}

func TestContextualLearnsLinearModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Algorithm = AlgorithmContextual
	cfg.Seed = 1
	s, err := New(cfg, []string{"good", "bad"})
	require.NoError(t, err)

	sctx := &selection.SelectionContext{Features: []float64{1.0}}
	// Enough samples per arm to clear the refit threshold.
	for i := 0; i < 15; i++ {
		require.NoError(t, s.Update("good", 90, sctx))
		require.NoError(t, s.Update("bad", 10, sctx))
	}

	// Both arms are warm and fitted; the linear score decides.
	for i := 0; i < 5; i++ {
		arm, err := s.Select(sctx)
		require.NoError(t, err)
		assert.Equal(t, "good", arm)
	}
}

func TestFitLeastSquaresRecoversWeights(t *testing.T) {
	// reward = 0.5*x0 + 0.25*x1
	var history []ctxSample
	points := [][2]float64{{1, 0}, {0, 1}, {1, 1}, {2, 1}, {1, 2}, {3, 0}, {0, 3}, {2, 2}, {1, 3}, {3, 1}, {2, 0}, {0, 2}}
	for _, p := range points {
		history = append(history, ctxSample{
			features: []float64{p[0], p[1]},
			reward:   0.5*p[0] + 0.25*p[1],
		})
	}

	coef, ok := fitLeastSquares(history)
	require.True(t, ok)
	require.Len(t, coef, 2)
	assert.InDelta(t, 0.5, coef[0], 1e-9)
	assert.InDelta(t, 0.25, coef[1], 1e-9)
}

func TestFitLeastSquaresUnderdetermined(t *testing.T) {
	history := []ctxSample{
		{features: []float64{1, 2, 3}, reward: 0.5},
		{features: []float64{4, 5, 6}, reward: 0.7},
	}
	// Two rows cannot determine three weights.
	_, ok := fitLeastSquares(history)
	assert.False(t, ok)
}

func TestDotLengthTolerant(t *testing.T) {
	assert.Equal(t, 11.0, dot([]float64{1, 2, 3}, []float64{3, 4}))
	assert.Equal(t, 0.0, dot(nil, []float64{1}))
}
