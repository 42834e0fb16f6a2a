// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianSelect/selection"
	"github.com/AleutianAI/AleutianSelect/selection/cluster"
	"github.com/AleutianAI/AleutianSelect/selection/elo"
	"github.com/AleutianAI/AleutianSelect/selection/features"
)

func newTestPolicy(t *testing.T, cfg *Config, arms ...string) (*Selector, *elo.Tracker) {
	t.Helper()
	tracker := elo.NewTracker(32)
	s, err := NewSelector(cfg, arms, features.NewExtractor(), cluster.NewKMeans(1), tracker)
	require.NoError(t, err)
	return s, tracker
}

func TestNewSelectorRejectsEmptyArms(t *testing.T) {
	_, err := NewSelector(nil, nil, features.NewExtractor(), cluster.NewKMeans(1), elo.NewTracker(32))
	assert.True(t, errors.Is(err, ErrNoArms))
}

func TestNewSelectorRejectsNilCollaborators(t *testing.T) {
	arms := []string{"a"}
	extractor := features.NewExtractor()
	clusterer := cluster.NewKMeans(1)
	tracker := elo.NewTracker(32)

	_, err := NewSelector(nil, arms, nil, clusterer, tracker)
	assert.Error(t, err, "nil extractor")
	_, err = NewSelector(nil, arms, extractor, nil, tracker)
	assert.Error(t, err, "nil clusterer")
	_, err = NewSelector(nil, arms, extractor, clusterer, nil)
	assert.Error(t, err, "nil ratings tracker")
}

func TestSelectSolverRespectsCancellation(t *testing.T) {
	s, _ := newTestPolicy(t, nil, "a", "b")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := s.SelectSolver(ctx, &selection.Instance{}, nil)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSelectSolverColdStateFirstArm(t *testing.T) {
	s, _ := newTestPolicy(t, nil, "a", "b", "c")

	// All ratings equal and no pulls: scores tie, first arm wins.
	arm, clusterID, err := s.SelectSolver(context.Background(), &selection.Instance{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "a", arm)
	assert.Equal(t, 0, clusterID, "unfitted clusterer defaults to cluster 0")
}

func TestSelectSolverPrefersHigherRating(t *testing.T) {
	s, tracker := newTestPolicy(t, nil, "a", "b")
	// Hand b a clear rating lead in cluster 0.
	for i := 0; i < 5; i++ {
		tracker.UpdatePair("b", "a", 0, selection.OutcomeWin)
	}

	arm, _, err := s.SelectSolver(context.Background(), &selection.Instance{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "b", arm)
}

func TestSelectSolverExplorationBonus(t *testing.T) {
	s, tracker := newTestPolicy(t, nil, "favorite", "underdog")
	tracker.UpdatePair("favorite", "underdog", 0, selection.OutcomeWin)

	// Pile pulls onto the favorite; its bonus shrinks until the
	// underdog's larger bonus overcomes the 32-point rating gap.
	inst := &selection.Instance{}
	sawUnderdog := false
	for i := 0; i < 50; i++ {
		arm, _, err := s.SelectSolver(context.Background(), inst, nil)
		require.NoError(t, err)
		if arm == "underdog" {
			sawUnderdog = true
			break
		}
		s.RecordOutcome(inst, arm, 0.5, nil)
	}
	assert.True(t, sawUnderdog, "exploration bonus never surfaced the underdog")
}

func TestRecordOutcomeRetroactiveElo(t *testing.T) {
	s, tracker := newTestPolicy(t, nil, "a", "b")
	inst := &selection.Instance{}

	s.RecordOutcome(inst, "a", 0.9, nil)
	// No opponent observation yet: ratings untouched.
	assert.Equal(t, elo.StartingRating, tracker.Rating("a", 0))

	s.RecordOutcome(inst, "b", 0.1, nil)
	// b's outcome is compared against a's most recent observation:
	// b lost, so a gains.
	assert.Greater(t, tracker.Rating("a", 0), elo.StartingRating)
	assert.Less(t, tracker.Rating("b", 0), elo.StartingRating)
	assert.Greater(t, tracker.GlobalRating("a"), elo.StartingRating)
}

func TestRecordOutcomeUsesLatestObservationPerArm(t *testing.T) {
	s, tracker := newTestPolicy(t, nil, "a", "b")
	inst := &selection.Instance{}

	s.RecordOutcome(inst, "a", 0.1, nil) // stale
	s.RecordOutcome(inst, "a", 0.9, nil) // latest for a
	before := tracker.Rating("b", 0)
	s.RecordOutcome(inst, "b", 0.5, nil)

	// b (0.5) compared only against a's latest (0.9): one loss.
	assert.Less(t, tracker.Rating("b", 0), before)
	// Exactly one pairwise update happened for b: zero-sum holds.
	sum := tracker.Rating("a", 0) + tracker.Rating("b", 0)
	assert.InDelta(t, 2*elo.StartingRating, sum, 1e-9)
}

func TestRecordOutcomeCountsPulls(t *testing.T) {
	s, _ := newTestPolicy(t, nil, "a", "b")
	inst := &selection.Instance{}

	assert.Equal(t, 0, s.ClusterPulls(0))
	s.RecordOutcome(inst, "a", 0.5, nil)
	s.RecordOutcome(inst, "b", 0.5, nil)
	s.RecordOutcome(inst, "a", 0.5, nil)
	assert.Equal(t, 3, s.ClusterPulls(0))
	assert.Equal(t, 0, s.ClusterPulls(1), "other clusters stay untouched")
}

func TestHistoryBounded(t *testing.T) {
	s, _ := newTestPolicy(t, &Config{HistoryLimit: 3}, "a", "b")
	inst := &selection.Instance{}

	for i := 0; i < 10; i++ {
		s.RecordOutcome(inst, "a", 0.5, nil)
	}

	state := s.state(0)
	state.mu.Lock()
	defer state.mu.Unlock()
	assert.Len(t, state.history, 3)
	assert.Equal(t, 10, state.pulls, "pull counters outlive evicted history")
}

func TestClusterStatesIsolated(t *testing.T) {
	tracker := elo.NewTracker(32)
	km := cluster.NewKMeans(1)
	// Two separated blobs in feature space: size 0 vs size 1000.
	extractor := features.NewExtractor()
	corpus := [][]float64{
		extractor.Extract(&selection.Instance{Size: 0}),
		extractor.Extract(&selection.Instance{Size: 1}),
		extractor.Extract(&selection.Instance{Size: 1000}),
		extractor.Extract(&selection.Instance{Size: 1001}),
	}
	require.NoError(t, km.Fit(corpus, 2))

	s, err := NewSelector(nil, []string{"a", "b"}, extractor, km, tracker)
	require.NoError(t, err)

	small := &selection.Instance{Size: 0}
	large := &selection.Instance{Size: 1000}

	_, smallCluster, err := s.SelectSolver(context.Background(), small, nil)
	require.NoError(t, err)
	_, largeCluster, err := s.SelectSolver(context.Background(), large, nil)
	require.NoError(t, err)
	require.NotEqual(t, smallCluster, largeCluster)

	s.RecordOutcome(small, "a", 0.9, nil)
	s.RecordOutcome(small, "b", 0.1, nil)

	// The other cluster's scoped ratings never moved.
	assert.Equal(t, elo.StartingRating, tracker.Rating("a", largeCluster))
	assert.Greater(t, tracker.Rating("a", smallCluster), elo.StartingRating)
	assert.Equal(t, 2, s.ClusterPulls(smallCluster))
	assert.Equal(t, 0, s.ClusterPulls(largeCluster))
}
