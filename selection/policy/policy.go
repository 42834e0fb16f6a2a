// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package policy is the low-latency selection façade: it combines
// cluster-scoped Elo ratings with a UCB exploration bonus without
// running a full tournament.
//
// # Description
//
// SelectSolver scores each arm as
//
//	(rating - 1500)/400 + sqrt(C * ln(clusterPulls+1) / (armPulls+1))
//
// and returns the argmax. RecordOutcome appends to a bounded rolling
// per-cluster history and retroactively updates pairwise Elo against
// the most recent observation of each other arm in the same cluster.
// No new matches are run.
//
// # Thread Safety
//
// Selector is safe for concurrent use; per-cluster state carries its
// own lock.
package policy

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/AleutianSelect/selection"
	"github.com/AleutianAI/AleutianSelect/selection/cluster"
	"github.com/AleutianAI/AleutianSelect/selection/elo"
	"github.com/AleutianAI/AleutianSelect/selection/features"
)

var policyTracer = otel.Tracer("selection.policy")

// ErrNoArms is returned when the policy is built with no arms.
var ErrNoArms = errors.New("policy: no arms registered")

// Defaults.
const (
	// DefaultExploration is the UCB exploration constant C.
	DefaultExploration = 2.0

	// DefaultHistoryLimit bounds each cluster's rolling outcome
	// history.
	DefaultHistoryLimit = 50
)

// =============================================================================
// Configuration
// =============================================================================

// Config configures a policy Selector.
type Config struct {
	// Exploration is the UCB exploration constant C. Non-positive
	// uses DefaultExploration.
	Exploration float64

	// HistoryLimit bounds the per-cluster rolling history.
	// Non-positive uses DefaultHistoryLimit.
	HistoryLimit int

	// Logger for debug output. Nil uses slog.Default().
	Logger *slog.Logger
}

// =============================================================================
// Selector
// =============================================================================

// observation is one recorded outcome in a cluster's rolling history.
type observation struct {
	arm         string
	performance float64
}

// clusterState tracks one cluster's pull counts and rolling history
// under its own lock.
type clusterState struct {
	mu       sync.Mutex
	pulls    int
	armPulls map[string]int
	history  []observation
}

// Selector is the low-latency façade.
type Selector struct {
	exploration  float64
	historyLimit int
	logger       *slog.Logger

	arms      []string
	extractor *features.Extractor
	clusterer *cluster.KMeans
	ratings   *elo.Tracker

	mu       sync.RWMutex
	clusters map[int]*clusterState
}

// NewSelector creates the façade over a fixed arm set.
//
// Inputs:
//
//	cfg - Policy configuration. Nil uses defaults.
//	arms - The selectable arm ids. Must be non-empty.
//	extractor - Produces selection contexts when the caller passes
//	            none.
//	clusterer - Resolves cluster scope. Unfitted clusterers fall
//	            back to the single-cluster default (cluster 0).
//	ratings - The persistent Elo tracker.
//
// Outputs:
//
//	*Selector - The façade.
//	error - ErrNoArms for an empty arm set; a contract error for a
//	        nil extractor, clusterer, or ratings tracker.
func NewSelector(cfg *Config, arms []string, extractor *features.Extractor, clusterer *cluster.KMeans, ratings *elo.Tracker) (*Selector, error) {
	if len(arms) == 0 {
		return nil, ErrNoArms
	}
	if extractor == nil {
		return nil, errors.New("policy: nil extractor")
	}
	if clusterer == nil {
		return nil, errors.New("policy: nil clusterer")
	}
	if ratings == nil {
		return nil, errors.New("policy: nil ratings tracker")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	exploration := cfg.Exploration
	if exploration <= 0 {
		exploration = DefaultExploration
	}
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{
		exploration:  exploration,
		historyLimit: historyLimit,
		logger:       logger,
		arms:         append([]string(nil), arms...),
		extractor:    extractor,
		clusterer:    clusterer,
		ratings:      ratings,
		clusters:     make(map[int]*clusterState),
	}, nil
}

// SelectSolver picks the arm for one task without running matches.
//
// Outputs:
//
//	string - The chosen arm id.
//	int - The resolved cluster.
//	error - Currently only context cancellation.
func (s *Selector) SelectSolver(ctx context.Context, inst *selection.Instance, sctx *selection.SelectionContext) (string, int, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	if sctx == nil {
		sctx = s.extractor.Context(inst)
	}
	clusterID := s.resolveCluster(sctx)

	_, span := policyTracer.Start(ctx, "policy.SelectSolver")
	span.SetAttributes(attribute.Int("cluster", clusterID))
	defer span.End()

	state := s.state(clusterID)
	state.mu.Lock()
	clusterPulls := state.pulls
	armPulls := make(map[string]int, len(state.armPulls))
	for arm, n := range state.armPulls {
		armPulls[arm] = n
	}
	state.mu.Unlock()

	best := s.arms[0]
	bestScore := math.Inf(-1)
	for _, arm := range s.arms {
		rating := s.ratings.Rating(arm, clusterID)
		score := (rating-elo.StartingRating)/400.0 +
			math.Sqrt(s.exploration*math.Log(float64(clusterPulls+1))/float64(armPulls[arm]+1))
		if score > bestScore {
			best = arm
			bestScore = score
		}
	}

	span.SetAttributes(attribute.String("arm", best))
	recordPolicySelection(best, time.Since(start))
	return best, clusterID, nil
}

// RecordOutcome feeds one observed performance back into the policy.
//
// # Description
//
//	Appends to the cluster's bounded rolling history, increments the
//	pull counters the UCB term reads, and retroactively applies
//	pairwise Elo updates against the most recent observation of each
//	other arm in the cluster, comparing performance values directly.
func (s *Selector) RecordOutcome(inst *selection.Instance, arm string, performance float64, sctx *selection.SelectionContext) {
	if sctx == nil {
		sctx = s.extractor.Context(inst)
	}
	clusterID := s.resolveCluster(sctx)
	state := s.state(clusterID)

	state.mu.Lock()
	// Latest observation per distinct other arm, newest first.
	seen := map[string]bool{arm: true}
	var opponents []observation
	for i := len(state.history) - 1; i >= 0; i-- {
		obs := state.history[i]
		if seen[obs.arm] {
			continue
		}
		seen[obs.arm] = true
		opponents = append(opponents, obs)
	}

	state.history = append(state.history, observation{arm: arm, performance: performance})
	if len(state.history) > s.historyLimit {
		state.history = state.history[len(state.history)-s.historyLimit:]
	}
	state.pulls++
	state.armPulls[arm]++
	state.mu.Unlock()

	for _, opp := range opponents {
		s.ratings.UpdatePair(arm, opp.arm, clusterID,
			selection.OutcomeFromScores(performance, opp.performance))
	}
	recordPolicyOutcome(arm)
}

// ClusterPulls reports how many outcomes a cluster has recorded.
func (s *Selector) ClusterPulls(clusterID int) int {
	state := s.state(clusterID)
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.pulls
}

// state returns the cluster's state, creating it on first use.
func (s *Selector) state(clusterID int) *clusterState {
	s.mu.RLock()
	st, ok := s.clusters[clusterID]
	s.mu.RUnlock()
	if ok {
		return st
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok = s.clusters[clusterID]; ok {
		return st
	}
	st = &clusterState{armPulls: make(map[string]int)}
	s.clusters[clusterID] = st
	return st
}

// resolveCluster maps the context to a cluster, defaulting to the
// single-cluster scope 0 when the clusterer is unfitted.
func (s *Selector) resolveCluster(sctx *selection.SelectionContext) int {
	id, err := s.clusterer.Predict(sctx.Features)
	if err != nil {
		if !errors.Is(err, cluster.ErrNotFitted) {
			s.logger.Warn("cluster prediction failed, using cluster 0",
				slog.String("error", err.Error()),
			)
		}
		return 0
	}
	return id
}
