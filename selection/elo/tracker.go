// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package elo maintains global and per-cluster Elo ratings for arms and
// applies pairwise rating updates.
//
// # Thread Safety
//
// Tracker is safe for concurrent use. A pairwise update mutates both
// participants atomically within each scope, preserving the zero-sum
// property.
package elo

import (
	"math"
	"sync"

	"github.com/AleutianAI/AleutianSelect/selection"
)

// StartingRating is the rating assigned to any arm on first sight.
const StartingRating = 1500.0

// DefaultK is the default K-factor.
const DefaultK = 32.0

// =============================================================================
// Tracker
// =============================================================================

// Tracker holds Elo ratings keyed by (arm, scope), where a scope is
// either the global table or one cluster's table.
//
// # Description
//
//	UpdatePair applies the standard logistic update
//	  E_a = 1 / (1 + 10^((R_b - R_a)/400))
//	  R_a' = R_a + K * (outcome - E_a)
//	to both the cluster-scoped table and the global table
//	independently, using the identical K for each.
type Tracker struct {
	mu       sync.RWMutex
	k        float64
	global   map[string]float64
	clusters map[int]map[string]float64
}

// NewTracker creates a tracker with the given K-factor.
// A non-positive k falls back to DefaultK.
func NewTracker(k float64) *Tracker {
	if k <= 0 {
		k = DefaultK
	}
	return &Tracker{
		k:        k,
		global:   make(map[string]float64),
		clusters: make(map[int]map[string]float64),
	}
}

// Expectation returns the logistic win expectation of a over b.
func Expectation(ratingA, ratingB float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (ratingB-ratingA)/400.0))
}

// UpdatePair applies one pairwise update in the given cluster scope and
// the global scope.
//
// Inputs:
//
//	armA, armB - Participant arm ids. Unseen arms start at StartingRating.
//	cluster - Cluster scope for the scoped update.
//	outcome - 1.0 (a wins), 0.5 (draw), or 0.0 (b wins).
func (t *Tracker) UpdatePair(armA, armB string, cluster int, outcome float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	applyUpdate(t.clusterTableLocked(cluster), armA, armB, outcome, t.k)
	applyUpdate(t.global, armA, armB, outcome, t.k)
}

// Rating returns the cluster-scoped rating for an arm.
// Unseen arms report StartingRating.
func (t *Tracker) Rating(arm string, cluster int) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if table, ok := t.clusters[cluster]; ok {
		if r, ok := table[arm]; ok {
			return r
		}
	}
	return StartingRating
}

// GlobalRating returns the global-scope rating for an arm.
func (t *Tracker) GlobalRating(arm string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if r, ok := t.global[arm]; ok {
		return r
	}
	return StartingRating
}

// ClusterRatings returns a copy of one cluster's rating table.
func (t *Tracker) ClusterRatings(cluster int) map[string]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]float64, len(t.clusters[cluster]))
	for arm, r := range t.clusters[cluster] {
		out[arm] = r
	}
	return out
}

// GlobalRatings returns a copy of the global rating table.
func (t *Tracker) GlobalRatings() map[string]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]float64, len(t.global))
	for arm, r := range t.global {
		out[arm] = r
	}
	return out
}

// Reset discards all ratings in every scope.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.global = make(map[string]float64)
	t.clusters = make(map[int]map[string]float64)
}

// Train bulk-initializes ratings from historical records.
//
// # Description
//
//	For every unordered pair of records sharing an InstanceID, an
//	outcome is derived by direct performance comparison (higher score
//	wins, equal scores draw) and applied as a pairwise update.
//
// Inputs:
//
//	records - In-memory performance history.
//	clusterOf - Maps a record to its cluster scope. Nil assigns
//	            every record to cluster 0.
func (t *Tracker) Train(records []selection.PerformanceRecord, clusterOf func(*selection.PerformanceRecord) int) {
	byInstance := make(map[string][]selection.PerformanceRecord)
	for _, rec := range records {
		byInstance[rec.InstanceID] = append(byInstance[rec.InstanceID], rec)
	}
	for _, group := range byInstance {
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				cluster := 0
				if clusterOf != nil {
					cluster = clusterOf(&a)
				}
				t.UpdatePair(a.ArmID, b.ArmID, cluster,
					selection.OutcomeFromScores(a.Performance, b.Performance))
			}
		}
	}
}

// clusterTableLocked returns the cluster's table, creating it if absent.
// Caller holds the write lock.
func (t *Tracker) clusterTableLocked(cluster int) map[string]float64 {
	table, ok := t.clusters[cluster]
	if !ok {
		table = make(map[string]float64)
		t.clusters[cluster] = table
	}
	return table
}

// applyUpdate performs the logistic Elo update on one table.
func applyUpdate(table map[string]float64, armA, armB string, outcome, k float64) {
	ra, ok := table[armA]
	if !ok {
		ra = StartingRating
	}
	rb, ok := table[armB]
	if !ok {
		rb = StartingRating
	}
	ea := Expectation(ra, rb)
	table[armA] = ra + k*(outcome-ea)
	table[armB] = rb + k*((1-outcome)-(1-ea))
}
