// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package selection defines the shared types of the adaptive selection
// engine: the opaque task instance, the per-episode selection context,
// the solver capability contract, and historical performance records.
//
// # Description
//
// The engine decides which candidate solver ("arm") to invoke for each
// incoming task and learns online from observed outcomes. The concrete
// solvers, durable storage of performance history, and any transport
// surface are external collaborators; this module only sees tasks
// through feature extraction and solvers through the Solvable
// interface.
//
// # Thread Safety
//
// Instance and SelectionContext are treated as immutable once built.
// Callers must not mutate them while a selection episode is in flight.
package selection

import (
	"context"
)

// =============================================================================
// Task Instance
// =============================================================================

// Instance describes one incoming task.
//
// # Description
//
//	The engine treats instances as opaque except through feature
//	extraction. All fields are optional; an empty Instance still
//	produces a valid (default) feature vector.
type Instance struct {
	// ID identifies the instance. Used to group historical records
	// during bulk Elo training.
	ID string

	// Size is a generic problem-size attribute (e.g. number of
	// variables, cities, or jobs). Zero when unknown.
	Size int

	// Attributes holds additional generic scalar attributes.
	Attributes map[string]float64

	// Matrix is an optional cost or distance matrix. When present,
	// matrix-derived statistics are added to the feature vector.
	Matrix [][]float64

	// Adjacency is an optional edge list describing graph structure.
	// Each entry is a [2]int {from, to} pair.
	Adjacency [][2]int

	// Tags carries free-form labels propagated into the
	// SelectionContext.
	Tags []string
}

// =============================================================================
// Selection Context
// =============================================================================

// SelectionContext is the per-episode view of a task.
//
// # Description
//
//	Produced once per task (features extracted once) and reused by
//	every component participating in that selection episode. A nil
//	SelectionContext is always acceptable; context-free algorithms
//	ignore it and Contextual-UCB falls back to UCB1.
type SelectionContext struct {
	// Features is the fixed-length numeric feature vector.
	Features []float64

	// Tags are labels copied from the instance.
	Tags []string
}

// =============================================================================
// Solver Capability
// =============================================================================

// Solvable is the capability an external solver exposes to the engine.
//
// # Description
//
//	Used by the tournament manager to obtain performance scores.
//	Arms without a Solvable implementation receive a neutral 0.5
//	stand-in score. Solve may be slow; the engine imposes no timeout
//	and passes the caller's context through unchanged, so
//	cancellation is the collaborator's responsibility.
type Solvable interface {
	// Solve evaluates the instance and returns a performance score.
	// Higher is better. The score scale only needs to be consistent
	// across arms solving the same instance.
	Solve(ctx context.Context, inst *Instance) (float64, error)
}

// SolveFunc adapts a plain function to the Solvable interface.
type SolveFunc func(ctx context.Context, inst *Instance) (float64, error)

// Solve implements Solvable.
func (f SolveFunc) Solve(ctx context.Context, inst *Instance) (float64, error) {
	return f(ctx, inst)
}

// =============================================================================
// Performance History
// =============================================================================

// PerformanceRecord is one historical observation of an arm solving an
// instance. Bulk training entry points accept in-memory slices of these;
// durable storage is the caller's responsibility.
type PerformanceRecord struct {
	// InstanceID groups records that belong to the same training
	// instance. Records sharing an InstanceID are compared pairwise
	// during bulk Elo training.
	InstanceID string

	// ArmID names the arm that produced the observation.
	ArmID string

	// Performance is the observed score. Higher is better.
	Performance float64

	// Features is the instance feature vector at observation time.
	// May be nil for records that predate feature extraction.
	Features []float64
}

// =============================================================================
// Match Outcomes
// =============================================================================

// Match outcome values from the perspective of the first participant.
const (
	OutcomeWin  = 1.0
	OutcomeDraw = 0.5
	OutcomeLoss = 0.0
)

// OutcomeFromScores derives a match outcome by direct performance
// comparison: higher score wins, equal scores draw.
func OutcomeFromScores(scoreA, scoreB float64) float64 {
	switch {
	case scoreA > scoreB:
		return OutcomeWin
	case scoreA < scoreB:
		return OutcomeLoss
	default:
		return OutcomeDraw
	}
}
