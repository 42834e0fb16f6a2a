// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tournament runs Swiss-paired evaluation rounds within a
// cluster, producing a ranked comparison and a recommended arm.
//
// # Description
//
// A tournament copies the cluster's Elo ratings into a disposable
// scratch table, then for each round pairs adjacent arms by scratch
// rating, obtains performance scores from each arm's solver (or a
// neutral 0.5 stand-in), and applies the Elo formula to the scratch
// table only. Persistent ratings are never mutated.
//
// Running a tournament invokes every arm up to R times, which is
// strictly more expensive than the low-latency policy façade; reserve
// it for periodic re-evaluation, not per-task dispatch.
//
// # Thread Safety
//
// Manager is safe for concurrent use: scratch state is local to one
// Run, so concurrent tournaments never share it.
package tournament

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianSelect/selection"
	"github.com/AleutianAI/AleutianSelect/selection/cluster"
	"github.com/AleutianAI/AleutianSelect/selection/elo"
	"github.com/AleutianAI/AleutianSelect/selection/features"
)

var tournamentTracer = otel.Tracer("selection.tournament")

// ErrNoEntrants is returned by Run when the manager has no entrants.
var ErrNoEntrants = errors.New("tournament: no entrants")

// DefaultRounds is the default number of Swiss rounds.
const DefaultRounds = 5

// NeutralScore substitutes for an arm with no solver or a failed solve.
const NeutralScore = 0.5

// =============================================================================
// Entrants and Results
// =============================================================================

// Entrant is one tournament participant.
type Entrant struct {
	// ID is the arm identifier.
	ID string

	// Solver produces performance scores. Nil yields NeutralScore.
	Solver selection.Solvable
}

// MatchRecord is one played match.
type MatchRecord struct {
	// Round is the 1-based round number.
	Round int `json:"round"`

	// ArmA and ArmB are the participants; ArmA is the higher-rated
	// side at pairing time.
	ArmA string `json:"arm_a"`
	ArmB string `json:"arm_b"`

	// ScoreA and ScoreB are the observed performance scores.
	ScoreA float64 `json:"score_a"`
	ScoreB float64 `json:"score_b"`

	// Outcome is 1.0, 0.5, or 0.0 from ArmA's perspective.
	Outcome float64 `json:"outcome"`
}

// Ranking is one arm's final scratch rating.
type Ranking struct {
	ArmID  string  `json:"arm_id"`
	Rating float64 `json:"rating"`
}

// Result is the outcome of one tournament run.
type Result struct {
	// SelectedArm is the highest-rated arm after the final round.
	SelectedArm string `json:"selected_arm"`

	// Cluster is the cluster scope the tournament ran in.
	Cluster int `json:"cluster"`

	// Rankings lists arms by descending scratch rating.
	Rankings []Ranking `json:"rankings"`

	// Matches is the ordered match history.
	Matches []MatchRecord `json:"matches"`
}

// =============================================================================
// Manager
// =============================================================================

// Config configures a tournament Manager.
type Config struct {
	// Rounds is the number of Swiss rounds. Non-positive uses
	// DefaultRounds.
	Rounds int

	// K is the Elo K-factor applied to the scratch table.
	// Non-positive uses elo.DefaultK.
	K float64

	// Logger for debug output. Nil uses slog.Default().
	Logger *slog.Logger
}

// Manager runs Swiss tournaments over a fixed entrant set.
type Manager struct {
	rounds    int
	k         float64
	logger    *slog.Logger
	entrants  []Entrant
	extractor *features.Extractor
	clusterer *cluster.KMeans
	ratings   *elo.Tracker
}

// NewManager creates a tournament manager.
//
// Inputs:
//
//	cfg - Manager configuration. Nil uses defaults.
//	entrants - The participants. Order is the tie-break of the
//	           initial pairing sort.
//	extractor - Produces selection contexts when the caller passes
//	            none.
//	clusterer - Resolves the cluster scope. An unfitted clusterer
//	            falls back to the single-cluster default (cluster 0).
//	ratings - The persistent Elo tracker whose cluster table seeds
//	          the scratch table.
//
// Outputs:
//
//	*Manager - The manager.
//	error - A contract error for a nil extractor, clusterer, or
//	        ratings tracker.
func NewManager(cfg *Config, entrants []Entrant, extractor *features.Extractor, clusterer *cluster.KMeans, ratings *elo.Tracker) (*Manager, error) {
	if extractor == nil {
		return nil, errors.New("tournament: nil extractor")
	}
	if clusterer == nil {
		return nil, errors.New("tournament: nil clusterer")
	}
	if ratings == nil {
		return nil, errors.New("tournament: nil ratings tracker")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	rounds := cfg.Rounds
	if rounds <= 0 {
		rounds = DefaultRounds
	}
	k := cfg.K
	if k <= 0 {
		k = elo.DefaultK
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		rounds:    rounds,
		k:         k,
		logger:    logger,
		entrants:  entrants,
		extractor: extractor,
		clusterer: clusterer,
		ratings:   ratings,
	}, nil
}

// Run executes one tournament for the given instance.
//
// Inputs:
//
//	ctx - Propagated to every solver invocation. The engine imposes
//	      no timeout of its own.
//	inst - The task instance being evaluated.
//	sctx - Optional pre-built selection context; nil extracts one.
//
// Outputs:
//
//	*Result - Selected arm, descending rankings, and match history.
//	error - Non-nil only for an empty entrant set or a cancelled
//	        context; individual solve failures degrade to
//	        NeutralScore.
func (m *Manager) Run(ctx context.Context, inst *selection.Instance, sctx *selection.SelectionContext) (*Result, error) {
	if len(m.entrants) == 0 {
		return nil, ErrNoEntrants
	}
	start := time.Now()
	if sctx == nil {
		sctx = m.extractor.Context(inst)
	}

	clusterID := m.resolveCluster(sctx)

	ctx, span := tournamentTracer.Start(ctx, "tournament.Run")
	span.SetAttributes(
		attribute.Int("cluster", clusterID),
		attribute.Int("rounds", m.rounds),
		attribute.Int("arms", len(m.entrants)),
	)
	defer span.End()

	// Scratch ratings: tournament state never mutates the tracker.
	scratch := make(map[string]float64, len(m.entrants))
	persisted := m.ratings.ClusterRatings(clusterID)
	for _, e := range m.entrants {
		r, ok := persisted[e.ID]
		if !ok {
			r = elo.StartingRating
		}
		scratch[e.ID] = r
	}

	var matches []MatchRecord
	for round := 1; round <= m.rounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		played, err := m.playRound(ctx, round, inst, scratch)
		if err != nil {
			return nil, err
		}
		matches = append(matches, played...)
	}

	rankings := rank(scratch)
	result := &Result{
		SelectedArm: rankings[0].ArmID,
		Cluster:     clusterID,
		Rankings:    rankings,
		Matches:     matches,
	}
	recordRun(len(matches), time.Since(start))
	m.logger.Debug("tournament complete",
		slog.String("selected_arm", result.SelectedArm),
		slog.Int("cluster", clusterID),
		slog.Int("matches", len(matches)),
	)
	return result, nil
}

// playRound pairs adjacent arms by scratch rating, plays each match
// concurrently, and applies the results to the scratch table.
func (m *Manager) playRound(ctx context.Context, round int, inst *selection.Instance, scratch map[string]float64) ([]MatchRecord, error) {
	order := make([]Entrant, len(m.entrants))
	copy(order, m.entrants)
	sort.SliceStable(order, func(i, j int) bool {
		ri, rj := scratch[order[i].ID], scratch[order[j].ID]
		if ri != rj {
			return ri > rj
		}
		return order[i].ID < order[j].ID
	})

	type pairing struct{ a, b Entrant }
	var pairs []pairing
	for i := 0; i+1 < len(order); i += 2 {
		pairs = append(pairs, pairing{order[i], order[i+1]})
	}
	// An odd entrant count leaves the lowest-rated arm with a bye.

	records := make([]MatchRecord, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	for i, p := range pairs {
		i, p := i, p // per-iteration copies; required under the go1.21 loop semantics
		g.Go(func() error {
			scoreA := m.solve(gctx, p.a, inst)
			scoreB := m.solve(gctx, p.b, inst)
			rec := MatchRecord{
				Round:   round,
				ArmA:    p.a.ID,
				ArmB:    p.b.ID,
				ScoreA:  scoreA,
				ScoreB:  scoreB,
				Outcome: selection.OutcomeFromScores(scoreA, scoreB),
			}
			mu.Lock()
			records[i] = rec
			mu.Unlock()
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, rec := range records {
		applyScratch(scratch, rec, m.k)
	}
	return records, nil
}

// solve obtains a performance score, degrading to NeutralScore for
// missing solvers and solve failures.
func (m *Manager) solve(ctx context.Context, e Entrant, inst *selection.Instance) float64 {
	if e.Solver == nil {
		return NeutralScore
	}
	score, err := e.Solver.Solve(ctx, inst)
	if err != nil {
		m.logger.Warn("solver failed, using neutral score",
			slog.String("arm", e.ID),
			slog.String("error", err.Error()),
		)
		return NeutralScore
	}
	return score
}

// resolveCluster maps the context to a cluster, defaulting to the
// single-cluster scope 0 when the clusterer is unfitted.
func (m *Manager) resolveCluster(sctx *selection.SelectionContext) int {
	id, err := m.clusterer.Predict(sctx.Features)
	if err != nil {
		if !errors.Is(err, cluster.ErrNotFitted) {
			m.logger.Warn("cluster prediction failed, using cluster 0",
				slog.String("error", err.Error()),
			)
		}
		return 0
	}
	return id
}

// applyScratch performs the logistic Elo update on the scratch table.
func applyScratch(scratch map[string]float64, rec MatchRecord, k float64) {
	ra, rb := scratch[rec.ArmA], scratch[rec.ArmB]
	ea := elo.Expectation(ra, rb)
	scratch[rec.ArmA] = ra + k*(rec.Outcome-ea)
	scratch[rec.ArmB] = rb + k*((1-rec.Outcome)-(1-ea))
}

// rank sorts the scratch table into descending rankings, breaking
// rating ties by arm id for determinism.
func rank(scratch map[string]float64) []Ranking {
	rankings := make([]Ranking, 0, len(scratch))
	for id, r := range scratch {
		rankings = append(rankings, Ranking{ArmID: id, Rating: r})
	}
	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].Rating != rankings[j].Rating {
			return rankings[i].Rating > rankings[j].Rating
		}
		return rankings[i].ArmID < rankings[j].ArmID
	})
	return rankings
}
