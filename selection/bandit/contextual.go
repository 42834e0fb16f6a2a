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
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/AleutianAI/AleutianSelect/selection"
)

// =============================================================================
// Contextual UCB
// =============================================================================

// contextualStrategy scores arms with a per-arm linear model over the
// selection context plus a UCB exploration bonus:
//
//	score = dot(weights, features) + sqrt(K * ln(totalPulls) / pulls)
//
// Arms with fewer than five pulls or no fitted weight vector are
// force-explored. Without a context the strategy behaves as UCB1.
type contextualStrategy struct {
	exploration float64
}

func (c *contextualStrategy) name() Algorithm { return AlgorithmContextual }

func (c *contextualStrategy) pick(s *Selector, views []view, sctx *selection.SelectionContext) int {
	if sctx == nil || len(sctx.Features) == 0 {
		u := ucb1Strategy{exploration: c.exploration}
		return u.pick(s, views, nil)
	}

	// Force-explore cold or unfitted arms, least-pulled first.
	forced := -1
	for i, v := range views {
		if v.pulls < minContextualPulls || v.coef == nil {
			if forced < 0 || v.pulls < views[forced].pulls {
				forced = i
			}
		}
	}
	if forced >= 0 {
		return forced
	}

	total := float64(s.totalPulls.Load())
	best := 0
	bestScore := math.Inf(-1)
	for i, v := range views {
		score := dot(v.coef, sctx.Features) + ucbBonus(c.exploration, total, v.pulls)
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	return best
}

// observe appends the (context, normalized reward) sample to the arm's
// bounded history and refits the linear model once enough samples
// exist. A numerically singular fit retains the previous weights.
func (c *contextualStrategy) observe(s *Selector, idx int, normalized float64, sctx *selection.SelectionContext) {
	if sctx == nil || len(sctx.Features) == 0 {
		return
	}
	a := s.arms[idx]
	a.mu.Lock()
	defer a.mu.Unlock()

	a.history = append(a.history, ctxSample{
		features: append([]float64(nil), sctx.Features...),
		reward:   normalized,
	})
	if len(a.history) > s.cfg.HistoryLimit {
		a.history = a.history[len(a.history)-s.cfg.HistoryLimit:]
	}
	if len(a.history) <= refitThreshold {
		return
	}

	coef, ok := fitLeastSquares(a.history)
	if !ok {
		// Model unchanged: keep the previous weights.
		recordRefit("singular")
		s.logger.Debug("contextual fit singular, retaining previous weights",
			slog.String("arm", a.id),
			slog.Int("samples", len(a.history)),
		)
		return
	}
	a.coef = coef
	recordRefit("ok")
}

// fitLeastSquares solves the ordinary least-squares problem over the
// sample history.
//
// Outputs:
//
//	[]float64 - The fitted weight vector.
//	bool - False when the design matrix is rank deficient and the
//	       caller should keep its previous model.
func fitLeastSquares(history []ctxSample) ([]float64, bool) {
	d := len(history[0].features)
	rows := make([]ctxSample, 0, len(history))
	for _, sample := range history {
		if len(sample.features) == d {
			rows = append(rows, sample)
		}
	}
	if len(rows) < d {
		return nil, false
	}

	x := mat.NewDense(len(rows), d, nil)
	y := mat.NewVecDense(len(rows), nil)
	for i, sample := range rows {
		x.SetRow(i, sample.features)
		y.SetVec(i, sample.reward)
	}

	var w mat.VecDense
	if err := w.SolveVec(x, y); err != nil {
		return nil, false
	}
	coef := make([]float64, d)
	for i := range coef {
		coef[i] = w.AtVec(i)
	}
	return coef, true
}

// dot is a length-tolerant dot product over the shared prefix.
func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	return floats.Dot(a[:n], b[:n])
}
