// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package features converts opaque task instances into fixed-length
// numeric feature vectors and optionally standardizes them against a
// fitted corpus.
//
// # Thread Safety
//
// Extractor is safe for concurrent use. Fit is an exclusive batch
// operation relative to concurrent Extract/Transform calls.
package features

import (
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/AleutianAI/AleutianSelect/selection"
)

// =============================================================================
// Feature Layout
// =============================================================================

// Dim is the fixed length of every extracted feature vector.
//
// Layout:
//
//	[0]     instance size
//	[1]     attribute count
//	[2:11]  matrix statistics (rows, mean, std, min, max, median,
//	        q1, q3, Frobenius norm) or zeros when no matrix
//	[11:16] graph statistics (nodes, edges, density, degree mean,
//	        degree std) or zeros when no adjacency
const Dim = 16

const (
	matrixOffset = 2
	graphOffset  = 11
)

// =============================================================================
// Extractor
// =============================================================================

// Extractor builds feature vectors and holds an optional fitted
// standard scaler (center/scale per dimension).
//
// # Description
//
//	Extract never fails: instances with missing structure degrade to
//	zero-filled defaults. Transform before Fit returns the input
//	unscaled rather than erroring.
type Extractor struct {
	mu     sync.RWMutex
	fitted bool
	means  []float64
	scales []float64
}

// NewExtractor creates an unfitted extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract converts an instance into a Dim-length feature vector.
//
// Inputs:
//
//	inst - The task instance. May be nil, which yields the default
//	       (all-zero) vector.
//
// Outputs:
//
//	[]float64 - The raw (unscaled) feature vector, always length Dim.
func (e *Extractor) Extract(inst *selection.Instance) []float64 {
	v := make([]float64, Dim)
	if inst == nil {
		return v
	}

	v[0] = float64(inst.Size)
	v[1] = float64(len(inst.Attributes))

	if len(inst.Matrix) > 0 {
		matrixStats(inst.Matrix, v[matrixOffset:graphOffset])
	}
	if len(inst.Adjacency) > 0 {
		graphStats(inst.Adjacency, v[graphOffset:])
	}
	return v
}

// Context extracts features and packages them with the instance tags
// into a SelectionContext for one selection episode.
func (e *Extractor) Context(inst *selection.Instance) *selection.SelectionContext {
	var tags []string
	if inst != nil {
		tags = inst.Tags
	}
	return &selection.SelectionContext{
		Features: e.Transform(e.Extract(inst)),
		Tags:     tags,
	}
}

// Fit computes the center/scale transform from a feature corpus.
//
// Inputs:
//
//	corpus - Feature vectors, each of length Dim. Shorter or longer
//	         vectors are ignored. An empty corpus leaves the
//	         extractor unfitted.
func (e *Extractor) Fit(corpus [][]float64) {
	cols := make([][]float64, Dim)
	for _, vec := range corpus {
		if len(vec) != Dim {
			continue
		}
		for i, x := range vec {
			cols[i] = append(cols[i], x)
		}
	}
	if len(cols[0]) == 0 {
		return
	}

	means := make([]float64, Dim)
	scales := make([]float64, Dim)
	for i, col := range cols {
		means[i] = stat.Mean(col, nil)
		sd := stat.StdDev(col, nil)
		if sd == 0 || math.IsNaN(sd) {
			sd = 1 // constant dimension stays centered only
		}
		scales[i] = sd
	}

	e.mu.Lock()
	e.means = means
	e.scales = scales
	e.fitted = true
	e.mu.Unlock()
}

// Transform applies the fitted scaler to a feature vector.
//
// # Description
//
//	Returns (x - mean) / scale per dimension. Before Fit, or for
//	vectors of unexpected length, the input is returned unscaled.
func (e *Extractor) Transform(vec []float64) []float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.fitted || len(vec) != Dim {
		return vec
	}
	out := make([]float64, Dim)
	for i, x := range vec {
		out[i] = (x - e.means[i]) / e.scales[i]
	}
	return out
}

// Fitted reports whether Fit has computed a scaling transform.
func (e *Extractor) Fitted() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.fitted
}

// =============================================================================
// Structure Statistics
// =============================================================================

// matrixStats writes cost/distance matrix statistics into dst
// (rows, mean, std, min, max, median, q1, q3, Frobenius norm).
func matrixStats(m [][]float64, dst []float64) {
	var flat []float64
	rows := len(m)
	cols := 0
	for _, row := range m {
		if len(row) > cols {
			cols = len(row)
		}
		flat = append(flat, row...)
	}
	if len(flat) == 0 {
		return
	}

	dst[0] = float64(rows)
	dst[1] = stat.Mean(flat, nil)
	if len(flat) > 1 {
		dst[2] = stat.StdDev(flat, nil)
	}
	dst[3] = floats.Min(flat)
	dst[4] = floats.Max(flat)

	sorted := append([]float64(nil), flat...)
	sort.Float64s(sorted)
	dst[5] = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	dst[6] = stat.Quantile(0.25, stat.Empirical, sorted, nil)
	dst[7] = stat.Quantile(0.75, stat.Empirical, sorted, nil)

	// Frobenius norm over the dense (zero-padded) matrix.
	dense := mat.NewDense(rows, cols, nil)
	for i, row := range m {
		for j, x := range row {
			dense.Set(i, j, x)
		}
	}
	dst[8] = mat.Norm(dense, 2)
}

// graphStats writes adjacency statistics into dst
// (nodes, edges, density, degree mean, degree std).
func graphStats(edges [][2]int, dst []float64) {
	degree := make(map[int]float64)
	for _, e := range edges {
		degree[e[0]]++
		degree[e[1]]++
	}
	n := float64(len(degree))
	m := float64(len(edges))
	if n == 0 {
		return
	}

	dst[0] = n
	dst[1] = m
	if n > 1 {
		dst[2] = 2 * m / (n * (n - 1))
	}

	degrees := make([]float64, 0, len(degree))
	for _, d := range degree {
		degrees = append(degrees, d)
	}
	dst[3] = stat.Mean(degrees, nil)
	if len(degrees) > 1 {
		dst[4] = stat.StdDev(degrees, nil)
	}
}
