// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cluster partitions feature vectors into k clusters with
// seeded k-means and assigns new vectors to the nearest centroid.
//
// # Thread Safety
//
// KMeans is safe for concurrent use. Fit is a rare exclusive batch
// operation; Predict calls share a read lock.
package cluster

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// ErrNotFitted is returned by Predict before a successful Fit.
// Predicting against an unfitted clusterer would silently yield
// meaningless clusters, so it is surfaced instead.
var ErrNotFitted = errors.New("clusterer has not been fitted")

// DefaultMaxIterations bounds the assignment/update loop.
const DefaultMaxIterations = 100

// =============================================================================
// KMeans
// =============================================================================

// KMeans is a seeded k-means clusterer.
//
// # Description
//
//	Fit partitions a corpus into k clusters via iterative centroid
//	assignment. Given a fixed seed and corpus, the resulting
//	centroids are deterministic, and cluster assignment for a fitted
//	clusterer is deterministic for identical input.
type KMeans struct {
	mu        sync.RWMutex
	seed      int64
	maxIter   int
	centroids [][]float64
	inertia   float64
	iters     int
}

// NewKMeans creates an unfitted clusterer.
//
// Inputs:
//
//	seed - Seed for centroid initialization. Zero is a valid fixed seed.
func NewKMeans(seed int64) *KMeans {
	return &KMeans{seed: seed, maxIter: DefaultMaxIterations}
}

// Fit partitions the corpus into k clusters.
//
// Inputs:
//
//	vectors - Feature corpus. All vectors must share one length.
//	k - Desired cluster count. Clamped to len(vectors).
//
// Outputs:
//
//	error - Non-nil for an empty corpus, k < 1, or ragged vectors.
func (km *KMeans) Fit(vectors [][]float64, k int) error {
	if len(vectors) == 0 {
		return errors.New("kmeans: empty corpus")
	}
	if k < 1 {
		return fmt.Errorf("kmeans: k must be >= 1, got %d", k)
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("kmeans: vector %d has length %d, want %d", i, len(v), dim)
		}
	}
	if k > len(vectors) {
		k = len(vectors)
	}

	// Seeded init: k distinct corpus points as starting centroids.
	rng := rand.New(rand.NewSource(km.seed))
	perm := rng.Perm(len(vectors))
	centroids := make([][]float64, k)
	for i := 0; i < k; i++ {
		centroids[i] = append([]float64(nil), vectors[perm[i]]...)
	}

	assign := make([]int, len(vectors))
	iters := 0
	for ; iters < km.maxIter; iters++ {
		changed := false
		for i, v := range vectors {
			c := nearest(centroids, v)
			if c != assign[i] {
				assign[i] = c
				changed = true
			}
		}
		if !changed && iters > 0 {
			break
		}

		// Recompute centroids; empty clusters keep their position.
		sums := make([][]float64, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make([]float64, dim)
		}
		for i, v := range vectors {
			floats.Add(sums[assign[i]], v)
			counts[assign[i]]++
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			centroids[c] = sums[c]
		}
	}

	inertia := 0.0
	for i, v := range vectors {
		d := floats.Distance(v, centroids[assign[i]], 2)
		inertia += d * d
	}

	km.mu.Lock()
	km.centroids = centroids
	km.inertia = inertia
	km.iters = iters
	km.mu.Unlock()
	return nil
}

// Predict returns the index of the nearest centroid.
//
// Outputs:
//
//	int - Cluster id in [0, k).
//	error - ErrNotFitted before Fit; a length error for mismatched
//	        vectors.
func (km *KMeans) Predict(vec []float64) (int, error) {
	km.mu.RLock()
	defer km.mu.RUnlock()
	if len(km.centroids) == 0 {
		return 0, ErrNotFitted
	}
	if len(vec) != len(km.centroids[0]) {
		return 0, fmt.Errorf("kmeans: vector length %d, want %d", len(vec), len(km.centroids[0]))
	}
	return nearest(km.centroids, vec), nil
}

// NumClusters returns the fitted k, or 0 before Fit.
func (km *KMeans) NumClusters() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.centroids)
}

// Inertia returns the within-cluster sum of squared distances from the
// last Fit. Zero before Fit.
func (km *KMeans) Inertia() float64 {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.inertia
}

// Iterations returns the assignment/update iterations the last Fit ran.
func (km *KMeans) Iterations() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.iters
}

// nearest returns the index of the centroid closest to v in Euclidean
// distance, breaking ties toward the lower index.
func nearest(centroids [][]float64, v []float64) int {
	best := 0
	bestDist := math.Inf(1)
	for i, c := range centroids {
		if d := floats.Distance(c, v, 2); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}
