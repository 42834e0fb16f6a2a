// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cluster

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoBlobs is a corpus with two well-separated groups.
func twoBlobs() [][]float64 {
	return [][]float64{
		{0.0, 0.1}, {0.1, 0.0}, {0.1, 0.1}, {0.0, 0.0},
		{10.0, 10.1}, {10.1, 10.0}, {10.1, 10.1}, {10.0, 10.0},
	}
}

func TestPredictBeforeFit(t *testing.T) {
	km := NewKMeans(1)
	_, err := km.Predict([]float64{1, 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFitted))
	assert.Equal(t, 0, km.NumClusters())
}

func TestFitSeparatesBlobs(t *testing.T) {
	km := NewKMeans(1)
	require.NoError(t, km.Fit(twoBlobs(), 2))
	assert.Equal(t, 2, km.NumClusters())
	assert.Greater(t, km.Iterations(), 0)

	nearOrigin, err := km.Predict([]float64{0.05, 0.05})
	require.NoError(t, err)
	farOut, err := km.Predict([]float64{10.05, 10.05})
	require.NoError(t, err)
	assert.NotEqual(t, nearOrigin, farOut,
		"well-separated points landed in the same cluster")

	// Every blob member lands with its own blob.
	for _, v := range twoBlobs()[:4] {
		c, err := km.Predict(v)
		require.NoError(t, err)
		assert.Equal(t, nearOrigin, c)
	}
	for _, v := range twoBlobs()[4:] {
		c, err := km.Predict(v)
		require.NoError(t, err)
		assert.Equal(t, farOut, c)
	}
}

func TestFitDeterministicForSeed(t *testing.T) {
	a := NewKMeans(42)
	b := NewKMeans(42)
	require.NoError(t, a.Fit(twoBlobs(), 2))
	require.NoError(t, b.Fit(twoBlobs(), 2))

	assert.Equal(t, a.Inertia(), b.Inertia())
	for _, v := range twoBlobs() {
		ca, err := a.Predict(v)
		require.NoError(t, err)
		cb, err := b.Predict(v)
		require.NoError(t, err)
		assert.Equal(t, ca, cb)
	}
}

func TestPredictDeterministic(t *testing.T) {
	km := NewKMeans(3)
	require.NoError(t, km.Fit(twoBlobs(), 2))

	probe := []float64{5.0, 4.9}
	first, err := km.Predict(probe)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		c, err := km.Predict(probe)
		require.NoError(t, err)
		assert.Equal(t, first, c)
	}
}

func TestFitClampsKToCorpusSize(t *testing.T) {
	km := NewKMeans(1)
	require.NoError(t, km.Fit([][]float64{{0, 0}, {1, 1}}, 10))
	assert.Equal(t, 2, km.NumClusters())
}

func TestFitRejectsBadInput(t *testing.T) {
	km := NewKMeans(1)
	assert.Error(t, km.Fit(nil, 2), "empty corpus")
	assert.Error(t, km.Fit([][]float64{{1, 2}}, 0), "k < 1")
	assert.Error(t, km.Fit([][]float64{{1, 2}, {1}}, 1), "ragged vectors")
}

func TestPredictRejectsWrongLength(t *testing.T) {
	km := NewKMeans(1)
	require.NoError(t, km.Fit(twoBlobs(), 2))
	_, err := km.Predict([]float64{1, 2, 3})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFitted))
}

func TestInertiaDecreasesWithMoreClusters(t *testing.T) {
	corpus := twoBlobs()

	one := NewKMeans(1)
	require.NoError(t, one.Fit(corpus, 1))
	two := NewKMeans(1)
	require.NoError(t, two.Fit(corpus, 2))

	assert.Less(t, two.Inertia(), one.Inertia())
}
