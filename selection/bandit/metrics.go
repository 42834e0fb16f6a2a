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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Bandit Selection
// =============================================================================

var (
	// banditSelections counts arm selections.
	// Labels: algorithm, arm.
	banditSelections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aleutian_select",
		Subsystem: "bandit",
		Name:      "selections_total",
		Help:      "Total arm selections by algorithm",
	}, []string{"algorithm", "arm"})

	// banditRewards tracks the distribution of normalized rewards.
	// Labels: algorithm.
	banditRewards = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "aleutian_select",
		Subsystem: "bandit",
		Name:      "reward",
		Help:      "Distribution of normalized rewards",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	}, []string{"algorithm"})

	// banditRefits counts contextual model refits by outcome.
	// Labels: status (ok, singular).
	banditRefits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aleutian_select",
		Subsystem: "bandit",
		Name:      "contextual_refits_total",
		Help:      "Contextual linear model refits by status",
	}, []string{"status"})
)

// recordSelection records one arm selection.
func recordSelection(algorithm, arm string) {
	banditSelections.WithLabelValues(algorithm, arm).Inc()
}

// recordUpdate records one normalized reward observation.
func recordUpdate(algorithm string, normalized float64) {
	banditRewards.WithLabelValues(algorithm).Observe(normalized)
}

// recordRefit records a contextual refit outcome.
func recordRefit(status string) {
	banditRefits.WithLabelValues(status).Inc()
}
