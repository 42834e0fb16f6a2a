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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for the Selection Policy
// =============================================================================

var (
	// policySelections counts façade selections.
	// Labels: arm.
	policySelections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aleutian_select",
		Subsystem: "policy",
		Name:      "selections_total",
		Help:      "Total solver selections by the policy façade",
	}, []string{"arm"})

	// policyLatency measures selection latency.
	policyLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "aleutian_select",
		Subsystem: "policy",
		Name:      "latency_seconds",
		Help:      "Policy selection latency in seconds",
		Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
	})

	// policyOutcomes counts recorded outcomes.
	// Labels: arm.
	policyOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aleutian_select",
		Subsystem: "policy",
		Name:      "outcomes_total",
		Help:      "Total outcomes recorded by the policy façade",
	}, []string{"arm"})
)

// recordPolicySelection records one selection and its latency.
func recordPolicySelection(arm string, d time.Duration) {
	policySelections.WithLabelValues(arm).Inc()
	policyLatency.Observe(d.Seconds())
}

// recordPolicyOutcome records one outcome observation.
func recordPolicyOutcome(arm string) {
	policyOutcomes.WithLabelValues(arm).Inc()
}
