// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tournament

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Tournaments
// =============================================================================

var (
	// tournamentRuns counts completed tournaments.
	tournamentRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aleutian_select",
		Subsystem: "tournament",
		Name:      "runs_total",
		Help:      "Total completed tournament runs",
	})

	// tournamentDuration measures wall time per tournament.
	tournamentDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "aleutian_select",
		Subsystem: "tournament",
		Name:      "duration_seconds",
		Help:      "Tournament run duration in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	})

	// tournamentMatches counts matches played.
	tournamentMatches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aleutian_select",
		Subsystem: "tournament",
		Name:      "matches_total",
		Help:      "Total matches played across tournaments",
	})
)

// recordRun records one completed tournament.
func recordRun(matches int, d time.Duration) {
	tournamentRuns.Inc()
	tournamentMatches.Add(float64(matches))
	tournamentDuration.Observe(d.Seconds())
}
