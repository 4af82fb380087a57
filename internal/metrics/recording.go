// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordingStarts counts successful backend starts by backend type.
	RecordingStarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capctl_recording_starts_total",
		Help: "Total number of recording backend starts",
	}, []string{"backend"})

	// RecordingFallbacks counts decisions to use the fallback backend.
	RecordingFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capctl_recording_fallback_total",
		Help: "Total number of fallback backend selections by reason",
	}, []string{"reason"})

	// RecordingSegments tracks how many segments a finalized session had.
	RecordingSegments = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "capctl_recording_segments",
		Help:    "Number of segments per finalized recording session",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
	})

	// RecordingOutcomes counts sessions by how they ended.
	RecordingOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capctl_recording_outcomes_total",
		Help: "Total number of recording sessions by outcome",
	}, []string{"outcome"})
)

// IncRecordingStart records a backend start ("native" or "fallback").
func IncRecordingStart(backend string) {
	RecordingStarts.WithLabelValues(backend).Inc()
}

// IncRecordingFallback records why the fallback backend was chosen.
func IncRecordingFallback(reason string) {
	RecordingFallbacks.WithLabelValues(reason).Inc()
}

// IncRecordingOutcome records "completed", "aborted", "failed" or "missing_output".
func IncRecordingOutcome(outcome string) {
	RecordingOutcomes.WithLabelValues(outcome).Inc()
}
