// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsTotal counts jobs reaching a terminal status.
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capctl_jobs_total",
		Help: "Total number of jobs by kind and terminal status",
	}, []string{"kind", "status"})

	// JobDuration tracks wall time from Start to terminal status.
	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "capctl_job_duration_seconds",
		Help:    "Duration of job pipelines",
		Buckets: prometheus.ExponentialBuckets(0.05, 2.0, 14), // 50ms to ~7min
	}, []string{"kind"})

	// JobSideEffectFailures counts isolated after-capture/after-upload failures.
	JobSideEffectFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capctl_job_side_effect_failures_total",
		Help: "Total number of failed job side effects",
	}, []string{"task"})

	// RegistryEvictions counts jobs dropped from the bounded registry.
	RegistryEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capctl_registry_evictions_total",
		Help: "Total number of jobs evicted from the job registry",
	})

	// HistoryWriteAttempts counts history append attempts by result.
	HistoryWriteAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capctl_history_write_attempts_total",
		Help: "Total number of history write attempts by result",
	}, []string{"result"})
)

// ObserveJob records the terminal status and duration of a job.
func ObserveJob(kind, status string, d time.Duration) {
	JobsTotal.WithLabelValues(kind, status).Inc()
	JobDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// IncHistoryAttempt records one history write attempt ("ok", "busy", "error").
func IncHistoryAttempt(result string) {
	HistoryWriteAttempts.WithLabelValues(result).Inc()
}
