// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	JobIDKey     = "job.id"
	JobKindKey   = "job.kind"
	JobStatusKey = "job.status"

	RecordingSessionKey  = "recording.session_id"
	RecordingBackendKey  = "recording.backend"
	RecordingModeKey     = "recording.mode"
	RecordingSegmentsKey = "recording.segments"
	RecordingFallbackKey = "recording.fallback"

	ErrorTypeKey = "error.type"
)

// JobAttributes creates job span attributes.
func JobAttributes(id, kind string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(JobIDKey, id),
		attribute.String(JobKindKey, kind),
	}
}

// RecordingAttributes creates recording span attributes. Empty values are skipped.
func RecordingAttributes(sessionID, mode, backend string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if sessionID != "" {
		attrs = append(attrs, attribute.String(RecordingSessionKey, sessionID))
	}
	if mode != "" {
		attrs = append(attrs, attribute.String(RecordingModeKey, mode))
	}
	if backend != "" {
		attrs = append(attrs, attribute.String(RecordingBackendKey, backend))
	}
	return attrs
}
