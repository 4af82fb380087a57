// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldJobID     = "job_id"
	FieldJobKind   = "job_kind"
	FieldSessionID = "session_id"
	FieldRequestID = "request_id"
	FieldWorkflow  = "workflow"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldBackend   = "backend"
	FieldSegment   = "segment"
	FieldAttempt   = "attempt"
	FieldPID       = "pid"

	// Media fields
	FieldCodec  = "codec"
	FieldFPS    = "fps"
	FieldMode   = "mode"
	FieldRegion = "region"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / URL fields
	FieldPath      = "path"
	FieldFinalPath = "final_path"
	FieldURL       = "url"
)
