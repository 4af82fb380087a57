// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package control

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ManuGH/capctl/internal/log"
	"github.com/ManuGH/capctl/internal/recording"
	"github.com/ManuGH/capctl/internal/workflow"
)

// Problem is an RFC 7807 problem details body.
type Problem struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Detail    string `json:"detail,omitempty"`
	Instance  string `json:"instance,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, code, detail string) {
	p := Problem{
		Type:      "capctl/" + code,
		Title:     http.StatusText(status),
		Status:    status,
		Code:      code,
		Detail:    detail,
		Instance:  r.URL.EscapedPath(),
		RequestID: middleware.GetReqID(r.Context()),
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "control")
		logger.Error().Err(err).Str("code", code).Int("status", status).Msg("failed to encode problem response")
	}
}

// writeError maps domain errors onto HTTP problems.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrBadRequest):
		writeProblem(w, r, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, workflow.ErrNotFound), errors.Is(err, errJobNotFound):
		writeProblem(w, r, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, recording.ErrAlreadyRecording):
		writeProblem(w, r, http.StatusConflict, "already_recording", err.Error())
	case errors.Is(err, recording.ErrNotRecording):
		writeProblem(w, r, http.StatusConflict, "not_recording", err.Error())
	case errors.Is(err, recording.ErrNotPaused):
		writeProblem(w, r, http.StatusConflict, "not_paused", err.Error())
	case errors.Is(err, recording.ErrBusy):
		w.Header().Set("Retry-After", "1")
		writeProblem(w, r, http.StatusConflict, "busy", err.Error())
	case recording.IsCapabilityError(err):
		writeProblem(w, r, http.StatusServiceUnavailable, "capability_unavailable", err.Error())
	default:
		writeProblem(w, r, http.StatusInternalServerError, "internal", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.L().Error().Err(err).Msg("failed to encode response")
	}
}
