// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/capctl/internal/health"
	"github.com/ManuGH/capctl/internal/history"
	"github.com/ManuGH/capctl/internal/jobs"
	"github.com/ManuGH/capctl/internal/recording"
	"github.com/ManuGH/capctl/internal/workflow"
)

var (
	// ErrBadRequest marks errors caused by invalid client input. Runners may
	// wrap it to get a 400 response.
	ErrBadRequest  = errors.New("bad request")
	errJobNotFound = errors.New("job not found")
)

// Recorder is the controller surface the API drives directly.
type Recorder interface {
	AbortRecording(ctx context.Context) error
	PauseRecording(ctx context.Context) error
	ResumeRecording(ctx context.Context) error
	TogglePauseResume(ctx context.Context) (recording.Status, error)
	SignalStop()
	State() recording.State
	IsRecording() bool
}

// Runner starts jobs on the daemon's own context, never the request's.
type Runner interface {
	RunWorkflow(id string, ov workflow.Overrides) (*jobs.Job, error)
	RunRecording(ov workflow.Overrides) (*jobs.Job, error)
}

// JobSource lists registry jobs.
type JobSource interface {
	Snapshots() []jobs.Snapshot
	Get(id string) (*jobs.Job, bool)
	Len() int
}

// HistorySource lists history items.
type HistorySource interface {
	List(ctx context.Context, limit int) ([]history.Item, error)
}

// WorkflowSource lists configured workflows.
type WorkflowSource interface {
	List() []workflow.Definition
}

// HealthSource runs component checks.
type HealthSource interface {
	Health(ctx context.Context, verbose bool) health.Response
	Ready(ctx context.Context) health.Response
}

// Deps are the collaborators of the API.
type Deps struct {
	Recorder  Recorder
	Runner    Runner
	Jobs      JobSource
	History   HistorySource
	Workflows WorkflowSource
	// Health defaults to a manager without checks.
	Health HealthSource
}

// ServerConfig configures the API server.
type ServerConfig struct {
	Listen string
	// RateLimit is requests per minute per client; 0 disables limiting.
	RateLimit    int
	Token        string
	Version      string
	StartTimeout time.Duration
	Logger       zerolog.Logger
}

// Server serves the control API.
type Server struct {
	cfg    ServerConfig
	deps   Deps
	log    zerolog.Logger
	router chi.Router
}

// NewServer builds the router.
func NewServer(cfg ServerConfig, deps Deps) *Server {
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = 10 * time.Second
	}
	if deps.Health == nil {
		deps.Health = health.NewManager(cfg.Version)
	}
	s := &Server{cfg: cfg, deps: deps, log: cfg.Logger.With().Str("component", "control").Logger()}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(tracing())
	r.Use(requestLogger(s.log))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			r.Use(rateLimit(s.cfg.RateLimit))
		}
		r.Use(bearerAuth(s.cfg.Token))

		r.Get("/recording", s.handleRecordingState)
		r.Route("/record", func(r chi.Router) {
			r.Post("/start", s.handleRecordStart)
			r.Post("/stop", s.handleRecordStop)
			r.Post("/abort", s.handleRecordAbort)
			r.Post("/pause", s.handleRecordPause)
			r.Post("/resume", s.handleRecordResume)
			r.Post("/toggle", s.handleRecordToggle)
		})
		r.Get("/workflows", s.handleWorkflows)
		r.Post("/workflows/{id}/run", s.handleWorkflowRun)
		r.Get("/jobs", s.handleJobs)
		r.Get("/jobs/{id}", s.handleJob)
		r.Post("/jobs/{id}/stop", s.handleJobStop)
		r.Get("/history", s.handleHistory)
	})
	return r
}

// Serve runs the server on ln until ctx ends, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info().Str("addr", ln.Addr().String()).Msg("control API listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("control shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	verbose, _ := strconv.ParseBool(r.URL.Query().Get("verbose"))
	// Liveness is always 200.
	writeJSON(w, http.StatusOK, s.healthResponse(s.deps.Health.Health(r.Context(), verbose)))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := s.healthResponse(s.deps.Health.Ready(r.Context()))
	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Server) healthResponse(h health.Response) HealthResponse {
	resp := HealthResponse{Response: h}
	if s.deps.Recorder != nil {
		resp.Recording = s.deps.Recorder.IsRecording()
	}
	if s.deps.Jobs != nil {
		resp.Jobs = s.deps.Jobs.Len()
	}
	return resp
}

func (s *Server) handleRecordingState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Recorder.State())
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

func (s *Server) handleRecordStart(w http.ResponseWriter, r *http.Request) {
	var req StartRecordingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ov, err := req.Overrides()
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	var job *jobs.Job
	if req.Workflow != "" {
		job, err = s.deps.Runner.RunWorkflow(req.Workflow, ov)
	} else {
		job, err = s.deps.Runner.RunRecording(ov)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	timer := time.NewTimer(s.cfg.StartTimeout)
	defer timer.Stop()
	select {
	case <-job.RecordingStarted():
		writeJSON(w, http.StatusCreated, job.Snapshot())
	case <-job.Done():
		if err := job.Err(); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, job.Snapshot())
	case <-timer.C:
		writeJSON(w, http.StatusAccepted, job.Snapshot())
	case <-r.Context().Done():
	}
}

func (s *Server) handleRecordStop(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Recorder.IsRecording() {
		writeError(w, r, recording.ErrNotRecording)
		return
	}
	s.deps.Recorder.SignalStop()
	writeJSON(w, http.StatusAccepted, s.deps.Recorder.State())
}

func (s *Server) handleRecordAbort(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Recorder.AbortRecording(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Recorder.State())
}

func (s *Server) handleRecordPause(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Recorder.PauseRecording(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Recorder.State())
}

func (s *Server) handleRecordResume(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Recorder.ResumeRecording(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Recorder.State())
}

func (s *Server) handleRecordToggle(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Recorder.TogglePauseResume(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: st})
}

func (s *Server) handleWorkflows(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, WorkflowsResponse{Workflows: s.deps.Workflows.List()})
}

func (s *Server) handleWorkflowRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ov, err := req.Overrides()
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	job, err := s.deps.Runner.RunWorkflow(chi.URLParam(r, "id"), ov)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		select {
		case <-job.Done():
			writeJSON(w, http.StatusOK, job.Snapshot())
		case <-r.Context().Done():
		}
		return
	}
	writeJSON(w, http.StatusAccepted, job.Snapshot())
}

func (s *Server) handleJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, JobsResponse{Jobs: s.deps.Jobs.Snapshots()})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	j, ok := s.deps.Jobs.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, r, fmt.Errorf("%w: %s", errJobNotFound, chi.URLParam(r, "id")))
		return
	}
	writeJSON(w, http.StatusOK, j.Snapshot())
}

func (s *Server) handleJobStop(w http.ResponseWriter, r *http.Request) {
	j, ok := s.deps.Jobs.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, r, fmt.Errorf("%w: %s", errJobNotFound, chi.URLParam(r, "id")))
		return
	}
	if !j.Cancel() {
		j.Stop()
	}
	writeJSON(w, http.StatusAccepted, j.Snapshot())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, r, fmt.Errorf("%w: invalid limit %q", ErrBadRequest, v))
			return
		}
		limit = n
	}
	if s.deps.History == nil {
		writeJSON(w, http.StatusOK, HistoryResponse{Items: []history.Item{}})
		return
	}
	items, err := s.deps.History.List(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Items: items})
}
