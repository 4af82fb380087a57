// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package jobs

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/capctl/internal/log"
	"github.com/ManuGH/capctl/internal/metrics"
)

// DefaultCapacity bounds the registry when no capacity is configured.
const DefaultCapacity = 100

// ErrRegistryClosed is returned by Run and Submit after Close.
var ErrRegistryClosed = errors.New("job registry closed")

// Listener receives job lifecycle events. Calls are synchronous, on the
// goroutine that caused the event, in subscription order.
type Listener interface {
	JobStarted(j *Job)
	JobCompleted(j *Job)
}

// ListenerFuncs adapts optional functions to Listener.
type ListenerFuncs struct {
	OnStarted   func(j *Job)
	OnCompleted func(j *Job)
}

func (f ListenerFuncs) JobStarted(j *Job) {
	if f.OnStarted != nil {
		f.OnStarted(j)
	}
}

func (f ListenerFuncs) JobCompleted(j *Job) {
	if f.OnCompleted != nil {
		f.OnCompleted(j)
	}
}

type subscription struct {
	id int
	l  Listener
}

// Registry keeps the most recent jobs in FIFO order. Adding beyond capacity
// evicts and disposes the oldest job.
type Registry struct {
	capacity int
	deps     *Deps
	log      zerolog.Logger

	mu        sync.Mutex
	jobs      []*Job
	subs      []subscription
	nextSubID int
	closed    bool
}

// NewRegistry creates a registry. capacity <= 0 uses DefaultCapacity.
func NewRegistry(capacity int, deps *Deps) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	var logger zerolog.Logger
	if deps != nil {
		logger = deps.Logger
	} else {
		logger = zerolog.Nop()
	}
	return &Registry{
		capacity: capacity,
		deps:     deps,
		log:      logger.With().Str(xglog.FieldComponent, "job_registry").Logger(),
	}
}

// Capacity returns the configured bound.
func (r *Registry) Capacity() int { return r.capacity }

// Submit creates a queued job from settings and adds it.
func (r *Registry) Submit(settings Settings) (*Job, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, ErrRegistryClosed
	}
	j, err := New(settings, r.deps)
	if err != nil {
		return nil, err
	}
	r.Add(j)
	return j, nil
}

// Run submits and starts a job.
func (r *Registry) Run(ctx context.Context, settings Settings) (*Job, error) {
	j, err := r.Submit(settings)
	if err != nil {
		return nil, err
	}
	if err := j.Start(ctx); err != nil {
		return j, err
	}
	return j, nil
}

// Add appends a job, evicting the oldest one when the registry is full.
func (r *Registry) Add(j *Job) {
	j.setHooks(r)

	r.mu.Lock()
	r.jobs = append(r.jobs, j)
	var evicted []*Job
	for len(r.jobs) > r.capacity {
		evicted = append(evicted, r.jobs[0])
		r.jobs[0] = nil
		r.jobs = r.jobs[1:]
	}
	if len(evicted) > 0 {
		// Reallocate so the dropped prefix can be collected.
		r.jobs = append(make([]*Job, 0, r.capacity+1), r.jobs...)
	}
	r.mu.Unlock()

	for _, old := range evicted {
		old.Cancel()
		old.Dispose()
		metrics.RegistryEvictions.Inc()
		r.log.Debug().Str(xglog.FieldJobID, old.ID()).Str("status", string(old.Status())).Msg("job evicted")
	}
}

// Get looks up a job by id.
func (r *Registry) Get(id string) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.id == id {
			return j, true
		}
	}
	return nil, false
}

// List returns the jobs oldest first.
func (r *Registry) List() []*Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Job(nil), r.jobs...)
}

// Snapshots returns a view of every job, oldest first.
func (r *Registry) Snapshots() []Snapshot {
	jobs := r.List()
	out := make([]Snapshot, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Snapshot())
	}
	return out
}

// Len returns the number of retained jobs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Subscribe registers a listener and returns its unsubscribe function.
func (r *Registry) Subscribe(l Listener) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextSubID
	r.nextSubID++
	r.subs = append(r.subs, subscription{id: id, l: l})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			for i, s := range r.subs {
				if s.id == id {
					r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (r *Registry) listeners() []Listener {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Listener, len(r.subs))
	for i, s := range r.subs {
		out[i] = s.l
	}
	return out
}

func (r *Registry) jobStarted(j *Job) {
	for _, l := range r.listeners() {
		l.JobStarted(j)
	}
}

func (r *Registry) jobCompleted(j *Job) {
	for _, l := range r.listeners() {
		l.JobCompleted(j)
	}
}

// Close stops every busy job, waits for them and disposes all artifacts.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	jobs := append([]*Job(nil), r.jobs...)
	r.mu.Unlock()

	for _, j := range jobs {
		if !j.Cancel() {
			j.Stop()
		}
	}
	for _, j := range jobs {
		if j.Status() == StatusInQueue {
			continue
		}
		if err := j.Wait(ctx); err != nil {
			return err
		}
	}
	for _, j := range jobs {
		j.Dispose()
	}
	return nil
}
