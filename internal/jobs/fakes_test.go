// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package jobs

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/capctl/internal/history"
	"github.com/ManuGH/capctl/internal/index"
	"github.com/ManuGH/capctl/internal/notify"
	"github.com/ManuGH/capctl/internal/recording"
)

type fakeCapturer struct {
	img   []byte
	err   error
	panic bool
	calls int
	mu    sync.Mutex
}

func (c *fakeCapturer) Capture(_ context.Context, _ recording.Options) ([]byte, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.panic {
		panic("capture exploded")
	}
	return c.img, c.err
}

type fakePicker struct{ path string }

func (p fakePicker) PickFile(context.Context) (string, error) { return p.path, nil }

type fakeIndexer struct {
	res index.Result
	err error
}

func (i fakeIndexer) Index(context.Context, index.Settings) (index.Result, error) {
	return i.res, i.err
}

// fakeHistory fails with the queued errors first, then succeeds.
type fakeHistory struct {
	mu    sync.Mutex
	errs  []error
	calls int
	items []history.Item
}

func (h *fakeHistory) AppendHistoryItem(_ context.Context, item history.Item) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if len(h.errs) > 0 {
		err := h.errs[0]
		if len(h.errs) > 1 {
			h.errs = h.errs[1:]
		}
		if err != nil {
			return err
		}
	}
	h.items = append(h.items, item)
	return nil
}

func (h *fakeHistory) snapshot() (int, []history.Item) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls, append([]history.Item(nil), h.items...)
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (n *fakeNotifier) Notify(_ context.Context, msg notify.Message) {
	n.mu.Lock()
	n.msgs = append(n.msgs, msg)
	n.mu.Unlock()
}

func (n *fakeNotifier) titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.msgs))
	for _, m := range n.msgs {
		out = append(out, m.Title)
	}
	return out
}

// taskLog records processor invocations in order.
type taskLog struct {
	mu    sync.Mutex
	order []Task
}

func (l *taskLog) processor(task Task, err error, mutate func(*Artifact)) Processor {
	return ProcessorFunc(func(_ context.Context, art *Artifact) error {
		l.mu.Lock()
		l.order = append(l.order, task)
		l.mu.Unlock()
		if err != nil {
			return err
		}
		if mutate != nil {
			mutate(art)
		}
		return nil
	})
}

func (l *taskLog) calls() []Task {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Task(nil), l.order...)
}

// fileBackend writes its segment file on Start.
type fileBackend struct{}

func (fileBackend) Start(_ context.Context, opts recording.Options) error {
	return os.WriteFile(opts.OutputPath, []byte("frames"), 0o600)
}

func (fileBackend) Stop(context.Context) (string, error) { return "", nil }

func newTestRecorder(t *testing.T) *recording.Controller {
	t.Helper()
	ctrl, err := recording.NewController(recording.ControllerConfig{
		RecordingsDir: t.TempDir(),
		Fallback: func(recording.BackendEvents) (recording.Backend, error) {
			return fileBackend{}, nil
		},
		FlushTimeout: 200 * time.Millisecond,
		FlushPoll:    10 * time.Millisecond,
		Logger:       zerolog.Nop(),
	})
	require.NoError(t, err)
	return ctrl
}

var errBusy = history.ErrStorageBusy

func newDeps() *Deps {
	return &Deps{
		Capturer:     &fakeCapturer{img: []byte("png")},
		History:      &fakeHistory{},
		HistoryRetry: RetryPolicy{Attempts: 3, Backoff: time.Millisecond},
		Notifier:     &fakeNotifier{},
		Logger:       zerolog.Nop(),
	}
}

func runJob(t *testing.T, deps *Deps, s Settings) *Job {
	t.Helper()
	j, err := New(s, deps)
	require.NoError(t, err)
	require.NoError(t, j.Start(context.Background()))
	waitDone(t, j)
	return j
}

func waitDone(t *testing.T, j *Job) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, j.Wait(ctx), "job did not finish")
}

// requireTerminal checks the success rule holds for a finished job.
func requireTerminal(t *testing.T, j *Job) {
	t.Helper()
	st := j.Status()
	require.True(t, st.IsTerminal(), "status %s", st)
	if j.IsSuccessful() {
		require.Equal(t, StatusCompleted, st)
		require.True(t, j.Result().HasArtifact())
	}
}

var errBoom = errors.New("boom")
