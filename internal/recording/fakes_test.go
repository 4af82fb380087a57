// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recording

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakeBackend writes its segment file on Start, like an encoder that opened its output.
type fakeBackend struct {
	label    string
	startErr error
	stopErr  error
	noOutput bool
	events   BackendEvents

	mu      sync.Mutex
	opts    Options
	stopped int
}

func (b *fakeBackend) Start(_ context.Context, opts Options) error {
	b.mu.Lock()
	b.opts = opts
	b.mu.Unlock()
	if b.startErr != nil {
		return b.startErr
	}
	if b.noOutput {
		return nil
	}
	return os.WriteFile(opts.OutputPath, []byte(b.label), 0o600)
}

func (b *fakeBackend) Stop(_ context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped++
	return "", b.stopErr
}

// backendKit hands out fakeBackends and records every attempt.
type backendKit struct {
	mu       sync.Mutex
	startErr error
	noOutput bool
	seq      *int
	created  []*fakeBackend
}

func (k *backendKit) factory(events BackendEvents) (Backend, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	label := fmt.Sprintf("seg%d;", *k.seq)
	*k.seq++
	b := &fakeBackend{label: label, startErr: k.startErr, noOutput: k.noOutput, events: events}
	k.created = append(k.created, b)
	return b, nil
}

func (k *backendKit) attempts() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.created)
}

func (k *backendKit) last() *fakeBackend {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.created) == 0 {
		return nil
	}
	return k.created[len(k.created)-1]
}

// fakeConcat concatenates file bytes in order.
type fakeConcat struct {
	mu     sync.Mutex
	calls  [][]string
	format string
	err    error
}

func (f *fakeConcat) Concat(_ context.Context, segments []string, output, format string) error {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), segments...))
	f.format = format
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	var buf []byte
	for _, s := range segments {
		b, err := os.ReadFile(s)
		if err != nil {
			return err
		}
		buf = append(buf, b...)
	}
	return os.WriteFile(output, buf, 0o600)
}

func (f *fakeConcat) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type eventLog struct {
	mu        sync.Mutex
	started   []StartedEvent
	completed []CompletedEvent
	statuses  []Status
	errs      []error
}

func (e *eventLog) observer() Observer {
	return ObserverFuncs{
		OnStarted: func(ev StartedEvent) {
			e.mu.Lock()
			e.started = append(e.started, ev)
			e.mu.Unlock()
		},
		OnStatus: func(_ string, s Status) {
			e.mu.Lock()
			e.statuses = append(e.statuses, s)
			e.mu.Unlock()
		},
		OnCompleted: func(ev CompletedEvent) {
			e.mu.Lock()
			e.completed = append(e.completed, ev)
			e.mu.Unlock()
		},
		OnError: func(_ string, err error) {
			e.mu.Lock()
			e.errs = append(e.errs, err)
			e.mu.Unlock()
		},
	}
}

type harness struct {
	dir      string
	native   *backendKit
	fallback *backendKit
	concat   *fakeConcat
	events   *eventLog
	ctrl     *Controller
}

func newHarness(t *testing.T, withNative bool) *harness {
	t.Helper()
	seq := 0
	h := &harness{
		dir:      t.TempDir(),
		native:   &backendKit{seq: &seq},
		fallback: &backendKit{seq: &seq},
		concat:   &fakeConcat{},
		events:   &eventLog{},
	}
	cfg := ControllerConfig{
		RecordingsDir: h.dir,
		Fallback:      h.fallback.factory,
		Concat:        h.concat,
		FlushTimeout:  200 * time.Millisecond,
		FlushPoll:     10 * time.Millisecond,
		Logger:        zerolog.Nop(),
		Now: func() time.Time {
			return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
		},
	}
	if withNative {
		cfg.Native = h.native.factory
	}
	ctrl, err := NewController(cfg)
	require.NoError(t, err)
	ctrl.AddObserver(h.events.observer())
	h.ctrl = ctrl
	return h
}

func (h *harness) opts(name string) Options {
	return Options{
		Mode:             ModeScreen,
		OutputPath:       filepath.Join(h.dir, name),
		UseNativeCapture: true,
		Encoder:          EncoderSettings{FPS: 30, Codec: "h264"},
	}
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(dir, path)
			out = append(out, rel)
		}
		return nil
	})
	require.NoError(t, err)
	return out
}
