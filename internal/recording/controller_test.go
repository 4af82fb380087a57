// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recording

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewController_RequiresFallback(t *testing.T) {
	_, err := NewController(ControllerConfig{RecordingsDir: t.TempDir()})
	require.Error(t, err)
}

func TestStartRecording_ConcurrentStartsOnlyOneWins(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	const n = 8
	var (
		wg      sync.WaitGroup
		release = make(chan struct{})
		results = make(chan error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-release
			_, err := h.ctrl.StartRecording(ctx, h.opts(fmt.Sprintf("out%d.mp4", i)))
			results <- err
		}(i)
	}
	close(release)
	wg.Wait()
	close(results)

	var ok, already int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadyRecording):
			already++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, already)
	assert.Equal(t, 1, h.fallback.attempts(), "only one backend may ever be created")

	_, err := h.ctrl.StopRecording(ctx)
	require.NoError(t, err)
}

func TestStartRecording_CapabilityErrorFallsBackOnce(t *testing.T) {
	h := newHarness(t, true)
	h.native.startErr = fmt.Errorf("graphics capture: %w", ErrCapabilityUnavailable)

	opts := h.opts("region.mp4")
	opts.Mode = ModeRegion
	opts.Region = Region{X: 0, Y: 0, Width: 640, Height: 480}

	ev, err := h.ctrl.StartRecording(context.Background(), opts)
	require.NoError(t, err)

	assert.True(t, ev.UsingFallback)
	assert.Equal(t, BackendFallback, ev.Backend)
	assert.Equal(t, 1, h.native.attempts())
	assert.Equal(t, 1, h.fallback.attempts())
	assert.Equal(t, 1, h.native.last().stopped, "failed native backend must be cleaned up")

	h.events.mu.Lock()
	require.Len(t, h.events.started, 1)
	assert.True(t, h.events.started[0].UsingFallback)
	assert.Equal(t, Region{Width: 640, Height: 480}, h.events.started[0].Options.Region)
	h.events.mu.Unlock()

	assert.Equal(t, BackendFallback, h.ctrl.State().Backend)
	_, err = h.ctrl.StopRecording(context.Background())
	require.NoError(t, err)
}

func TestStartRecording_FallbackRetriedAtMostOnce(t *testing.T) {
	h := newHarness(t, true)
	h.native.startErr = fmt.Errorf("native: %w", ErrCapabilityUnavailable)
	h.fallback.startErr = fmt.Errorf("fallback: %w", errors.ErrUnsupported)

	_, err := h.ctrl.StartRecording(context.Background(), h.opts("out.mp4"))
	require.Error(t, err)
	assert.Equal(t, 1, h.native.attempts())
	assert.Equal(t, 1, h.fallback.attempts())
	assert.False(t, h.ctrl.IsRecording())
}

func TestStartRecording_OtherNativeErrorIsTerminal(t *testing.T) {
	h := newHarness(t, true)
	boom := errors.New("encoder exploded")
	h.native.startErr = boom

	_, err := h.ctrl.StartRecording(context.Background(), h.opts("out.mp4"))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, h.fallback.attempts())
	assert.False(t, h.ctrl.IsRecording())

	// Rolled back completely: a new start works.
	h.native.startErr = nil
	_, err = h.ctrl.StartRecording(context.Background(), h.opts("out.mp4"))
	require.NoError(t, err)
	_, err = h.ctrl.StopRecording(context.Background())
	require.NoError(t, err)
}

func TestShouldForceFallback(t *testing.T) {
	h := newHarness(t, true)
	noNative := newHarness(t, false)

	tests := []struct {
		name   string
		ctrl   *Controller
		mutate func(*Options)
		want   bool
		reason string
	}{
		{"native preferred", h.ctrl, func(*Options) {}, false, ""},
		{"system audio", h.ctrl, func(o *Options) { o.Encoder.CaptureSystemAudio = true }, true, "audio"},
		{"microphone", h.ctrl, func(o *Options) { o.Encoder.CaptureMicrophone = true }, true, "audio"},
		{"native disabled", h.ctrl, func(o *Options) { o.UseNativeCapture = false }, true, "native_disabled"},
		{"no native factory", noNative.ctrl, func(*Options) {}, true, "native_unavailable"},
		{"explicit force", h.ctrl, func(o *Options) { o.Encoder.ForceFallback = true }, true, "forced"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := h.opts("x.mp4")
			tt.mutate(&o)
			got, reason := tt.ctrl.ShouldForceFallback(o)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestStopRecording_SingleSegmentNoConcat(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	opts := h.opts("")
	opts.OutputPath = ""
	ev, err := h.ctrl.StartRecording(ctx, opts)
	require.NoError(t, err)
	want := filepath.Join(h.dir, "2025-03", "Recording_2025-03-14_09-26-53.mp4")
	assert.Equal(t, want, ev.OutputPath)

	out, err := h.ctrl.StopRecording(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, out)
	assert.Equal(t, 0, h.concat.callCount())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "seg0;", string(data))

	h.events.mu.Lock()
	require.Len(t, h.events.completed, 1)
	assert.Equal(t, 1, h.events.completed[0].Segments)
	h.events.mu.Unlock()
}

// movingBackend records somewhere else and reports that path on Stop.
type movingBackend struct {
	actual string
}

func (b *movingBackend) Start(_ context.Context, _ Options) error {
	return os.WriteFile(b.actual, []byte("moved"), 0o600)
}

func (b *movingBackend) Stop(context.Context) (string, error) { return b.actual, nil }

func TestStopRecording_RenamesSegmentFromBackendPath(t *testing.T) {
	dir := t.TempDir()
	actual := filepath.Join(dir, "encoder-temp.mp4")
	ctrl, err := NewController(ControllerConfig{
		RecordingsDir: dir,
		Fallback: func(BackendEvents) (Backend, error) {
			return &movingBackend{actual: actual}, nil
		},
	})
	require.NoError(t, err)

	final := filepath.Join(dir, "final.mp4")
	_, err = ctrl.StartRecording(context.Background(), Options{Mode: ModeScreen, OutputPath: final})
	require.NoError(t, err)
	out, err := ctrl.StopRecording(context.Background())
	require.NoError(t, err)

	assert.Equal(t, final, out)
	assert.FileExists(t, final)
	assert.NoFileExists(t, actual)
}

func TestSegmentRoundTrip(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	final := filepath.Join(h.dir, "session.mp4")

	_, err := h.ctrl.StartRecording(ctx, h.opts("session.mp4"))
	require.NoError(t, err)
	require.NoError(t, h.ctrl.PauseRecording(ctx))
	require.NoError(t, h.ctrl.ResumeRecording(ctx))
	assert.Equal(t, filepath.Join(h.dir, "session.part001.mp4"), h.fallback.last().opts.OutputPath)
	require.NoError(t, h.ctrl.PauseRecording(ctx))
	require.NoError(t, h.ctrl.ResumeRecording(ctx))
	assert.Equal(t, filepath.Join(h.dir, "session.part002.mp4"), h.fallback.last().opts.OutputPath)

	out, err := h.ctrl.StopRecording(ctx)
	require.NoError(t, err)
	assert.Equal(t, final, out)

	require.Equal(t, 1, h.concat.callCount())
	wantSegments := []string{
		final,
		filepath.Join(h.dir, "session.part001.mp4"),
		filepath.Join(h.dir, "session.part002.mp4"),
	}
	if diff := cmp.Diff(wantSegments, h.concat.calls[0]); diff != "" {
		t.Errorf("concat segments mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "mp4", h.concat.format)

	data, err := os.ReadFile(final)
	require.NoError(t, err)
	assert.Equal(t, "seg0;seg1;seg2;", string(data))
	assert.Equal(t, []string{"session.mp4"}, listFiles(t, h.dir))

	st := h.ctrl.State()
	assert.Equal(t, StatusIdle, st.Status)
	assert.Zero(t, st.Segments)
	assert.False(t, st.Paused)
	assert.Empty(t, st.OutputPath)
}

func TestSegmentRoundTrip_ConcatFailureKeepsSegments(t *testing.T) {
	h := newHarness(t, false)
	h.concat.err = errors.New("concat tool crashed")
	ctx := context.Background()

	_, err := h.ctrl.StartRecording(ctx, h.opts("keep.mp4"))
	require.NoError(t, err)
	require.NoError(t, h.ctrl.PauseRecording(ctx))
	require.NoError(t, h.ctrl.ResumeRecording(ctx))

	_, err = h.ctrl.StopRecording(ctx)
	require.Error(t, err)
	assert.ElementsMatch(t, []string{"keep.mp4", "keep.part001.mp4"}, listFiles(t, h.dir))
	assert.False(t, h.ctrl.IsRecording())
}

func TestAbortRecording_DeletesEverything(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	_, err := h.ctrl.StartRecording(ctx, h.opts("gone.mp4"))
	require.NoError(t, err)
	require.NoError(t, h.ctrl.PauseRecording(ctx))
	require.NoError(t, h.ctrl.ResumeRecording(ctx))
	require.NotEmpty(t, listFiles(t, h.dir))

	require.NoError(t, h.ctrl.AbortRecording(ctx))

	assert.Empty(t, listFiles(t, h.dir))
	_, err = h.ctrl.StopRecording(ctx)
	assert.ErrorIs(t, err, ErrNotRecording)
	assert.ErrorIs(t, h.ctrl.AbortRecording(ctx), ErrNotRecording)

	reason, err := h.ctrl.WaitForStopSignal(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, StopAborted, reason)

	h.events.mu.Lock()
	defer h.events.mu.Unlock()
	assert.Empty(t, h.events.completed)
	assert.Contains(t, h.events.statuses, StatusAborted)
}

func TestPause_DoesNotReleaseStopGate(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	_, err := h.ctrl.StartRecording(ctx, h.opts("gate.mp4"))
	require.NoError(t, err)
	require.NoError(t, h.ctrl.PauseRecording(ctx))
	require.NoError(t, h.ctrl.PauseRecording(ctx), "pausing twice is a no-op")

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = h.ctrl.WaitForStopSignal(waitCtx, "")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	h.ctrl.SignalStop()
	h.ctrl.SignalStop()
	reason, err := h.ctrl.WaitForStopSignal(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, StopRequested, reason)

	out, err := h.ctrl.StopRecording(ctx)
	require.NoError(t, err)
	assert.FileExists(t, out)
}

func TestSignalStop_NoWaiter(t *testing.T) {
	h := newHarness(t, false)
	h.ctrl.SignalStop()
	_, err := h.ctrl.WaitForStopSignal(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotRecording)
}

func TestStopGate_RecreatedOnEachStart(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	_, err := h.ctrl.StartRecording(ctx, h.opts("a.mp4"))
	require.NoError(t, err)
	h.ctrl.SignalStop()
	_, err = h.ctrl.StopRecording(ctx)
	require.NoError(t, err)

	_, err = h.ctrl.StartRecording(ctx, h.opts("b.mp4"))
	require.NoError(t, err)
	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = h.ctrl.WaitForStopSignal(waitCtx, "")
	assert.ErrorIs(t, err, context.DeadlineExceeded, "new session must start with a closed gate")

	_, err = h.ctrl.StopRecording(ctx)
	require.NoError(t, err)
}

func TestStopRecording_MissingOutput(t *testing.T) {
	h := newHarness(t, false)
	h.fallback.noOutput = true
	ctx := context.Background()

	_, err := h.ctrl.StartRecording(ctx, h.opts("nothing.mp4"))
	require.NoError(t, err)
	_, err = h.ctrl.StopRecording(ctx)
	require.ErrorIs(t, err, ErrMissingOutput)
	assert.False(t, h.ctrl.IsRecording())
}

type lateFlushBackend struct {
	path string
	wg   sync.WaitGroup
}

func (b *lateFlushBackend) Start(_ context.Context, opts Options) error {
	b.path = opts.OutputPath
	return nil
}

func (b *lateFlushBackend) Stop(context.Context) (string, error) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		time.Sleep(40 * time.Millisecond)
		_ = os.WriteFile(b.path, []byte("late"), 0o600)
	}()
	return "", nil
}

func TestStopRecording_WaitsForLateFlush(t *testing.T) {
	dir := t.TempDir()
	b := &lateFlushBackend{}
	ctrl, err := NewController(ControllerConfig{
		RecordingsDir: dir,
		Fallback:      func(BackendEvents) (Backend, error) { return b, nil },
		FlushPoll:     5 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = ctrl.StartRecording(context.Background(), Options{Mode: ModeScreen, OutputPath: filepath.Join(dir, "late.mp4")})
	require.NoError(t, err)
	out, err := ctrl.StopRecording(context.Background())
	b.wg.Wait()
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "late", string(data))
}

func TestBackendError_ReleasesGate(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	_, err := h.ctrl.StartRecording(ctx, h.opts("crash.mp4"))
	require.NoError(t, err)
	stale := h.fallback.last().events

	stale.BackendError(errors.New("encoder died"))
	reason, err := h.ctrl.WaitForStopSignal(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, StopBackendFailed, reason)

	// What was recorded is still salvaged.
	out, err := h.ctrl.StopRecording(ctx)
	require.NoError(t, err)
	assert.FileExists(t, out)

	// Events from a backend that is gone are ignored.
	stale.BackendError(errors.New("late noise"))
	h.events.mu.Lock()
	assert.Len(t, h.events.errs, 1)
	h.events.mu.Unlock()
}

func TestPauseResume_StateErrors(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	assert.ErrorIs(t, h.ctrl.PauseRecording(ctx), ErrNotRecording)
	assert.ErrorIs(t, h.ctrl.ResumeRecording(ctx), ErrNotRecording)
	_, err := h.ctrl.TogglePauseResume(ctx)
	assert.ErrorIs(t, err, ErrNotRecording)

	_, err = h.ctrl.StartRecording(ctx, h.opts("t.mp4"))
	require.NoError(t, err)
	assert.ErrorIs(t, h.ctrl.ResumeRecording(ctx), ErrNotPaused)

	st, err := h.ctrl.TogglePauseResume(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, st)
	assert.True(t, h.ctrl.State().Paused)

	_, err = h.ctrl.StartRecording(ctx, h.opts("other.mp4"))
	assert.ErrorIs(t, err, ErrAlreadyRecording)

	st, err = h.ctrl.TogglePauseResume(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusRecording, st)
	assert.Equal(t, 2, h.fallback.attempts())

	_, err = h.ctrl.StopRecording(ctx)
	require.NoError(t, err)
}

func TestStopRecording_WhilePaused(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	_, err := h.ctrl.StartRecording(ctx, h.opts("p.mp4"))
	require.NoError(t, err)
	require.NoError(t, h.ctrl.PauseRecording(ctx))

	out, err := h.ctrl.StopRecording(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(h.dir, "p.mp4"), out)

	h.events.mu.Lock()
	defer h.events.mu.Unlock()
	assert.Contains(t, h.events.statuses, StatusFinalizing)
	assert.Equal(t, 1, h.fallback.last().stopped)
}

func TestStartRecording_InvalidOptions(t *testing.T) {
	h := newHarness(t, false)
	_, err := h.ctrl.StartRecording(context.Background(), Options{Mode: ModeRegion})
	require.Error(t, err)
	assert.False(t, h.ctrl.IsRecording())
}

func TestSessionScopedCalls_IgnoreOtherSessions(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	first, err := h.ctrl.StartRecording(ctx, h.opts("first.mp4"))
	require.NoError(t, err)
	require.NoError(t, h.ctrl.AbortRecording(ctx))
	second, err := h.ctrl.StartRecording(ctx, h.opts("second.mp4"))
	require.NoError(t, err)

	assert.False(t, h.ctrl.SignalStopSession(first.SessionID))
	_, err = h.ctrl.StopSession(ctx, first.SessionID)
	assert.ErrorIs(t, err, ErrNotRecording)
	assert.ErrorIs(t, h.ctrl.AbortSession(ctx, first.SessionID), ErrNotRecording)

	reason, err := h.ctrl.WaitForStopSignal(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, StopAborted, reason)

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = h.ctrl.WaitForStopSignal(waitCtx, second.SessionID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, h.ctrl.IsRecording())

	assert.True(t, h.ctrl.SignalStopSession(second.SessionID))
	reason, err = h.ctrl.WaitForStopSignal(ctx, second.SessionID)
	require.NoError(t, err)
	assert.Equal(t, StopRequested, reason)

	out, err := h.ctrl.StopSession(ctx, second.SessionID)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(h.dir, "second.mp4"), out)

	_, err = h.ctrl.WaitForStopSignal(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotRecording)
}

func TestAbortRecording_KeepsPreexistingOutput(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	target := filepath.Join(h.dir, "keep.mp4")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0o600))

	ev, err := h.ctrl.StartRecording(ctx, h.opts("keep.mp4"))
	require.NoError(t, err)
	assert.Equal(t, target, ev.OutputPath)
	assert.Equal(t, filepath.Join(h.dir, "keep.part000.mp4"), h.fallback.last().opts.OutputPath)

	require.NoError(t, h.ctrl.AbortRecording(ctx))

	assert.Equal(t, []string{"keep.mp4"}, listFiles(t, h.dir))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestStopRecording_ReplacesPreexistingOutput(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	target := filepath.Join(h.dir, "keep.mp4")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0o600))

	_, err := h.ctrl.StartRecording(ctx, h.opts("keep.mp4"))
	require.NoError(t, err)
	out, err := h.ctrl.StopRecording(ctx)
	require.NoError(t, err)

	assert.Equal(t, target, out)
	assert.Equal(t, []string{"keep.mp4"}, listFiles(t, h.dir))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.NotEqual(t, "old", string(data))
}

func TestUnavailableNative_RetriesOnFallback(t *testing.T) {
	h := newHarness(t, false)
	h.ctrl.cfg.Native = UnavailableNative()
	ctx := context.Background()

	forced, _ := h.ctrl.ShouldForceFallback(h.opts("n.mp4"))
	require.False(t, forced)

	ev, err := h.ctrl.StartRecording(ctx, h.opts("n.mp4"))
	require.NoError(t, err)
	assert.True(t, ev.UsingFallback)
	assert.Equal(t, BackendFallback, ev.Backend)
	assert.Equal(t, 1, h.fallback.attempts())

	out, err := h.ctrl.StopRecording(ctx)
	require.NoError(t, err)
	assert.FileExists(t, out)
}
