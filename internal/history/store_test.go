// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "history.sqlite"), DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_AppendAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, s.AppendHistoryItem(ctx, Item{JobID: "j1", Path: "/r/a.mp4", Name: "a.mp4", Type: "recording", Timestamp: ts}))
	require.NoError(t, s.AppendHistoryItem(ctx, Item{Name: "shot.png", Type: "screenshot", URL: "https://x/1"}))

	items, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "shot.png", items[0].Name, "newest first")
	assert.Equal(t, "https://x/1", items[0].URL)
	assert.Equal(t, "j1", items[1].JobID)
	assert.True(t, ts.Equal(items[1].Timestamp))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStore_ListLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.AppendHistoryItem(ctx, Item{Name: fmt.Sprintf("%d", i), Type: "text"}))
	}
	items, err := s.List(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestIsStorageBusy(t *testing.T) {
	assert.False(t, IsStorageBusy(nil))
	assert.False(t, IsStorageBusy(errors.New("disk full")))
	assert.True(t, IsStorageBusy(ErrStorageBusy))
	assert.True(t, IsStorageBusy(fmt.Errorf("append: %w", ErrStorageBusy)))
}
