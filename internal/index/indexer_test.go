// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package index

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o600))
}

func newIndexer(t *testing.T) *Indexer {
	return &Indexer{
		OutputDir: t.TempDir(),
		Now:       func() time.Time { return time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC) },
	}
}

func TestIndex_RendersTree(t *testing.T) {
	root := filepath.Join(t.TempDir(), "media")
	writeFile(t, filepath.Join(root, "a.mp4"), 10)
	writeFile(t, filepath.Join(root, "docs", "notes.txt"), 2048)
	writeFile(t, filepath.Join(root, "empty", "skip.tmp"), 1)

	ix := newIndexer(t)
	res, err := ix.Index(context.Background(), Settings{Root: root, IncludeExt: []string{"mp4", ".TXT"}, ShowSizes: true})
	require.NoError(t, err)

	want := "media/\n  a.mp4 (10 B)\n  docs/\n    notes.txt (2.0 KiB)\n"
	assert.Equal(t, want, res.Text)
	assert.Equal(t, 2, res.Files)
	assert.Equal(t, 1, res.Dirs)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, filepath.Join(ix.OutputDir, "Index_media_2025-05-06_07-08-09.txt"), res.Path)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, want, string(data))
}

func TestIndex_MaxDepth(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "top.txt"), 1)
	writeFile(t, filepath.Join(root, "l1", "l2", "deep.txt"), 1)

	res, err := newIndexer(t).Index(context.Background(), Settings{Root: root, MaxDepth: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Files)
	assert.NotContains(t, res.Text, "deep.txt")
}

func TestIndex_SymlinkOutsideRootSkipped(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	outside := filepath.Join(t.TempDir(), "secret.txt")
	writeFile(t, outside, 1)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ok.txt"), 1)
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link.txt")))

	res, err := newIndexer(t).Index(context.Background(), Settings{Root: root})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Files)
	assert.Equal(t, 1, res.Skipped)
	assert.NotContains(t, res.Text, "link.txt")
}

func TestIndex_EmptyAndMissing(t *testing.T) {
	ix := newIndexer(t)
	_, err := ix.Index(context.Background(), Settings{Root: t.TempDir()})
	assert.ErrorIs(t, err, ErrEmptyFolder)

	_, err = ix.Index(context.Background(), Settings{Root: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestIndex_Canceled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newIndexer(t).Index(ctx, Settings{Root: root})
	assert.ErrorIs(t, err, context.Canceled)
}
