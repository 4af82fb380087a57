// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package effects

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ManuGH/capctl/internal/fsutil"
	"github.com/ManuGH/capctl/internal/jobs"
	xglog "github.com/ManuGH/capctl/internal/log"
)

// SaveToFile writes in-memory artifacts (images, text) below Dir in a
// per-month folder and points the artifact at the saved file. Artifacts
// that already live on disk are left alone.
type SaveToFile struct {
	Dir    string
	Logger zerolog.Logger
}

func (s SaveToFile) Process(_ context.Context, art *jobs.Artifact) error {
	if art.FilePath != "" {
		return nil
	}
	var data []byte
	switch {
	case len(art.Image) > 0:
		data = art.Image
	case art.Text != "":
		data = []byte(art.Text)
	default:
		return errors.New("nothing to save")
	}

	name := art.Name
	if name == "" {
		name = art.JobID
	}
	name = sanitizeName(name)
	path := filepath.Join(s.Dir, art.CreatedAt.Format("2006-01"), name)
	// #nosec G301
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create save dir: %w", err)
	}
	path = uniquePath(path)
	if err := fsutil.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	art.FilePath = path
	s.Logger.Debug().Str(xglog.FieldJobID, art.JobID).Str(xglog.FieldPath, path).Msg("artifact saved")
	return nil
}

func sanitizeName(name string) string {
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." {
		return "artifact"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '|', '?', '*':
			return '_'
		}
		return r
	}, name)
}

// uniquePath appends " (n)" before the extension until the name is free.
func uniquePath(path string) string {
	if !fsutil.Exists(path) {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, i, ext)
		if !fsutil.Exists(candidate) {
			return candidate
		}
	}
}
