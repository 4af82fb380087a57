// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package index renders a folder tree into a text index file.
package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/capctl/internal/fsutil"
	xglog "github.com/ManuGH/capctl/internal/log"
)

// ErrEmptyFolder is returned when nothing under the root matched.
var ErrEmptyFolder = errors.New("folder contains no indexable entries")

// Settings selects what is indexed.
type Settings struct {
	Root       string   `json:"root" yaml:"root"`
	MaxDepth   int      `json:"max_depth,omitempty" yaml:"maxDepth,omitempty"`
	IncludeExt []string `json:"include_ext,omitempty" yaml:"includeExt,omitempty"`
	ShowSizes  bool     `json:"show_sizes,omitempty" yaml:"showSizes,omitempty"`
}

// Result describes a finished index run.
type Result struct {
	Path    string
	Text    string
	Files   int
	Dirs    int
	Skipped int
	Errors  int
}

// Indexer walks folders and writes index files into OutputDir.
type Indexer struct {
	OutputDir string
	Logger    zerolog.Logger
	Now       func() time.Time
}

type entry struct {
	rel   string
	depth int
	dir   bool
	size  int64
}

// Index walks s.Root and writes the rendered tree to a new file.
func (ix *Indexer) Index(ctx context.Context, s Settings) (Result, error) {
	var res Result
	root, err := filepath.Abs(s.Root)
	if err != nil {
		return res, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return res, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return res, fmt.Errorf("%s is not a directory", root)
	}
	logger := ix.Logger.With().Str(xglog.FieldComponent, "index").Str(xglog.FieldPath, root).Logger()

	var entries []entry
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			res.Errors++
			logger.Debug().Err(walkErr).Str("entry", path).Msg("index walk error")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			res.Errors++
			return nil
		}
		depth := strings.Count(rel, string(os.PathSeparator))

		if d.IsDir() {
			if s.MaxDepth > 0 && depth >= s.MaxDepth {
				return fs.SkipDir
			}
			entries = append(entries, entry{rel: rel, depth: depth, dir: true})
			return nil
		}

		// Symlinks must not lead outside the indexed root.
		resolved, err := fsutil.ConfineAbsPath(root, path)
		if err != nil {
			res.Skipped++
			logger.Debug().Err(err).Str("entry", rel).Msg("index skip: outside root")
			return nil
		}
		if !allowedExt(d.Name(), s.IncludeExt) {
			res.Skipped++
			return nil
		}
		fi, err := os.Stat(resolved)
		if err != nil {
			res.Errors++
			return nil
		}
		entries = append(entries, entry{rel: rel, depth: depth, size: fi.Size()})
		return nil
	})
	if err != nil {
		return res, err
	}

	entries = pruneEmptyDirs(entries)
	for _, e := range entries {
		if e.dir {
			res.Dirs++
		} else {
			res.Files++
		}
	}
	if res.Files == 0 {
		return res, ErrEmptyFolder
	}

	res.Text = render(filepath.Base(root), entries, s.ShowSizes)

	now := time.Now
	if ix.Now != nil {
		now = ix.Now
	}
	name := fmt.Sprintf("Index_%s_%s.txt", sanitize(filepath.Base(root)), now().Format("2006-01-02_15-04-05"))
	res.Path = filepath.Join(ix.OutputDir, name)
	if err := fsutil.WriteFile(res.Path, []byte(res.Text), 0o644); err != nil {
		return res, fmt.Errorf("write index: %w", err)
	}

	logger.Info().Int("files", res.Files).Int("dirs", res.Dirs).Int("skipped", res.Skipped).Msg("folder indexed")
	return res, nil
}

func allowedExt(name string, include []string) bool {
	if len(include) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range include {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if e == ext {
			return true
		}
	}
	return false
}

// pruneEmptyDirs drops directories that ended up without any file below them.
func pruneEmptyDirs(entries []entry) []entry {
	keep := make(map[string]bool)
	for _, e := range entries {
		if e.dir {
			continue
		}
		for d := filepath.Dir(e.rel); d != "." && d != string(os.PathSeparator); d = filepath.Dir(d) {
			keep[d] = true
		}
	}
	out := entries[:0]
	for _, e := range entries {
		if !e.dir || keep[e.rel] {
			out = append(out, e)
		}
	}
	return out
}

func render(rootName string, entries []entry, sizes bool) string {
	var b strings.Builder
	b.WriteString(rootName)
	b.WriteString("/\n")
	for _, e := range entries {
		b.WriteString(strings.Repeat("  ", e.depth+1))
		b.WriteString(filepath.Base(e.rel))
		if e.dir {
			b.WriteString("/")
		} else if sizes {
			fmt.Fprintf(&b, " (%s)", humanSize(e.size))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, s)
}
