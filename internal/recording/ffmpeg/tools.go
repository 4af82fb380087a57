// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ManuGH/capctl/internal/fsutil"
	"github.com/ManuGH/capctl/internal/recording"
)

// Concatenator joins recording segments with the ffmpeg concat demuxer.
type Concatenator struct {
	Bin  string
	Exec Exec
}

// Concat writes segments, in order, to output as a single stream copy.
func (c *Concatenator) Concat(ctx context.Context, segments []string, output, format string) error {
	if len(segments) == 0 {
		return errors.New("concat: no segments")
	}

	list, err := os.CreateTemp(filepath.Dir(output), ".concat-*.txt")
	if err != nil {
		return fmt.Errorf("concat: create list: %w", err)
	}
	listPath := list.Name()
	defer func() { _ = os.Remove(listPath) }()

	if _, err := list.WriteString(concatList(segments)); err != nil {
		_ = list.Close()
		return fmt.Errorf("concat: write list: %w", err)
	}
	if err := list.Close(); err != nil {
		return fmt.Errorf("concat: close list: %w", err)
	}

	return c.Exec.Run(ctx, binOrDefault(c.Bin), BuildConcatArgs(listPath, output, format), nil)
}

// concatList renders the concat demuxer script. Single quotes inside a path
// are closed, escaped and reopened.
func concatList(segments []string) string {
	var b strings.Builder
	for _, s := range segments {
		abs, err := filepath.Abs(s)
		if err != nil {
			abs = s
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	return b.String()
}

// GIFConverter re-encodes recordings into animated GIFs.
type GIFConverter struct {
	Bin   string
	Exec  Exec
	FPS   int
	Width int
}

// ToGIF converts input and returns the path of the .gif next to it.
func (g *GIFConverter) ToGIF(ctx context.Context, input string) (string, error) {
	output := strings.TrimSuffix(input, filepath.Ext(input)) + ".gif"
	err := fsutil.ReplaceWith(output, 0o644, func(tmpPath string) error {
		return g.Exec.Run(ctx, binOrDefault(g.Bin), BuildGIFArgs(input, tmpPath, g.FPS, g.Width), nil)
	})
	if err != nil {
		return "", fmt.Errorf("gif conversion: %w", err)
	}
	return output, nil
}

// Grabber takes single-frame screenshots.
type Grabber struct {
	Bin      string
	Exec     Exec
	Platform Platform
}

// Capture returns the PNG bytes of the area described by opts.
func (g *Grabber) Capture(ctx context.Context, opts recording.Options) ([]byte, error) {
	args, err := BuildScreenshotArgs(g.Platform, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := g.Exec.Run(ctx, binOrDefault(g.Bin), args, &buf); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	if buf.Len() == 0 {
		return nil, errors.New("screenshot: grabber returned no image data")
	}
	return buf.Bytes(), nil
}

func binOrDefault(bin string) string {
	if bin == "" {
		return "ffmpeg"
	}
	return bin
}
