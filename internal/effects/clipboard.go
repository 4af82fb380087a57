// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package effects

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/ManuGH/capctl/internal/jobs"
)

// StdinRunner runs name with args and feeds stdin to it.
type StdinRunner func(ctx context.Context, stdin io.Reader, name string, args ...string) error

func runWithStdin(ctx context.Context, stdin io.Reader, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- fixed clipboard tools
	cmd.Stdin = stdin
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

var errImageClipboard = errors.New("image clipboard not supported on this platform")

// Clipboard writes to the system clipboard through wl-copy, xclip, pbcopy or clip.
type Clipboard struct {
	GOOS    string
	Getenv  func(string) string
	Run     StdinRunner
	Timeout time.Duration
}

func (c *Clipboard) command(mime string) (string, []string, error) {
	goos := c.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	getenv := c.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	image := strings.HasPrefix(mime, "image/")

	switch goos {
	case "darwin":
		if image {
			return "", nil, errImageClipboard
		}
		return "pbcopy", nil, nil
	case "windows":
		if image {
			return "", nil, errImageClipboard
		}
		return "clip", nil, nil
	}
	if getenv("WAYLAND_DISPLAY") != "" {
		return "wl-copy", []string{"--type", mime}, nil
	}
	return "xclip", []string{"-selection", "clipboard", "-t", mime}, nil
}

// Write places data with the given MIME type on the clipboard.
func (c *Clipboard) Write(ctx context.Context, mime string, data []byte) error {
	name, args, err := c.command(mime)
	if err != nil {
		return err
	}
	run := c.Run
	if run == nil {
		run = runWithStdin
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return run(ctx, bytes.NewReader(data), name, args...)
}

// CopyArtifact copies the image, the text, or else the file path.
type CopyArtifact struct {
	Clipboard *Clipboard
}

func (p CopyArtifact) Process(ctx context.Context, art *jobs.Artifact) error {
	switch {
	case len(art.Image) > 0:
		return p.Clipboard.Write(ctx, "image/png", art.Image)
	case art.Text != "":
		return p.Clipboard.Write(ctx, "text/plain", []byte(art.Text))
	case art.FilePath != "":
		return p.Clipboard.Write(ctx, "text/plain", []byte(art.FilePath))
	}
	return errors.New("nothing to copy")
}

// CopyURL copies the upload URL.
type CopyURL struct {
	Clipboard *Clipboard
}

func (p CopyURL) Process(ctx context.Context, art *jobs.Artifact) error {
	if art.URL == "" {
		return errors.New("no URL to copy")
	}
	return p.Clipboard.Write(ctx, "text/plain", []byte(art.URL))
}
