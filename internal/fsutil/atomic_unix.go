// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build !windows

package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// WriteFile atomically and durably writes data to path.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	// #nosec G301
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	return renameio.WriteFile(path, data, perm)
}

// ReplaceWith lets produce write a complete file at a temporary path in the
// same directory as path, then fsyncs and atomically renames it over path.
// On error the temporary file is removed and path is left untouched.
func ReplaceWith(path string, perm os.FileMode, produce func(tmpPath string) error) error {
	// #nosec G301
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(perm))
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	// No-op once committed.
	defer func() { _ = pendingFile.Cleanup() }()

	if err := produce(pendingFile.Name()); err != nil {
		return err
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
