// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build windows

package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile writes data to a temp file in the target directory and renames it into place.
// Windows has no fsync-before-rename guarantee comparable to renameio.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	return ReplaceWith(path, perm, func(tmpPath string) error {
		return os.WriteFile(tmpPath, data, perm)
	})
}

// ReplaceWith lets produce write a temp file next to path, then renames it over path.
func ReplaceWith(path string, perm os.FileMode, produce func(tmpPath string) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(dir, ".capctl-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := produce(tmpPath); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
