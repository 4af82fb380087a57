// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recording

import (
	"context"
	"os"
	"time"
)

// waitForFile polls until path exists or timeout elapses. Backends may return
// from Stop before the encoder flushed its output.
func waitForFile(ctx context.Context, path string, timeout, poll time.Duration) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return true, nil
	}
	if timeout <= 0 {
		return false, nil
	}
	if poll <= 0 {
		poll = 50 * time.Millisecond
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.C:
			_, err := os.Stat(path)
			return err == nil, nil
		case <-ticker.C:
			if _, err := os.Stat(path); err == nil {
				return true, nil
			}
		}
	}
}
