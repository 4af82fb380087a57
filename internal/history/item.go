// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package history persists metadata about produced artifacts.
package history

import (
	"errors"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrStorageBusy marks a transient lock or contention failure. Callers may retry.
var ErrStorageBusy = errors.New("history storage busy")

// Item is one history record.
type Item struct {
	ID        int64     `json:"id"`
	JobID     string    `json:"job_id,omitempty"`
	Path      string    `json:"path,omitempty"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	URL       string    `json:"url,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// IsStorageBusy reports whether err is a transient storage contention error,
// either ErrStorageBusy or a SQLITE_BUSY/SQLITE_LOCKED result code.
func IsStorageBusy(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrStorageBusy) {
		return true
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		// Extended result codes carry the primary code in the low byte.
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}
	return false
}
