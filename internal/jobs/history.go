// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/capctl/internal/history"
	xglog "github.com/ManuGH/capctl/internal/log"
	"github.com/ManuGH/capctl/internal/metrics"
	"github.com/ManuGH/capctl/internal/notify"
)

func (j *Job) recordHistory(ctx context.Context, art *Artifact) {
	if j.deps.History == nil || j.settings.SkipHistory {
		return
	}
	item := history.Item{
		JobID:     j.id,
		Path:      art.FilePath,
		Name:      art.Name,
		Type:      string(art.Kind),
		URL:       art.URL,
		Timestamp: art.CreatedAt,
	}
	if err := j.appendWithRetry(ctx, item); err != nil {
		j.log.Warn().Err(err).Str(xglog.FieldPath, art.FilePath).Msg("history record was not saved")
		j.addWarning(fmt.Sprintf("history: %v", err))
		j.notify(ctx, notify.Message{
			Title: "History record was not saved",
			Text:  err.Error(),
			Level: notify.LevelWarn,
		})
	}
}

// appendWithRetry retries storage-busy failures with linear backoff. Other
// errors are returned at once.
func (j *Job) appendWithRetry(ctx context.Context, item history.Item) error {
	policy := j.deps.retryPolicy()
	for attempt := 1; ; attempt++ {
		err := j.deps.History.AppendHistoryItem(ctx, item)
		if err == nil {
			metrics.IncHistoryAttempt("ok")
			return nil
		}
		if !j.deps.isStorageBusy(err) {
			metrics.IncHistoryAttempt("error")
			return err
		}
		metrics.IncHistoryAttempt("busy")
		if attempt >= policy.Attempts {
			return fmt.Errorf("history storage busy after %d attempts: %w", attempt, err)
		}
		j.log.Debug().Err(err).Int(xglog.FieldAttempt, attempt).Msg("history storage busy, retrying")

		t := time.NewTimer(policy.Backoff * time.Duration(attempt))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
}
