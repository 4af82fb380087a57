// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package effects

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ManuGH/capctl/internal/jobs"
	xglog "github.com/ManuGH/capctl/internal/log"
	"github.com/ManuGH/capctl/internal/notify"
)

// Upload sends the artifact to the destination and stores the returned URL.
// A file on disk wins over the in-memory image, which wins over text.
type Upload struct {
	Uploader Uploader
	Logger   zerolog.Logger
}

func (u Upload) Process(ctx context.Context, art *jobs.Artifact) error {
	var (
		url string
		err error
	)
	switch {
	case art.FilePath != "":
		url, err = u.Uploader.UploadFile(ctx, art.FilePath)
	case len(art.Image) > 0:
		url, err = u.Uploader.UploadBytes(ctx, art.Name, art.Image)
	case art.Text != "":
		url, err = u.Uploader.UploadText(ctx, art.Name, art.Text)
	default:
		return errors.New("nothing to upload")
	}
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	art.URL = url
	u.Logger.Info().Str(xglog.FieldJobID, art.JobID).Str(xglog.FieldURL, url).Msg("artifact uploaded")
	return nil
}

// NotifyURL shows the upload URL as a notification.
type NotifyURL struct {
	Notifier notify.Notifier
}

func (n NotifyURL) Process(ctx context.Context, art *jobs.Artifact) error {
	if art.URL == "" {
		return errors.New("no URL to announce")
	}
	n.Notifier.Notify(ctx, notify.Message{
		Title: "Upload completed",
		Text:  art.URL,
		Level: notify.LevelInfo,
	})
	return nil
}
