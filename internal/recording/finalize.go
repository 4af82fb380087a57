// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recording

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ManuGH/capctl/internal/fsutil"
	xglog "github.com/ManuGH/capctl/internal/log"
	"github.com/ManuGH/capctl/internal/telemetry"
)

var errNoConcat = errors.New("no concat tool configured")

// finalize turns the ordered segments into finalPath. It returns "" when
// there is nothing to finalize. Segments are only deleted after the final
// file was committed.
func (c *Controller) finalize(ctx context.Context, segments []string, finalPath string, logger zerolog.Logger) (string, error) {
	ctx, span := c.tracer.Start(ctx, "recording.finalize")
	defer span.End()
	span.SetAttributes(attribute.Int(telemetry.RecordingSegmentsKey, len(segments)))

	switch len(segments) {
	case 0:
		return "", nil
	case 1:
		if segments[0] != finalPath {
			if err := fsutil.Move(segments[0], finalPath); err != nil {
				return "", fmt.Errorf("move segment into place: %w", err)
			}
		}
		return finalPath, nil
	}

	if c.cfg.Concat == nil {
		return "", fmt.Errorf("finalize %d segments: %w", len(segments), errNoConcat)
	}

	// The first segment usually is finalPath itself, so the tool writes to a
	// pending file that replaces finalPath only once it is complete.
	format := FormatForPath(finalPath)
	err := fsutil.ReplaceWith(finalPath, 0o644, func(tmpPath string) error {
		return c.cfg.Concat.Concat(ctx, segments, tmpPath, format)
	})
	if err != nil {
		return "", fmt.Errorf("concat %d segments: %w", len(segments), err)
	}

	for _, s := range segments {
		if s == finalPath {
			continue
		}
		if err := fsutil.RemoveIfExists(s); err != nil {
			logger.Warn().Err(err).Str(xglog.FieldSegment, s).Msg("failed to delete segment after concat")
		}
	}
	return finalPath, nil
}
