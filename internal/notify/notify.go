// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package notify delivers fire-and-forget user notifications. Delivery
// failures are logged and never returned to the caller.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Level is the severity of a notification.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Message is a user-visible toast.
type Message struct {
	Title    string
	Text     string
	Duration time.Duration
	Level    Level
}

// Notifier shows a message. Implementations must not block for long.
type Notifier interface {
	Notify(ctx context.Context, msg Message)
}

// Log writes notifications to the structured log.
type Log struct {
	Logger zerolog.Logger
}

func (n Log) Notify(_ context.Context, msg Message) {
	var ev *zerolog.Event
	switch msg.Level {
	case LevelError:
		ev = n.Logger.Error()
	case LevelWarn:
		ev = n.Logger.Warn()
	default:
		ev = n.Logger.Info()
	}
	ev.Str("title", msg.Title).Msg(msg.Text)
}

// Multi fans a message out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg Message) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, msg)
		}
	}
}

// Limited drops messages above a rate instead of queueing them.
type Limited struct {
	next    Notifier
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewLimited wraps next with a token bucket of rps and burst.
func NewLimited(next Notifier, rps float64, burst int, logger zerolog.Logger) *Limited {
	if rps <= 0 {
		rps = 2
	}
	if burst <= 0 {
		burst = 5
	}
	return &Limited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst), log: logger}
}

func (l *Limited) Notify(ctx context.Context, msg Message) {
	if !l.limiter.Allow() {
		l.log.Debug().Str("title", msg.Title).Msg("notification dropped by rate limit")
		return
	}
	l.next.Notify(ctx, msg)
}
