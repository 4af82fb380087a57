// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package upload pushes artifacts to an HTTP destination and returns the
// public URL reported by it.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/ManuGH/capctl/internal/telemetry"
)

// ErrNotConfigured is returned when no destination URL is set.
var ErrNotConfigured = errors.New("upload destination not configured")

// Config describes the destination endpoint.
type Config struct {
	URL       string
	FieldName string
	// URLField is the JSON response field holding the public URL. A plain
	// text response body is used as-is.
	URLField  string
	Headers   map[string]string
	Timeout   time.Duration
	RateLimit float64
	Burst     int
	UserAgent string
}

const (
	defaultTimeout   = 60 * time.Second
	defaultRateLimit = 1
	defaultBurst     = 3
	maxResponseBytes = 1 << 20
)

// Client uploads files, images and text as multipart/form-data.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient creates a client for cfg.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.FieldName == "" {
		cfg.FieldName = "file"
	}
	if cfg.URLField == "" {
		cfg.URLField = "url"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = "capctl"
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		log:     logger,
	}
}

// Configured reports whether a destination is set.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.URL != ""
}

// UploadFile streams the file at path.
func (c *Client) UploadFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("open upload source: %w", err)
	}
	defer func() { _ = f.Close() }()
	return c.upload(ctx, filepath.Base(path), f)
}

// UploadBytes uploads data under name.
func (c *Client) UploadBytes(ctx context.Context, name string, data []byte) (string, error) {
	return c.upload(ctx, name, bytes.NewReader(data))
}

// UploadText uploads text as a .txt file.
func (c *Client) UploadText(ctx context.Context, name, text string) (string, error) {
	if name == "" {
		name = "text.txt"
	}
	return c.upload(ctx, name, strings.NewReader(text))
}

func (c *Client) upload(ctx context.Context, name string, body io.Reader) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	ctx, span := telemetry.Tracer("capctl/upload").Start(ctx, "upload.request", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("upload.name", name))

	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		return "", err
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile(c.cfg.FieldName, name)
		if err == nil {
			_, err = io.Copy(part, body)
		}
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.http.Do(req)
	// Unblocks the writer goroutine when the transport gave up early.
	_ = pr.CloseWithError(errors.New("request finished"))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		return "", fmt.Errorf("upload %s: destination returned %d: %s", name, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	u, err := c.extractURL(payload)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	c.log.Info().Str("name", name).Str("url", u).Dur("took", time.Since(start)).Msg("upload finished")
	return u, nil
}

func (c *Client) extractURL(payload []byte) (string, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var doc map[string]any
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return "", fmt.Errorf("decode upload response: %w", err)
		}
		if s, ok := doc[c.cfg.URLField].(string); ok && s != "" {
			return s, nil
		}
		return "", fmt.Errorf("upload response has no %q field", c.cfg.URLField)
	}
	s := string(trimmed)
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return "", fmt.Errorf("upload response is not a URL")
	}
	return s, nil
}
