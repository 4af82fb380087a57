// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package workflow turns named, configured presets into job settings.
package workflow

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/capctl/internal/index"
	"github.com/ManuGH/capctl/internal/jobs"
	"github.com/ManuGH/capctl/internal/recording"
)

// ErrNotFound is returned for unknown workflow ids.
var ErrNotFound = errors.New("workflow not found")

// Definition is one configured workflow.
type Definition struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
	Kind string `yaml:"kind" json:"kind"`

	Mode     string        `yaml:"mode,omitempty" json:"mode,omitempty"`
	WindowID string        `yaml:"windowId,omitempty" json:"window_id,omitempty"`
	Region   string        `yaml:"region,omitempty" json:"region,omitempty"`
	Delay    time.Duration `yaml:"delay,omitempty" json:"delay,omitempty"`

	Duration  time.Duration `yaml:"duration,omitempty" json:"duration,omitempty"`
	ExportGIF bool          `yaml:"exportGif,omitempty" json:"export_gif,omitempty"`
	FPS       int           `yaml:"fps,omitempty" json:"fps,omitempty"`
	Codec     string        `yaml:"codec,omitempty" json:"codec,omitempty"`
	Audio     *bool         `yaml:"audio,omitempty" json:"audio,omitempty"`

	FilePath string `yaml:"filePath,omitempty" json:"file_path,omitempty"`
	Text     string `yaml:"text,omitempty" json:"text,omitempty"`

	IndexRoot       string   `yaml:"indexRoot,omitempty" json:"index_root,omitempty"`
	IndexMaxDepth   int      `yaml:"indexMaxDepth,omitempty" json:"index_max_depth,omitempty"`
	IndexExtensions []string `yaml:"indexExtensions,omitempty" json:"index_extensions,omitempty"`

	AfterCapture []string `yaml:"afterCapture,omitempty" json:"after_capture,omitempty"`
	AfterUpload  []string `yaml:"afterUpload,omitempty" json:"after_upload,omitempty"`
}

// DisplayName falls back to the id.
func (d Definition) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// Defaults fill in what a definition leaves open.
type Defaults struct {
	Encoder          recording.EncoderSettings
	UseNativeCapture bool
	IndexShowSizes   bool
}

// Overrides are per-run adjustments, e.g. from CLI flags.
type Overrides struct {
	Duration  *time.Duration
	Region    *recording.Region
	FilePath  string
	Text      string
	IndexRoot string
}

// Settings builds job settings for one run of d.
func (d Definition) Settings(def Defaults, ov Overrides) (jobs.Settings, error) {
	kind, err := jobs.ParseKind(d.Kind)
	if err != nil {
		return jobs.Settings{}, err
	}
	ac, err := jobs.ParseAfterCaptureTasks(d.AfterCapture)
	if err != nil {
		return jobs.Settings{}, err
	}
	au, err := jobs.ParseAfterUploadTasks(d.AfterUpload)
	if err != nil {
		return jobs.Settings{}, err
	}

	opts, err := d.captureOptions(def, ov)
	if err != nil {
		return jobs.Settings{}, err
	}

	s := jobs.Settings{
		Kind:         kind,
		Workflow:     d.ID,
		Capture:      opts,
		Delay:        d.Delay,
		Recording:    jobs.RecordingSettings{Duration: d.Duration, ExportGIF: d.ExportGIF},
		FilePath:     d.FilePath,
		Text:         d.Text,
		AfterCapture: ac,
		AfterUpload:  au,
		Index: index.Settings{
			Root:       d.IndexRoot,
			MaxDepth:   d.IndexMaxDepth,
			IncludeExt: d.IndexExtensions,
			ShowSizes:  def.IndexShowSizes,
		},
	}
	if ov.Duration != nil {
		s.Recording.Duration = *ov.Duration
	}
	if ov.FilePath != "" {
		s.FilePath = ov.FilePath
	}
	if ov.Text != "" {
		s.Text = ov.Text
	}
	if ov.IndexRoot != "" {
		s.Index.Root = ov.IndexRoot
	}
	return s, s.Validate()
}

func (d Definition) captureOptions(def Defaults, ov Overrides) (recording.Options, error) {
	opts := recording.Options{
		Mode:             recording.ModeScreen,
		WindowID:         d.WindowID,
		Encoder:          def.Encoder,
		UseNativeCapture: def.UseNativeCapture,
	}
	opts.Encoder.ExtraArgs = append([]string(nil), def.Encoder.ExtraArgs...)
	if d.Mode != "" {
		m, err := recording.ParseCaptureMode(d.Mode)
		if err != nil {
			return opts, err
		}
		opts.Mode = m
	}
	if d.Region != "" {
		r, err := recording.ParseRegion(d.Region)
		if err != nil {
			return opts, err
		}
		opts.Region = r
		if d.Mode == "" {
			opts.Mode = recording.ModeRegion
		}
	}
	if ov.Region != nil {
		opts.Region = *ov.Region
		opts.Mode = recording.ModeRegion
	}
	if d.FPS > 0 {
		opts.Encoder.FPS = d.FPS
	}
	if d.Codec != "" {
		opts.Encoder.Codec = d.Codec
	}
	if d.Audio != nil {
		opts.Encoder.CaptureSystemAudio = *d.Audio
	}
	return opts, nil
}

// Validate checks a list of definitions: ids are unique and non-empty and
// every definition builds.
func Validate(defs []Definition) error {
	seen := make(map[string]struct{}, len(defs))
	var errs []error
	for i, d := range defs {
		id := strings.TrimSpace(d.ID)
		if id == "" {
			errs = append(errs, fmt.Errorf("workflows[%d]: id is required", i))
			continue
		}
		if _, dup := seen[id]; dup {
			errs = append(errs, fmt.Errorf("workflows[%d]: duplicate id %q", i, id))
			continue
		}
		seen[id] = struct{}{}
		// Inputs may also be supplied per run.
		ov := Overrides{}
		if d.IndexRoot == "" {
			ov.IndexRoot = "."
		}
		if _, err := d.Settings(Defaults{}, ov); err != nil {
			errs = append(errs, fmt.Errorf("workflow %q: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Catalog holds the active definitions and can be swapped on config reload.
type Catalog struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewCatalog indexes defs by id.
func NewCatalog(defs []Definition) *Catalog {
	c := &Catalog{}
	c.Replace(defs)
	return c
}

// Replace swaps the whole set.
func (c *Catalog) Replace(defs []Definition) {
	m := make(map[string]Definition, len(defs))
	for _, d := range defs {
		m[d.ID] = d
	}
	c.mu.Lock()
	c.defs = m
	c.mu.Unlock()
}

// Get returns the definition with id.
func (c *Catalog) Get(id string) (Definition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.defs[id]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return d, nil
}

// List returns all definitions sorted by id.
func (c *Catalog) List() []Definition {
	c.mu.RLock()
	out := make([]Definition, 0, len(c.defs))
	for _, d := range c.defs {
		out = append(out, d)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
