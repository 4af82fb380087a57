// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recording

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ContainerExt returns the file extension matching codec.
func ContainerExt(codec string) string {
	switch strings.ToLower(codec) {
	case "vp8", "vp9", "libvpx", "libvpx-vp9", "av1", "libaom-av1":
		return ".webm"
	case "gif":
		return ".gif"
	default:
		return ".mp4"
	}
}

// DefaultOutputPath returns a timestamped path under root, grouped by month.
func DefaultOutputPath(root, codec string, now time.Time) string {
	name := "Recording_" + now.Format("2006-01-02_15-04-05") + ContainerExt(codec)
	return filepath.Join(root, now.Format("2006-01"), name)
}

// SegmentPath derives the file used by segment index of a session whose
// final output is finalPath: "<base>.part{NNN}<ext>". Index 0 records to finalPath.
func SegmentPath(finalPath string, index int) string {
	if index <= 0 {
		return finalPath
	}
	return partPath(finalPath, index)
}

func partPath(finalPath string, index int) string {
	ext := filepath.Ext(finalPath)
	base := strings.TrimSuffix(finalPath, ext)
	return fmt.Sprintf("%s.part%03d%s", base, index, ext)
}

// FormatForPath maps an output extension to the muxer name an encoder needs
// when the file name itself carries no usable extension.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mkv":
		return "matroska"
	case ".webm":
		return "webm"
	case ".mov":
		return "mov"
	case ".gif":
		return "gif"
	case ".ts":
		return "mpegts"
	default:
		return "mp4"
	}
}
