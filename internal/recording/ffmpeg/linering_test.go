// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineRing_PartialWrites(t *testing.T) {
	r := NewLineRing(4)
	_, _ = r.Write([]byte("frame=1\nfra"))
	_, _ = r.Write([]byte("me=2\r\n"))
	_, _ = r.Write([]byte("error: device busy"))

	assert.Equal(t, []string{"frame=1", "frame=2", "error: device busy"}, r.LastN(10))
	assert.Equal(t, "frame=2 | error: device busy", r.Tail(2))
}

func TestLineRing_Wraps(t *testing.T) {
	r := NewLineRing(3)
	for _, l := range []string{"a", "b", "c", "d", "e"} {
		_, _ = r.Write([]byte(l + "\n"))
	}
	assert.Equal(t, []string{"c", "d", "e"}, r.LastN(5))
	assert.Equal(t, []string{"e"}, r.LastN(1))
}
