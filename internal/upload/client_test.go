// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package upload

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadFile_JSONResponse(t *testing.T) {
	var gotName, gotBody, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		f, hdr, err := r.FormFile("upload")
		require.NoError(t, err)
		b, _ := io.ReadAll(f)
		gotName, gotBody = hdr.Filename, string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"link":"https://img.example/abc.png"}`)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, os.WriteFile(path, []byte("PNGDATA"), 0o600))

	c := NewClient(Config{
		URL:       srv.URL,
		FieldName: "upload",
		URLField:  "link",
		Headers:   map[string]string{"Authorization": "Bearer t"},
	}, zerolog.Nop())
	u, err := c.UploadFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "https://img.example/abc.png", u)
	assert.Equal(t, "shot.png", gotName)
	assert.Equal(t, "PNGDATA", gotBody)
	assert.Equal(t, "Bearer t", gotAuth)
}

func TestUploadText_PlainResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "https://paste.example/x1\n")
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL}, zerolog.Nop())
	u, err := c.UploadText(context.Background(), "", "hello")
	require.NoError(t, err)
	assert.Equal(t, "https://paste.example/x1", u)
}

func TestUpload_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL}, zerolog.Nop())
	_, err := c.UploadBytes(context.Background(), "a.png", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	empty := NewClient(Config{}, zerolog.Nop())
	_, err = empty.UploadBytes(context.Background(), "a.png", []byte("x"))
	assert.ErrorIs(t, err, ErrNotConfigured)
}
