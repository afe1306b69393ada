package video

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shortform-pipeline/config"
)

func testCfg(serverURL string) *config.VideoConfig {
	return &config.VideoConfig{
		ServerURL:     serverURL,
		Model:         "Wan-AI/Wan2.1-T2V-1.3B-Diffusers",
		Width:         480,
		Height:        832,
		NumFrames:     81,
		FPS:           15,
		Steps:         30,
		GuidanceScale: 5.0,
	}
}

func TestLoadUnload(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/load" {
			var req loadRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "Wan-AI/Wan2.1-T2V-1.3B-Diffusers", req.Model)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g := NewWanGenerator(testCfg(srv.URL))
	require.NoError(t, g.Load(context.Background()))
	require.NoError(t, g.Unload(context.Background()))
	assert.Equal(t, []string{"/load", "/unload"}, paths)
}

func TestGenerateWritesClip(t *testing.T) {
	clip := bytes.Repeat([]byte("v"), 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/generate", r.URL.Path)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a fox running through snow", req.Prompt)
		assert.Equal(t, "blurry", req.NegativePrompt)
		assert.Equal(t, 81, req.NumFrames)
		assert.Equal(t, 30, req.Steps)

		_, _ = w.Write(clip)
	}))
	defer srv.Close()

	outPath := filepath.Join(t.TempDir(), "clip.mp4")
	g := NewWanGenerator(testCfg(srv.URL))
	require.NoError(t, g.Generate(context.Background(), "a fox running through snow", "blurry", outPath))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, clip, data)
}

func TestGenerateRejectsTinyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("oops"))
	}))
	defer srv.Close()

	outPath := filepath.Join(t.TempDir(), "clip.mp4")
	g := NewWanGenerator(testCfg(srv.URL))
	err := g.Generate(context.Background(), "prompt text", "", outPath)
	require.Error(t, err)
	assert.NoFileExists(t, outPath)
}

func TestGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "CUDA out of memory", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewWanGenerator(testCfg(srv.URL))
	err := g.Generate(context.Background(), "prompt text", "", filepath.Join(t.TempDir(), "c.mp4"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")
	assert.Contains(t, err.Error(), "CUDA out of memory")
}
