package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"shortform-pipeline/config"
)

// WanGenerator drives a local Wan2.1 inference server over HTTP. The server
// holds the diffusion pipeline; /load and /unload manage its GPU memory so
// the model is resident only during the clip stage.
type WanGenerator struct {
	cfg        *config.VideoConfig
	httpClient *http.Client
}

// NewWanGenerator builds a client for the configured inference server.
func NewWanGenerator(cfg *config.VideoConfig) *WanGenerator {
	return &WanGenerator{
		cfg: cfg,
		// Diffusion inference is slow; a single clip can take minutes on CPU.
		httpClient: &http.Client{Timeout: 30 * time.Minute},
	}
}

type loadRequest struct {
	Model string `json:"model"`
}

type generateRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	NumFrames      int     `json:"num_frames"`
	FPS            int     `json:"fps"`
	Steps          int     `json:"num_inference_steps"`
	GuidanceScale  float64 `json:"guidance_scale"`
}

// Load asks the server to bring the model into memory. Idempotent on the
// server side, so re-loading an already loaded model is cheap.
func (g *WanGenerator) Load(ctx context.Context) error {
	log.Infof("[video] Loading model %s...", g.cfg.Model)
	return g.post(ctx, "/load", loadRequest{Model: g.cfg.Model}, nil)
}

// Unload releases the model's memory on the server.
func (g *WanGenerator) Unload(ctx context.Context) error {
	log.Info("[video] Unloading model")
	return g.post(ctx, "/unload", struct{}{}, nil)
}

// Generate renders one clip and writes the returned MP4 to outPath.
func (g *WanGenerator) Generate(ctx context.Context, prompt, negativePrompt, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("create clip dir: %w", err)
	}

	req := generateRequest{
		Prompt:         prompt,
		NegativePrompt: negativePrompt,
		Width:          g.cfg.Width,
		Height:         g.cfg.Height,
		NumFrames:      g.cfg.NumFrames,
		FPS:            g.cfg.FPS,
		Steps:          g.cfg.Steps,
		GuidanceScale:  g.cfg.GuidanceScale,
	}

	var video []byte
	if err := g.post(ctx, "/generate", req, &video); err != nil {
		return err
	}
	if len(video) < 1000 {
		return fmt.Errorf("server returned %d bytes — not a valid clip", len(video))
	}
	return os.WriteFile(outPath, video, 0644)
}

// post sends a JSON body and, when out is non-nil, reads the raw response
// body into it.
func (g *WanGenerator) post(ctx context.Context, path string, body interface{}, out *[]byte) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.cfg.ServerURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("video server %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("video server %s: HTTP %d: %s", path, resp.StatusCode, bytes.TrimSpace(msg))
	}

	if out != nil {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read clip body: %w", err)
		}
		*out = data
	}
	return nil
}
