// Package probe wraps ffprobe for the media measurements composition needs:
// container duration and primary video dimensions, from a single JSON call.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Result holds the parsed measurements for one media file. Width and Height
// are zero for audio-only files.
type Result struct {
	Duration float64
	Width    int
	Height   int
}

// Probe runs ffprobe against path and returns the parsed result.
func Probe(ctx context.Context, path string) (*Result, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %q: %w", path, err)
	}
	return ParseJSON(out)
}

// Duration returns just the container duration of path in seconds.
func Duration(ctx context.Context, path string) (float64, error) {
	r, err := Probe(ctx, path)
	if err != nil {
		return 0, err
	}
	return r.Duration, nil
}

// ParseJSON converts raw ffprobe JSON output into a Result.
// Exported for testing without a real ffprobe binary.
func ParseJSON(data []byte) (*Result, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe JSON: %w", err)
	}

	r := &Result{Duration: parseFloat(raw.Format.Duration)}
	for _, s := range raw.Streams {
		if s.CodecType != "video" {
			continue
		}
		if s.Disposition["attached_pic"] == 1 {
			continue
		}
		r.Width = s.Width
		r.Height = s.Height
		break
	}
	if r.Duration <= 0 {
		return nil, fmt.Errorf("ffprobe reported no duration")
	}
	return r, nil
}

// --- ffprobe JSON wire types (numbers arrive as strings) ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeStream struct {
	CodecType   string         `json:"codec_type"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	Disposition map[string]int `json:"disposition"`
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}
