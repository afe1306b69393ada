package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime settings. Loaded once in main and passed by
// pointer to every component that needs it.
type Config struct {
	Script   ScriptConfig   `yaml:"script"`
	TTS      TTSConfig      `yaml:"tts"`
	Video    VideoConfig    `yaml:"video"`
	Compose  ComposeConfig  `yaml:"compose"`
	Research ResearchConfig `yaml:"research"`
	Upload   UploadConfig   `yaml:"upload"`
	Paths    PathsConfig    `yaml:"paths"`
}

type ScriptConfig struct {
	Engine      string  `yaml:"engine"`       // "openai" or "groq"
	OpenAIModel string  `yaml:"openai_model"` // e.g. "gpt-4o-mini"
	GroqModel   string  `yaml:"groq_model"`   // e.g. "llama-3.3-70b-versatile"
	Temperature float64 `yaml:"temperature"`
	MaxRetries  int     `yaml:"max_retries"` // engine-internal validation retries
}

type TTSConfig struct {
	Command string `yaml:"command"` // empty: $TTS_COMMAND, then edge-tts fallback
	Voice   string `yaml:"voice"`   // edge-tts voice name
}

type VideoConfig struct {
	ServerURL     string  `yaml:"server_url"` // Wan2.1 inference server
	Model         string  `yaml:"model"`
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	NumFrames     int     `yaml:"num_frames"`
	FPS           int     `yaml:"fps"`
	Steps         int     `yaml:"steps"`
	GuidanceScale float64 `yaml:"guidance_scale"`
}

type ComposeConfig struct {
	Width        int     `yaml:"width"`  // canonical output width
	Height       int     `yaml:"height"` // canonical output height
	FPS          int     `yaml:"fps"`
	CrossfadeSec float64 `yaml:"crossfade_sec"`
	VideoBitrate string  `yaml:"video_bitrate"`
	AudioBitrate string  `yaml:"audio_bitrate"`
	Preset       string  `yaml:"preset"`
}

type ResearchConfig struct {
	Subreddits []string `yaml:"subreddits"`
	MaxPosts   int      `yaml:"max_posts"`
	MinScore   int      `yaml:"min_score"`
}

type UploadConfig struct {
	Visibility        string `yaml:"visibility"`
	CategoryID        string `yaml:"category_id"`
	DefaultLanguage   string `yaml:"default_language"`
	NotifySubscribers bool   `yaml:"notify_subscribers"`
	MadeForKids       bool   `yaml:"made_for_kids"`
}

type PathsConfig struct {
	Output          string `yaml:"output"`
	ReferenceVoices string `yaml:"reference_voices"`
}

// Default returns a Config with working defaults for every section.
// A config.yaml overlays these, so a partial file is fine.
func Default() Config {
	return Config{
		Script: ScriptConfig{
			Engine:      "openai",
			OpenAIModel: "gpt-4o-mini",
			GroqModel:   "llama-3.3-70b-versatile",
			Temperature: 0.8,
			MaxRetries:  3,
		},
		TTS: TTSConfig{
			Voice: "en-US-GuyNeural",
		},
		Video: VideoConfig{
			ServerURL:     "http://127.0.0.1:7860",
			Model:         "Wan-AI/Wan2.1-T2V-1.3B-Diffusers",
			Width:         480,
			Height:        832,
			NumFrames:     81,
			FPS:           15,
			Steps:         30,
			GuidanceScale: 5.0,
		},
		Compose: ComposeConfig{
			Width:        1080,
			Height:       1920,
			FPS:          30,
			CrossfadeSec: 0.3,
			VideoBitrate: "8000k",
			AudioBitrate: "192k",
			Preset:       "medium",
		},
		Research: ResearchConfig{
			Subreddits: []string{"todayilearned", "interestingasfuck"},
			MaxPosts:   25,
			MinScore:   500,
		},
		Upload: UploadConfig{
			Visibility:      "private",
			CategoryID:      "28",
			DefaultLanguage: "en",
		},
		Paths: PathsConfig{
			Output:          "output",
			ReferenceVoices: "assets/reference_voices",
		},
	}
}

// Load reads path into the defaults. A missing file is not an error: the
// defaults alone are a valid configuration.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields a typo in config.yaml could break.
func (c *Config) Validate() error {
	switch c.Script.Engine {
	case "openai", "groq":
		// valid
	default:
		return errors.New("invalid script engine (use 'openai' or 'groq')")
	}
	if c.Compose.Width <= 0 || c.Compose.Height <= 0 {
		return errors.New("compose width/height must be positive")
	}
	if c.Compose.FPS <= 0 {
		return errors.New("compose fps must be positive")
	}
	if c.Compose.CrossfadeSec < 0 {
		return errors.New("compose crossfade_sec must not be negative")
	}
	if c.Video.Width <= 0 || c.Video.Height <= 0 || c.Video.NumFrames <= 0 {
		return errors.New("video dimensions and num_frames must be positive")
	}
	if c.Script.MaxRetries < 1 {
		return errors.New("script max_retries must be at least 1")
	}
	return nil
}
