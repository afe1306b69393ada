package types

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
)

// DefaultNegativePrompt is applied to clip generation when the script engine
// returns no negative prompt of its own.
const DefaultNegativePrompt = "blurry, low quality, distorted, watermark, text overlay"

// Total script duration bounds in seconds.
const (
	MinTotalDuration = 15.0
	MaxTotalDuration = 60.0
)

var validate = validator.New()

// Scene is one narrated, visually-prompted segment of the video.
// Scenes are never mutated after the script is constructed.
type Scene struct {
	SceneNumber     int     `json:"scene_number" validate:"gte=1"`
	VisualPrompt    string  `json:"visual_prompt" validate:"min=10"`
	NarrationText   string  `json:"narration_text" validate:"min=1"`
	DurationSeconds float64 `json:"duration_seconds" validate:"gte=2,lte=6"`
}

// Script is the full validated script for one short-form video.
// It is written to disk once after generation and can be reloaded later
// for compose-only runs.
type Script struct {
	Title          string  `json:"title" validate:"required"`
	Topic          string  `json:"topic" validate:"required"`
	Scenes         []Scene `json:"scenes" validate:"required,min=3,max=12,dive"`
	StyleNotes     string  `json:"style_notes"`
	NegativePrompt string  `json:"negative_prompt"`
}

// ValidationError reports a script that violates the schema or duration
// invariants. It is fatal: no synthesis may run against an invalid script.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid script: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// TotalDuration returns the sum of all scene durations in seconds.
func (s *Script) TotalDuration() float64 {
	var total float64
	for _, sc := range s.Scenes {
		total += sc.DurationSeconds
	}
	return total
}

// Validate checks all script invariants: field-level constraints, scene
// numbering (1-indexed, strictly ascending), and the total duration window.
// Returns a *ValidationError describing the first violation found.
func (s *Script) Validate() error {
	if err := validate.Struct(s); err != nil {
		return &ValidationError{Err: err}
	}

	for i, sc := range s.Scenes {
		if i == 0 && sc.SceneNumber != 1 {
			return &ValidationError{Err: fmt.Errorf("first scene_number is %d, must be 1", sc.SceneNumber)}
		}
		if i > 0 && sc.SceneNumber <= s.Scenes[i-1].SceneNumber {
			return &ValidationError{Err: fmt.Errorf(
				"scene_number %d after %d: numbers must be strictly ascending",
				sc.SceneNumber, s.Scenes[i-1].SceneNumber)}
		}
	}

	total := s.TotalDuration()
	if total < MinTotalDuration {
		return &ValidationError{Err: fmt.Errorf("total duration is %.1fs, minimum is %.0fs", total, MinTotalDuration)}
	}
	if total > MaxTotalDuration {
		return &ValidationError{Err: fmt.Errorf("total duration is %.1fs, maximum is %.0fs", total, MaxTotalDuration)}
	}
	return nil
}

// Save writes the script as indented JSON. Called once, right after the
// script stage, so a crash later still leaves a resumable artifact.
func (s *Script) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal script: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("save script: %w", err)
	}
	return nil
}

// LoadScript reads a persisted script and re-validates it, so a reloaded
// script satisfies exactly the same invariants as a freshly generated one.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script JSON: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
