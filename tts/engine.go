// Package tts synthesizes narration audio, one scene at a time.
package tts

import "context"

// Result holds one synthesized narration artifact. DurationSeconds is
// measured from the produced waveform, not the scene's requested duration.
type Result struct {
	AudioPath       string
	DurationSeconds float64
}

// Engine synthesizes speech from text. referenceVoice is an optional audio
// file for voice cloning; engines without cloning support ignore it.
type Engine interface {
	Synthesize(ctx context.Context, text, referenceVoice, outPath string) (Result, error)
}
