// Package script turns a topic into a validated video script using an LLM.
// Two engines are provided: OpenAI (structured outputs) and Groq (OpenAI
// compatible HTTP API). Each engine owns its own validation-retry policy;
// callers get back a script that already satisfies every invariant.
package script

import (
	"context"

	"shortform-pipeline/types"
)

// Generator produces a validated script for a topic. Implementations fail
// with an engine-specific error when no valid script can be produced.
type Generator interface {
	Generate(ctx context.Context, topic string) (*types.Script, error)
}

// finalize stamps the requested topic onto a freshly parsed script, fills
// the default negative prompt if the model returned none, and validates.
func finalize(s *types.Script, topic string) error {
	s.Topic = topic
	if s.NegativePrompt == "" {
		s.NegativePrompt = types.DefaultNegativePrompt
	}
	return s.Validate()
}
