// Package video generates one clip per scene from a text prompt.
package video

import "context"

// Generator wraps a heavyweight text-to-video model. Load must be called
// once before any Generate; Unload releases the model's memory and must be
// called exactly once after the last Generate, even when scenes failed.
type Generator interface {
	Load(ctx context.Context) error
	Generate(ctx context.Context, prompt, negativePrompt, outPath string) error
	Unload(ctx context.Context) error
}
