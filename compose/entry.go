// Package compose merges per-scene clips and narration into one continuous
// vertical video: resample every clip to the canonical resolution, reconcile
// its duration against the narration, then join in order with an optional
// crossfade overlap.
package compose

// ClipEntry pairs one scene's clip with its narration audio and target
// duration. Entries are built by the orchestrator right before composition
// and never persisted; everything in them is derivable from artifacts on
// disk.
type ClipEntry struct {
	SceneNumber    int
	VideoPath      string
	AudioPath      string  // empty when the scene has no narration audio
	TargetDuration float64 // seconds; 0 when no target is known
}
