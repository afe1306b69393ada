package pipeline

import (
	"context"
	"errors"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"shortform-pipeline/tts"
	"shortform-pipeline/types"
)

// ComposeFromDir re-runs only the compose stage over artifacts left in a
// run directory by an earlier invocation. Pairing and output are identical
// to a full run that produced the same artifacts.
func (r *Runner) ComposeFromDir(ctx context.Context, dir string) (string, error) {
	s, err := types.LoadScript(filepath.Join(dir, ScriptFileName))
	if err != nil {
		return "", &ResourceError{Dir: dir, Err: err}
	}

	clipPaths, audioPaths, err := scanArtifacts(dir)
	if err != nil {
		return "", &ResourceError{Dir: dir, Err: err}
	}
	if len(clipPaths) == 0 {
		return "", &ResourceError{Dir: dir, Err: errors.New("no scene clips found")}
	}

	known := make(map[int]bool, len(s.Scenes))
	for _, sc := range s.Scenes {
		known[sc.SceneNumber] = true
	}
	for n := range clipPaths {
		if !known[n] {
			log.Warnf("⚠️  Clip for scene %d has no entry in %s — ignoring", n, ScriptFileName)
		}
	}

	// Narration durations are not persisted; the compositor probes the
	// audio itself, so only the paths matter here. Scenes without audio
	// fall back to the scripted duration.
	narrations := make(map[int]tts.Result, len(audioPaths))
	for n, path := range audioPaths {
		narrations[n] = tts.Result{AudioPath: path}
	}

	entries := buildEntries(s, clipPaths, narrations)
	log.Infof("🔁 Composing %d scenes from %s", len(entries), dir)
	return r.composer.Compose(ctx, entries, filepath.Join(dir, FinalFileName))
}
