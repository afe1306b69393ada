package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"shortform-pipeline/compose"
	"shortform-pipeline/script"
	"shortform-pipeline/tts"
	"shortform-pipeline/types"
	"shortform-pipeline/video"
)

// Composer joins prepared clip entries into one exported video.
type Composer interface {
	Compose(ctx context.Context, entries []compose.ClipEntry, outPath string) (string, error)
}

// Stage is the orchestrator's position in the run. Stages always advance
// forward; a run never revisits a completed stage.
type Stage int

const (
	StageScript Stage = iota
	StageNarration
	StageClips
	StageCompose
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageScript:
		return "Script"
	case StageNarration:
		return "Narration"
	case StageClips:
		return "Clips"
	case StageCompose:
		return "Compose"
	case StageDone:
		return "Done"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Options tunes a single run.
type Options struct {
	// OutputDir is the run directory; all artifacts land here.
	OutputDir string
	// ReferenceVoice is an optional voice sample forwarded to the narrator.
	ReferenceVoice string
	// ScriptOnly stops after script generation.
	ScriptOnly bool
	// SkipClips stops after narration, returning the script path.
	SkipClips bool
}

// Runner drives a full run through its stages.
type Runner struct {
	scripts  script.Generator
	narrator tts.Engine
	clips    video.Generator
	composer Composer
}

func NewRunner(scripts script.Generator, narrator tts.Engine, clips video.Generator, composer Composer) *Runner {
	return &Runner{scripts: scripts, narrator: narrator, clips: clips, composer: composer}
}

// Run produces a video for topic and returns the path of the final export.
// Degraded runs (clips skipped, or no clip survived) return the script path
// instead, with a nil error.
func (r *Runner) Run(ctx context.Context, topic string, opts Options) (string, error) {
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	scriptPath := filepath.Join(opts.OutputDir, ScriptFileName)

	var (
		s          *types.Script
		narrations map[int]tts.Result
		clipPaths  map[int]string
		result     string
	)
	for stage := StageScript; stage != StageDone; {
		log.Infof("━━━ STAGE %d: %s ━━━", int(stage)+1, stage)
		switch stage {
		case StageScript:
			generated, err := r.scripts.Generate(ctx, topic)
			if err != nil {
				return "", fmt.Errorf("script generation: %w", err)
			}
			if err := generated.Save(scriptPath); err != nil {
				return "", fmt.Errorf("save script: %w", err)
			}
			s = generated
			log.Infof("📝 Script %q: %d scenes, %.1fs total", s.Title, len(s.Scenes), s.TotalDuration())
			if opts.ScriptOnly {
				result = scriptPath
				stage = StageDone
				break
			}
			stage = StageNarration

		case StageNarration:
			synthesized, err := r.synthesizeAll(ctx, s, opts)
			if err != nil {
				return "", err
			}
			narrations = synthesized
			if opts.SkipClips {
				log.Info("⏭️  Clip generation skipped")
				result = scriptPath
				stage = StageDone
				break
			}
			stage = StageClips

		case StageClips:
			generated, err := r.generateClips(ctx, s, opts.OutputDir)
			if err != nil {
				return "", err
			}
			clipPaths = generated
			stage = StageCompose

		case StageCompose:
			if len(clipPaths) == 0 {
				log.Warn("⚠️  No clips survived generation — delivering script only")
				result = scriptPath
				stage = StageDone
				break
			}
			entries := buildEntries(s, clipPaths, narrations)
			out, err := r.composer.Compose(ctx, entries, filepath.Join(opts.OutputDir, FinalFileName))
			if err != nil {
				return "", fmt.Errorf("compose: %w", err)
			}
			log.Infof("✅ Final video: %s", out)
			result = out
			stage = StageDone
		}
	}
	return result, nil
}

// synthesizeAll narrates every scene in order. Any failure aborts the run:
// a short with silent scenes is not worth publishing.
func (r *Runner) synthesizeAll(ctx context.Context, s *types.Script, opts Options) (map[int]tts.Result, error) {
	narrations := make(map[int]tts.Result, len(s.Scenes))
	for i, sc := range s.Scenes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Infof("🎙️  Narrating scene %d (%d/%d)", sc.SceneNumber, i+1, len(s.Scenes))
		outPath := filepath.Join(opts.OutputDir, AudioFileName(sc.SceneNumber))
		res, err := r.narrator.Synthesize(ctx, sc.NarrationText, opts.ReferenceVoice, outPath)
		if err != nil {
			return nil, &SynthesisError{SceneNumber: sc.SceneNumber, Err: err}
		}
		narrations[sc.SceneNumber] = res
	}
	return narrations, nil
}

// generateClips renders one clip per scene. The model is loaded once for
// the whole batch and unloaded exactly once, even when the context is
// cancelled mid-loop. A scene gets one retry; after that it is dropped and
// the run keeps going.
func (r *Runner) generateClips(ctx context.Context, s *types.Script, dir string) (map[int]string, error) {
	if err := r.clips.Load(ctx); err != nil {
		return nil, fmt.Errorf("load clip model: %w", err)
	}
	defer func() {
		if err := r.clips.Unload(context.WithoutCancel(ctx)); err != nil {
			log.Warnf("⚠️  Model unload failed: %v", err)
		}
	}()

	clipPaths := make(map[int]string, len(s.Scenes))
	for i, sc := range s.Scenes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Infof("🎥 Generating clip for scene %d (%d/%d)", sc.SceneNumber, i+1, len(s.Scenes))
		outPath := filepath.Join(dir, ClipFileName(sc.SceneNumber))
		prompt := fullPrompt(s.StyleNotes, sc.VisualPrompt)
		err := r.clips.Generate(ctx, prompt, s.NegativePrompt, outPath)
		if err != nil {
			log.Warnf("Scene %d clip failed: %v — retrying", sc.SceneNumber, err)
			err = r.clips.Generate(ctx, prompt, s.NegativePrompt, outPath)
		}
		if err != nil {
			genErr := &GenerationError{SceneNumber: sc.SceneNumber, Err: err}
			log.Warnf("⚠️  %v — scene dropped", genErr)
			continue
		}
		clipPaths[sc.SceneNumber] = outPath
	}
	return clipPaths, nil
}

// fullPrompt prefixes the scene prompt with the script's style notes so
// every clip shares one look.
func fullPrompt(styleNotes, visualPrompt string) string {
	if styleNotes == "" {
		return visualPrompt
	}
	return styleNotes + ". " + visualPrompt
}

// buildEntries pairs surviving clips with their narration by scene number.
// Scenes whose clip was dropped contribute nothing; the numbering in the
// script, not the position after drops, decides which audio a clip gets.
func buildEntries(s *types.Script, clipPaths map[int]string, narrations map[int]tts.Result) []compose.ClipEntry {
	entries := make([]compose.ClipEntry, 0, len(clipPaths))
	for _, sc := range s.Scenes {
		clip, ok := clipPaths[sc.SceneNumber]
		if !ok {
			continue
		}
		entry := compose.ClipEntry{
			SceneNumber:    sc.SceneNumber,
			VideoPath:      clip,
			TargetDuration: sc.DurationSeconds,
		}
		if n, ok := narrations[sc.SceneNumber]; ok {
			entry.AudioPath = n.AudioPath
			entry.TargetDuration = n.DurationSeconds
		}
		entries = append(entries, entry)
	}
	return entries
}
