package tts

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"shortform-pipeline/config"
	"shortform-pipeline/probe"
)

// CommandEngine shells out to an external TTS program. The command comes
// from config, then $TTS_COMMAND, then falls back to edge-tts. A command
// accepting --ref-audio gets the reference voice for cloning; edge-tts uses
// a fixed voice instead.
type CommandEngine struct {
	cfg     *config.TTSConfig
	command string
}

// NewCommandEngine resolves the TTS command once, failing fast when no
// engine is available at all.
func NewCommandEngine(cfg *config.TTSConfig) (*CommandEngine, error) {
	command := cfg.Command
	if command == "" {
		command = os.Getenv("TTS_COMMAND")
	}
	if command == "" {
		if _, err := exec.LookPath("edge-tts"); err != nil {
			return nil, fmt.Errorf("no TTS engine found: set tts.command in config.yaml, " +
				"set TTS_COMMAND, or install edge-tts (pip install edge-tts)")
		}
		command = "edge-tts"
		log.Info("[tts] Using edge-tts as TTS engine (fallback)")
	}
	return &CommandEngine{cfg: cfg, command: command}, nil
}

// Synthesize runs the TTS command for one scene's narration and measures
// the duration of the produced audio.
func (e *CommandEngine) Synthesize(ctx context.Context, text, referenceVoice, outPath string) (Result, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return Result{}, fmt.Errorf("create audio dir: %w", err)
	}

	if err := e.run(ctx, text, referenceVoice, outPath); err != nil {
		return Result{}, fmt.Errorf("tts command: %w", err)
	}

	dur, err := probe.Duration(ctx, outPath)
	if err != nil {
		return Result{}, fmt.Errorf("measure narration duration: %w", err)
	}

	return Result{AudioPath: outPath, DurationSeconds: dur}, nil
}

func (e *CommandEngine) run(ctx context.Context, text, referenceVoice, outPath string) error {
	// Transient failures (network TTS backends) get a short retry with backoff.
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		cmd := e.buildCmd(ctx, text, referenceVoice, outPath)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		err = cmd.Run()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt < 3 {
			log.Warnf("[tts] Attempt %d failed: %v, retrying...", attempt, err)
			time.Sleep(time.Duration(attempt) * 2 * time.Second)
		}
	}
	return err
}

func (e *CommandEngine) buildCmd(ctx context.Context, text, referenceVoice, outPath string) *exec.Cmd {
	switch {
	case e.command == "edge-tts":
		return exec.CommandContext(ctx,
			"edge-tts",
			"--voice", e.cfg.Voice,
			"--text", text,
			"--write-media", outPath,
		)

	case strings.HasSuffix(e.command, ".py"):
		args := []string{e.command, "--text", text, "--output", outPath}
		if referenceVoice != "" {
			args = append(args, "--ref-audio", referenceVoice)
		}
		return exec.CommandContext(ctx, "python3", args...)

	default:
		args := []string{"--text", text, "--output", outPath}
		if referenceVoice != "" {
			args = append(args, "--ref-audio", referenceVoice)
		}
		return exec.CommandContext(ctx, e.command, args...)
	}
}
