package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"shortform-pipeline/compose"
	"shortform-pipeline/config"
	"shortform-pipeline/pipeline"
	"shortform-pipeline/research"
	"shortform-pipeline/script"
	"shortform-pipeline/tts"
	"shortform-pipeline/types"
	"shortform-pipeline/upload"
	"shortform-pipeline/video"
)

func main() {
	// .env is local-dev convenience; CI injects real env vars.
	_ = godotenv.Load()

	var (
		topic      = flag.String("topic", "", "video topic (empty: pick one from Reddit)")
		configPath = flag.String("config", "config.yaml", "path to config file")
		engine     = flag.String("engine", "", "script engine override: openai or groq")
		voice      = flag.String("voice", "", "reference voice sample for TTS cloning")
		scriptOnly = flag.Bool("script-only", false, "generate and save the script, then stop")
		skipVideo  = flag.Bool("skip-video", false, "stop after narration (no clips, no compose)")
		composeDir = flag.String("compose", "", "compose-only: reuse artifacts from this run dir")
		doUpload   = flag.Bool("upload", false, "upload the finished video to YouTube")
		schedule   = flag.String("schedule", "", "cron expression: run repeatedly instead of once")
		verbose    = flag.Bool("verbose", false, "debug logging")
	)
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *engine != "" {
		cfg.Script.Engine = *engine
		if err := cfg.Validate(); err != nil {
			log.Fatalf("Invalid config: %v", err)
		}
	}

	run := func() {
		if err := runOnce(context.Background(), cfg, options{
			topic:      *topic,
			voice:      *voice,
			scriptOnly: *scriptOnly,
			skipVideo:  *skipVideo,
			composeDir: *composeDir,
			upload:     *doUpload,
		}); err != nil {
			if *schedule == "" {
				log.Fatalf("❌ Pipeline failed: %v", err)
			}
			log.Errorf("❌ Pipeline failed: %v", err)
		}
	}

	if *schedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(*schedule, run); err != nil {
			log.Fatalf("Invalid -schedule expression: %v", err)
		}
		log.Infof("⏰ Scheduled with %q — waiting for first run", *schedule)
		c.Run()
		return
	}
	run()
}

type options struct {
	topic      string
	voice      string
	scriptOnly bool
	skipVideo  bool
	composeDir string
	upload     bool
}

func runOnce(ctx context.Context, cfg *config.Config, opts options) error {
	if opts.composeDir != "" {
		// Compose-only needs no engines; don't demand their credentials.
		runner := pipeline.NewRunner(nil, nil, nil, compose.New(&cfg.Compose))
		out, err := runner.ComposeFromDir(ctx, opts.composeDir)
		if err != nil {
			return err
		}
		log.Infof("✅ Pipeline complete! Video: %s", out)
		return maybeUpload(ctx, cfg, opts, out)
	}

	runner, err := buildRunner(cfg)
	if err != nil {
		return err
	}

	topic := opts.topic
	if topic == "" {
		scraper, err := research.NewScraper(&cfg.Research)
		if err != nil {
			return err
		}
		if topic, err = scraper.Pick(ctx); err != nil {
			return fmt.Errorf("topic research: %w", err)
		}
	}

	runID := uuid.NewString()[:8]
	runDir := filepath.Join(cfg.Paths.Output, runID)
	log.Infof("🎬 Pipeline starting — Run ID: %s", runID)
	log.Infof("📁 Output dir: %s", runDir)

	out, err := runner.Run(ctx, topic, pipeline.Options{
		OutputDir:      runDir,
		ReferenceVoice: referenceVoice(opts.voice, cfg.Paths.ReferenceVoices),
		ScriptOnly:     opts.scriptOnly,
		SkipClips:      opts.skipVideo,
	})
	if err != nil {
		return err
	}
	log.Infof("✅ Pipeline complete! Output: %s", out)
	return maybeUpload(ctx, cfg, opts, out)
}

func buildRunner(cfg *config.Config) (*pipeline.Runner, error) {
	var scripts script.Generator
	var err error
	switch cfg.Script.Engine {
	case "groq":
		scripts, err = script.NewGroqGenerator(&cfg.Script)
	default:
		scripts, err = script.NewOpenAIGenerator(&cfg.Script)
	}
	if err != nil {
		return nil, fmt.Errorf("script engine: %w", err)
	}

	narrator, err := tts.NewCommandEngine(&cfg.TTS)
	if err != nil {
		return nil, fmt.Errorf("tts engine: %w", err)
	}

	clips := video.NewWanGenerator(&cfg.Video)
	composer := compose.New(&cfg.Compose)
	return pipeline.NewRunner(scripts, narrator, clips, composer), nil
}

// referenceVoice resolves the voice sample: an explicit flag wins, else the
// first audio file found in the reference voices directory, else none.
func referenceVoice(flagVoice, voicesDir string) string {
	if flagVoice != "" {
		return flagVoice
	}
	entries, err := os.ReadDir(voicesDir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".wav", ".mp3", ".flac":
			path := filepath.Join(voicesDir, e.Name())
			log.Infof("🎙️  Using reference voice: %s", path)
			return path
		}
	}
	return ""
}

func maybeUpload(ctx context.Context, cfg *config.Config, opts options, out string) error {
	if !opts.upload {
		return nil
	}
	if filepath.Ext(out) != ".mp4" {
		log.Warn("⚠️  No video produced — skipping upload")
		return nil
	}
	s, err := loadRunScript(out)
	if err != nil {
		return fmt.Errorf("upload metadata: %w", err)
	}
	_, _, err = upload.New(&cfg.Upload).Run(ctx, out, s)
	return err
}

// loadRunScript reads the script saved next to the final video.
func loadRunScript(videoPath string) (*types.Script, error) {
	return types.LoadScript(filepath.Join(filepath.Dir(videoPath), pipeline.ScriptFileName))
}
