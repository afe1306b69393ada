package compose

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"shortform-pipeline/config"
	"shortform-pipeline/probe"
)

// Compositor merges an ordered list of clip entries into one video at the
// canonical resolution. All intermediate files live in a private work
// directory that is removed on every exit path.
type Compositor struct {
	cfg *config.ComposeConfig
}

// New returns a Compositor using the given compose settings.
func New(cfg *config.ComposeConfig) *Compositor {
	return &Compositor{cfg: cfg}
}

// Compose prepares each entry independently, joins them in list order, and
// writes the final video to outPath.
func (c *Compositor) Compose(ctx context.Context, entries []ClipEntry, outPath string) (string, error) {
	if len(entries) == 0 {
		return "", fmt.Errorf("no entries to compose")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	workDir, err := os.MkdirTemp(filepath.Dir(outPath), "compose-")
	if err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	prepared := make([]string, 0, len(entries))
	durations := make([]float64, 0, len(entries))

	for _, entry := range entries {
		prepPath := filepath.Join(workDir, fmt.Sprintf("prep_scene_%02d.mp4", entry.SceneNumber))
		dur, err := c.prepare(ctx, entry, prepPath)
		if err != nil {
			return "", fmt.Errorf("prepare scene %d: %w", entry.SceneNumber, err)
		}
		prepared = append(prepared, prepPath)
		durations = append(durations, dur)
	}

	if c.cfg.CrossfadeSec > 0 && len(prepared) > 1 {
		log.Infof("[compose] Joining %d clips with %.1fs crossfade", len(prepared), c.cfg.CrossfadeSec)
		args := buildOverlapArgs(c.cfg, prepared, durations, outPath)
		if err := runFFmpeg(ctx, args); err != nil {
			return "", fmt.Errorf("crossfade join: %w", err)
		}
	} else {
		log.Infof("[compose] Joining %d clip(s) with hard cuts", len(prepared))
		if err := c.hardCutJoin(ctx, workDir, prepared, outPath); err != nil {
			return "", err
		}
	}

	log.Infof("[compose] ✅ Final video: %s", outPath)
	return outPath, nil
}

// prepare normalizes one entry into the work dir and returns its prepared
// duration, used for the overlap offset math.
func (c *Compositor) prepare(ctx context.Context, entry ClipEntry, outPath string) (float64, error) {
	vp, err := probe.Probe(ctx, entry.VideoPath)
	if err != nil {
		return 0, err
	}

	var rec reconciliation
	if entry.AudioPath != "" {
		audioDur, err := probe.Duration(ctx, entry.AudioPath)
		if err != nil {
			return 0, err
		}
		rec = reconcile(vp.Duration, audioDur)

		switch rec.Mode {
		case adjustStretch:
			log.Infof("[compose] Scene %d: stretching video %.1fs -> %.1fs to span narration",
				entry.SceneNumber, vp.Duration, rec.PreparedDuration)
		case adjustTrim:
			log.Infof("[compose] Scene %d: trimming video %.1fs -> %.1fs (narration %.1fs)",
				entry.SceneNumber, vp.Duration, rec.TrimTo, audioDur)
		}
	} else {
		rec = reconcileToTarget(vp.Duration, entry.TargetDuration)
		if rec.Mode == adjustTrim {
			log.Infof("[compose] Scene %d: trimming video %.1fs -> %.1fs (no narration, target duration)",
				entry.SceneNumber, vp.Duration, rec.TrimTo)
		}
	}

	if vp.Width != c.cfg.Width || vp.Height != c.cfg.Height {
		log.Debugf("[compose] Scene %d: resampling %dx%d -> %dx%d",
			entry.SceneNumber, vp.Width, vp.Height, c.cfg.Width, c.cfg.Height)
	}

	args := buildPrepareArgs(c.cfg, entry, rec, outPath)
	if err := runFFmpeg(ctx, args); err != nil {
		return 0, err
	}
	return rec.PreparedDuration, nil
}

// hardCutJoin concatenates the prepared clips with the concat demuxer.
func (c *Compositor) hardCutJoin(ctx context.Context, workDir string, files []string, outPath string) error {
	listFile := filepath.Join(workDir, "concat_list.txt")
	var lines []string
	for _, f := range files {
		lines = append(lines, fmt.Sprintf("file '%s'", f))
	}
	if err := os.WriteFile(listFile, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}

	if err := runFFmpeg(ctx, buildConcatArgs(c.cfg, listFile, outPath)); err != nil {
		return fmt.Errorf("concat join: %w", err)
	}
	return nil
}
