package compose

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strings"

	"shortform-pipeline/config"
)

// audioSampleRate is fixed so every prepared clip carries an identical
// audio stream layout into concatenation.
const audioSampleRate = 44100

// exportArgs returns the fixed output encoding arguments. Frame rate,
// codecs, and bitrates are configuration constants, never derived from the
// inputs.
func exportArgs(cfg *config.ComposeConfig) []string {
	return []string{
		"-r", fmt.Sprintf("%d", cfg.FPS),
		"-c:v", "libx264",
		"-preset", cfg.Preset,
		"-b:v", cfg.VideoBitrate,
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", cfg.AudioBitrate,
		"-ar", fmt.Sprintf("%d", audioSampleRate),
	}
}

// buildPrepareArgs constructs the ffmpeg command that normalizes one entry:
// resample to the canonical resolution (forced aspect, no letterboxing),
// apply the duration adjustment, and attach the narration audio — or a
// silent track when there is none, so every prepared clip has the same
// stream layout.
func buildPrepareArgs(cfg *config.ComposeConfig, entry ClipEntry, rec reconciliation, outPath string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", entry.VideoPath}

	if entry.AudioPath != "" {
		args = append(args, "-i", entry.AudioPath)
	} else {
		args = append(args, "-f", "lavfi",
			"-i", fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=%d", audioSampleRate))
	}

	vf := fmt.Sprintf("scale=%d:%d,setsar=1", cfg.Width, cfg.Height)
	if rec.Mode == adjustStretch {
		vf += fmt.Sprintf(",setpts=PTS*%.6f", rec.StretchFactor)
	}
	args = append(args, "-vf", vf)

	args = append(args, "-map", "0:v:0", "-map", "1:a:0")
	args = append(args, "-t", fmt.Sprintf("%.3f", rec.PreparedDuration))
	args = append(args, exportArgs(cfg)...)
	return append(args, outPath)
}

// buildConcatArgs constructs the hard-cut join: the concat demuxer over the
// prepared clips, re-encoded once with the fixed export settings.
func buildConcatArgs(cfg *config.ComposeConfig, listFile, outPath string) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
	}
	args = append(args, exportArgs(cfg)...)
	args = append(args, "-movflags", "+faststart")
	return append(args, outPath)
}

// buildOverlapArgs constructs the crossfade join. Each clip is shifted so it
// starts crossfade seconds before the previous one ends, then composited
// over a black base in list order — during the overlap the later clip's
// frames simply cover the earlier one's. Audio tracks are delayed by the
// same offsets and mixed.
func buildOverlapArgs(cfg *config.ComposeConfig, files []string, durations []float64, outPath string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-y"}
	for _, f := range files {
		args = append(args, "-i", f)
	}

	n := len(files)
	offsets := make([]float64, n)
	for i := 1; i < n; i++ {
		offsets[i] = offsets[i-1] + durations[i-1] - cfg.CrossfadeSec
	}
	total := offsets[n-1] + durations[n-1]

	var fc strings.Builder
	fmt.Fprintf(&fc, "color=black:size=%dx%d:rate=%d:duration=%.3f[base]",
		cfg.Width, cfg.Height, cfg.FPS, total)

	for i := 0; i < n; i++ {
		fmt.Fprintf(&fc, ";[%d:v]setpts=PTS-STARTPTS+%.3f/TB[c%d]", i, offsets[i], i)
	}

	prev := "[base]"
	for i := 0; i < n; i++ {
		out := fmt.Sprintf("[o%d]", i)
		fmt.Fprintf(&fc, ";%s[c%d]overlay=eof_action=pass:enable='between(t,%.3f,%.3f)'%s",
			prev, i, offsets[i], offsets[i]+durations[i], out)
		prev = out
	}

	for i := 0; i < n; i++ {
		// Round, don't truncate: 5.0-0.3 is 4.699999... in floats and
		// must still come out as 4700ms.
		delayMs := int(math.Round(offsets[i] * 1000))
		fmt.Fprintf(&fc, ";[%d:a]adelay=%d|%d[a%d]", i, delayMs, delayMs, i)
	}
	for i := 0; i < n; i++ {
		fmt.Fprintf(&fc, "[a%d]", i)
	}
	fmt.Fprintf(&fc, "amix=inputs=%d:duration=longest:normalize=0[aout]", n)

	args = append(args, "-filter_complex", fc.String())
	args = append(args, "-map", prev, "-map", "[aout]")
	args = append(args, "-t", fmt.Sprintf("%.3f", total))
	args = append(args, exportArgs(cfg)...)
	args = append(args, "-movflags", "+faststart")
	return append(args, outPath)
}

// runFFmpeg executes one ffmpeg invocation, surfacing the tail of stderr
// when it fails.
func runFFmpeg(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w\n%s", err, stderrTail(stderr.String()))
	}
	return nil
}

func stderrTail(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > 20 {
		lines = lines[len(lines)-20:]
	}
	return strings.Join(lines, "\n")
}
