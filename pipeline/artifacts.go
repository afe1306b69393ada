package pipeline

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

// Artifact names inside a run directory. Scene numbers are zero padded so
// a plain directory listing sorts in playback order.
const (
	ScriptFileName = "script.json"
	FinalFileName  = "final.mp4"
)

func AudioFileName(sceneNumber int) string {
	return "scene_" + pad2(sceneNumber) + "_audio.wav"
}

func ClipFileName(sceneNumber int) string {
	return "scene_" + pad2(sceneNumber) + "_clip.mp4"
}

func pad2(n int) string {
	s := strconv.Itoa(n)
	if n < 10 {
		return "0" + s
	}
	return s
}

var (
	audioRe = regexp.MustCompile(`^scene_(\d+)_audio\.wav$`)
	clipRe  = regexp.MustCompile(`^scene_(\d+)_clip\.mp4$`)
)

// scanArtifacts indexes the per-scene clips and narration files found in a
// run directory, keyed by scene number. Files that do not match the naming
// scheme are ignored.
func scanArtifacts(dir string) (clips, audios map[int]string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	clips = make(map[int]string)
	audios = make(map[int]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if m := clipRe.FindStringSubmatch(name); m != nil {
			n, _ := strconv.Atoi(m[1])
			clips[n] = filepath.Join(dir, name)
		} else if m := audioRe.FindStringSubmatch(name); m != nil {
			n, _ := strconv.Atoi(m[1])
			audios[n] = filepath.Join(dir, name)
		}
	}
	return clips, audios, nil
}
