package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shortform-pipeline/compose"
	"shortform-pipeline/tts"
	"shortform-pipeline/types"
)

func testScript() *types.Script {
	return &types.Script{
		Title: "Why Bridges Hum",
		Topic: "resonance in bridges",
		Scenes: []types.Scene{
			{SceneNumber: 1, VisualPrompt: "a long suspension bridge in morning fog", NarrationText: "Every bridge has a voice.", DurationSeconds: 4},
			{SceneNumber: 2, VisualPrompt: "cables vibrating in slow motion close up", NarrationText: "Wind makes the cables sing.", DurationSeconds: 4},
			{SceneNumber: 3, VisualPrompt: "crowds of people walking across the deck", NarrationText: "Footsteps can join the chorus.", DurationSeconds: 4},
			{SceneNumber: 4, VisualPrompt: "engineers installing dampers on a bridge", NarrationText: "Engineers learned to quiet it down.", DurationSeconds: 4},
			{SceneNumber: 5, VisualPrompt: "the bridge standing silent against a sunset", NarrationText: "Now the hum is just a whisper.", DurationSeconds: 4},
		},
		StyleNotes:     "cinematic documentary",
		NegativePrompt: types.DefaultNegativePrompt,
	}
}

type fakeScripts struct {
	script *types.Script
	err    error
}

func (f *fakeScripts) Generate(ctx context.Context, topic string) (*types.Script, error) {
	return f.script, f.err
}

type fakeNarrator struct {
	calls     int
	failAfter int // fail on call number failAfter (1-based); 0 never fails
	voices    []string
}

func (f *fakeNarrator) Synthesize(ctx context.Context, text, referenceVoice, outPath string) (tts.Result, error) {
	f.calls++
	f.voices = append(f.voices, referenceVoice)
	if f.failAfter > 0 && f.calls == f.failAfter {
		return tts.Result{}, errors.New("synthesis exploded")
	}
	return tts.Result{AudioPath: outPath, DurationSeconds: 5.0}, nil
}

// fakeClips fails scene numbers (parsed from the output filename) a
// configured number of times before succeeding.
type fakeClips struct {
	loads    int
	unloads  int
	failLeft map[int]int
	attempts map[int]int
	loadErr  error
	cancelOn int // cancel the run context when generating this scene
	cancel   context.CancelFunc
}

func (f *fakeClips) Load(ctx context.Context) error   { f.loads++; return f.loadErr }
func (f *fakeClips) Unload(ctx context.Context) error { f.unloads++; return nil }

func (f *fakeClips) Generate(ctx context.Context, prompt, negativePrompt, outPath string) error {
	m := clipRe.FindStringSubmatch(filepath.Base(outPath))
	if m == nil {
		return fmt.Errorf("unexpected clip path %s", outPath)
	}
	scene, _ := strconv.Atoi(m[1])
	if f.attempts == nil {
		f.attempts = make(map[int]int)
	}
	f.attempts[scene]++
	if f.cancelOn != 0 && scene == f.cancelOn {
		f.cancel()
	}
	if f.failLeft[scene] > 0 {
		f.failLeft[scene]--
		return fmt.Errorf("generation failed for scene %d", scene)
	}
	return nil
}

type fakeComposer struct {
	calls   int
	entries []compose.ClipEntry
	err     error
}

func (f *fakeComposer) Compose(ctx context.Context, entries []compose.ClipEntry, outPath string) (string, error) {
	f.calls++
	f.entries = entries
	if f.err != nil {
		return "", f.err
	}
	return outPath, nil
}

func newTestRunner(script *types.Script, clips *fakeClips, composer *fakeComposer) (*Runner, *fakeNarrator) {
	narrator := &fakeNarrator{}
	return NewRunner(&fakeScripts{script: script}, narrator, clips, composer), narrator
}

func TestRunHappyPath(t *testing.T) {
	dir := t.TempDir()
	clips := &fakeClips{}
	composer := &fakeComposer{}
	runner, narrator := newTestRunner(testScript(), clips, composer)

	out, err := runner.Run(context.Background(), "resonance in bridges", Options{OutputDir: dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FinalFileName), out)

	assert.Equal(t, 5, narrator.calls)
	assert.Equal(t, 1, clips.loads)
	assert.Equal(t, 1, clips.unloads)
	require.Len(t, composer.entries, 5)

	// Script persisted before any synthesis ran.
	_, err = types.LoadScript(filepath.Join(dir, ScriptFileName))
	require.NoError(t, err)

	for i, entry := range composer.entries {
		assert.Equal(t, i+1, entry.SceneNumber)
		assert.Equal(t, filepath.Join(dir, ClipFileName(i+1)), entry.VideoPath)
		assert.Equal(t, filepath.Join(dir, AudioFileName(i+1)), entry.AudioPath)
		assert.InDelta(t, 5.0, entry.TargetDuration, 1e-9)
	}
}

func TestRunDropsSceneAfterRetry(t *testing.T) {
	dir := t.TempDir()
	clips := &fakeClips{failLeft: map[int]int{3: 2}} // scene 3 fails twice
	composer := &fakeComposer{}
	runner, _ := newTestRunner(testScript(), clips, composer)

	out, err := runner.Run(context.Background(), "t", Options{OutputDir: dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FinalFileName), out)

	// One retry for the failing scene, single attempt for the rest.
	assert.Equal(t, 2, clips.attempts[3])
	assert.Equal(t, 1, clips.attempts[1])
	assert.Equal(t, 1, clips.attempts[4])

	// Scene 3 dropped; the survivors keep their own scene's narration.
	require.Len(t, composer.entries, 4)
	var sceneNumbers []int
	for _, e := range composer.entries {
		sceneNumbers = append(sceneNumbers, e.SceneNumber)
	}
	assert.Equal(t, []int{1, 2, 4, 5}, sceneNumbers)
	third := composer.entries[2]
	assert.Equal(t, filepath.Join(dir, ClipFileName(4)), third.VideoPath)
	assert.Equal(t, filepath.Join(dir, AudioFileName(4)), third.AudioPath)
}

func TestRunRetrySucceeds(t *testing.T) {
	dir := t.TempDir()
	clips := &fakeClips{failLeft: map[int]int{2: 1}} // scene 2 fails once
	composer := &fakeComposer{}
	runner, _ := newTestRunner(testScript(), clips, composer)

	_, err := runner.Run(context.Background(), "t", Options{OutputDir: dir})
	require.NoError(t, err)

	assert.Equal(t, 2, clips.attempts[2])
	require.Len(t, composer.entries, 5)
	assert.Equal(t, 1, clips.unloads)
}

func TestRunNarrationFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	clips := &fakeClips{}
	composer := &fakeComposer{}
	runner, narrator := newTestRunner(testScript(), clips, composer)
	narrator.failAfter = 2

	_, err := runner.Run(context.Background(), "t", Options{OutputDir: dir})
	require.Error(t, err)

	var serr *SynthesisError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, 2, serr.SceneNumber)

	// Nothing downstream ran.
	assert.Equal(t, 0, clips.loads)
	assert.Equal(t, 0, composer.calls)
}

func TestRunZeroClipsDegradesToScript(t *testing.T) {
	dir := t.TempDir()
	clips := &fakeClips{failLeft: map[int]int{1: 2, 2: 2, 3: 2, 4: 2, 5: 2}}
	composer := &fakeComposer{}
	runner, _ := newTestRunner(testScript(), clips, composer)

	out, err := runner.Run(context.Background(), "t", Options{OutputDir: dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ScriptFileName), out)
	assert.Equal(t, 0, composer.calls)
	assert.Equal(t, 1, clips.unloads)
}

func TestRunSkipClips(t *testing.T) {
	dir := t.TempDir()
	clips := &fakeClips{}
	composer := &fakeComposer{}
	runner, narrator := newTestRunner(testScript(), clips, composer)

	out, err := runner.Run(context.Background(), "t", Options{OutputDir: dir, SkipClips: true})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ScriptFileName), out)

	// Narration still runs; the video model is never touched.
	assert.Equal(t, 5, narrator.calls)
	assert.Equal(t, 0, clips.loads)
	assert.Equal(t, 0, composer.calls)
}

func TestRunScriptOnly(t *testing.T) {
	dir := t.TempDir()
	clips := &fakeClips{}
	composer := &fakeComposer{}
	runner, narrator := newTestRunner(testScript(), clips, composer)

	out, err := runner.Run(context.Background(), "t", Options{OutputDir: dir, ScriptOnly: true})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ScriptFileName), out)
	assert.Equal(t, 0, narrator.calls)
	assert.Equal(t, 0, clips.loads)
}

func TestRunForwardsReferenceVoice(t *testing.T) {
	dir := t.TempDir()
	runner, narrator := newTestRunner(testScript(), &fakeClips{}, &fakeComposer{})

	_, err := runner.Run(context.Background(), "t", Options{
		OutputDir:      dir,
		ReferenceVoice: "voice.wav",
		SkipClips:      true,
	})
	require.NoError(t, err)
	for _, v := range narrator.voices {
		assert.Equal(t, "voice.wav", v)
	}
}

func TestRunUnloadsOnceOnCancellationMidLoop(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clips := &fakeClips{cancelOn: 2, cancel: cancel}
	composer := &fakeComposer{}
	runner, _ := newTestRunner(testScript(), clips, composer)

	_, err := runner.Run(ctx, "t", Options{OutputDir: dir})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// The loop stopped after scene 2, but the model still came down
	// exactly once despite the dead context.
	assert.Equal(t, 1, clips.attempts[2])
	assert.Equal(t, 0, clips.attempts[3])
	assert.Equal(t, 1, clips.loads)
	assert.Equal(t, 1, clips.unloads)
	assert.Equal(t, 0, composer.calls)
}

func TestRunLoadFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	clips := &fakeClips{loadErr: errors.New("no gpu")}
	composer := &fakeComposer{}
	runner, _ := newTestRunner(testScript(), clips, composer)

	_, err := runner.Run(context.Background(), "t", Options{OutputDir: dir})
	require.Error(t, err)
	assert.Equal(t, 0, composer.calls)
	// Load never succeeded, so there is nothing to unload.
	assert.Equal(t, 0, clips.unloads)
}

func TestBuildEntriesPairsByOriginalSceneNumber(t *testing.T) {
	s := testScript()
	clipPaths := map[int]string{1: "c1.mp4", 2: "c2.mp4", 4: "c4.mp4", 5: "c5.mp4"} // scene 3 dropped
	narrations := map[int]tts.Result{
		1: {AudioPath: "a1.wav", DurationSeconds: 4.1},
		2: {AudioPath: "a2.wav", DurationSeconds: 4.2},
		3: {AudioPath: "a3.wav", DurationSeconds: 4.3},
		4: {AudioPath: "a4.wav", DurationSeconds: 4.4},
		5: {AudioPath: "a5.wav", DurationSeconds: 4.5},
	}

	entries := buildEntries(s, clipPaths, narrations)
	require.Len(t, entries, 4)

	// The third entry is scene 4 and gets scene 4's audio — not scene 3's,
	// which a positional pairing would hand it.
	assert.Equal(t, 4, entries[2].SceneNumber)
	assert.Equal(t, "a4.wav", entries[2].AudioPath)
	assert.InDelta(t, 4.4, entries[2].TargetDuration, 1e-9)
}

func TestBuildEntriesWithoutNarrationFallsBackToScriptDuration(t *testing.T) {
	s := testScript()
	clipPaths := map[int]string{1: "c1.mp4"}

	entries := buildEntries(s, clipPaths, map[int]tts.Result{})
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].AudioPath)
	assert.InDelta(t, s.Scenes[0].DurationSeconds, entries[0].TargetDuration, 1e-9)
}

func TestFullPrompt(t *testing.T) {
	assert.Equal(t, "moody noir. a cat on a roof", fullPrompt("moody noir", "a cat on a roof"))
	assert.Equal(t, "a cat on a roof", fullPrompt("", "a cat on a roof"))
}
