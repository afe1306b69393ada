package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconcile(t *testing.T) {
	tests := []struct {
		name     string
		videoDur float64
		audioDur float64
		wantMode adjustMode
		wantDur  float64
	}{
		{"video much shorter, stretch to narration", 4.0, 6.0, adjustStretch, 6.0},
		{"video much longer, trim past narration", 8.0, 5.0, adjustTrim, 5.3},
		{"slightly short, within tolerance", 5.0, 5.2, adjustNone, 5.0},
		{"slightly long, within tolerance", 5.2, 5.0, adjustNone, 5.2},
		{"exactly at tolerance boundary", 5.0, 5.5, adjustNone, 5.0},
		{"equal durations", 5.0, 5.0, adjustNone, 5.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := reconcile(tt.videoDur, tt.audioDur)
			assert.Equal(t, tt.wantMode, rec.Mode)
			assert.InDelta(t, tt.wantDur, rec.PreparedDuration, 1e-9)
		})
	}
}

func TestReconcileStretchFactor(t *testing.T) {
	rec := reconcile(4.0, 6.0)
	assert.Equal(t, adjustStretch, rec.Mode)
	assert.InDelta(t, 1.5, rec.StretchFactor, 1e-9)
}

func TestReconcileTrimPoint(t *testing.T) {
	rec := reconcile(8.0, 5.0)
	assert.Equal(t, adjustTrim, rec.Mode)
	assert.InDelta(t, 5.3, rec.TrimTo, 1e-9)
}

func TestReconcileToTarget(t *testing.T) {
	// Longer than target: trim exactly to it, no overshoot without audio.
	rec := reconcileToTarget(7.0, 5.0)
	assert.Equal(t, adjustTrim, rec.Mode)
	assert.InDelta(t, 5.0, rec.TrimTo, 1e-9)

	// Shorter than target: never stretched or padded.
	rec = reconcileToTarget(4.0, 5.0)
	assert.Equal(t, adjustNone, rec.Mode)
	assert.InDelta(t, 4.0, rec.PreparedDuration, 1e-9)

	// No target known: leave alone.
	rec = reconcileToTarget(4.0, 0)
	assert.Equal(t, adjustNone, rec.Mode)
	assert.InDelta(t, 4.0, rec.PreparedDuration, 1e-9)
}
