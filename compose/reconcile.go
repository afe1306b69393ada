package compose

const (
	// durationTolerance is the video/audio mismatch below which a clip is
	// left untouched.
	durationTolerance = 0.5
	// trimOvershoot keeps a trailing beat of motion after narration ends
	// when a clip is trimmed.
	trimOvershoot = 0.3
)

type adjustMode int

const (
	adjustNone adjustMode = iota
	adjustStretch
	adjustTrim
)

// reconciliation describes how one clip's duration is aligned to its
// narration before concatenation.
type reconciliation struct {
	Mode adjustMode
	// StretchFactor multiplies every frame's PTS; >1 slows the clip down.
	StretchFactor float64
	// TrimTo is the cut point in seconds, set when Mode is adjustTrim.
	TrimTo float64
	// PreparedDuration is the clip's duration after the adjustment.
	PreparedDuration float64
}

// reconcile decides the duration adjustment for a clip with narration
// attached. Mismatches within the tolerance are left alone in either
// direction; beyond it, a short clip is uniformly slowed to span the
// narration exactly, and a long clip is cut at narration end plus the
// overshoot.
func reconcile(videoDur, audioDur float64) reconciliation {
	switch {
	case audioDur-videoDur > durationTolerance:
		return reconciliation{
			Mode:             adjustStretch,
			StretchFactor:    audioDur / videoDur,
			PreparedDuration: audioDur,
		}
	case videoDur-audioDur > durationTolerance:
		cut := audioDur + trimOvershoot
		return reconciliation{
			Mode:             adjustTrim,
			TrimTo:           cut,
			PreparedDuration: cut,
		}
	default:
		return reconciliation{
			Mode:             adjustNone,
			PreparedDuration: videoDur,
		}
	}
}

// reconcileToTarget handles clips without narration: trim when longer than
// the target, never stretch or pad when shorter.
func reconcileToTarget(videoDur, target float64) reconciliation {
	if target > 0 && videoDur > target {
		return reconciliation{
			Mode:             adjustTrim,
			TrimTo:           target,
			PreparedDuration: target,
		}
	}
	return reconciliation{
		Mode:             adjustNone,
		PreparedDuration: videoDur,
	}
}
