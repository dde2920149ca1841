package detector

// Warm-up and guard constants.
const (
	// WarmupFrames is the number of frames used only to seed the background.
	WarmupFrames = 5
	// MaxCountedHotPixels caps a frame's contribution to the running average.
	MaxCountedHotPixels = 500
	// BrightnessAverage is the running average that signals a lighting change.
	BrightnessAverage = 500
	// BrightnessMinFrames delays brightness warnings after start-up.
	BrightnessMinFrames = 90
	// MotionAverage is the running average that signals ambient motion.
	MotionAverage = 100
	// MotionFrameCount is the per-frame count that signals ambient motion.
	MotionFrameCount = 250
	// MotionMinFrames delays motion warnings after start-up.
	MotionMinFrames = 30
)

// Verdict is the guard's decision for one frame.
type Verdict int

const (
	// VerdictSkipped means the guard did not run (warm-up or detection disabled).
	VerdictSkipped Verdict = iota
	// VerdictTooFew means too few hot pixels to form a shot.
	VerdictTooFew
	// VerdictCluster means clustering should run.
	VerdictCluster
	// VerdictBrightness means the scene is too bright; a warning is raised.
	VerdictBrightness
	// VerdictMotion means excessive motion; a warning is raised.
	VerdictMotion
	// VerdictMotionSuppressed means excessive motion too early to warn about.
	VerdictMotionSuppressed
)

func (v Verdict) String() string {
	switch v {
	case VerdictTooFew:
		return "too_few"
	case VerdictCluster:
		return "cluster"
	case VerdictBrightness:
		return "brightness"
	case VerdictMotion:
		return "motion"
	case VerdictMotionSuppressed:
		return "motion_suppressed"
	default:
		return "skipped"
	}
}

// MotionGuard smooths the hot pixel count over time and decides whether a
// frame is calm enough to look for shots in.
type MotionGuard struct {
	minShotDimension int
	average          float64
	seeded           bool
}

// NewMotionGuard creates a MotionGuard. Values <= 0 select the default
// minimum shot dimension.
func NewMotionGuard(minShotDimension int) *MotionGuard {
	if minShotDimension <= 0 {
		minShotDimension = DefaultMinShotDimension
	}
	return &MotionGuard{minShotDimension: minShotDimension}
}

// Average returns the smoothed hot pixel count.
func (g *MotionGuard) Average() float64 {
	return g.average
}

// Evaluate folds count into the running average and returns the verdict for
// a frame. frames is the cumulative processed-frame count and fps the
// measured frame rate, which must be positive.
func (g *MotionGuard) Evaluate(frames, count int, fps float64) Verdict {
	if !g.seeded {
		g.average = float64(count)
		g.seeded = true
	} else {
		g.average = ((fps-1)*g.average + float64(min(count, MaxCountedHotPixels))) / fps
	}

	if g.average >= BrightnessAverage && frames > BrightnessMinFrames {
		return VerdictBrightness
	}

	if g.average > MotionAverage || count > MotionFrameCount {
		if frames > MotionMinFrames {
			return VerdictMotion
		}
		return VerdictMotionSuppressed
	}

	if count >= g.minShotDimension {
		return VerdictCluster
	}
	return VerdictTooFew
}

// Reset forgets the running average.
func (g *MotionGuard) Reset() {
	g.average = 0
	g.seeded = false
}
