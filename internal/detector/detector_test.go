package detector

import (
	"image"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrack/ShootOFF-sub002/internal/capture"
	"github.com/phrack/ShootOFF-sub002/internal/shot"
)

// recordingSink collects everything a session emits.
type recordingSink struct {
	shots      []shot.Shot
	brightness int
	motion     int
}

func (r *recordingSink) OnShot(s shot.Shot)   { r.shots = append(r.shots, s) }
func (r *recordingSink) OnBrightnessWarning() { r.brightness++ }
func (r *recordingSink) OnMotionWarning()     { r.motion++ }

type recordingView struct {
	snapshots []Snapshot
}

func (r *recordingView) OnSnapshot(s Snapshot) { r.snapshots = append(r.snapshots, s) }

// feed runs n copies of frame through the session with consecutive indices
// starting at first, 33ms apart.
func feed(t *testing.T, s *Session, frame *capture.Frame, first, n int, start time.Time) []shot.Shot {
	t.Helper()
	var all []shot.Shot
	for i := 0; i < n; i++ {
		f := frame.Clone()
		f.Index = first + i
		f.Timestamp = start.Add(time.Duration(first+i) * 33 * time.Millisecond)
		f.FPS = 30
		shots, err := s.Detect(f)
		require.NoError(t, err)
		all = append(all, shots...)
	}
	return all
}

func TestSession_RedSquareOnBlack(t *testing.T) {
	sink := &recordingSink{}
	view := &recordingView{}
	s := NewSession(DefaultConfig(), sink)
	s.SetDebugView(view)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	black := capture.NewFrame(640, 480)

	shots := feed(t, s, black, 1, 12, start)
	assert.Empty(t, shots)
	assert.Equal(t, StateActive, s.State())

	lit := black.Clone()
	lit.FillRect(image.Rect(100, 100, 110, 110), 255, 0, 0)
	shots = feed(t, s, lit, 13, 1, start)

	want := []shot.Shot{{
		Color:        shot.ColorRed,
		X:            104.5,
		Y:            104.5,
		Timestamp:    start.Add(13 * 33 * time.Millisecond),
		Frame:        13,
		MarkerRadius: DefaultMarkerRadius,
	}}
	if diff := cmp.Diff(want, shots, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("shots mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, want, sink.shots)

	last := view.snapshots[len(view.snapshots)-1]
	assert.Equal(t, "cluster", last.Verdict)
	assert.Equal(t, 100, last.HotPixels)
	require.Len(t, last.Clusters, 1)
	assert.Equal(t, OutcomeAccepted, last.Clusters[0].Outcome)
	assert.InDelta(t, 6.84, last.Clusters[0].MeanConnectedness, 1e-9)
	assert.InDelta(t, -5.5, last.Clusters[0].Score, 0.05)
}

func TestSession_WarmupNeverDetects(t *testing.T) {
	sink := &recordingSink{}
	s := NewSession(DefaultConfig(), sink)
	start := time.Now()

	black := capture.NewFrame(64, 48)
	lit := black.Clone()
	lit.FillRect(image.Rect(10, 10, 20, 20), 255, 0, 0)

	feed(t, s, black, 1, 2, start)
	shots := feed(t, s, lit, 3, 1, start)
	assert.Empty(t, shots)
	assert.Equal(t, StateWarmup, s.State())

	feed(t, s, black, 4, 2, start)
	assert.Equal(t, StateWarmup, s.State())
	feed(t, s, black, 6, 1, start)
	assert.Equal(t, StateActive, s.State())
	assert.Empty(t, sink.shots)
}

func TestSession_FallsBackToOwnFrameCount(t *testing.T) {
	s := NewSession(DefaultConfig(), nil)
	f := capture.NewFrame(8, 8)
	f.FPS = 30
	for i := 0; i < 6; i++ {
		_, err := s.Detect(f)
		require.NoError(t, err)
	}
	assert.Equal(t, 6, s.Frames())
	assert.Equal(t, StateActive, s.State())
}

func TestSession_ROIRelativeCoordinates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ROI = image.Rect(50, 50, 250, 250)
	s := NewSession(cfg, nil)
	start := time.Now()

	black := capture.NewFrame(320, 240)
	feed(t, s, black, 1, 8, start)

	// Outside the ROI: ignored.
	outside := black.Clone()
	outside.FillRect(image.Rect(10, 10, 20, 20), 255, 0, 0)
	assert.Empty(t, feed(t, s, outside, 9, 1, start))

	feed(t, s, black, 10, 3, start)

	inside := black.Clone()
	inside.FillRect(image.Rect(100, 100, 110, 110), 255, 0, 0)
	shots := feed(t, s, inside, 13, 1, start)
	require.Len(t, shots, 1)
	assert.InDelta(t, 54.5, shots[0].X, 1e-9)
	assert.InDelta(t, 54.5, shots[0].Y, 1e-9)
	assert.Equal(t, image.Rect(50, 50, 250, 240), s.ROI(), "ROI is clipped to the frame")
}

func TestSession_ROIOutsideFrame(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ROI = image.Rect(400, 300, 500, 400)
	s := NewSession(cfg, nil)

	_, err := s.Detect(capture.NewFrame(320, 240))
	assert.ErrorIs(t, err, ErrROIOutsideFrame)
	assert.True(t, s.ROI().Empty())
	assert.Equal(t, 0, s.Frames())

	// A partly overlapping ROI is clipped instead.
	cfg.ROI = image.Rect(300, 200, 500, 400)
	s = NewSession(cfg, nil)
	_, err = s.Detect(capture.NewFrame(320, 240))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(300, 200, 320, 240), s.ROI())
}

func TestSession_IgnoredColor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IgnoreLaserColor = shot.ColorRed
	sink := &recordingSink{}
	view := &recordingView{}
	s := NewSession(cfg, sink)
	s.SetDebugView(view)
	start := time.Now()

	black := capture.NewFrame(160, 120)
	feed(t, s, black, 1, 8, start)

	lit := black.Clone()
	lit.FillRect(image.Rect(40, 40, 50, 50), 255, 0, 0)
	assert.Empty(t, feed(t, s, lit, 9, 1, start))
	assert.Empty(t, sink.shots)

	last := view.snapshots[len(view.snapshots)-1]
	require.Len(t, last.Clusters, 1)
	assert.Equal(t, OutcomeIgnored, last.Clusters[0].Outcome)
	assert.Equal(t, "red", last.Clusters[0].Color)

	// The ignored shot must not prime the deduplicator.
	assert.True(t, s.IsNewShot(shot.New(shot.ColorGreen, 44.5, 44.5, start.Add(9*33*time.Millisecond), 9, 2)))
}

func TestSession_Disabled(t *testing.T) {
	sink := &recordingSink{}
	view := &recordingView{}
	s := NewSession(DefaultConfig(), sink)
	s.SetDebugView(view)
	s.SetEnabled(false)
	start := time.Now()

	black := capture.NewFrame(64, 48)
	feed(t, s, black, 1, 8, start)

	lit := black.Clone()
	lit.FillRect(image.Rect(10, 10, 20, 20), 255, 0, 0)
	assert.Empty(t, feed(t, s, lit, 9, 1, start))
	assert.Equal(t, "skipped", view.snapshots[len(view.snapshots)-1].Verdict)
	assert.Empty(t, sink.shots)
}

func TestSession_FrameSizeChange(t *testing.T) {
	s := NewSession(DefaultConfig(), nil)
	_, err := s.Detect(capture.NewFrame(32, 32))
	require.NoError(t, err)

	_, err = s.Detect(capture.NewFrame(64, 32))
	assert.ErrorIs(t, err, ErrFrameSize)
}

func TestSession_MotionWarning(t *testing.T) {
	sink := &recordingSink{}
	s := NewSession(DefaultConfig(), sink)
	start := time.Now()

	black := capture.NewFrame(100, 100)
	feed(t, s, black, 1, 40, start)

	// A 20x20 flash is 400 hot pixels, above the per-frame motion limit.
	flash := black.Clone()
	flash.FillRect(image.Rect(0, 0, 20, 20), 255, 255, 255)
	assert.Empty(t, feed(t, s, flash, 41, 1, start))
	assert.Equal(t, 1, sink.motion)
	assert.Equal(t, 0, sink.brightness)
}

func TestSession_IsNewShot(t *testing.T) {
	s := NewSession(DefaultConfig(), nil)
	start := time.Now()
	probe := shot.New(shot.ColorRed, 10, 10, start, 1, 2)
	assert.True(t, s.IsNewShot(probe))

	black := capture.NewFrame(160, 120)
	feed(t, s, black, 1, 8, start)
	lit := black.Clone()
	lit.FillRect(image.Rect(10, 10, 20, 20), 255, 0, 0)
	shots := feed(t, s, lit, 9, 1, start)
	require.Len(t, shots, 1)

	again := shots[0]
	again.Frame++
	again.Timestamp = again.Timestamp.Add(10 * time.Millisecond)
	assert.False(t, s.IsNewShot(again))
	assert.False(t, s.IsNewShot(again), "lookahead must not record")

	require.NoError(t, s.Close())
}

func TestMockDetector(t *testing.T) {
	sink := &recordingSink{}
	m := NewMockDetector(sink)
	m.SetShots(shot.New(shot.ColorGreen, 1, 2, time.Now(), 0, 2))
	m.SetWarning(VerdictMotion)

	f := capture.NewFrame(4, 4)
	f.Index = 7
	shots, err := m.Detect(f)
	require.NoError(t, err)
	require.Len(t, shots, 1)
	assert.Equal(t, 7, shots[0].Frame)
	assert.Equal(t, 1, sink.motion)

	shots, err = m.Detect(f)
	require.NoError(t, err)
	assert.Empty(t, shots)
	assert.Equal(t, []int{7, 7}, m.Frames())

	require.NoError(t, m.Close())
	assert.True(t, m.Closed())
}
