package app

import (
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrack/ShootOFF-sub002/internal/capture/capturetest"
	"github.com/phrack/ShootOFF-sub002/internal/detector"
	"github.com/phrack/ShootOFF-sub002/internal/shot"
)

// mockDetectors hands out MockDetectors and remembers them in creation order.
type mockDetectors struct {
	mu   sync.Mutex
	made []*detector.MockDetector
}

func (m *mockDetectors) factory(cfg detector.Config, sink detector.Sink) detector.Detector {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := detector.NewMockDetectorWithConfig(cfg, sink)
	m.made = append(m.made, d)
	return d
}

func (m *mockDetectors) last() *detector.MockDetector {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.made[len(m.made)-1]
}

func (m *mockDetectors) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.made)
}

func newMockedApp(t *testing.T, cfg Config) (*App, *clock.Mock, *mockDetectors, *eventRecorder) {
	t.Helper()
	mocks := &mockDetectors{}
	cfg.NewDetector = mocks.factory
	a, mock, rec := newTestApp(t, cfg)
	return a, mock, mocks, rec
}

func TestApp_WarningsRateLimitedPerKind(t *testing.T) {
	a, mock, mocks, rec := newMockedApp(t, Config{Enabled: true})
	w := attach(t, a, "lane1", CameraOptions{})
	d := mocks.last()
	black := capturetest.Black(32, 24)

	step := func(v detector.Verdict) {
		t.Helper()
		d.SetWarning(v)
		mock.Add(frameInterval)
		require.NoError(t, w.process(black.Clone(), nil))
	}

	step(detector.VerdictMotion)
	step(detector.VerdictMotion)
	step(detector.VerdictBrightness)
	step(detector.VerdictBrightness)

	warnings := rec.Warnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, WarningMotion, warnings[0].Warning)
	assert.Equal(t, WarningBrightness, warnings[1].Warning)
	assert.Equal(t, d.ID(), warnings[0].SessionID)

	mock.Add(WarningInterval)
	step(detector.VerdictMotion)
	assert.Len(t, rec.Warnings(), 3)

	// A new detector starts with a fresh rate limit.
	require.NoError(t, a.ApplySettings(a.DetectionSettings()))
	require.Equal(t, 2, mocks.count())
	assert.True(t, d.Closed())
	d = mocks.last()
	step(detector.VerdictMotion)
	assert.Len(t, rec.Warnings(), 4)
	assert.Empty(t, rec.Shots())
}

func TestApp_DetectorShotsReachListeners(t *testing.T) {
	a, _, mocks, rec := newMockedApp(t, Config{Enabled: true})
	w := attach(t, a, "lane1", CameraOptions{ROI: image.Rect(50, 40, 150, 140)})
	d := mocks.last()
	black := capturetest.Black(200, 160)

	require.NoError(t, w.process(black.Clone(), nil))
	assert.Equal(t, image.Rect(50, 40, 150, 140), d.ROI())

	d.SetShots(
		shot.New(shot.ColorRed, 5, 6, time.Time{}, 0, 2),
		shot.New(shot.ColorGreen, 10, 20, time.Time{}, 0, 2),
	)
	require.NoError(t, w.process(black.Clone(), nil))

	shots := rec.Shots()
	require.Len(t, shots, 2)
	assert.Equal(t, d.ID(), shots[0].SessionID)
	assert.Equal(t, shot.ColorRed, shots[0].Shot.Color)
	assert.InDelta(t, 55, shots[0].Shot.X, 1e-9)
	assert.InDelta(t, 46, shots[0].Shot.Y, 1e-9)
	assert.Equal(t, 2, shots[0].Shot.Frame)
	assert.InDelta(t, 60, shots[1].Shot.X, 1e-9)
	assert.InDelta(t, 60, shots[1].Shot.Y, 1e-9)
	assert.Equal(t, []int{1, 2}, d.Frames())
}

func TestApp_IsNewShotUsesDetectorCoordinates(t *testing.T) {
	a, _, mocks, _ := newMockedApp(t, Config{Enabled: true})
	w := attach(t, a, "lane1", CameraOptions{ROI: image.Rect(50, 40, 150, 140)})
	d := mocks.last()
	require.NoError(t, w.process(capturetest.Black(200, 160), nil))

	d.SetNewShot(false)
	isNew, err := a.IsNewShot("lane1", shot.New(shot.ColorRed, 70, 90, time.Time{}, 3, 2))
	require.NoError(t, err)
	assert.False(t, isNew)

	looked := d.LookedAt()
	require.Len(t, looked, 1)
	assert.InDelta(t, 20, looked[0].X, 1e-9)
	assert.InDelta(t, 50, looked[0].Y, 1e-9)
}

func TestApp_DetectorStatusAndErrors(t *testing.T) {
	a, _, mocks, rec := newMockedApp(t, Config{Enabled: true})
	w := attach(t, a, "lane1", CameraOptions{})
	d := mocks.last()

	d.SetState(detector.StateWarmup)
	d.SetAverageHotPixels(12.5)
	cams := a.Cameras()
	require.Len(t, cams, 1)
	assert.Equal(t, "warmup", cams[0].State)
	assert.Equal(t, 12.5, cams[0].AverageHotPixels)
	assert.Equal(t, d.ID(), cams[0].SessionID)

	boom := errors.New("decode failed")
	d.SetError(boom)
	d.SetShots(shot.New(shot.ColorRed, 1, 1, time.Time{}, 0, 2))
	err := w.process(capturetest.Black(32, 24), nil)
	assert.True(t, errors.Is(err, boom))
	assert.Empty(t, rec.Shots())

	a.SetEnabled(false)
	assert.False(t, d.Enabled())

	require.NoError(t, a.RemoveCamera("lane1"))
	assert.True(t, d.Closed())
}
