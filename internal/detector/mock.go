package detector

import (
	"image"
	"sync"

	"github.com/google/uuid"

	"github.com/phrack/ShootOFF-sub002/internal/capture"
	"github.com/phrack/ShootOFF-sub002/internal/shot"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	id     string
	config Config

	mu       sync.Mutex
	sink     Sink
	shots    []shot.Shot
	warn     Verdict
	err      error
	enabled  bool
	state    State
	roi      image.Rectangle
	average  float64
	newShot  bool
	frames   []int
	closed   bool
	lookedAt []shot.Shot
}

// NewMockDetector creates a new MockDetector instance. sink may be nil.
func NewMockDetector(sink Sink) *MockDetector {
	return NewMockDetectorWithConfig(DefaultConfig(), sink)
}

// NewMockDetectorWithConfig creates a MockDetector whose ROI follows
// config.ROI the way a Session's does. It has the signature of a Factory.
func NewMockDetectorWithConfig(config Config, sink Sink) *MockDetector {
	return &MockDetector{
		id:      uuid.NewString(),
		config:  config,
		sink:    sink,
		enabled: true,
		state:   StateActive,
		newShot: true,
	}
}

// SetShots sets the shots returned, and sent to the sink, by the next Detect.
func (m *MockDetector) SetShots(shots ...shot.Shot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shots = shots
}

// SetWarning makes the next Detect raise a brightness or motion warning.
func (m *MockDetector) SetWarning(v Verdict) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warn = v
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetState sets the state reported by State.
func (m *MockDetector) SetState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

// SetAverageHotPixels sets the value reported by AverageHotPixels.
func (m *MockDetector) SetAverageHotPixels(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.average = v
}

// SetNewShot sets the answer of IsNewShot.
func (m *MockDetector) SetNewShot(fresh bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newShot = fresh
}

// Detect records the frame index and emits the pre-configured results once.
func (m *MockDetector) Detect(frame *capture.Frame) ([]shot.Shot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.frames = append(m.frames, frame.Index)
	if m.err != nil {
		return nil, m.err
	}
	if m.roi.Empty() {
		m.roi = frame.Bounds()
		if !m.config.ROI.Empty() {
			m.roi = m.config.ROI.Intersect(frame.Bounds())
		}
	}
	if !m.enabled {
		return nil, nil
	}

	switch m.warn {
	case VerdictBrightness:
		if m.sink != nil {
			m.sink.OnBrightnessWarning()
		}
	case VerdictMotion:
		if m.sink != nil {
			m.sink.OnMotionWarning()
		}
	}
	m.warn = VerdictSkipped

	shots := m.shots
	m.shots = nil
	for i := range shots {
		shots[i].Frame = frame.Index
		if m.sink != nil {
			m.sink.OnShot(shots[i])
		}
	}
	return shots, nil
}

// SetEnabled turns result emission on or off.
func (m *MockDetector) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = enabled
}

// Enabled reports the last value passed to SetEnabled.
func (m *MockDetector) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

func (m *MockDetector) ID() string {
	return m.id
}

// Config returns the configuration the detector was created with.
func (m *MockDetector) Config() Config {
	return m.config
}

func (m *MockDetector) ROI() image.Rectangle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roi
}

func (m *MockDetector) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *MockDetector) AverageHotPixels() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.average
}

// IsNewShot records the queried shot and returns the value set by
// SetNewShot.
func (m *MockDetector) IsNewShot(s shot.Shot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookedAt = append(m.lookedAt, s)
	return m.newShot
}

// LookedAt returns the shots passed to IsNewShot.
func (m *MockDetector) LookedAt() []shot.Shot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]shot.Shot(nil), m.lookedAt...)
}

// Frames returns the indices of the frames passed to Detect.
func (m *MockDetector) Frames() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.frames...)
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var (
	_ Detector = (*MockDetector)(nil)
	_ Detector = (*Session)(nil)
)
