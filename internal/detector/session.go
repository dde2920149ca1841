package detector

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/google/uuid"

	"github.com/phrack/ShootOFF-sub002/internal/capture"
	"github.com/phrack/ShootOFF-sub002/internal/shot"
)

var (
	// ErrFrameSize is returned when a frame's size differs from the session's.
	ErrFrameSize = errors.New("frame size changed")
	// ErrROIOutsideFrame is returned when the configured ROI does not
	// overlap the frame.
	ErrROIOutsideFrame = errors.New("roi outside frame")
)

// State is the lifecycle state of a session.
type State int

const (
	// StateWarmup means the background is still being seeded.
	StateWarmup State = iota
	// StateActive means shots are being detected.
	StateActive
)

func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "warmup"
}

// Session is the shot detector for one camera. It owns the camera's
// background model and deduplication state; create one when a camera is
// attached and drop it when the camera goes away.
type Session struct {
	id     string
	config Config
	sink   Sink
	debug  DebugView

	mu      sync.Mutex
	enabled bool
	state   State
	frames  int

	frameWidth  int
	frameHeight int
	roi         image.Rectangle

	background *BackgroundModel
	clusters   *ClusterEngine
	classifier *Classifier
	guard      *MotionGuard
	dedupe     *shot.Deduplicator
}

// NewSession creates a Session. Grids are sized from the first frame.
// sink may be nil.
func NewSession(config Config, sink Sink) *Session {
	config = config.withDefaults()
	return &Session{
		id:       uuid.NewString(),
		config:   config,
		sink:     sink,
		enabled:  true,
		clusters: NewClusterEngine(config.MinShotDimension),
		guard:    NewMotionGuard(config.MinShotDimension),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// SetDebugView installs a view that receives a snapshot after each frame.
func (s *Session) SetDebugView(v DebugView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debug = v
}

// SetEnabled turns shot detection on or off.
func (s *Session) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// State returns the session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Frames returns the number of frames processed.
func (s *Session) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// ROI returns the detection rectangle in frame coordinates, empty before the
// first frame.
func (s *Session) ROI() image.Rectangle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roi
}

// AverageHotPixels returns the guard's smoothed hot pixel count.
func (s *Session) AverageHotPixels() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guard.Average()
}

// IsNewShot reports whether sh would pass deduplication without recording it.
func (s *Session) IsNewShot(sh shot.Shot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dedupe == nil {
		return true
	}
	return s.dedupe.Lookahead(sh)
}

// Close releases the background grids.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.background = nil
	s.dedupe = nil
	return nil
}

// Detect runs one frame through the detection pipeline: scan, guard,
// cluster, classify and deduplicate. Accepted shots go to the sink and are
// returned. Frame.Index is the cumulative frame count; when it is zero the
// session's own count is used.
func (s *Session) Detect(frame *capture.Frame) ([]shot.Shot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.background == nil {
		if err := s.init(frame); err != nil {
			return nil, err
		}
	} else if frame.Width != s.frameWidth || frame.Height != s.frameHeight {
		return nil, fmt.Errorf("%w: %dx%d, session is %dx%d",
			ErrFrameSize, frame.Width, frame.Height, s.frameWidth, s.frameHeight)
	}

	s.frames++
	index := frame.Index
	if index <= 0 {
		index = s.frames
	}

	src := s.source(frame)
	hot := s.background.Scan(src)

	if s.state == StateWarmup && index > WarmupFrames {
		s.state = StateActive
	}

	snap := Snapshot{
		SessionID: s.id,
		Frame:     index,
		Timestamp: frame.Timestamp,
		State:     s.state.String(),
		HotPixels: len(hot),
	}

	verdict := VerdictSkipped
	var shots []shot.Shot
	if s.state == StateActive && s.enabled {
		verdict = s.guard.Evaluate(index, len(hot), frame.FPS)
		switch verdict {
		case VerdictBrightness:
			if s.sink != nil {
				s.sink.OnBrightnessWarning()
			}
		case VerdictMotion:
			if s.sink != nil {
				s.sink.OnMotionWarning()
			}
		case VerdictCluster:
			shots = s.detectShots(frame, index, src, hot, &snap)
		}
	}

	snap.Verdict = verdict.String()
	snap.AverageHotPixels = s.guard.Average()
	if s.debug != nil {
		s.debug.OnSnapshot(snap)
	}

	return shots, nil
}

func (s *Session) init(frame *capture.Frame) error {
	roi := frame.Bounds()
	if !s.config.ROI.Empty() {
		roi = s.config.ROI.Intersect(frame.Bounds())
		if roi.Empty() {
			return fmt.Errorf("%w: %v does not overlap %dx%d",
				ErrROIOutsideFrame, s.config.ROI, frame.Width, frame.Height)
		}
	}

	s.frameWidth = frame.Width
	s.frameHeight = frame.Height
	s.roi = roi

	w, h := s.roi.Dx(), s.roi.Dy()
	s.background = NewBackgroundModel(w, h)
	s.classifier = NewClassifier(w, h)
	s.dedupe = shot.NewDeduplicator(w, h)
	return nil
}

func (s *Session) source(frame *capture.Frame) RGBSource {
	if s.roi.Min == (image.Point{}) {
		return frame
	}
	return roiView{frame: frame, origin: s.roi.Min}
}

func (s *Session) detectShots(frame *capture.Frame, index int, src RGBSource, hot []Pixel, snap *Snapshot) []shot.Shot {
	var shots []shot.Shot

	for _, c := range s.clusters.Label(hot) {
		info := ClusterInfo{
			X:                 c.CenterX,
			Y:                 c.CenterY,
			Size:              c.Size(),
			MeanConnectedness: c.MeanConnectedness,
		}

		if !s.clusters.Accepts(c) {
			info.Outcome = OutcomeTooSmall
			snap.Clusters = append(snap.Clusters, info)
			continue
		}

		color, score, ok := s.classifier.Classify(c, src, s.background)
		info.Score = score
		if !ok {
			info.Outcome = OutcomeAmbiguous
			snap.Clusters = append(snap.Clusters, info)
			continue
		}
		info.Color = color.String()

		if color == s.config.IgnoreLaserColor {
			info.Outcome = OutcomeIgnored
			snap.Clusters = append(snap.Clusters, info)
			continue
		}

		sh := shot.New(color, c.CenterX, c.CenterY, frame.Timestamp, index, s.config.MarkerRadius)
		if !s.dedupe.Accept(sh) {
			info.Outcome = OutcomeDuplicate
			snap.Clusters = append(snap.Clusters, info)
			continue
		}

		info.Outcome = OutcomeAccepted
		snap.Clusters = append(snap.Clusters, info)
		snap.Shots = append(snap.Shots, shotInfo(sh))
		shots = append(shots, sh)
		if s.sink != nil {
			s.sink.OnShot(sh)
		}
	}

	return shots
}

// roiView shifts ROI-relative coordinates into frame coordinates.
type roiView struct {
	frame  *capture.Frame
	origin image.Point
}

func (v roiView) RGB(x, y int) (r, g, b uint8) {
	return v.frame.RGB(x+v.origin.X, y+v.origin.Y)
}
