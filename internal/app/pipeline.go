package app

import (
	"image"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/phrack/ShootOFF-sub002/internal/capture"
	"github.com/phrack/ShootOFF-sub002/internal/detector"
	"github.com/phrack/ShootOFF-sub002/internal/shot"
)

// WarningInterval is the minimum time between two warnings of the same kind
// from one camera.
const WarningInterval = 5 * time.Second

// pendingEvent is a sink callback buffered until the frame is done.
type pendingEvent struct {
	shot    *shot.Shot
	warning Warning
}

// cameraWorker runs one camera's capture and detection loop.
type cameraWorker struct {
	app    *App
	name   string
	camera capture.Camera
	opts   CameraOptions

	mu        sync.Mutex
	session   detector.Detector
	frames    int
	jpeg      []byte
	pending   []pendingEvent
	lastWarn  map[Warning]time.Time
	lastState detector.State

	stopCh chan struct{}
	done   chan struct{}
}

func newCameraWorker(a *App, name string, camera capture.Camera, opts CameraOptions) *cameraWorker {
	return &cameraWorker{
		app:      a,
		name:     name,
		camera:   camera,
		opts:     opts,
		lastWarn: make(map[Warning]time.Time),
	}
}

// sessionSink buffers session output. It is only called from inside
// Detect, which process runs with w.mu held.
type sessionSink struct {
	w *cameraWorker
}

func (s sessionSink) OnShot(sh shot.Shot) {
	s.w.pending = append(s.w.pending, pendingEvent{shot: &sh})
}

func (s sessionSink) OnBrightnessWarning() {
	s.w.pending = append(s.w.pending, pendingEvent{warning: WarningBrightness})
}

func (s sessionSink) OnMotionWarning() {
	s.w.pending = append(s.w.pending, pendingEvent{warning: WarningMotion})
}

// resetSession replaces the detection session. The frame count restarts so
// the new session warms up.
func (w *cameraWorker) resetSession(cfg detector.Config, enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session != nil {
		w.session.Close()
	}
	w.session = w.app.newDetector(cfg, sessionSink{w: w})
	w.session.SetEnabled(enabled)
	w.frames = 0
	w.lastState = detector.StateWarmup
	w.lastWarn = make(map[Warning]time.Time)
}

func (w *cameraWorker) setEnabled(enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.session.SetEnabled(enabled)
}

func (w *cameraWorker) start() error {
	if err := w.camera.Open(); err != nil {
		return err
	}
	w.camera.SetFPS(w.opts.FPS)

	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	go w.run(w.stopCh, w.done)
	return nil
}

// stop ends the loop, waits for it and closes the camera. It is safe to
// call on a worker that was never started.
func (w *cameraWorker) stop() {
	if w.stopCh == nil {
		return
	}
	close(w.stopCh)
	<-w.done
	w.stopCh = nil
	w.done = nil

	if err := w.camera.Close(); err != nil {
		log.Printf("Error closing camera %s: %v", w.name, err)
	}
}

func (w *cameraWorker) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session != nil {
		w.session.Close()
	}
}

// run reads and processes one frame per tick until stopCh is closed.
func (w *cameraWorker) run(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := time.Second / time.Duration(w.opts.FPS)
	ticker := w.app.clock.Ticker(interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if err := w.step(); err != nil {
				// Log the first failure of a streak and then every 100th.
				if failures%100 == 0 {
					log.Printf("Error processing frame from %s: %v", w.name, err)
				}
				failures++
				continue
			}
			failures = 0
		}
	}
}

// step captures one frame, runs it through the session and dispatches the
// results to listeners.
func (w *cameraWorker) step() error {
	mat, err := w.camera.ReadFrame()
	if err != nil {
		return err
	}
	defer mat.Close()

	jpg, err := encodeJPEG(mat)
	if err != nil {
		log.Printf("Error encoding frame from %s: %v", w.name, err)
	}

	frame, err := capture.FrameFromMat(mat)
	if err != nil {
		return err
	}
	return w.process(frame, jpg)
}

// process runs an already decoded frame through the session.
func (w *cameraWorker) process(frame *capture.Frame, jpg []byte) error {
	w.mu.Lock()
	w.frames++
	frame.Index = w.frames
	frame.Timestamp = w.app.clock.Now()
	frame.FPS = float64(w.camera.FPS())
	if jpg != nil {
		w.jpeg = jpg
	}

	w.pending = w.pending[:0]
	_, err := w.session.Detect(frame)
	events := append([]pendingEvent(nil), w.pending...)

	sessionID := w.session.ID()
	offset := w.session.ROI().Min
	state := w.session.State()
	warmedUp := state == detector.StateActive && w.lastState != detector.StateActive
	w.lastState = state

	var warnings []Warning
	for _, ev := range events {
		if ev.shot == nil && w.allowWarning(ev.warning, frame.Timestamp) {
			warnings = append(warnings, ev.warning)
		}
	}
	w.mu.Unlock()

	if err != nil {
		return err
	}
	if warmedUp {
		log.Printf("Camera %s: background model ready, detecting shots", w.name)
	}

	listeners := w.app.snapshotListeners()
	for _, ev := range events {
		if ev.shot == nil {
			continue
		}
		se := ShotEvent{Camera: w.name, SessionID: sessionID, Shot: toFrameCoords(*ev.shot, offset)}
		for _, l := range listeners {
			l.OnShot(se)
		}
	}
	for _, warn := range warnings {
		we := WarningEvent{Camera: w.name, SessionID: sessionID, Warning: warn, Time: frame.Timestamp}
		for _, l := range listeners {
			l.OnWarning(we)
		}
	}
	return nil
}

// allowWarning rate limits warnings per kind. Callers hold w.mu.
func (w *cameraWorker) allowWarning(warn Warning, now time.Time) bool {
	last, ok := w.lastWarn[warn]
	if ok && now.Sub(last) < WarningInterval {
		return false
	}
	w.lastWarn[warn] = now
	return true
}

func (w *cameraWorker) isNewShot(s shot.Shot) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	origin := w.session.ROI().Min
	return w.session.IsNewShot(s.Offset(-float64(origin.X), -float64(origin.Y)))
}

func (w *cameraWorker) latestJPEG() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.jpeg
}

func (w *cameraWorker) status(enabled bool) CameraStatus {
	w.mu.Lock()
	defer w.mu.Unlock()

	roi := w.session.ROI()
	if roi.Empty() {
		roi = w.opts.ROI
	}
	return CameraStatus{
		Name:             w.name,
		SessionID:        w.session.ID(),
		State:            w.session.State().String(),
		Frames:           w.frames,
		FPS:              w.camera.FPS(),
		Open:             w.camera.IsOpen(),
		Enabled:          enabled,
		AverageHotPixels: w.session.AverageHotPixels(),
		ROI:              [4]int{roi.Min.X, roi.Min.Y, roi.Dx(), roi.Dy()},
	}
}

func toFrameCoords(s shot.Shot, offset image.Point) shot.Shot {
	return s.Offset(float64(offset.X), float64(offset.Y))
}

// encodeJPEG encodes a frame for the MJPEG stream.
func encodeJPEG(mat *gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(".jpg", *mat)
	if err != nil {
		return nil, err
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}
