// Package app wires cameras to shot detection sessions and fans the results
// out to listeners.
package app

import (
	"errors"
	"fmt"
	"image"
	"log"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/phrack/ShootOFF-sub002/internal/capture"
	"github.com/phrack/ShootOFF-sub002/internal/detector"
	"github.com/phrack/ShootOFF-sub002/internal/shot"
	"github.com/phrack/ShootOFF-sub002/internal/store"
)

var (
	// ErrCameraExists is returned when a camera name is already attached.
	ErrCameraExists = errors.New("camera already exists")
	// ErrUnknownCamera is returned for a camera name that is not attached.
	ErrUnknownCamera = errors.New("unknown camera")
	// ErrNoFrame is returned before a camera has produced a frame.
	ErrNoFrame = errors.New("no frame available")
)

// Config holds configuration options for the application.
type Config struct {
	Store *store.Store

	// Detection holds the defaults for new sessions. Settings saved in the
	// store override them.
	Detection detector.Config
	Enabled   bool

	// DebugView, when set, receives every session's snapshots.
	DebugView detector.DebugView

	// Clock stamps frames. Defaults to the wall clock.
	Clock clock.Clock

	// NewDetector creates each camera's detector. Defaults to a
	// detector.Session with DebugView attached.
	NewDetector detector.Factory
}

// CameraOptions are per-camera settings.
type CameraOptions struct {
	// FPS requested from the camera (default: capture.DefaultFPS).
	FPS int
	// ROI restricts detection; the zero rectangle means the full frame.
	ROI image.Rectangle
}

// CameraStatus describes an attached camera.
type CameraStatus struct {
	Name             string  `json:"name"`
	SessionID        string  `json:"session_id"`
	State            string  `json:"state"`
	Frames           int     `json:"frames"`
	FPS              int     `json:"fps"`
	Open             bool    `json:"open"`
	Enabled          bool    `json:"enabled"`
	AverageHotPixels float64 `json:"average_hot_pixels"`
	ROI              [4]int  `json:"roi"`
}

// App is the main application that orchestrates per-camera detection.
type App struct {
	config Config
	clock  clock.Clock

	mu        sync.RWMutex
	enabled   bool
	detection detector.Config
	workers   map[string]*cameraWorker
	listeners []Listener
	running   bool
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.Clock == nil {
		config.Clock = clock.New()
	}

	a := &App{
		config:    config,
		clock:     config.Clock,
		enabled:   config.Enabled,
		detection: config.Detection,
		workers:   make(map[string]*cameraWorker),
	}

	if config.Store != nil {
		ds, err := config.Store.Settings().DetectionSettings(a.detectionSettingsLocked())
		if err != nil {
			log.Printf("Failed to load detection settings, using defaults: %v", err)
		} else if err := a.applySettingsLocked(ds); err != nil {
			log.Printf("Ignoring stored detection settings: %v", err)
		}
	}

	return a
}

func (a *App) newDetector(cfg detector.Config, sink detector.Sink) detector.Detector {
	if a.config.NewDetector != nil {
		return a.config.NewDetector(cfg, sink)
	}
	s := detector.NewSession(cfg, sink)
	if a.config.DebugView != nil {
		s.SetDebugView(a.config.DebugView)
	}
	return s
}

// SetEnabled enables or disables shot detection on every camera.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
	for _, w := range a.workers {
		w.setEnabled(enabled)
	}
}

// IsEnabled returns whether shot detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// AddListener registers a listener for shots and warnings.
func (a *App) AddListener(l Listener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, l)
}

// AddCamera attaches a camera under name and creates its detection session.
// If the app is running the camera is opened and started immediately.
func (a *App) AddCamera(name string, camera capture.Camera, opts CameraOptions) error {
	if opts.FPS <= 0 {
		opts.FPS = capture.DefaultFPS
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.workers[name]; ok {
		return fmt.Errorf("%w: %s", ErrCameraExists, name)
	}

	w := newCameraWorker(a, name, camera, opts)
	w.resetSession(a.sessionConfig(opts), a.enabled)
	a.workers[name] = w

	if a.running {
		if err := w.start(); err != nil {
			delete(a.workers, name)
			return err
		}
	}

	log.Printf("Camera %s attached", name)
	return nil
}

// RemoveCamera stops and detaches a camera. Its session is discarded.
func (a *App) RemoveCamera(name string) error {
	a.mu.Lock()
	w, ok := a.workers[name]
	if ok {
		delete(a.workers, name)
	}
	a.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCamera, name)
	}

	w.stop()
	w.close()
	log.Printf("Camera %s removed", name)
	return nil
}

// Cameras returns the status of every attached camera, sorted by name.
func (a *App) Cameras() []CameraStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()

	statuses := make([]CameraStatus, 0, len(a.workers))
	for _, w := range a.workers {
		statuses = append(statuses, w.status(a.enabled))
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Name < statuses[j].Name
	})
	return statuses
}

// LatestJPEG returns the most recent frame of a camera encoded as JPEG.
func (a *App) LatestJPEG(name string) ([]byte, error) {
	w, err := a.worker(name)
	if err != nil {
		return nil, err
	}
	jpg := w.latestJPEG()
	if jpg == nil {
		return nil, ErrNoFrame
	}
	return jpg, nil
}

// IsNewShot reports whether s would pass a camera's deduplication. s must
// be in frame coordinates.
func (a *App) IsNewShot(name string, s shot.Shot) (bool, error) {
	w, err := a.worker(name)
	if err != nil {
		return false, err
	}
	return w.isNewShot(s), nil
}

// DetectionSettings returns the current runtime detection settings.
func (a *App) DetectionSettings() store.DetectionSettings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detectionSettingsLocked()
}

// ApplySettings validates, persists and applies detection settings. Every
// camera gets a fresh session, so detection warms up again.
func (a *App) ApplySettings(d store.DetectionSettings) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if a.config.Store != nil {
		if err := a.config.Store.Settings().SaveDetectionSettings(d); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.applySettingsLocked(d); err != nil {
		return err
	}
	for _, w := range a.workers {
		w.resetSession(a.sessionConfig(w.opts), a.enabled)
	}
	log.Printf("Detection settings applied: %+v", d)
	return nil
}

// Start opens every camera and begins the detection pipelines.
func (a *App) Start() error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return nil
	}

	var started []*cameraWorker
	for name, w := range a.workers {
		if err := w.start(); err != nil {
			a.mu.Unlock()
			// Workers may be blocked on the app lock; stop them unlocked.
			for _, s := range started {
				s.stop()
			}
			return fmt.Errorf("start camera %s: %w", name, err)
		}
		started = append(started, w)
	}
	a.running = true
	a.mu.Unlock()

	log.Println("Detection pipeline started")
	return nil
}

// Stop halts the detection pipelines and closes the cameras.
func (a *App) Stop() {
	a.mu.Lock()
	workers := make([]*cameraWorker, 0, len(a.workers))
	for _, w := range a.workers {
		workers = append(workers, w)
	}
	a.running = false
	a.mu.Unlock()

	for _, w := range workers {
		w.stop()
	}

	log.Println("Detection pipeline stopped")
}

// Close stops the app and releases every session.
func (a *App) Close() {
	a.Stop()

	a.mu.Lock()
	defer a.mu.Unlock()
	for name, w := range a.workers {
		w.close()
		delete(a.workers, name)
	}
}

func (a *App) worker(name string) (*cameraWorker, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	w, ok := a.workers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCamera, name)
	}
	return w, nil
}

func (a *App) sessionConfig(opts CameraOptions) detector.Config {
	cfg := a.detection
	cfg.ROI = opts.ROI
	return cfg
}

func (a *App) detectionSettingsLocked() store.DetectionSettings {
	cfg := a.detection
	if cfg.MinShotDimension <= 0 {
		cfg.MinShotDimension = detector.DefaultMinShotDimension
	}
	if cfg.MarkerRadius <= 0 {
		cfg.MarkerRadius = detector.DefaultMarkerRadius
	}
	return store.DetectionSettings{
		Enabled:          a.enabled,
		MinShotDimension: cfg.MinShotDimension,
		IgnoreLaserColor: cfg.IgnoreLaserColor.String(),
		MarkerRadius:     cfg.MarkerRadius,
	}
}

func (a *App) applySettingsLocked(d store.DetectionSettings) error {
	color, err := shot.ParseColor(d.IgnoreLaserColor)
	if err != nil {
		return err
	}
	a.enabled = d.Enabled
	a.detection.MinShotDimension = d.MinShotDimension
	a.detection.MarkerRadius = d.MarkerRadius
	a.detection.IgnoreLaserColor = color
	return nil
}

func (a *App) snapshotListeners() []Listener {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]Listener(nil), a.listeners...)
}
