// Package detector finds laser shots in a video feed: it keeps a per-pixel
// background model, flags pixels that brighten abnormally, floods them into
// clusters, classifies each cluster's color and deduplicates the result.
package detector

import (
	"image"

	"github.com/phrack/ShootOFF-sub002/internal/capture"
	"github.com/phrack/ShootOFF-sub002/internal/shot"
)

// DefaultMarkerRadius is the radius of the marker drawn for a shot.
const DefaultMarkerRadius = 2

// Detector defines the interface for per-camera shot detection.
type Detector interface {
	// Detect processes one frame and returns the shots accepted in it.
	// Frames must be passed in capture order and never concurrently.
	Detect(frame *capture.Frame) ([]shot.Shot, error)

	// SetEnabled turns shot detection on or off. The background model keeps
	// learning while detection is off.
	SetEnabled(enabled bool)

	// Close releases any resources held by the detector.
	Close() error

	// ID identifies the detector's session in events and the journal.
	ID() string

	// ROI is the detection rectangle in frame coordinates. It is empty
	// until the first frame has been seen.
	ROI() image.Rectangle

	State() State

	// IsNewShot reports whether a shot in ROI coordinates would pass
	// deduplication, without recording it.
	IsNewShot(s shot.Shot) bool

	AverageHotPixels() float64
}

// Factory creates the Detector for one camera. sink receives its output.
type Factory func(config Config, sink Sink) Detector

// Sink receives the output of a detector. Calls are made from the camera's
// pipeline goroutine and must not block for long.
type Sink interface {
	OnShot(s shot.Shot)
	OnBrightnessWarning()
	OnMotionWarning()
}

// DebugView receives a snapshot after every processed frame.
type DebugView interface {
	OnSnapshot(s Snapshot)
}

// Config holds configuration options for shot detection.
type Config struct {
	// MinShotDimension is the minimum number of pixels in a shot (default: 9).
	MinShotDimension int

	// IgnoreLaserColor drops shots of this color. ColorNone keeps all shots.
	IgnoreLaserColor shot.Color

	// MarkerRadius is copied onto every shot (default: 2).
	MarkerRadius int

	// ROI restricts detection to a sub-rectangle of the frame. Shots are
	// reported relative to ROI.Min. The zero rectangle means the full frame.
	ROI image.Rectangle
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinShotDimension: DefaultMinShotDimension,
		IgnoreLaserColor: shot.ColorNone,
		MarkerRadius:     DefaultMarkerRadius,
	}
}

func (c Config) withDefaults() Config {
	if c.MinShotDimension <= 0 {
		c.MinShotDimension = DefaultMinShotDimension
	}
	if c.MarkerRadius <= 0 {
		c.MarkerRadius = DefaultMarkerRadius
	}
	return c
}
