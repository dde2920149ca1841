// Package shot defines detected laser shots and the policy that collapses
// repeated detections of one physical shot.
package shot

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Color is the classified laser color of a shot.
type Color int

const (
	// ColorNone means no color; used for "ignore nothing" settings.
	ColorNone Color = iota
	// ColorRed is a red laser.
	ColorRed
	// ColorGreen is a green laser.
	ColorGreen
)

// String returns the lowercase color name.
func (c Color) String() string {
	switch c {
	case ColorRed:
		return "red"
	case ColorGreen:
		return "green"
	default:
		return "none"
	}
}

// ParseColor parses "red", "green" or "none" (case-insensitive, empty means none).
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ColorNone, nil
	case "red":
		return ColorRed, nil
	case "green":
		return ColorGreen, nil
	default:
		return ColorNone, fmt.Errorf("unknown laser color %q", s)
	}
}

// Shot is one accepted laser hit. Shots are values and are never modified
// after creation.
type Shot struct {
	Color        Color
	X            float64
	Y            float64
	Timestamp    time.Time
	Frame        int
	MarkerRadius int
}

// New creates a Shot.
func New(color Color, x, y float64, ts time.Time, frame, markerRadius int) Shot {
	return Shot{
		Color:        color,
		X:            x,
		Y:            y,
		Timestamp:    ts,
		Frame:        frame,
		MarkerRadius: markerRadius,
	}
}

// Offset returns a copy of the shot translated by (dx, dy).
func (s Shot) Offset(dx, dy float64) Shot {
	s.X += dx
	s.Y += dy
	return s
}

// Distance returns the Euclidean distance between two shots.
func (s Shot) Distance(o Shot) float64 {
	dx := s.X - o.X
	dy := s.Y - o.Y
	return math.Sqrt(dx*dx + dy*dy)
}

func (s Shot) String() string {
	return fmt.Sprintf("%s shot at (%.1f, %.1f) frame %d", s.Color, s.X, s.Y, s.Frame)
}
