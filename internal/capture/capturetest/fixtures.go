// Package capturetest builds synthetic camera feeds for tests.
package capturetest

import (
	"image"

	"github.com/phrack/ShootOFF-sub002/internal/capture"
)

// Laser colors as they appear on a dark target. The glow colors are dim
// enough to stay below the hot pixel threshold on black.
var (
	Red       = [3]uint8{255, 0, 0}
	Green     = [3]uint8{0, 255, 0}
	White     = [3]uint8{255, 255, 255}
	RedGlow   = [3]uint8{100, 0, 0}
	GreenGlow = [3]uint8{0, 100, 0}
)

// Black returns a black width x height frame.
func Black(width, height int) *capture.Frame {
	return capture.NewFrame(width, height)
}

// Dot returns a copy of base with rect painted in c.
func Dot(base *capture.Frame, rect image.Rectangle, c [3]uint8) *capture.Frame {
	f := base.Clone()
	f.FillRect(rect, c[0], c[1], c[2])
	return f
}

// GlowDot returns a copy of base with rect painted in core and a one pixel
// ring around it painted in glow.
func GlowDot(base *capture.Frame, rect image.Rectangle, core, glow [3]uint8) *capture.Frame {
	f := base.Clone()
	f.FillRect(rect.Inset(-1), glow[0], glow[1], glow[2])
	f.FillRect(rect, core[0], core[1], core[2])
	return f
}

// Sequence returns lead copies of base, lit, then trail copies of base.
func Sequence(base *capture.Frame, lead int, lit *capture.Frame, trail int) []*capture.Frame {
	frames := make([]*capture.Frame, 0, lead+1+trail)
	for i := 0; i < lead; i++ {
		frames = append(frames, base.Clone())
	}
	frames = append(frames, lit.Clone())
	for i := 0; i < trail; i++ {
		frames = append(frames, base.Clone())
	}
	return frames
}
