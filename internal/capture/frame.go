package capture

import (
	"errors"
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"
)

// ErrUnsupportedMat is returned when a Mat is not an 8-bit 3-channel image.
var ErrUnsupportedMat = errors.New("unsupported mat type")

// Frame is one RGB video frame plus the frame-source metadata shot
// detection consumes. Pixels are stored as row-major RGB triplets.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8

	// Index is the cumulative number of frames processed for the camera,
	// including this one (1-based).
	Index     int
	Timestamp time.Time
	// FPS is the measured frame rate of the feed.
	FPS float64
}

// NewFrame allocates a black width x height frame.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*3),
	}
}

// Bounds returns the frame rectangle.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// RGB returns the color at (x, y). The coordinates must be in bounds.
func (f *Frame) RGB(x, y int) (r, g, b uint8) {
	i := (y*f.Width + x) * 3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// SetRGB sets the color at (x, y). The coordinates must be in bounds.
func (f *Frame) SetRGB(x, y int, r, g, b uint8) {
	i := (y*f.Width + x) * 3
	f.Pix[i] = r
	f.Pix[i+1] = g
	f.Pix[i+2] = b
}

// Fill paints the whole frame one color.
func (f *Frame) Fill(r, g, b uint8) {
	f.FillRect(f.Bounds(), r, g, b)
}

// FillRect paints rect (clipped to the frame) one color.
func (f *Frame) FillRect(rect image.Rectangle, r, g, b uint8) {
	rect = rect.Intersect(f.Bounds())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			f.SetRGB(x, y, r, g, b)
		}
	}
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	c := *f
	c.Pix = make([]uint8, len(f.Pix))
	copy(c.Pix, f.Pix)
	return &c
}

// FrameFromMat converts a BGR 8UC3 Mat (as produced by VideoCapture) into a Frame.
// Metadata fields are left zero for the caller to fill in.
func FrameFromMat(mat *gocv.Mat) (*Frame, error) {
	if mat == nil || mat.Empty() {
		return nil, errors.New("captured frame is empty")
	}
	if mat.Type() != gocv.MatTypeCV8UC3 {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedMat, mat.Type())
	}

	bgr := mat.ToBytes()
	f := NewFrame(mat.Cols(), mat.Rows())
	if len(bgr) != len(f.Pix) {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", ErrUnsupportedMat, len(bgr), f.Width, f.Height)
	}

	for i := 0; i < len(bgr); i += 3 {
		f.Pix[i] = bgr[i+2]
		f.Pix[i+1] = bgr[i+1]
		f.Pix[i+2] = bgr[i]
	}

	return f, nil
}

// ToMat converts the frame back into a BGR Mat. The caller must close it.
func (f *Frame) ToMat() (gocv.Mat, error) {
	bgr := make([]byte, len(f.Pix))
	for i := 0; i < len(f.Pix); i += 3 {
		bgr[i] = f.Pix[i+2]
		bgr[i+1] = f.Pix[i+1]
		bgr[i+2] = f.Pix[i]
	}
	return gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, bgr)
}
