package detector

import (
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Background model constants.
const (
	// uninitialized marks a luminance cell that has never been seeded.
	uninitialized = -1
	// SaturatedLum is the average luminance above which a pixel has no
	// headroom left to brighten.
	SaturatedLum = 250
	// MinLumIncrease is the smallest absolute brightening that counts.
	MinLumIncrease = 10
	// SmoothingSamples is the window of the exponential smoother.
	SmoothingSamples = 5
)

// RGBSource gives read access to the pixels being scanned.
type RGBSource interface {
	RGB(x, y int) (r, g, b uint8)
}

// BackgroundModel keeps per-pixel moving averages of luminance and red/green
// color bias. The averages are double buffered: a scan reads the current
// grids, writes the next ones and swaps them after every band has joined.
//
// A BackgroundModel belongs to a single session and must not be scanned
// concurrently.
type BackgroundModel struct {
	width  int
	height int
	bands  int

	lum           []int32
	colorDiff     []int32
	nextLum       []int32
	nextColorDiff []int32
}

// NewBackgroundModel creates an unseeded model for a width x height area.
func NewBackgroundModel(width, height int) *BackgroundModel {
	n := width * height
	m := &BackgroundModel{
		width:         width,
		height:        height,
		bands:         runtime.GOMAXPROCS(0),
		lum:           make([]int32, n),
		colorDiff:     make([]int32, n),
		nextLum:       make([]int32, n),
		nextColorDiff: make([]int32, n),
	}
	m.Reset()
	return m
}

// Width returns the model width.
func (m *BackgroundModel) Width() int { return m.width }

// Height returns the model height.
func (m *BackgroundModel) Height() int { return m.height }

// Reset forgets all averages.
func (m *BackgroundModel) Reset() {
	for i := range m.lum {
		m.lum[i] = uninitialized
		m.nextLum[i] = uninitialized
	}
}

// LumAverage returns the current luminance average at (x, y) and whether
// the cell has been seeded.
func (m *BackgroundModel) LumAverage(x, y int) (int, bool) {
	v := m.lum[y*m.width+x]
	return int(v), v != uninitialized
}

// ColorDiffAverage returns the current red/green bias average at (x, y).
func (m *BackgroundModel) ColorDiffAverage(x, y int) int {
	return int(m.colorDiff[y*m.width+x])
}

// Scan compares every pixel of src against its background average, returns
// the pixels that brightened abnormally and advances the averages by one
// frame. Row bands are scanned in parallel, so results come back in no
// particular order.
func (m *BackgroundModel) Scan(src RGBSource) []Pixel {
	var (
		mu  sync.Mutex
		hot []Pixel
		g   errgroup.Group
	)

	rows := (m.height + m.bands - 1) / m.bands
	if rows < 1 {
		rows = 1
	}
	for y0 := 0; y0 < m.height; y0 += rows {
		y1 := min(y0+rows, m.height)
		g.Go(func() error {
			band := m.scanRows(src, y0, y1)
			if len(band) == 0 {
				return nil
			}
			mu.Lock()
			hot = append(hot, band...)
			mu.Unlock()
			return nil
		})
	}
	// Bands never fail; Wait is the join point.
	_ = g.Wait()

	m.lum, m.nextLum = m.nextLum, m.lum
	m.colorDiff, m.nextColorDiff = m.nextColorDiff, m.colorDiff

	return hot
}

func (m *BackgroundModel) scanRows(src RGBSource, y0, y1 int) []Pixel {
	var hot []Pixel
	for y := y0; y < y1; y++ {
		row := y * m.width
		for x := 0; x < m.width; x++ {
			i := row + x
			r, g, b := src.RGB(x, y)
			lum := Luminance(r, g, b)
			diff := int(RedGreenBias(r, g, b))

			avgLum := int(m.lum[i])
			if avgLum == uninitialized {
				m.nextLum[i] = int32(lum)
				m.nextColorDiff[i] = int32(diff)
				continue
			}
			avgDiff := int(m.colorDiff[i])

			if pixelAboveThreshold(lum, avgLum) {
				hot = append(hot, Pixel{
					Point:        Point{X: x, Y: y},
					R:            r,
					G:            g,
					B:            b,
					Lum:          lum,
					AvgLum:       avgLum,
					AvgColorDiff: avgDiff,
				})
			}

			m.nextLum[i] = int32(smooth(avgLum, lum))
			m.nextColorDiff[i] = int32(smooth(avgDiff, diff))
		}
	}
	return hot
}

// pixelAboveThreshold reports whether lum is a shot-like jump over avgLum.
func pixelAboveThreshold(lum, avgLum int) bool {
	if avgLum > SaturatedLum {
		return false
	}
	increase := lum - avgLum
	if increase < MinLumIncrease {
		return false
	}
	return increase >= (255-avgLum)/2
}

func smooth(old, current int) int {
	return (old*(SmoothingSamples-1) + current) / SmoothingSamples
}
