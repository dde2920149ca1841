package debugview

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/phrack/ShootOFF-sub002/internal/detector"
)

// GuardSample is one frame's guard input and output.
type GuardSample struct {
	Frame   int
	Hot     int
	Average float64
	Shots   int
}

// DefaultMaxSamples is the per-session sample cap, ten minutes at 30 fps.
const DefaultMaxSamples = 18000

// series is a ring of the newest samples of one session.
type series struct {
	buf  []GuardSample
	next int
}

func (s *series) add(g GuardSample, limit int) {
	if len(s.buf) < limit {
		s.buf = append(s.buf, g)
		return
	}
	s.buf[s.next] = g
	s.next = (s.next + 1) % len(s.buf)
}

// ordered returns the samples oldest first.
func (s *series) ordered() []GuardSample {
	out := make([]GuardSample, 0, len(s.buf))
	out = append(out, s.buf[s.next:]...)
	return append(out, s.buf[:s.next]...)
}

// Plotter accumulates per-session hot pixel counts and renders them as
// time series PNGs, one per session, with the guard thresholds drawn in.
// Only the newest samples of each session are kept.
type Plotter struct {
	mu         sync.Mutex
	outputDir  string
	maxSamples int
	samples    map[string]*series
}

// NewPlotter creates a Plotter that writes into outputDir.
func NewPlotter(outputDir string) *Plotter {
	return &Plotter{
		outputDir:  outputDir,
		maxSamples: DefaultMaxSamples,
		samples:    make(map[string]*series),
	}
}

// SetMaxSamples changes the per-session cap. Values <= 0 select
// DefaultMaxSamples. It applies to sessions seen after the call.
func (p *Plotter) SetMaxSamples(n int) {
	if n <= 0 {
		n = DefaultMaxSamples
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maxSamples = n
}

// OnSnapshot implements detector.DebugView.
func (p *Plotter) OnSnapshot(s detector.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ser, ok := p.samples[s.SessionID]
	if !ok {
		ser = &series{buf: make([]GuardSample, 0, min(p.maxSamples, 1024))}
		p.samples[s.SessionID] = ser
	}
	ser.add(GuardSample{
		Frame:   s.Frame,
		Hot:     s.HotPixels,
		Average: s.AverageHotPixels,
		Shots:   len(s.Shots),
	}, p.maxSamples)
}

// Samples returns a copy of the samples recorded for a session, oldest
// first.
func (p *Plotter) Samples(sessionID string) []GuardSample {
	p.mu.Lock()
	defer p.mu.Unlock()
	ser, ok := p.samples[sessionID]
	if !ok {
		return nil
	}
	return ser.ordered()
}

// GeneratePlots writes one PNG per session and returns the file paths.
func (p *Plotter) GeneratePlots() ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.outputDir == "" {
		return nil, fmt.Errorf("no output directory configured")
	}
	if len(p.samples) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	ids := make([]string, 0, len(p.samples))
	for id := range p.samples {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var files []string
	for _, id := range ids {
		file := filepath.Join(p.outputDir, fmt.Sprintf("guard_%s.png", shortID(id)))
		if err := p.generateSessionPlot(id, p.samples[id].ordered(), file); err != nil {
			return files, fmt.Errorf("session %s: %w", id, err)
		}
		files = append(files, file)
	}
	return files, nil
}

func (p *Plotter) generateSessionPlot(id string, samples []GuardSample, file string) error {
	pl := plot.New()
	pl.Title.Text = fmt.Sprintf("Session %s - Hot Pixels", shortID(id))
	pl.X.Label.Text = "Frame"
	pl.Y.Label.Text = "Pixels"

	hotPts := make(plotter.XYs, 0, len(samples))
	avgPts := make(plotter.XYs, 0, len(samples))
	shotPts := make(plotter.XYs, 0)
	first, last := samples[0].Frame, samples[0].Frame
	for _, s := range samples {
		x := float64(s.Frame)
		hotPts = append(hotPts, plotter.XY{X: x, Y: float64(s.Hot)})
		avgPts = append(avgPts, plotter.XY{X: x, Y: s.Average})
		if s.Shots > 0 {
			shotPts = append(shotPts, plotter.XY{X: x, Y: float64(s.Hot)})
		}
		first = min(first, s.Frame)
		last = max(last, s.Frame)
	}

	hotLine, err := plotter.NewLine(hotPts)
	if err != nil {
		return err
	}
	hotLine.Color = color.RGBA{R: 200, G: 60, B: 60, A: 255}
	hotLine.Width = vg.Points(1)
	pl.Add(hotLine)
	pl.Legend.Add("hot pixels", hotLine)

	avgLine, err := plotter.NewLine(avgPts)
	if err != nil {
		return err
	}
	avgLine.Color = color.RGBA{R: 40, G: 90, B: 200, A: 255}
	avgLine.Width = vg.Points(1.5)
	pl.Add(avgLine)
	pl.Legend.Add("running average", avgLine)

	limits := []struct {
		label string
		y     float64
	}{
		{"motion average", detector.MotionAverage},
		{"motion frame count", detector.MotionFrameCount},
	}
	for _, l := range limits {
		line, err := plotter.NewLine(plotter.XYs{{X: float64(first), Y: l.y}, {X: float64(last), Y: l.y}})
		if err != nil {
			return err
		}
		line.Color = color.Gray{Y: 120}
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		pl.Add(line)
		pl.Legend.Add(l.label, line)
	}

	if len(shotPts) > 0 {
		sc, err := plotter.NewScatter(shotPts)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Color = color.RGBA{G: 160, A: 255}
		sc.GlyphStyle.Radius = vg.Points(3)
		pl.Add(sc)
		pl.Legend.Add("shot", sc)
	}

	pl.Legend.Top = true
	pl.Legend.Left = false
	pl.Legend.XOffs = -10
	pl.Legend.YOffs = -10

	if err := pl.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save guard plot: %w", err)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
