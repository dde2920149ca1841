package detector

import (
	"math"

	"github.com/phrack/ShootOFF-sub002/internal/shot"
)

// AmbiguousScore is the minimum |score| needed to call a color.
const AmbiguousScore = 2.0

// Baseline exposes the background red/green bias around a cluster.
type Baseline interface {
	ColorDiffAverage(x, y int) int
}

// Classifier decides a cluster's laser color from the pixels just outside
// its rim. The saturated interior of a laser dot is close to white for both
// colors; the glow around it carries the chroma.
type Classifier struct {
	width  int
	height int
}

// NewClassifier creates a Classifier for a width x height area.
func NewClassifier(width, height int) *Classifier {
	return &Classifier{width: width, height: height}
}

// Score sums, over every non-member neighbour of the cluster's perimeter
// pixels, the neighbour's red/green bias minus its background bias. Each
// neighbour is counted once.
func (c *Classifier) Score(cl *Cluster, src RGBSource, base Baseline) float64 {
	visited := make(map[Point]struct{})
	var diff, lumDiff float64

	for _, p := range cl.Pixels {
		if p.Connectedness >= MaxConnectedness {
			continue
		}
		for _, d := range neighbours {
			n := p.Add(d)
			if !n.In(c.width, c.height) || cl.Contains(n) {
				continue
			}
			if _, seen := visited[n]; seen {
				continue
			}
			visited[n] = struct{}{}

			r, g, b := src.RGB(n.X, n.Y)
			diff += RedGreenBias(r, g, b)
			lumDiff += float64(base.ColorDiffAverage(n.X, n.Y))
		}
	}

	return diff - lumDiff
}

// Classify returns the cluster's color and score. ok is false when the
// score is too close to zero to call.
func (c *Classifier) Classify(cl *Cluster, src RGBSource, base Baseline) (color shot.Color, score float64, ok bool) {
	score = c.Score(cl, src, base)
	if math.Abs(score) < AmbiguousScore {
		return shot.ColorNone, score, false
	}
	if score < 0 {
		return shot.ColorRed, score, true
	}
	return shot.ColorGreen, score, true
}
