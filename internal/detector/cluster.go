package detector

import "gonum.org/v1/gonum/stat"

// Cluster filtering constants.
const (
	// DefaultMinShotDimension is the default minimum number of pixels in a shot.
	DefaultMinShotDimension = 9
	// MinMeanConnectedness rejects sparse, stringy regions.
	MinMeanConnectedness = 6.72
	// MaxConnectedness is the connectedness of a pixel with all 8 neighbours.
	MaxConnectedness = 8
)

// Cluster is one 8-connected region of hot pixels from a single frame.
type Cluster struct {
	ID     int
	Pixels []*Pixel

	// CenterX and CenterY are the connectedness-weighted centroid. They are
	// only meaningful when MeanConnectedness > 0.
	CenterX float64
	CenterY float64

	MeanConnectedness float64

	members map[Point]*Pixel
}

// Size returns the number of member pixels.
func (c *Cluster) Size() int {
	return len(c.Pixels)
}

// Contains reports whether p is a member of the cluster.
func (c *Cluster) Contains(p Point) bool {
	_, ok := c.members[p]
	return ok
}

func (c *Cluster) add(p *Pixel) {
	c.Pixels = append(c.Pixels, p)
	c.members[p.Point] = p
}

func (c *Cluster) finish() {
	xs := make([]float64, len(c.Pixels))
	ys := make([]float64, len(c.Pixels))
	weights := make([]float64, len(c.Pixels))
	var sumConn float64
	for i, p := range c.Pixels {
		xs[i] = float64(p.X)
		ys[i] = float64(p.Y)
		weights[i] = float64(p.Connectedness)
		sumConn += weights[i]
	}
	c.MeanConnectedness = stat.Mean(weights, nil)
	if sumConn > 0 {
		c.CenterX = stat.Mean(xs, weights)
		c.CenterY = stat.Mean(ys, weights)
	}
}

// ClusterEngine groups hot pixels into regions with an iterative flood fill.
type ClusterEngine struct {
	minShotDimension int
}

// NewClusterEngine creates a ClusterEngine. Values <= 0 select the default
// minimum shot dimension.
func NewClusterEngine(minShotDimension int) *ClusterEngine {
	if minShotDimension <= 0 {
		minShotDimension = DefaultMinShotDimension
	}
	return &ClusterEngine{minShotDimension: minShotDimension}
}

// Label floods every hot pixel into a region and returns all regions in
// region-id order, including ones Accepts would discard. It sets
// Connectedness on the given pixels.
//
// Regions are seeded in input order. A hot neighbour that already belongs to
// another region is neither merged nor counted. The fill assigns every
// 8-connected pixel before the next seed is taken, so that case cannot occur
// and touching blobs always come out as one region.
func (e *ClusterEngine) Label(hot []Pixel) []*Cluster {
	byPoint := make(map[Point]*Pixel, len(hot))
	for i := range hot {
		hot[i].Connectedness = 0
		byPoint[hot[i].Point] = &hot[i]
	}

	regions := make(map[Point]int, len(hot))
	region := -1
	var clusters []*Cluster
	stack := make([]*Pixel, 0, 64)

	for i := range hot {
		seed := byPoint[hot[i].Point]
		if _, assigned := regions[seed.Point]; assigned {
			continue
		}

		region++
		regions[seed.Point] = region
		c := &Cluster{ID: region, members: make(map[Point]*Pixel)}

		stack = append(stack[:0], seed)
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			c.add(p)

			for _, d := range neighbours {
				n, ok := byPoint[p.Add(d)]
				if !ok {
					continue
				}
				id, assigned := regions[n.Point]
				switch {
				case !assigned:
					regions[n.Point] = region
					stack = append(stack, n)
					p.Connectedness++
				case id == region:
					p.Connectedness++
				}
			}
		}

		c.finish()
		clusters = append(clusters, c)
	}

	return clusters
}

// Accepts reports whether a region is large and dense enough to be a shot.
func (e *ClusterEngine) Accepts(c *Cluster) bool {
	if c.Size() < e.minShotDimension {
		return false
	}
	return c.MeanConnectedness >= MinMeanConnectedness
}

// Clusters returns the regions of hot that pass Accepts.
func (e *ClusterEngine) Clusters(hot []Pixel) []*Cluster {
	var accepted []*Cluster
	for _, c := range e.Label(hot) {
		if e.Accepts(c) {
			accepted = append(accepted, c)
		}
	}
	return accepted
}
