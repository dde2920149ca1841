package detector

// Point is a pixel coordinate. It is the only identity a Pixel has and the
// key for every pixel set and map in this package.
type Point struct {
	X int
	Y int
}

// neighbours lists the 8-connected offsets in scan order.
var neighbours = [8]Point{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// Add returns p translated by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// In reports whether p lies in [0,width) x [0,height).
func (p Point) In(width, height int) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < width && p.Y < height
}

// Pixel is a hot pixel captured during a scan. Only Point takes part in
// equality; the rest is payload.
type Pixel struct {
	Point

	R, G, B uint8
	Lum     int

	// Background averages at capture time.
	AvgLum       int
	AvgColorDiff int

	// Connectedness is the number of same-region 8-neighbours, 0..8.
	// It is filled in by the cluster engine.
	Connectedness int
}

// Key returns the pixel's identity.
func (p *Pixel) Key() Point {
	return p.Point
}

// Equal reports whether two pixels share a coordinate.
func (p *Pixel) Equal(o *Pixel) bool {
	return p.Point == o.Point
}
