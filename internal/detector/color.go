package detector

import "math"

// Reference laser colors.
var (
	red   = [3]uint8{255, 0, 0}
	green = [3]uint8{0, 255, 0}
)

// Luminance returns the HSV value (brightest channel) of a color, 0..255.
func Luminance(r, g, b uint8) int {
	return int(max(r, g, b))
}

// ColorDistance is the "redmean" weighted RGB distance between two colors.
// It tracks perceived difference better than plain Euclidean RGB and only
// needs integer arithmetic before the square root.
func ColorDistance(r1, g1, b1, r2, g2, b2 uint8) float64 {
	rmean := (int(r1) + int(r2)) / 2
	r := int(r1) - int(r2)
	g := int(g1) - int(g2)
	b := int(b1) - int(b2)
	return math.Sqrt(float64((((512 + rmean) * r * r) >> 8) + 4*g*g + (((767 - rmean) * b * b) >> 8)))
}

// RedDistance returns the distance of a color from pure red.
func RedDistance(r, g, b uint8) float64 {
	return ColorDistance(r, g, b, red[0], red[1], red[2])
}

// GreenDistance returns the distance of a color from pure green.
func GreenDistance(r, g, b uint8) float64 {
	return ColorDistance(r, g, b, green[0], green[1], green[2])
}

// RedGreenBias returns RedDistance - GreenDistance. Negative values lean red,
// positive values lean green.
func RedGreenBias(r, g, b uint8) float64 {
	return RedDistance(r, g, b) - GreenDistance(r, g, b)
}
