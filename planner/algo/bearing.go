package algo

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
)

// Heading is the angle of the segment a->b in degrees, in (-180, 180].
//
// The arctangent takes the longitude delta first and the latitude delta second
// and applies no latitude scaling: 0 is north, 90 is east. It is a planar angle
// for a small area, not a compass bearing.
func Heading(a, b geometry.Point) (float64, error) {
	if a == b {
		return 0, ErrCoincidentPoints
	}
	r := math.Atan2(b.X-a.X, b.Y-a.Y)
	if r <= -math.Pi {
		r = math.Pi
	}
	return r * 180 / math.Pi, nil
}

// Headings returns one heading per consecutive pair. Less than two points is a
// caller defect.
func Headings(points []geometry.Point) ([]float64, error) {
	if len(points) < 2 {
		log.Panicf("headings need at least 2 points, got %d", len(points))
	}
	headings := make([]float64, len(points)-1)
	for i := 0; i+1 < len(points); i++ {
		h, err := Heading(points[i], points[i+1])
		if err != nil {
			return nil, err
		}
		headings[i] = h
	}
	return headings, nil
}
