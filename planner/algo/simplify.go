package algo

import "git.fiblab.net/general/common/v2/geometry"

func axisValue(p geometry.Point, axis Axis) float64 {
	if axis == AxisLongitude {
		return p.X
	}
	return p.Y
}

// Simplify keeps the first point and every later point whose scan axis value
// differs from the last kept point, then closes the loop on the first point.
// It returns indices into points. The closing leg is the only pair of
// consecutive kept points allowed to share the axis value.
func Simplify(points []geometry.Point, axis Axis) ([]int, error) {
	if len(points) == 0 {
		return nil, ErrDegenerateTour
	}
	kept := make([]int, 1, len(points))
	axisVal := axisValue(points[0], axis)
	for i := 1; i < len(points); i++ {
		if v := axisValue(points[i], axis); v != axisVal {
			axisVal = v
			kept = append(kept, i)
		}
	}
	return closeLoop(points, kept)
}

// Dedupe is the identity transform used when simplification is bypassed,
// except that consecutive coincident points are collapsed.
func Dedupe(points []geometry.Point) ([]int, error) {
	if len(points) == 0 {
		return nil, ErrDegenerateTour
	}
	kept := make([]int, 1, len(points))
	for i := 1; i < len(points); i++ {
		if points[i] != points[kept[len(kept)-1]] {
			kept = append(kept, i)
		}
	}
	return closeLoop(points, kept)
}

func closeLoop(points []geometry.Point, kept []int) ([]int, error) {
	if points[kept[len(kept)-1]] != points[kept[0]] {
		// a closed tour re-appends its own last point so indices stay increasing
		if last := len(points) - 1; points[last] == points[kept[0]] {
			kept = append(kept, last)
		} else {
			kept = append(kept, kept[0])
		}
	}
	// at least one point besides the start
	if len(kept) < 3 {
		return nil, ErrDegenerateTour
	}
	return kept, nil
}
