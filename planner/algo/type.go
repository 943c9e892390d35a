package algo

import (
	"fmt"
	"strings"
	"time"
)

// Axis is the coordinate used by the simplifier to decide whether two
// consecutive points lie on the same scan line.
type Axis int

const (
	AxisLatitude Axis = iota
	AxisLongitude
)

func (a Axis) String() string {
	switch a {
	case AxisLatitude:
		return "latitude"
	case AxisLongitude:
		return "longitude"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// ParseAxis accepts latitude/lat/y and longitude/lon/lng/x.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "latitude", "lat", "y":
		return AxisLatitude, nil
	case "longitude", "lon", "lng", "x":
		return AxisLongitude, nil
	default:
		return AxisLatitude, fmt.Errorf("unknown scan axis %q", s)
	}
}

type arc struct {
	to int
	w  float64
}

type TourOptions struct {
	// wall clock budget for 2-opt, 0 means DEFAULT_TIME_LIMIT, negative means unlimited
	TimeLimit time.Duration
	// maximum number of accepted 2-opt moves, 0 means until local optimum
	MaxPasses int
	// skip 2-opt entirely
	DisableRefinement bool
	// largest graph accepted, 0 means DEFAULT_MAX_NODES, negative means unlimited
	MaxNodes int
}

type Tour struct {
	// closed walk of node indices, consecutive nodes are adjacent in the graph
	Walk []int
	// closed Hamiltonian cycle over the metric closure the walk was expanded from
	Cycle []int
	// length of the walk
	Cost float64
	// 2-opt ran to completion
	Refined bool
	// 2-opt was abandoned and the unrefined cycle kept
	TimedOut bool
}
