package planner

import (
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// RoadGraph is the undirected drivable street network of one place.
// Points are orb points, i.e. [lon, lat].
type RoadGraph struct {
	Nodes []Node `json:"nodes" bson:"nodes"`
	Edges []Edge `json:"edges" bson:"edges"`
}

type Node struct {
	ID    int64     `json:"id" bson:"id"`
	Point orb.Point `json:"point" bson:"point"`
}

type Edge struct {
	U int64 `json:"u" bson:"u"`
	V int64 `json:"v" bson:"v"`
	// meters, recomputed from the geometry when not positive
	Length float64 `json:"length" bson:"length"`
	// physical path from U to V, may be empty for a straight segment
	Geometry orb.LineString `json:"geometry,omitempty" bson:"geometry,omitempty"`
}

// Mode selects between the simplified annotated route and the every-node route.
type Mode int

const (
	ModeSimplified Mode = iota
	ModeFull
)

func (m Mode) String() string {
	switch m {
	case ModeSimplified:
		return "simplified"
	case ModeFull:
		return "full"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "simplified", "annotated":
		return ModeSimplified, nil
	case "full", "every-node", "detail":
		return ModeFull, nil
	default:
		return ModeSimplified, fmt.Errorf("unknown mode %q", s)
	}
}

// Result of one pipeline run.
type Result struct {
	Mode Mode
	// closed walk of node IDs
	Tour []int64
	// node IDs and coordinates of the retained waypoints, closed
	Waypoints      []int64
	WaypointPoints []orb.Point
	// one heading per waypoint segment
	Headings []float64
	// tour length in meters
	Cost     float64
	Refined  bool
	TimedOut bool
	Scene    *Scene
	Timings  map[Stage]time.Duration
}
