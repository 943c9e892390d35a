package planner

import (
	"github.com/paulmach/orb"
	"github.com/samber/lo"
)

// Anchor decides which end of a segment carries its arrow.
type Anchor int

const (
	AnchorOrigin Anchor = iota
	AnchorDestination
)

type MarkerKind string

const (
	MarkerArrow MarkerKind = "arrow"
	MarkerStart MarkerKind = "start"
	MarkerEnd   MarkerKind = "end"
)

type LineStyle struct {
	Color   string  `json:"color"`
	Weight  float64 `json:"weight"`
	Opacity float64 `json:"opacity"`
	// leaflet dash array, empty for a solid line
	DashArray string `json:"dashArray,omitempty"`
	// animated dash with arrow heads
	Animated bool `json:"animated,omitempty"`
}

type MarkerStyle struct {
	// font awesome icon name without the fa- prefix
	Icon string `json:"icon"`
	// font awesome size multiplier, 1x..5x
	Size  int    `json:"size"`
	Color string `json:"color"`
	Label string `json:"label,omitempty"`
	// fixed rotation in degrees, used by endpoint markers
	Rotation float64 `json:"rotation"`
}

// SceneStyle is the styling of one detail mode.
type SceneStyle struct {
	Road     LineStyle
	Route    LineStyle
	Segment  LineStyle
	Segments bool
	Arrow    MarkerStyle
	ArrowAt  Anchor
	Start    MarkerStyle
	End      MarkerStyle
	Zoom     int
}

// DefaultStyle returns the styling used by each detail mode.
func DefaultStyle(mode Mode) SceneStyle {
	road := LineStyle{Color: "blue", Weight: 2, Opacity: 0.6}
	if mode == ModeFull {
		return SceneStyle{
			Road:    road,
			Route:   LineStyle{Color: "red", Weight: 3, Opacity: 1},
			Arrow:   MarkerStyle{Icon: "arrow-up", Size: 3, Color: "red"},
			ArrowAt: AnchorDestination,
			Start:   MarkerStyle{Icon: "flag-checkered", Size: 3, Color: "red", Label: "Start", Rotation: 0},
			End:     MarkerStyle{Icon: "flag-checkered", Size: 3, Color: "red", Label: "End", Rotation: 180},
			Zoom:    14,
		}
	}
	return SceneStyle{
		Road:     road,
		Route:    LineStyle{Color: "red", Weight: 3, Opacity: 1},
		Segment:  LineStyle{Color: "red", Weight: 5, Opacity: 0.8, DashArray: "10, 20", Animated: true},
		Segments: true,
		Arrow:    MarkerStyle{Icon: "arrow-up", Size: 1, Color: "yellow"},
		ArrowAt:  AnchorOrigin,
		Start:    MarkerStyle{Icon: "flag", Size: 3, Color: "green", Label: "Start/End", Rotation: 0},
		End:      MarkerStyle{Icon: "arrow-up", Size: 3, Color: "yellow", Label: "Loop closes here", Rotation: 180},
		Zoom:     14,
	}
}

type Line struct {
	Points orb.LineString `json:"points"`
	Style  LineStyle      `json:"style"`
}

type Marker struct {
	Kind    MarkerKind  `json:"kind"`
	Point   orb.Point   `json:"point"`
	Heading float64     `json:"heading"` // icon rotation in degrees
	Style   MarkerStyle `json:"style"`
}

// Scene is everything the rendering sink draws for one route.
type Scene struct {
	Mode     Mode      `json:"-"`
	Center   orb.Point `json:"center"`
	Zoom     int       `json:"zoom"`
	Roads    []Line    `json:"roads"`
	Route    Line      `json:"route"`
	Segments []Line    `json:"segments,omitempty"` // per segment decorations over the route
	Arrows   []Marker  `json:"arrows"`
	Start    Marker    `json:"start"`
	End      Marker    `json:"end"`
}

// Compose assembles the scene of a route. It copies every coordinate it keeps
// and leaves its inputs untouched. headings must hold one entry per segment.
func Compose(g *RoadGraph, center orb.Point, points []orb.Point, headings []float64, mode Mode, style SceneStyle) *Scene {
	if len(points) < 2 || len(headings) != len(points)-1 {
		log.Panicf("compose needs one heading per segment, got %d points and %d headings", len(points), len(headings))
	}
	nodes := make(map[int64]orb.Point, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes[n.ID] = n.Point
	}
	scene := &Scene{
		Mode:   mode,
		Center: center,
		Zoom:   style.Zoom,
		Roads: lo.Map(g.Edges, func(e Edge, _ int) Line {
			return Line{Points: edgeLine(e, nodes), Style: style.Road}
		}),
		Route:  Line{Points: append(orb.LineString(nil), points...), Style: style.Route},
		Arrows: make([]Marker, 0, len(headings)),
	}
	for i, h := range headings {
		origin, destination := points[i], points[i+1]
		at := lo.Ternary(style.ArrowAt == AnchorDestination, destination, origin)
		scene.Arrows = append(scene.Arrows, Marker{Kind: MarkerArrow, Point: at, Heading: h, Style: style.Arrow})
		if style.Segments {
			scene.Segments = append(scene.Segments, Line{Points: orb.LineString{origin, destination}, Style: style.Segment})
		}
	}
	scene.Start = Marker{Kind: MarkerStart, Point: points[0], Heading: style.Start.Rotation, Style: style.Start}
	scene.End = Marker{Kind: MarkerEnd, Point: points[len(points)-1], Heading: style.End.Rotation, Style: style.End}
	return scene
}

func edgeLine(e Edge, nodes map[int64]orb.Point) orb.LineString {
	if len(e.Geometry) >= 2 {
		return e.Geometry.Clone()
	}
	return orb.LineString{nodes[e.U], nodes[e.V]}
}

// MarkerCount is the number of markers of the scene, arrows and endpoints.
func (s *Scene) MarkerCount() int {
	return len(s.Arrows) + 2
}
