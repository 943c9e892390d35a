package planner

import (
	"fmt"
	"math"
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/sim/patrol/planner/algo"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

func toPoint(p orb.Point) geometry.Point {
	return geometry.Point{X: p.Lon(), Y: p.Lat()}
}

func fromPoint(p geometry.Point) orb.Point {
	return orb.Point{p.X, p.Y}
}

func validCoordinate(p orb.Point) bool {
	lon, lat := p.Lon(), p.Lat()
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// EdgeLength is the edge length in meters, falling back to the haversine
// length of its geometry or of the straight segment between its nodes.
func EdgeLength(e Edge, u, v orb.Point) float64 {
	if e.Length > 0 {
		return e.Length
	}
	if len(e.Geometry) >= 2 {
		return geo.LengthHaversign(e.Geometry)
	}
	return geo.DistanceHaversine(u, v)
}

// buildSearchGraph validates g and converts it into the indexed search graph.
// Nodes are indexed in ascending ID order, which is the tie-breaking rule of
// the tour builder.
func buildSearchGraph(g *RoadGraph) (*algo.Graph, error) {
	if g == nil {
		return algo.NewGraph(0), nil
	}
	nodes := append([]Node(nil), g.Nodes...)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	sg := algo.NewGraph(len(nodes))
	index := make(map[int64]int, len(nodes))
	for _, n := range nodes {
		if _, ok := index[n.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate node %d", ErrInvalidGraph, n.ID)
		}
		if !validCoordinate(n.Point) {
			return nil, fmt.Errorf("%w: node %d has invalid coordinate %v", ErrInvalidGraph, n.ID, n.Point)
		}
		index[n.ID] = sg.InitNode(n.ID, toPoint(n.Point))
	}
	for i, e := range g.Edges {
		u, okU := index[e.U]
		v, okV := index[e.V]
		if !okU || !okV {
			return nil, fmt.Errorf("%w: edge %d (%d-%d) references a missing node", ErrInvalidGraph, i, e.U, e.V)
		}
		if u == v {
			return nil, fmt.Errorf("%w: edge %d is a self loop on node %d", ErrInvalidGraph, i, e.U)
		}
		w := EdgeLength(e, nodes[u].Point, nodes[v].Point)
		if math.IsNaN(w) || w < 0 {
			return nil, fmt.Errorf("%w: edge %d has invalid length %v", ErrInvalidGraph, i, w)
		}
		sg.InitEdge(u, v, w)
	}
	return sg, nil
}
