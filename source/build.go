package source

import (
	"fmt"
	"sort"
	"strings"

	"git.fiblab.net/sim/patrol/planner"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/osm"
	"github.com/samber/lo"
)

var (
	excludedHighways = []string{
		"abandoned", "bridleway", "bus_guideway", "construction", "corridor", "cycleway",
		"elevator", "escalator", "footway", "no", "path", "pedestrian", "planned", "platform",
		"proposed", "raceway", "razed", "service", "steps", "track",
	}
	excludedServices = []string{
		"alley", "driveway", "emergency_access", "parking", "parking_aisle", "private",
	}
)

// matches is the Overpass `!~` test negated: an unanchored search for any alternative.
func matches(value string, alternatives ...string) bool {
	return lo.SomeBy(alternatives, func(a string) bool { return strings.Contains(value, a) })
}

// drivable mirrors driveFilter for data that did not come through it.
func drivable(tags osm.Tags) bool {
	highway := tags.Find("highway")
	if highway == "" {
		return false
	}
	return !matches(highway, excludedHighways...) &&
		!matches(tags.Find("service"), excludedServices...) &&
		!matches(tags.Find("area"), "yes") &&
		!matches(tags.Find("access"), "private") &&
		!matches(tags.Find("motor_vehicle"), "no") &&
		!matches(tags.Find("motorcar"), "no")
}

// BuildRoadGraph turns OSM ways into an undirected road graph. Intersections
// and way ends become nodes, the way runs between them become edges carrying
// their geometry. Only the largest connected component is kept.
func BuildRoadGraph(o *osm.OSM) (*planner.RoadGraph, error) {
	coords := make(map[osm.NodeID]orb.Point, len(o.Nodes))
	for _, n := range o.Nodes {
		coords[n.ID] = n.Point()
	}
	ways := lo.Filter(o.Ways, func(w *osm.Way, _ int) bool { return drivable(w.Tags) })

	// a node shared by two ways, or used twice by one, is an intersection
	uses := make(map[osm.NodeID]int)
	for _, w := range ways {
		for i, wn := range w.Nodes {
			if _, ok := coords[wn.ID]; !ok {
				continue
			}
			uses[wn.ID]++
			if i == 0 || i == len(w.Nodes)-1 {
				uses[wn.ID]++
			}
		}
	}

	g := &planner.RoadGraph{}
	emit := func(u, v osm.NodeID, line orb.LineString) {
		if u == v || len(line) < 2 {
			return
		}
		g.Edges = append(g.Edges, planner.Edge{
			U:        int64(u),
			V:        int64(v),
			Length:   geo.LengthHaversign(line),
			Geometry: line,
		})
	}
	for _, w := range ways {
		var (
			start, prev osm.NodeID
			line        orb.LineString
		)
		for _, wn := range w.Nodes {
			p, ok := coords[wn.ID]
			if !ok {
				// cut by the download area, the run ends at a dead end
				emit(start, prev, line)
				line = nil
				continue
			}
			prev = wn.ID
			if line == nil {
				start, line = wn.ID, orb.LineString{p}
				continue
			}
			line = append(line, p)
			if uses[wn.ID] < 2 {
				continue
			}
			emit(start, wn.ID, line)
			start, line = wn.ID, orb.LineString{p}
		}
	}
	if len(g.Edges) == 0 {
		return nil, fmt.Errorf("%w: %d ways, none drivable", ErrNoNetworkData, len(o.Ways))
	}
	keep := largestComponent(g.Edges)
	g.Edges = lo.Filter(g.Edges, func(e planner.Edge, _ int) bool { return keep[e.U] })
	ids := lo.Keys(keep)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	g.Nodes = lo.Map(ids, func(id int64, _ int) planner.Node {
		return planner.Node{ID: id, Point: coords[osm.NodeID(id)]}
	})
	return g, nil
}

// largestComponent returns the node set of the biggest connected component,
// the one holding the smallest node ID on ties.
func largestComponent(edges []planner.Edge) map[int64]bool {
	adj := make(map[int64][]int64)
	for _, e := range edges {
		adj[e.U] = append(adj[e.U], e.V)
		adj[e.V] = append(adj[e.V], e.U)
	}
	ids := lo.Keys(adj)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	seen := make(map[int64]bool, len(ids))
	var best map[int64]bool
	for _, root := range ids {
		if seen[root] {
			continue
		}
		comp := map[int64]bool{root: true}
		seen[root] = true
		stack := []int64{root}
		for len(stack) > 0 {
			u := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, v := range adj[u] {
				if !seen[v] {
					seen[v] = true
					comp[v] = true
					stack = append(stack, v)
				}
			}
		}
		if len(comp) > len(best) {
			best = comp
		}
	}
	return best
}
