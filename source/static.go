package source

import (
	"context"
	"fmt"
	"strings"

	"git.fiblab.net/sim/patrol/planner"
	"github.com/paulmach/orb"
)

type staticPlace struct {
	graph  *planner.RoadGraph
	center orb.Point
}

// Static serves fixed graphs from memory. Places are matched case
// insensitively. Add every place before the first fetch.
type Static struct {
	places map[string]staticPlace
}

func NewStatic() *Static {
	return &Static{places: make(map[string]staticPlace)}
}

func (s *Static) Add(place string, g *planner.RoadGraph, center orb.Point) *Static {
	s.places[normalizePlace(place)] = staticPlace{graph: g, center: center}
	return s
}

func (s *Static) FetchRoadGraph(ctx context.Context, place string) (*planner.RoadGraph, orb.Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, orb.Point{}, err
	}
	p, ok := s.places[normalizePlace(place)]
	if !ok {
		return nil, orb.Point{}, fmt.Errorf("%w: %q", ErrPlaceNotFound, place)
	}
	if p.graph == nil || (len(p.graph.Edges) == 0 && len(p.graph.Nodes) == 0) {
		return nil, orb.Point{}, fmt.Errorf("%w: %q", ErrNoNetworkData, place)
	}
	return p.graph, p.center, nil
}

func normalizePlace(place string) string {
	return strings.ToLower(strings.Join(strings.Fields(place), " "))
}
