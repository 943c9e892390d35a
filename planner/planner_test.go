package planner_test

import (
	"context"
	"testing"

	"git.fiblab.net/sim/patrol/planner"
	"git.fiblab.net/sim/patrol/planner/algo"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// square is the 4-cycle over (lat, lon) corners (0,0) (0,1) (1,1) (1,0).
func square() *planner.RoadGraph {
	return &planner.RoadGraph{
		Nodes: []planner.Node{
			{ID: 3, Point: orb.Point{1, 1}},
			{ID: 1, Point: orb.Point{0, 0}},
			{ID: 4, Point: orb.Point{0, 1}},
			{ID: 2, Point: orb.Point{1, 0}},
		},
		Edges: []planner.Edge{
			{U: 1, V: 2, Length: 1},
			{U: 2, V: 3, Length: 1},
			{U: 3, V: 4, Length: 1},
			{U: 4, V: 1, Length: 1},
		},
	}
}

// grid builds a rows x cols lattice of 0.001 degree cells, lengths from coordinates.
func grid(rows, cols int) *planner.RoadGraph {
	g := &planner.RoadGraph{}
	id := func(r, c int) int64 { return int64(1000 + r*cols + c) }
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			g.Nodes = append(g.Nodes, planner.Node{ID: id(r, c), Point: orb.Point{-49.2 + 0.001*float64(c), -25.5 + 0.001*float64(r)}})
			if c+1 < cols {
				g.Edges = append(g.Edges, planner.Edge{U: id(r, c), V: id(r, c+1)})
			}
			if r+1 < rows {
				g.Edges = append(g.Edges, planner.Edge{U: id(r, c), V: id(r+1, c)})
			}
		}
	}
	return g
}

func TestPlanSquareFull(t *testing.T) {
	p := planner.New(planner.Config{})
	res, err := p.Plan(context.Background(), square(), orb.Point{0.5, 0.5}, planner.ModeFull)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 3, 4, 1}, res.Tour)
	assert.Equal(t, res.Tour, res.Waypoints)
	assert.Equal(t, 4.0, res.Cost)
	assert.InDeltaSlice(t, []float64{90, 0, -90, 180}, res.Headings, 1e-9)

	scene := res.Scene
	assert.Len(t, scene.Roads, 4)
	assert.Len(t, scene.Arrows, len(res.WaypointPoints)-1)
	assert.Equal(t, 6, scene.MarkerCount())
	// full mode puts arrows on the segment destination
	assert.Equal(t, res.WaypointPoints[1], scene.Arrows[0].Point)
	assert.Empty(t, scene.Segments)
	assert.Equal(t, scene.Start.Point, scene.End.Point)
	assert.NotEqual(t, scene.Start.Kind, scene.End.Kind)
	assert.Equal(t, orb.Point{0.5, 0.5}, scene.Center)
	assert.Contains(t, res.Timings, planner.StageTour)
}

func TestPlanSquareSimplified(t *testing.T) {
	p := planner.New(planner.Config{Axis: algo.AxisLatitude})
	res, err := p.Plan(context.Background(), square(), orb.Point{0.5, 0.5}, planner.ModeSimplified)
	require.NoError(t, err)

	// latitude 0,0,1,1,0 keeps corners 1 and 3
	assert.Equal(t, []int64{1, 3, 1}, res.Waypoints)
	assert.InDeltaSlice(t, []float64{45, -135}, res.Headings, 1e-9)
	assert.Len(t, res.Scene.Arrows, 2)
	assert.Len(t, res.Scene.Segments, 2)
	// simplified mode puts arrows on the segment origin
	assert.Equal(t, res.WaypointPoints[0], res.Scene.Arrows[0].Point)

	p = planner.New(planner.Config{Axis: algo.AxisLongitude})
	res, err = p.Plan(context.Background(), square(), orb.Point{0.5, 0.5}, planner.ModeSimplified)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 4, 1}, res.Waypoints)
	assert.Len(t, res.Headings, 3)
}

func TestPlanGrid(t *testing.T) {
	g := grid(5, 6)
	p := planner.New(planner.Config{})
	for _, mode := range []planner.Mode{planner.ModeSimplified, planner.ModeFull} {
		res, err := p.Plan(context.Background(), g, orb.Point{-49.2, -25.5}, mode)
		require.NoError(t, err)

		visited := make(map[int64]bool)
		for _, id := range res.Tour {
			visited[id] = true
		}
		assert.Len(t, visited, len(g.Nodes))
		assert.Equal(t, res.Tour[0], res.Tour[len(res.Tour)-1])
		assert.Equal(t, res.Waypoints[0], res.Waypoints[len(res.Waypoints)-1])
		assert.Len(t, res.Headings, len(res.Waypoints)-1)
		assert.Len(t, res.Scene.Roads, len(g.Edges))
		assert.Len(t, res.Scene.Arrows, len(res.Waypoints)-1)
		assert.Greater(t, res.Cost, 0.0)
		for _, h := range res.Headings {
			assert.Greater(t, h, -180.0)
			assert.LessOrEqual(t, h, 180.0)
		}
	}
}

func TestPlanDoesNotMutateInput(t *testing.T) {
	g := grid(3, 3)
	before := grid(3, 3)
	res, err := planner.New(planner.Config{}).Plan(context.Background(), g, orb.Point{}, planner.ModeFull)
	require.NoError(t, err)
	assert.Equal(t, before, g)

	// the scene owns its coordinates
	res.Scene.Route.Points[0] = orb.Point{9, 9}
	assert.NotEqual(t, orb.Point{9, 9}, res.WaypointPoints[0])
}

func TestPlanErrors(t *testing.T) {
	p := planner.New(planner.Config{})
	ctx := context.Background()

	_, err := p.Plan(ctx, &planner.RoadGraph{}, orb.Point{}, planner.ModeFull)
	assert.ErrorIs(t, err, planner.ErrEmptyGraph)
	stage, ok := planner.StageOf(err)
	assert.True(t, ok)
	assert.Equal(t, planner.StageTour, stage)

	disconnected := &planner.RoadGraph{
		Nodes: []planner.Node{{ID: 1, Point: orb.Point{0, 0}}, {ID: 2, Point: orb.Point{0, 1}}, {ID: 3, Point: orb.Point{1, 0}}, {ID: 4, Point: orb.Point{1, 1}}},
		Edges: []planner.Edge{{U: 1, V: 2, Length: 1}, {U: 3, V: 4, Length: 1}},
	}
	res, err := p.Plan(ctx, disconnected, orb.Point{}, planner.ModeSimplified)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, planner.ErrDisconnectedGraph)

	invalid := square()
	invalid.Edges = append(invalid.Edges, planner.Edge{U: 1, V: 99})
	_, err = p.Plan(ctx, invalid, orb.Point{}, planner.ModeFull)
	assert.ErrorIs(t, err, planner.ErrInvalidGraph)

	invalid = square()
	invalid.Nodes[0].Point = orb.Point{200, 0}
	_, err = p.Plan(ctx, invalid, orb.Point{}, planner.ModeFull)
	assert.ErrorIs(t, err, planner.ErrInvalidGraph)

	// a straight east-west street has a constant latitude
	street := &planner.RoadGraph{
		Nodes: []planner.Node{{ID: 1, Point: orb.Point{0, 5}}, {ID: 2, Point: orb.Point{1, 5}}, {ID: 3, Point: orb.Point{2, 5}}},
		Edges: []planner.Edge{{U: 1, V: 2}, {U: 2, V: 3}},
	}
	_, err = p.Plan(ctx, street, orb.Point{}, planner.ModeSimplified)
	assert.ErrorIs(t, err, planner.ErrDegenerateTour)
	stage, _ = planner.StageOf(err)
	assert.Equal(t, planner.StageSimplify, stage)

	// the same street in full mode keeps every node
	res, err = p.Plan(ctx, street, orb.Point{}, planner.ModeFull)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 2, 1}, res.Waypoints)

	// a single node cannot form a route
	_, err = p.Plan(ctx, &planner.RoadGraph{Nodes: []planner.Node{{ID: 1}}}, orb.Point{}, planner.ModeFull)
	assert.ErrorIs(t, err, planner.ErrDegenerateTour)
}

func TestPlanCoincidentNodes(t *testing.T) {
	// two distinct nodes at the same place are collapsed in full mode
	g := square()
	g.Nodes = append(g.Nodes, planner.Node{ID: 5, Point: orb.Point{1, 1}})
	g.Edges = append(g.Edges, planner.Edge{U: 3, V: 5, Length: 0.1})
	res, err := planner.New(planner.Config{}).Plan(context.Background(), g, orb.Point{}, planner.ModeFull)
	require.NoError(t, err)
	for i := 0; i+1 < len(res.WaypointPoints); i++ {
		assert.NotEqual(t, res.WaypointPoints[i], res.WaypointPoints[i+1])
	}
}

func TestStageError(t *testing.T) {
	err := planner.Wrap(planner.StageBearing, planner.ErrCoincidentPoints)
	assert.EqualError(t, err, "bearing stage: coincident consecutive points have no heading")
	// already tagged errors keep their stage
	again := planner.Wrap(planner.StageCompose, err)
	stage, _ := planner.StageOf(again)
	assert.Equal(t, planner.StageBearing, stage)
	assert.Nil(t, planner.Wrap(planner.StageTour, nil))
}

func TestParseMode(t *testing.T) {
	m, err := planner.ParseMode("full")
	require.NoError(t, err)
	assert.Equal(t, planner.ModeFull, m)
	m, err = planner.ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, planner.ModeSimplified, m)
	_, err = planner.ParseMode("sideways")
	assert.Error(t, err)
}
