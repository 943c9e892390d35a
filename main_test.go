package main

import (
	"context"
	"math/rand"
	"testing"

	"git.fiblab.net/sim/patrol/planner"
	"github.com/paulmach/orb"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

// randomGraph thins a grid by dropping edges at random; the result may be
// disconnected.
func randomGraph(seed int64, rows, cols uint8, keep float64) *planner.RoadGraph {
	g := gridGraph(int(rows%8)+1, int(cols%8)+1, 0.001, orb.Point{-49.2, -25.5})
	e := rand.New(rand.NewSource(seed))
	g.Edges = lo.Filter(g.Edges, func(planner.Edge, int) bool { return e.Float64() < keep })
	return g
}

func FuzzPlanner(f *testing.F) {
	p := planner.New(planner.Config{})
	f.Add(int64(1), uint8(3), uint8(3), 1.0, false)
	f.Add(int64(2), uint8(5), uint8(2), 0.7, true)
	f.Add(int64(3), uint8(0), uint8(0), 1.0, false)

	f.Fuzz(func(t *testing.T, seed int64, rows, cols uint8, keep float64, full bool) {
		g := randomGraph(seed, rows, cols, keep)
		mode := lo.Ternary(full, planner.ModeFull, planner.ModeSimplified)
		res, err := p.Plan(context.Background(), g, orb.Point{-49.2, -25.5}, mode)
		// exactly one of them is nil
		assert.True(t, (res == nil) != (err == nil))
		if err != nil {
			_, ok := planner.StageOf(err)
			assert.True(t, ok, "untagged error %v", err)
			return
		}
		assert.Equal(t, res.Tour[0], res.Tour[len(res.Tour)-1])
		assert.ElementsMatch(t,
			lo.Map(g.Nodes, func(n planner.Node, _ int) int64 { return n.ID }),
			lo.Uniq(res.Tour))
		assert.Equal(t, res.Waypoints[0], res.Waypoints[len(res.Waypoints)-1])
		assert.Len(t, res.Headings, len(res.Waypoints)-1)
		for _, h := range res.Headings {
			assert.True(t, h > -180 && h <= 180, "heading %v", h)
		}
		assert.Len(t, res.Scene.Arrows, len(res.Headings))
	})
}
