package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"connectrpc.com/connect"
	"git.fiblab.net/sim/patrol/planner"
	"git.fiblab.net/sim/patrol/source"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
)

var (
	benchmarkCount   = flag.Int("benchmark.count", 100, "the random route count for benchmark")
	benchmarkMinSide = flag.Int("benchmark.min_side", 3, "the smallest grid side for benchmark")
	benchmarkMaxSide = flag.Int("benchmark.max_side", 12, "the largest grid side for benchmark")
	benchmarkSeed    = flag.Int64("benchmark.seed", 0, "the seed for benchmark")
	benchmarkCPU     = flag.Int("benchmark.cpu", 1, "the cpu count for benchmark")
)

// gridGraph is a rows x cols street lattice with cells of step degrees whose
// south west corner is origin. Edge lengths are left to the planner.
func gridGraph(rows, cols int, step float64, origin orb.Point) *planner.RoadGraph {
	g := &planner.RoadGraph{}
	id := func(r, c int) int64 { return int64(r*cols + c + 1) }
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			g.Nodes = append(g.Nodes, planner.Node{
				ID:    id(r, c),
				Point: orb.Point{origin.Lon() + step*float64(c), origin.Lat() + step*float64(r)},
			})
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

// runBenchmark plans routes over random synthetic neighborhoods through the
// whole request path.
func runBenchmark(p *planner.Planner, catalog *Catalog) {
	log.Logger.SetLevel(logrus.WarnLevel)
	e := rand.New(rand.NewSource(*benchmarkSeed))
	span := *benchmarkMaxSide - *benchmarkMinSide + 1
	if span < 1 {
		log.Fatalf("invalid benchmark grid sides [%d, %d]", *benchmarkMinSide, *benchmarkMaxSide)
	}
	static := source.NewStatic()
	reqs := make([]*connect.Request[PlanRouteRequest], *benchmarkCount)
	for i := range reqs {
		rows, cols := *benchmarkMinSide+e.Intn(span), *benchmarkMinSide+e.Intn(span)
		origin := orb.Point{-49.2 + e.Float64()*0.1, -25.5 + e.Float64()*0.1}
		place := fmt.Sprintf("grid %d", i)
		static.Add(place, gridGraph(rows, cols, 0.001, origin), origin)
		mode := "simplified"
		if e.Intn(2) == 0 {
			mode = "full"
		}
		reqs[i] = connect.NewRequest(&PlanRouteRequest{Place: place, Mode: mode})
	}
	server := NewPatrolServer(static, p, catalog, 0)

	start := time.Now()
	var wg sync.WaitGroup
	var success atomic.Int32
	run := func(req *connect.Request[PlanRouteRequest]) {
		res, err := server.PlanRoute(context.Background(), req)
		if err != nil {
			log.Error("benchmark failed, err:", err)
			return
		}
		if len(res.Msg.Waypoints) > 0 {
			success.Add(1)
		}
	}
	if *benchmarkCPU == 1 {
		for _, req := range reqs {
			run(req)
		}
	} else {
		runtime.GOMAXPROCS(*benchmarkCPU)
		wg.Add(len(reqs))
		for _, req := range reqs {
			go func(req *connect.Request[PlanRouteRequest]) {
				defer wg.Done()
				run(req)
			}(req)
		}
		wg.Wait()
	}
	timeCost := time.Since(start) * time.Duration(*benchmarkCPU)
	log.Error(
		"benchmark finished", "\n",
		"count:", *benchmarkCount, "\n",
		"time:", timeCost, "\n",
		"avg:", timeCost/time.Duration(max(*benchmarkCount, 1)), "\n",
		"success:", success.Load(), "\n",
		"outcomes:", server.Stats(), "\n",
	)
}
