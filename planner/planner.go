package planner

import (
	"context"
	"fmt"
	"time"

	"git.fiblab.net/sim/patrol/planner/algo"
	"github.com/paulmach/orb"
	"github.com/samber/lo"
)

type Config struct {
	// scan axis of the simplifier
	Axis algo.Axis
	// tour builder budget
	Tour algo.TourOptions
	// per mode styling, DefaultStyle when absent
	Styles map[Mode]SceneStyle
}

// Planner runs the route pipeline. It only holds immutable configuration and
// is safe for concurrent use.
type Planner struct {
	cfg Config
}

func New(cfg Config) *Planner {
	return &Planner{cfg: cfg}
}

func (p *Planner) style(mode Mode) SceneStyle {
	if s, ok := p.cfg.Styles[mode]; ok {
		return s
	}
	return DefaultStyle(mode)
}

// Plan builds the closed tour of g, reduces it to the waypoints of mode,
// computes the segment headings and composes the scene.
// Every error is a *StageError naming the failing stage.
func (p *Planner) Plan(ctx context.Context, g *RoadGraph, center orb.Point, mode Mode) (res *Result, err error) {
	stage := StageTour
	// panic recover
	defer func() {
		if e := recover(); e != nil {
			res = nil
			err = &StageError{Stage: stage, Err: fmt.Errorf("%w: %v", ErrInternal, e)}
			log.Errorln(err)
		}
	}()
	res = &Result{Mode: mode, Timings: make(map[Stage]time.Duration, 4)}
	lap := time.Now()
	done := func(s Stage) {
		now := time.Now()
		res.Timings[s] = now.Sub(lap)
		lap = now
	}

	sg, err := buildSearchGraph(g)
	if err != nil {
		return nil, Wrap(stage, err)
	}
	tour, err := sg.BuildTour(ctx, p.cfg.Tour)
	if err != nil {
		return nil, Wrap(stage, err)
	}
	res.Tour = sg.IDs(tour.Walk)
	res.Cost = tour.Cost
	res.Refined = tour.Refined
	res.TimedOut = tour.TimedOut
	done(StageTour)
	log.Debugf("tour over %d nodes: %d steps, %.1f m, refined=%v", sg.Len(), len(tour.Walk), tour.Cost, tour.Refined)

	stage = StageSimplify
	points := sg.Points(tour.Walk)
	var kept []int
	if mode == ModeFull {
		kept, err = algo.Dedupe(points)
	} else {
		kept, err = algo.Simplify(points, p.cfg.Axis)
	}
	if err != nil {
		return nil, Wrap(stage, err)
	}
	waypoints := lo.Map(kept, func(i int, _ int) int { return tour.Walk[i] })
	res.Waypoints = sg.IDs(waypoints)
	res.WaypointPoints = lo.Map(kept, func(i int, _ int) orb.Point { return fromPoint(points[i]) })
	done(StageSimplify)

	stage = StageBearing
	res.Headings, err = algo.Headings(sg.Points(waypoints))
	if err != nil {
		return nil, Wrap(stage, err)
	}
	done(StageBearing)

	stage = StageCompose
	res.Scene = Compose(g, center, res.WaypointPoints, res.Headings, mode, p.style(mode))
	done(StageCompose)
	return res, nil
}
