package source

import (
	"context"
	"errors"
	"time"

	"git.fiblab.net/sim/patrol/planner"
	"github.com/paulmach/orb"
)

// Retry repeats a fetch once after Backoff when the source was unavailable.
// Other errors are returned as they are.
type Retry struct {
	Source  GraphSource
	Backoff time.Duration
}

func (r *Retry) FetchRoadGraph(ctx context.Context, place string) (*planner.RoadGraph, orb.Point, error) {
	g, center, err := r.Source.FetchRoadGraph(ctx, place)
	if err == nil || !errors.Is(err, ErrUnavailable) {
		return g, center, err
	}
	log.Warnf("fetch %q failed, retrying in %v: %v", place, r.Backoff, err)
	t := time.NewTimer(r.Backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return nil, orb.Point{}, err
	case <-t.C:
	}
	return r.Source.FetchRoadGraph(ctx, place)
}
