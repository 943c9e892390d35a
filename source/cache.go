package source

import (
	"context"
	"errors"
	"time"

	"git.fiblab.net/sim/patrol/planner"
	"github.com/paulmach/orb"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/singleflight"
)

// Cached remembers fetched road graphs for TTL, in memory and in an optional
// persistent store. Concurrent fetches of one place share a single download,
// which is detached from the cancellation of the callers waiting on it.
// Cached graphs are shared between callers and must not be modified.
type Cached struct {
	// bound of one shared download, 0 means unbounded
	Timeout time.Duration

	source  GraphSource
	store   Store
	ttl     time.Duration
	entries *xsync.MapOf[string, *Entry]
	group   singleflight.Group
	now     func() time.Time
}

// NewCached wraps source. store may be nil, ttl <= 0 never expires.
func NewCached(source GraphSource, store Store, ttl time.Duration) *Cached {
	return &Cached{
		source:  source,
		store:   store,
		ttl:     ttl,
		entries: xsync.NewMapOf[string, *Entry](),
		now:     time.Now,
	}
}

func (c *Cached) fresh(e *Entry) bool {
	return e != nil && e.Graph != nil && (c.ttl <= 0 || c.now().Sub(e.FetchedAt) < c.ttl)
}

func (c *Cached) FetchRoadGraph(ctx context.Context, place string) (*planner.RoadGraph, orb.Point, error) {
	key := normalizePlace(place)
	if e, ok := c.entries.Load(key); ok && c.fresh(e) {
		return e.Graph, e.Center, nil
	}
	ch := c.group.DoChan(key, func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		if c.Timeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(fetchCtx, c.Timeout)
			defer cancel()
		}
		return c.load(fetchCtx, key, place)
	})
	select {
	case <-ctx.Done():
		// the download goes on and fills the cache for the others
		return nil, orb.Point{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, orb.Point{}, res.Err
		}
		if res.Shared {
			log.Debugf("shared fetch of %q", key)
		}
		e := res.Val.(*Entry)
		return e.Graph, e.Center, nil
	}
}

func (c *Cached) load(ctx context.Context, key, place string) (*Entry, error) {
	if c.store != nil {
		e, err := c.store.Load(ctx, key)
		switch {
		case err == nil && c.fresh(e):
			c.entries.Store(key, e)
			return e, nil
		case err != nil && !errors.Is(err, ErrCacheMiss):
			log.Warnf("load %q from store: %v", key, err)
		}
	}
	g, center, err := c.source.FetchRoadGraph(ctx, place)
	if err != nil {
		return nil, err
	}
	e := &Entry{Place: key, Center: center, Graph: g, FetchedAt: c.now()}
	c.entries.Store(key, e)
	if c.store != nil {
		if err := c.store.Save(ctx, e); err != nil {
			log.Warnf("save %q to store: %v", key, err)
		}
	}
	return e, nil
}

// Len is the number of graphs held in memory.
func (c *Cached) Len() int {
	return c.entries.Size()
}
