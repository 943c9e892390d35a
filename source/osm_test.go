package source_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"git.fiblab.net/sim/patrol/source"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const overpassBlock = `{"elements":[
{"type":"node","id":1,"lat":0,"lon":0},
{"type":"node","id":5,"lat":0,"lon":0.0005},
{"type":"node","id":2,"lat":0,"lon":0.001},
{"type":"node","id":3,"lat":0.001,"lon":0.001},
{"type":"node","id":4,"lat":0.001,"lon":0},
{"type":"way","id":10,"nodes":[1,5,2,3],"tags":{"highway":"residential"}},
{"type":"way","id":11,"nodes":[3,4,1],"tags":{"highway":"tertiary"}}
]}`

type fakeOSM struct {
	*httptest.Server
	overpassCalls atomic.Int32
	overpassCode  int
	overpassBody  string
	lastQuery     atomic.Value
}

func newFakeOSM(t *testing.T, code int, body string) *fakeOSM {
	f := &fakeOSM{overpassCode: code, overpassBody: body}
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.UserAgent())
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		if !strings.Contains(r.URL.Query().Get("q"), "Centro") {
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`[{"osm_type":"relation","osm_id":42,"lat":"0.0005","lon":"0.0005",
			"boundingbox":["-0.001","0.002","-0.001","0.002"],"display_name":"Centro"}]`))
	})
	mux.HandleFunc("/interpreter", func(w http.ResponseWriter, r *http.Request) {
		f.overpassCalls.Add(1)
		f.lastQuery.Store(r.FormValue("data"))
		w.WriteHeader(f.overpassCode)
		w.Write([]byte(f.overpassBody))
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeOSM) source() *source.OSMSource {
	return source.NewOSMSource(f.URL, f.URL+"/interpreter", "patrol-test", 5*time.Second)
}

func TestOSMSourceFetch(t *testing.T) {
	f := newFakeOSM(t, http.StatusOK, overpassBlock)
	g, center, err := f.source().FetchRoadGraph(context.Background(), "Centro, São José dos Pinhais")
	require.NoError(t, err)
	assert.Equal(t, orb.Point{0.0005, 0.0005}, center)
	// two ways between the intersections 1 and 3
	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Edges, 2)
	query := f.lastQuery.Load().(string)
	assert.Contains(t, query, "area(3600000042)")
	assert.Contains(t, query, `["highway"]`)
}

func TestOSMSourcePlaceNotFound(t *testing.T) {
	f := newFakeOSM(t, http.StatusOK, overpassBlock)
	_, _, err := f.source().FetchRoadGraph(context.Background(), "Nowhere, Atlantis")
	assert.ErrorIs(t, err, source.ErrPlaceNotFound)
	assert.Zero(t, f.overpassCalls.Load())

	_, _, err = f.source().FetchRoadGraph(context.Background(), "  ")
	assert.ErrorIs(t, err, source.ErrPlaceNotFound)
}

func TestOSMSourceUnavailable(t *testing.T) {
	f := newFakeOSM(t, http.StatusServiceUnavailable, "busy")
	_, _, err := f.source().FetchRoadGraph(context.Background(), "Centro")
	assert.ErrorIs(t, err, source.ErrUnavailable)

	f = newFakeOSM(t, http.StatusOK, "{not json")
	_, _, err = f.source().FetchRoadGraph(context.Background(), "Centro")
	assert.ErrorIs(t, err, source.ErrUnavailable)
}

func TestOSMSourceNoNetwork(t *testing.T) {
	f := newFakeOSM(t, http.StatusOK, `{"elements":[
{"type":"node","id":1,"lat":0,"lon":0},
{"type":"node","id":2,"lat":0,"lon":0.001},
{"type":"way","id":10,"nodes":[1,2],"tags":{"highway":"footway"}}]}`)
	_, _, err := f.source().FetchRoadGraph(context.Background(), "Centro")
	assert.ErrorIs(t, err, source.ErrNoNetworkData)
}

func TestOSMSourceCanceled(t *testing.T) {
	f := newFakeOSM(t, http.StatusOK, overpassBlock)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := f.source().FetchRoadGraph(ctx, "Centro")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, source.ErrUnavailable)
}

func TestPlace(t *testing.T) {
	assert.Equal(t, "Centro, Curitiba", source.Place("Centro", "Curitiba"))
	assert.Equal(t, "Curitiba", source.Place("", "Curitiba"))
	assert.Equal(t, "Centro", source.Place("Centro", ""))
}
