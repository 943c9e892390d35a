package render_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"git.fiblab.net/sim/patrol/planner"
	"git.fiblab.net/sim/patrol/render"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func squareScene(mode planner.Mode) *planner.Scene {
	g := &planner.RoadGraph{
		Nodes: []planner.Node{
			{ID: 1, Point: orb.Point{0, 0}},
			{ID: 2, Point: orb.Point{1, 0}},
			{ID: 3, Point: orb.Point{1, 1}},
			{ID: 4, Point: orb.Point{0, 1}},
		},
		Edges: []planner.Edge{
			{U: 1, V: 2, Length: 1, Geometry: orb.LineString{{0, 0}, {0.5, 0.1}, {1, 0}}},
			{U: 2, V: 3, Length: 1},
			{U: 3, V: 4, Length: 1},
			{U: 4, V: 1, Length: 1},
		},
	}
	points := []orb.Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}
	return planner.Compose(g, orb.Point{0.5, 0.5}, points, []float64{90, 0, -90, 180}, mode, planner.DefaultStyle(mode))
}

func layers(fc *geojson.FeatureCollection) map[string]int {
	count := make(map[string]int)
	for _, f := range fc.Features {
		count[f.Properties.MustString("layer")]++
	}
	return count
}

func TestFeatureCollection(t *testing.T) {
	fc := render.FeatureCollection(squareScene(planner.ModeFull))
	assert.Equal(t, map[string]int{
		render.LayerRoad:  4,
		render.LayerRoute: 1,
		render.LayerArrow: 4,
		render.LayerStart: 1,
		render.LayerEnd:   1,
	}, layers(fc))
	// road geometry is kept whole
	assert.Len(t, fc.Features[0].Geometry.(orb.LineString), 3)

	arrow := fc.Features[5]
	assert.Equal(t, render.LayerArrow, arrow.Properties["layer"])
	assert.Equal(t, orb.Point{1, 0}, arrow.Geometry)
	assert.Equal(t, 90.0, arrow.Properties["heading"])
	assert.Equal(t, "arrow-up", arrow.Properties["icon"])

	end := fc.Features[len(fc.Features)-1]
	assert.Equal(t, 180.0, end.Properties["heading"])
	assert.Equal(t, "flag-checkered", end.Properties["icon"])
}

func TestFeatureCollectionSimplified(t *testing.T) {
	fc := render.FeatureCollection(squareScene(planner.ModeSimplified))
	count := layers(fc)
	assert.Equal(t, 4, count[render.LayerSegment])
	assert.Equal(t, 4, count[render.LayerArrow])

	for _, f := range fc.Features {
		if f.Properties["layer"] == render.LayerSegment {
			assert.Equal(t, true, f.Properties["animated"])
			assert.Equal(t, "10, 20", f.Properties["dashArray"])
		}
	}
	// simplified arrows sit on the segment origin
	first := fc.Features[4+1+4]
	assert.Equal(t, render.LayerArrow, first.Properties["layer"])
	assert.Equal(t, orb.Point{0, 0}, first.Geometry)
}

func TestGeoJSONRender(t *testing.T) {
	sink := render.GeoJSON{}
	b, err := sink.Render(squareScene(planner.ModeFull))
	require.NoError(t, err)
	assert.Equal(t, "application/geo+json", sink.ContentType())

	fc, err := geojson.UnmarshalFeatureCollection(b)
	require.NoError(t, err)
	assert.Len(t, fc.Features, 11)
}

func TestHTMLRender(t *testing.T) {
	sink := render.HTML{Title: "Centro <Curitiba>"}
	b, err := sink.Render(squareScene(planner.ModeSimplified))
	require.NoError(t, err)
	page := string(b)
	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Contains(t, page, "<title>Centro &lt;Curitiba&gt;</title>")
	assert.Contains(t, page, "leaflet")
	assert.Contains(t, page, `data-arrows="4"`)
	assert.Contains(t, page, `data-mode="simplified"`)
	assert.Regexp(t, `setView\(\[\s*0\.5\s*,\s*0\.5\s*\],\s*14\s*\)`, page)

	// the scene travels as a parsable GeoJSON literal
	start := strings.Index(page, "var scene = ") + len("var scene = ")
	end := strings.Index(page[start:], ";\n")
	require.Greater(t, end, 0)
	var fc geojson.FeatureCollection
	require.NoError(t, json.Unmarshal([]byte(page[start:start+end]), &fc))
	assert.Len(t, fc.Features, 4+1+4+4+2)
}

func TestIndex(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render.Index(&buf, []string{"Curitiba", "São José dos Pinhais"}, "no route"))
	page := buf.String()
	assert.Contains(t, page, `<option value="Curitiba">Curitiba</option>`)
	assert.Contains(t, page, "São José dos Pinhais")
	assert.Contains(t, page, `<p class="error">no route</p>`)
	assert.Contains(t, page, `/neighborhoods?city=`)

	buf.Reset()
	require.NoError(t, render.Index(&buf, nil, ""))
	assert.NotContains(t, buf.String(), `class="error"`)
}
