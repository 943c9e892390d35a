package render

import (
	"encoding/json"
	"fmt"

	"git.fiblab.net/sim/patrol/planner"
	"github.com/paulmach/orb/geojson"
)

const (
	LayerRoad    = "road"
	LayerRoute   = "route"
	LayerSegment = "segment"
	LayerArrow   = "arrow"
	LayerStart   = "start"
	LayerEnd     = "end"
)

type GeoJSON struct{}

func (GeoJSON) ContentType() string { return "application/geo+json" }

func (GeoJSON) Render(scene *planner.Scene) ([]byte, error) {
	b, err := json.Marshal(FeatureCollection(scene))
	if err != nil {
		return nil, fmt.Errorf("marshal scene: %w", err)
	}
	return b, nil
}

// FeatureCollection converts the scene into layered GeoJSON features. Line
// styles and marker icons travel in the feature properties.
func FeatureCollection(scene *planner.Scene) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, road := range scene.Roads {
		fc.Append(lineFeature(LayerRoad, road))
	}
	fc.Append(lineFeature(LayerRoute, scene.Route))
	for _, seg := range scene.Segments {
		fc.Append(lineFeature(LayerSegment, seg))
	}
	for i, arrow := range scene.Arrows {
		f := markerFeature(LayerArrow, arrow)
		f.Properties["segment"] = i
		fc.Append(f)
	}
	fc.Append(markerFeature(LayerStart, scene.Start))
	fc.Append(markerFeature(LayerEnd, scene.End))
	return fc
}

func lineFeature(layer string, line planner.Line) *geojson.Feature {
	f := geojson.NewFeature(line.Points)
	f.Properties["layer"] = layer
	f.Properties["color"] = line.Style.Color
	f.Properties["weight"] = line.Style.Weight
	f.Properties["opacity"] = line.Style.Opacity
	if line.Style.DashArray != "" {
		f.Properties["dashArray"] = line.Style.DashArray
	}
	if line.Style.Animated {
		f.Properties["animated"] = true
	}
	return f
}

func markerFeature(layer string, m planner.Marker) *geojson.Feature {
	f := geojson.NewFeature(m.Point)
	f.Properties["layer"] = layer
	f.Properties["kind"] = string(m.Kind)
	f.Properties["heading"] = m.Heading
	f.Properties["icon"] = m.Style.Icon
	f.Properties["size"] = m.Style.Size
	f.Properties["color"] = m.Style.Color
	if m.Style.Label != "" {
		f.Properties["label"] = m.Style.Label
	}
	return f
}
