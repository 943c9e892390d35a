// Package render turns a planner scene into a document: a self-contained
// Leaflet page or a GeoJSON feature collection.
package render

import (
	"git.fiblab.net/sim/patrol/planner"
)

// Renderer is the sink of the route pipeline.
type Renderer interface {
	Render(scene *planner.Scene) ([]byte, error)
	ContentType() string
}
