package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	"git.fiblab.net/sim/patrol/planner"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// HTML renders a standalone Leaflet map page.
type HTML struct {
	Title string
}

func (HTML) ContentType() string { return "text/html; charset=utf-8" }

type mapPage struct {
	Title  string
	Lat    float64
	Lon    float64
	Zoom   int
	Scene  template.JS
	Mode   string
	Arrows int
}

func (h HTML) Render(scene *planner.Scene) ([]byte, error) {
	fc, err := json.Marshal(FeatureCollection(scene))
	if err != nil {
		return nil, fmt.Errorf("marshal scene: %w", err)
	}
	page := mapPage{
		Title:  h.Title,
		Lat:    scene.Center.Lat(),
		Lon:    scene.Center.Lon(),
		Zoom:   scene.Zoom,
		Scene:  template.JS(fc),
		Mode:   scene.Mode.String(),
		Arrows: len(scene.Arrows),
	}
	if page.Title == "" {
		page.Title = "Patrol route"
	}
	if page.Zoom == 0 {
		page.Zoom = 14
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "map.html", page); err != nil {
		return nil, fmt.Errorf("execute map template: %w", err)
	}
	return buf.Bytes(), nil
}

type indexPage struct {
	Cities []string
	Error  string
}

// Index writes the city and neighborhood selection form.
func Index(w io.Writer, cities []string, errMsg string) error {
	return templates.ExecuteTemplate(w, "index.html", indexPage{Cities: cities, Error: errMsg})
}
