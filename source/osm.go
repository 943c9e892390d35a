package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"git.fiblab.net/sim/patrol/planner"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	DefaultOverpassURL  = "https://overpass-api.de/api/interpreter"
	DefaultUserAgent    = "patrol-planner/1.0"

	// overpass area ids are offset osm ids
	relationAreaOffset = 3600000000
	wayAreaOffset      = 2400000000
)

// driveFilter selects the drivable public ways, the same set osmnx calls
// the "drive" network.
const driveFilter = `["highway"]["area"!~"yes"]["access"!~"private"]` +
	`["highway"!~"abandoned|bridleway|bus_guideway|construction|corridor|cycleway|elevator|escalator|footway|no|path|pedestrian|planned|platform|proposed|raceway|razed|service|steps|track"]` +
	`["motor_vehicle"!~"no"]["motorcar"!~"no"]` +
	`["service"!~"alley|driveway|emergency_access|parking|parking_aisle|private"]`

// OSMSource downloads road graphs from OpenStreetMap: the place is geocoded
// by Nominatim and its drivable ways are fetched from Overpass.
type OSMSource struct {
	Client       *http.Client
	NominatimURL string
	OverpassURL  string
	UserAgent    string
}

func NewOSMSource(nominatimURL, overpassURL, userAgent string, timeout time.Duration) *OSMSource {
	s := &OSMSource{
		Client:       &http.Client{Timeout: timeout},
		NominatimURL: strings.TrimRight(nominatimURL, "/"),
		OverpassURL:  overpassURL,
		UserAgent:    userAgent,
	}
	if s.NominatimURL == "" {
		s.NominatimURL = DefaultNominatimURL
	}
	if s.OverpassURL == "" {
		s.OverpassURL = DefaultOverpassURL
	}
	if s.UserAgent == "" {
		s.UserAgent = DefaultUserAgent
	}
	return s
}

// geocoded place
type geoPlace struct {
	Center  orb.Point
	Bound   orb.Bound
	OSMType string
	OSMID   int64
	Name    string
}

type nominatimResult struct {
	OSMType     string   `json:"osm_type"`
	OSMID       int64    `json:"osm_id"`
	Lat         string   `json:"lat"`
	Lon         string   `json:"lon"`
	BoundingBox []string `json:"boundingbox"`
	DisplayName string   `json:"display_name"`
}

func (s *OSMSource) FetchRoadGraph(ctx context.Context, place string) (*planner.RoadGraph, orb.Point, error) {
	p, err := s.geocode(ctx, place)
	if err != nil {
		return nil, orb.Point{}, err
	}
	log.Debugf("geocoded %q to %s %d (%s)", place, p.OSMType, p.OSMID, p.Name)
	data, err := s.overpass(ctx, overpassQuery(p))
	if err != nil {
		return nil, orb.Point{}, err
	}
	g, err := BuildRoadGraph(data)
	if err != nil {
		return nil, orb.Point{}, fmt.Errorf("%q: %w", place, err)
	}
	log.Infof("road graph of %q: %d nodes, %d edges", place, len(g.Nodes), len(g.Edges))
	return g, p.Center, nil
}

func (s *OSMSource) geocode(ctx context.Context, place string) (*geoPlace, error) {
	if strings.TrimSpace(place) == "" {
		return nil, fmt.Errorf("%w: empty place name", ErrPlaceNotFound)
	}
	q := url.Values{}
	q.Set("q", place)
	q.Set("format", "json")
	q.Set("limit", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.NominatimURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var results []nominatimResult
	if err := s.do(req, &results); err != nil {
		return nil, fmt.Errorf("geocode %q: %w", place, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrPlaceNotFound, place)
	}
	r := results[0]
	lat, errLat := strconv.ParseFloat(r.Lat, 64)
	lon, errLon := strconv.ParseFloat(r.Lon, 64)
	if errLat != nil || errLon != nil {
		return nil, fmt.Errorf("%w: geocoder returned bad coordinates %q,%q", ErrUnavailable, r.Lat, r.Lon)
	}
	p := &geoPlace{
		Center:  orb.Point{lon, lat},
		Bound:   orb.Bound{Min: orb.Point{lon, lat}, Max: orb.Point{lon, lat}},
		OSMType: r.OSMType,
		OSMID:   r.OSMID,
		Name:    r.DisplayName,
	}
	// boundingbox is [minlat, maxlat, minlon, maxlon]
	if len(r.BoundingBox) == 4 {
		var bb [4]float64
		ok := true
		for i, v := range r.BoundingBox {
			if bb[i], err = strconv.ParseFloat(v, 64); err != nil {
				ok = false
			}
		}
		if ok {
			p.Bound = orb.Bound{Min: orb.Point{bb[2], bb[0]}, Max: orb.Point{bb[3], bb[1]}}
		}
	}
	return p, nil
}

// overpassQuery selects the drivable ways inside the place area, or inside
// its bounding box when the place is not an area.
func overpassQuery(p *geoPlace) string {
	var b strings.Builder
	b.WriteString("[out:json][timeout:180];\n")
	switch p.OSMType {
	case "relation":
		fmt.Fprintf(&b, "area(%d)->.searchArea;\n(way%s(area.searchArea);>;);\nout;", relationAreaOffset+p.OSMID, driveFilter)
	case "way":
		fmt.Fprintf(&b, "area(%d)->.searchArea;\n(way%s(area.searchArea);>;);\nout;", wayAreaOffset+p.OSMID, driveFilter)
	default:
		fmt.Fprintf(&b, "(way%s(%f,%f,%f,%f);>;);\nout;", driveFilter,
			p.Bound.Min.Lat(), p.Bound.Min.Lon(), p.Bound.Max.Lat(), p.Bound.Max.Lon())
	}
	return b.String()
}

func (s *OSMSource) overpass(ctx context.Context, query string) (*osm.OSM, error) {
	form := url.Values{}
	form.Set("data", query)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.OverpassURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	o := &osm.OSM{}
	if err := s.do(req, o); err != nil {
		return nil, fmt.Errorf("overpass: %w", err)
	}
	return o, nil
}

// do sends req and decodes the JSON body into out. Every upstream failure
// is reported as ErrUnavailable.
func (s *OSMSource) do(req *http.Request, out any) error {
	req.Header.Set("User-Agent", s.UserAgent)
	req.Header.Set("Accept", "application/json")
	resp, err := s.Client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s: %s", ErrUnavailable, resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}
