package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"connectrpc.com/connect"
	"git.fiblab.net/sim/patrol/planner"
	"git.fiblab.net/sim/patrol/render"
	"git.fiblab.net/sim/patrol/source"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/twpayne/go-polyline"
)

const (
	PatrolServiceName          = "patrol.v1.PatrolService"
	PlanRouteProcedure         = "/" + PatrolServiceName + "/PlanRoute"
	ListNeighborhoodsProcedure = "/" + PatrolServiceName + "/ListNeighborhoods"
)

var errMissingPlace = errors.New("missing place: give a city and neighborhood or a place")

type PlanRouteRequest struct {
	City         string `json:"city"`
	Neighborhood string `json:"neighborhood"`
	// free form place name, used instead of city and neighborhood
	Place        string `json:"place,omitempty"`
	Mode         string `json:"mode,omitempty"`
	IncludeScene bool   `json:"include_scene,omitempty"`
}

type Waypoint struct {
	ID  int64   `json:"id"`
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

type PlanRouteResponse struct {
	Place     string     `json:"place"`
	Mode      string     `json:"mode"`
	Center    orb.Point  `json:"center"`
	Tour      []int64    `json:"tour"`
	Waypoints []Waypoint `json:"waypoints"`
	// one per waypoint segment, degrees
	Headings []float64 `json:"headings"`
	// encoded polyline of the waypoints
	Polyline   string          `json:"polyline"`
	CostMeters float64         `json:"cost_meters"`
	Refined    bool            `json:"refined"`
	TimedOut   bool            `json:"timed_out"`
	Scene      json.RawMessage `json:"scene,omitempty"`
}

type ListNeighborhoodsRequest struct {
	City string `json:"city"`
}

type ListNeighborhoodsResponse struct {
	Cities        []string `json:"cities,omitempty"`
	Neighborhoods []string `json:"neighborhoods"`
}

type PatrolServer struct {
	source  source.GraphSource
	planner *planner.Planner
	catalog *Catalog
	timeout time.Duration
	page    render.HTML

	// outcome -> count, outcome is "ok" or the failing stage
	stats *xsync.MapOf[string, *xsync.Counter]

	// serving true, suspended false
	ok   bool
	cond *sync.Cond
}

// NewPatrolServer builds the request interface. timeout bounds one route
// request, 0 means unbounded.
func NewPatrolServer(src source.GraphSource, p *planner.Planner, catalog *Catalog, timeout time.Duration) *PatrolServer {
	return &PatrolServer{
		source:  src,
		planner: p,
		catalog: catalog,
		timeout: timeout,
		page:    render.HTML{Title: "Patrol route"},
		stats:   xsync.NewMapOf[string, *xsync.Counter](),
		ok:      true,
		cond:    sync.NewCond(&sync.Mutex{}),
	}
}

type requestIDKey struct{}

func requestLog(ctx context.Context) *logrus.Entry {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return log.WithField("request", id)
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// Handler routes the connect procedures, the form pages and the JSON API.
func (s *PatrolServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(withRequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Request-Id"},
	}))

	opt := connect.WithCodec(jsonCodec{})
	r.Handle(PlanRouteProcedure, connect.NewUnaryHandler(PlanRouteProcedure, s.PlanRoute, opt))
	r.Handle(ListNeighborhoodsProcedure, connect.NewUnaryHandler(ListNeighborhoodsProcedure, s.ListNeighborhoods, opt))

	r.Get("/", s.handleIndex)
	r.Post("/", s.handleMap)
	r.Get("/neighborhoods", s.handleNeighborhoods)
	r.Get("/api/route", s.handleRoute)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return r
}

// place resolves the geocoder query of a request. The neighborhood does not
// have to be listed in the catalog.
func (s *PatrolServer) place(city, neighborhood, place string) (string, error) {
	if place = strings.TrimSpace(place); place != "" {
		return place, nil
	}
	city, neighborhood = strings.TrimSpace(city), strings.TrimSpace(neighborhood)
	if city == "" && neighborhood == "" {
		return "", errMissingPlace
	}
	if c, ok := s.catalog.City(city); ok {
		city = c
	}
	return source.Place(neighborhood, city), nil
}

// plan runs the whole pipeline for one place. Errors carry their stage.
func (s *PatrolServer) plan(ctx context.Context, place string, mode planner.Mode) (res *planner.Result, err error) {
	// suspended servers hold requests here
	s.cond.L.Lock()
	for !s.ok {
		s.cond.Wait()
	}
	s.cond.L.Unlock()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	l := requestLog(ctx).WithField("place", place)
	start := time.Now()
	defer func() {
		s.count(err)
		if err != nil {
			l.Warnf("plan failed after %v: %v", time.Since(start), err)
			return
		}
		l.Infof("planned %s route: %d waypoints, %.0f m in %v", mode, len(res.Waypoints), res.Cost, time.Since(start))
	}()

	g, center, err := s.source.FetchRoadGraph(ctx, place)
	if err != nil {
		return nil, planner.Wrap(planner.StageSource, err)
	}
	l.Debugf("road graph: %d nodes, %d edges", len(g.Nodes), len(g.Edges))
	res, err = s.planner.Plan(ctx, g, center, mode)
	if err != nil {
		return nil, err
	}
	if res.TimedOut {
		l.Warn("tour refinement ran out of time, serving the unrefined tour")
	}
	return res, nil
}

func (s *PatrolServer) count(err error) {
	key := "ok"
	if err != nil {
		stage, _ := planner.StageOf(err)
		key = string(stage)
	}
	c, _ := s.stats.LoadOrCompute(key, xsync.NewCounter)
	c.Inc()
}

// Stats returns the request count per outcome.
func (s *PatrolServer) Stats() map[string]int64 {
	out := make(map[string]int64)
	s.stats.Range(func(k string, c *xsync.Counter) bool {
		out[k] = c.Value()
		return true
	})
	return out
}

func (s *PatrolServer) PlanRoute(
	ctx context.Context,
	req *connect.Request[PlanRouteRequest],
) (*connect.Response[PlanRouteResponse], error) {
	in := req.Msg
	mode, err := planner.ParseMode(in.Mode)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	place, err := s.place(in.City, in.Neighborhood, in.Place)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	res, err := s.plan(ctx, place, mode)
	if err != nil {
		return nil, connect.NewError(errorCode(err), err)
	}
	out := &PlanRouteResponse{
		Place:      place,
		Mode:       mode.String(),
		Center:     res.Scene.Center,
		Tour:       res.Tour,
		Headings:   res.Headings,
		Polyline:   encodePolyline(res.WaypointPoints),
		CostMeters: res.Cost,
		Refined:    res.Refined,
		TimedOut:   res.TimedOut,
		Waypoints: lo.Map(res.Waypoints, func(id int64, i int) Waypoint {
			p := res.WaypointPoints[i]
			return Waypoint{ID: id, Lon: p.Lon(), Lat: p.Lat()}
		}),
	}
	if in.IncludeScene {
		b, err := render.GeoJSON{}.Render(res.Scene)
		if err != nil {
			return nil, connect.NewError(connect.CodeInternal, planner.Wrap(planner.StageRender, err))
		}
		out.Scene = b
	}
	return connect.NewResponse(out), nil
}

func (s *PatrolServer) ListNeighborhoods(
	ctx context.Context,
	req *connect.Request[ListNeighborhoodsRequest],
) (*connect.Response[ListNeighborhoodsResponse], error) {
	out := &ListNeighborhoodsResponse{Neighborhoods: s.catalog.Neighborhoods(req.Msg.City)}
	if strings.TrimSpace(req.Msg.City) == "" {
		out.Cities = s.catalog.Cities()
	}
	return connect.NewResponse(out), nil
}

func (s *PatrolServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.writeIndex(w, r, http.StatusOK, "")
}

func (s *PatrolServer) writeIndex(w http.ResponseWriter, r *http.Request, status int, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := render.Index(w, s.catalog.Cities(), msg); err != nil {
		requestLog(r.Context()).Errorf("render index: %v", err)
	}
}

// handleMap answers the selection form with the rendered map.
func (s *PatrolServer) handleMap(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeIndex(w, r, http.StatusBadRequest, err.Error())
		return
	}
	mode, err := planner.ParseMode(r.PostForm.Get("mode"))
	if err != nil {
		s.writeIndex(w, r, http.StatusBadRequest, err.Error())
		return
	}
	place, err := s.place(r.PostForm.Get("city"), r.PostForm.Get("neighborhood"), r.PostForm.Get("place"))
	if err != nil {
		s.writeIndex(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.plan(r.Context(), place, mode)
	if err != nil {
		s.writeIndex(w, r, httpStatus(err), fmt.Sprintf("No route for %s: %v", place, err))
		return
	}
	page := s.page
	page.Title = "Patrol route: " + place
	s.write(w, r, page, res.Scene)
}

// handleRoute serves the scene of a route as GeoJSON.
func (s *PatrolServer) handleRoute(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode, err := planner.ParseMode(q.Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	place, err := s.place(q.Get("city"), q.Get("neighborhood"), q.Get("place"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.plan(r.Context(), place, mode)
	if err != nil {
		writeError(w, httpStatus(err), err)
		return
	}
	s.write(w, r, render.GeoJSON{}, res.Scene)
}

func (s *PatrolServer) write(w http.ResponseWriter, r *http.Request, sink render.Renderer, scene *planner.Scene) {
	b, err := sink.Render(scene)
	if err != nil {
		err = planner.Wrap(planner.StageRender, err)
		requestLog(r.Context()).Error(err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", sink.ContentType())
	w.Write(b)
}

func (s *PatrolServer) handleNeighborhoods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"neighborhoods": s.catalog.Neighborhoods(r.URL.Query().Get("city")),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	body := map[string]string{"error": err.Error()}
	if stage, ok := planner.StageOf(err); ok {
		body["stage"] = string(stage)
	}
	writeJSON(w, status, body)
}

func encodePolyline(points []orb.Point) string {
	coords := lo.Map(points, func(p orb.Point, _ int) []float64 { return []float64{p.Lat(), p.Lon()} })
	return string(polyline.EncodeCoords(coords))
}

// errorCode classifies a pipeline error for the connect interface.
func errorCode(err error) connect.Code {
	switch {
	case errors.Is(err, source.ErrPlaceNotFound):
		return connect.CodeNotFound
	case errors.Is(err, source.ErrNoNetworkData),
		errors.Is(err, planner.ErrEmptyGraph),
		errors.Is(err, planner.ErrDisconnectedGraph),
		errors.Is(err, planner.ErrDegenerateTour),
		errors.Is(err, planner.ErrCoincidentPoints):
		return connect.CodeFailedPrecondition
	case errors.Is(err, planner.ErrInvalidGraph), errors.Is(err, errMissingPlace):
		return connect.CodeInvalidArgument
	case errors.Is(err, planner.ErrGraphTooLarge):
		return connect.CodeResourceExhausted
	case errors.Is(err, source.ErrUnavailable):
		return connect.CodeUnavailable
	case errors.Is(err, planner.ErrTimeoutExceeded), errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	default:
		return connect.CodeInternal
	}
}

func httpStatus(err error) int {
	switch errorCode(err) {
	case connect.CodeNotFound:
		return http.StatusNotFound
	case connect.CodeFailedPrecondition:
		return http.StatusUnprocessableEntity
	case connect.CodeInvalidArgument:
		return http.StatusBadRequest
	case connect.CodeResourceExhausted:
		return http.StatusRequestEntityTooLarge
	case connect.CodeUnavailable:
		return http.StatusBadGateway
	case connect.CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	case connect.CodeCanceled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// Suspend holds new route requests until Resume.
func (s *PatrolServer) Suspend() {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	s.ok = false
}

func (s *PatrolServer) Resume() {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	s.ok = true
	s.cond.Broadcast()
}
