package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bluele/gcache"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/railradar/backend/internal/domain"
	"github.com/railradar/backend/internal/metrics"
	"github.com/railradar/backend/internal/pathfinder"
	"github.com/railradar/backend/internal/store"
)

var (
	// ErrInvalidInput marks caller mistakes such as blank station ids.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoStations is returned by lookups against an empty snapshot.
	ErrNoStations = errors.New("no stations available")
)

// SnapshotSource supplies versioned graph snapshots.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (store.Snapshot, error)
}

// RouteSource answers route queries directly from storage. When absent the
// service derives routes from the snapshot edges.
type RouteSource interface {
	ListRoutes(ctx context.Context) ([]domain.Route, error)
	EdgesByRoute(ctx context.Context, routeID string) ([]domain.Edge, error)
}

// PathOption customises a PathService.
type PathOption func(*PathService)

// WithRouteSource serves route listings from src.
func WithRouteSource(src RouteSource) PathOption {
	return func(s *PathService) {
		s.routes = src
	}
}

// WithResultCache keeps up to size path results for ttl. A size of zero
// disables caching; a ttl of zero keeps entries until evicted.
func WithResultCache(size int, ttl time.Duration) PathOption {
	return func(s *PathService) {
		if size <= 0 {
			s.results = nil
			return
		}
		b := gcache.New(size).LRU()
		if ttl > 0 {
			b = b.Expiration(ttl)
		}
		s.results = b.Build()
	}
}

// WithMetrics records query outcomes on m.
func WithMetrics(m *metrics.Metrics) PathOption {
	return func(s *PathService) {
		s.metrics = m
	}
}

// WithClock overrides the time source used for query timings.
func WithClock(nowFn func() time.Time) PathOption {
	return func(s *PathService) {
		if nowFn != nil {
			s.nowFn = nowFn
		}
	}
}

// PathService answers path and lookup queries against the latest snapshot.
type PathService struct {
	snapshots SnapshotSource
	routes    RouteSource
	results   gcache.Cache
	metrics   *metrics.Metrics
	nowFn     func() time.Time

	mu    sync.Mutex
	built *builtGraph
}

type builtGraph struct {
	version uint64
	graph   *pathfinder.Graph
	err     error
}

type pathKey struct {
	version uint64
	start   string
	end     string
}

// NearestResult is the station closest to a coordinate.
type NearestResult struct {
	Station        domain.Station `json:"station"`
	DistanceMeters float64        `json:"distance_meters"`
}

// NewPathService constructs a PathService over snapshots.
func NewPathService(snapshots SnapshotSource, opts ...PathOption) *PathService {
	s := &PathService{
		snapshots: snapshots,
		nowFn:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindPath computes the minimum-weight path between two station ids.
// Unknown or unreachable stations yield a result with Found=false and no
// error. A snapshot with invalid weights yields a *pathfinder.ConfigurationError.
// Each call returns its own copy, so callers may modify the result.
func (s *PathService) FindPath(ctx context.Context, startID, endID string) (domain.PathResult, error) {
	startID = strings.TrimSpace(startID)
	endID = strings.TrimSpace(endID)
	if startID == "" || endID == "" {
		return domain.PathResult{}, fmt.Errorf("%w: start and end station ids are required", ErrInvalidInput)
	}

	began := s.nowFn()
	snap, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		s.metrics.ObservePathQuery(metrics.OutcomeStoreError, s.nowFn().Sub(began))
		return domain.PathResult{}, fmt.Errorf("load graph snapshot: %w", err)
	}

	key := pathKey{version: snap.Version, start: startID, end: endID}
	if s.results != nil {
		if cached, err := s.results.Get(key); err == nil {
			if res, ok := cached.(domain.PathResult); ok {
				s.metrics.ObserveCacheHit()
				s.metrics.ObservePathQuery(outcome(res), s.nowFn().Sub(began))
				return res.Clone(), nil
			}
		}
	}

	g, err := s.graphFor(snap)
	if err != nil {
		s.metrics.ObservePathQuery(metrics.OutcomeInvalidGraph, s.nowFn().Sub(began))
		return domain.PathResult{}, fmt.Errorf("graph snapshot %d: %w", snap.Version, err)
	}

	res := pathfinder.FindPath(g, startID, endID)
	if s.results != nil {
		_ = s.results.Set(key, res.Clone())
	}
	s.metrics.ObservePathQuery(outcome(res), s.nowFn().Sub(began))
	return res, nil
}

// ListStations returns every station in snapshot order.
func (s *PathService) ListStations(ctx context.Context) ([]domain.Station, error) {
	snap, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load graph snapshot: %w", err)
	}
	return snap.Stations, nil
}

// ListEdges returns every edge in snapshot order.
func (s *PathService) ListEdges(ctx context.Context) ([]domain.Edge, error) {
	snap, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load graph snapshot: %w", err)
	}
	return snap.Edges, nil
}

// ListRoutes returns the routes referenced by edges, sorted by id.
func (s *PathService) ListRoutes(ctx context.Context) ([]domain.Route, error) {
	if s.routes != nil {
		return s.routes.ListRoutes(ctx)
	}
	snap, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load graph snapshot: %w", err)
	}

	seen := make(map[string]struct{})
	for _, e := range snap.Edges {
		for _, id := range e.RouteIDs {
			seen[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	routes := make([]domain.Route, 0, len(ids))
	for _, id := range ids {
		routes = append(routes, domain.NewRoute(id))
	}
	return routes, nil
}

// EdgesByRoute returns the edges serving routeID in snapshot order.
func (s *PathService) EdgesByRoute(ctx context.Context, routeID string) ([]domain.Edge, error) {
	routeID = strings.TrimSpace(routeID)
	if routeID == "" {
		return nil, fmt.Errorf("%w: route id is required", ErrInvalidInput)
	}
	if s.routes != nil {
		return s.routes.EdgesByRoute(ctx, routeID)
	}
	snap, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load graph snapshot: %w", err)
	}

	edges := make([]domain.Edge, 0)
	for _, e := range snap.Edges {
		for _, id := range e.RouteIDs {
			if id == routeID {
				edges = append(edges, e)
				break
			}
		}
	}
	return edges, nil
}

// NearestStation finds the station with the smallest great-circle distance
// to (lat, lon). Ties go to the station listed first.
func (s *PathService) NearestStation(ctx context.Context, lat, lon float64) (NearestResult, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return NearestResult{}, fmt.Errorf("%w: coordinate (%g, %g) is out of range", ErrInvalidInput, lat, lon)
	}
	snap, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return NearestResult{}, fmt.Errorf("load graph snapshot: %w", err)
	}
	if len(snap.Stations) == 0 {
		return NearestResult{}, ErrNoStations
	}

	origin := orb.Point{lon, lat}
	best := NearestResult{DistanceMeters: math.Inf(1)}
	for _, st := range snap.Stations {
		if d := geo.Distance(origin, orb.Point{st.Lon, st.Lat}); d < best.DistanceMeters {
			best = NearestResult{Station: st, DistanceMeters: d}
		}
	}
	return best, nil
}

// graphFor returns the graph built from snap, reusing the previous build
// while the snapshot version is unchanged.
func (s *PathService) graphFor(snap store.Snapshot) (*pathfinder.Graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.built != nil && s.built.version == snap.Version {
		return s.built.graph, s.built.err
	}
	g, err := pathfinder.NewGraph(snap.Stations, snap.Edges)
	s.built = &builtGraph{version: snap.Version, graph: g, err: err}
	return g, err
}

func outcome(res domain.PathResult) string {
	if res.Found {
		return metrics.OutcomeFound
	}
	return metrics.OutcomeNotFound
}
