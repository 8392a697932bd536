package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/railradar/backend/internal/domain"
	"github.com/railradar/backend/internal/graph"
	"github.com/railradar/backend/internal/metrics"
	"github.com/railradar/backend/internal/pathfinder"
	"github.com/railradar/backend/internal/service"
	"github.com/railradar/backend/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDataset() store.Dataset {
	return store.Dataset{
		Stations: []domain.Station{
			{StationID: "BER", Name: "Berlin Hbf", Lat: 52.5251, Lon: 13.3694},
			{StationID: "HAL", Name: "Halle (Saale) Hbf", Lat: 51.4774, Lon: 11.9870},
			{StationID: "LEJ", Name: "Leipzig Hbf", Lat: 51.3455, Lon: 12.3821},
			{StationID: "ERF", Name: "Erfurt Hbf", Lat: 50.9725, Lon: 11.0380},
			{StationID: "FFM", Name: "Frankfurt (Main) Hbf", Lat: 50.1071, Lon: 8.6632},
		},
		Edges: []domain.Edge{
			{FromStation: "BER", ToStation: "HAL", EdgeType: "rail", Weight: 70, RouteIDs: []string{"ICE15"}},
			{FromStation: "BER", ToStation: "LEJ", EdgeType: "rail", Weight: 65, RouteIDs: []string{"ICE28"}},
			{FromStation: "LEJ", ToStation: "ERF", EdgeType: "rail", Weight: 40, RouteIDs: []string{"ICE28"}},
			{FromStation: "HAL", ToStation: "ERF", EdgeType: "rail", Weight: 35, RouteIDs: []string{"ICE15"}},
			{FromStation: "ERF", ToStation: "FFM", EdgeType: "rail", Weight: 130, RouteIDs: []string{"ICE15", "ICE28"}},
		},
	}
}

func newTestRouter(t *testing.T, ds store.Dataset) http.Handler {
	t.Helper()
	cached := store.NewCachedStore(store.NewMemoryStore(ds), time.Minute)
	svc := service.NewPathService(cached, service.WithResultCache(16, time.Minute))
	return NewRouter(discardLogger(), RouterDependencies{
		Health: SnapshotHealthService{Source: cached},
		API:    NewAPIHandlers(discardLogger(), svc),
	})
}

func serve(h http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlePathsFound(t *testing.T) {
	router := newTestRouter(t, testDataset())

	rec := serve(router, http.MethodGet, "/paths?from=BER&to=ERF", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload domain.PathResult
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !payload.Found || payload.TotalWeight != 105 {
		t.Fatalf("unexpected result found=%v total=%v", payload.Found, payload.TotalWeight)
	}
	if got := strings.Join(payload.StationIDs(), ","); got != "BER,LEJ,ERF" {
		t.Fatalf("unexpected path %s", got)
	}
	if len(payload.NextStations) != 1 || payload.NextStations[0].StationID != "FFM" || payload.NextStations[0].Distance != 130 {
		t.Fatalf("unexpected next stations %+v", payload.NextStations)
	}
}

func TestHandlePathsNotFoundShape(t *testing.T) {
	router := newTestRouter(t, testDataset())

	rec := serve(router, http.MethodGet, "/paths?from=FFM&to=BER", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	for _, key := range []string{"path", "edges", "nextStations", "nextEdges"} {
		if string(raw[key]) != "[]" {
			t.Fatalf("expected %s to be [], got %s", key, raw[key])
		}
	}
	if string(raw["found"]) != "false" || string(raw["totalWeight"]) != "0" {
		t.Fatalf("unexpected found/totalWeight: %s %s", raw["found"], raw["totalWeight"])
	}
}

func TestHandlePathsPost(t *testing.T) {
	router := newTestRouter(t, testDataset())

	body := bytes.NewBufferString(`{"startStationId":"HAL","endStationId":"FFM"}`)
	rec := serve(router, http.MethodPost, "/paths", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var payload domain.PathResult
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.TotalWeight != 165 {
		t.Fatalf("expected total 165, got %v", payload.TotalWeight)
	}

	rec = serve(router, http.MethodPost, "/paths", bytes.NewBufferString(`{"start":"HAL"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for unknown fields, got %d", rec.Code)
	}
}

func TestHandlePathsGeoJSON(t *testing.T) {
	router := newTestRouter(t, testDataset())

	rec := serve(router, http.MethodGet, "/paths?from=BER&to=ERF&format=geojson", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != geoJSONContentType {
		t.Fatalf("expected geojson content type, got %s", ct)
	}
	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &fc); err != nil {
		t.Fatalf("failed to decode geojson: %v", err)
	}
	// path line, continuation line, three stops and one next station
	if fc.Type != "FeatureCollection" || len(fc.Features) != 6 {
		t.Fatalf("unexpected collection type=%s features=%d", fc.Type, len(fc.Features))
	}
}

func TestHandlePathsErrors(t *testing.T) {
	invalid := testDataset()
	invalid.Edges = append(invalid.Edges, domain.Edge{FromStation: "FFM", ToStation: "BER", Weight: -5})

	tests := []struct {
		name   string
		ds     store.Dataset
		method string
		target string
		status int
	}{
		{name: "missing from", ds: testDataset(), method: http.MethodGet, target: "/paths?to=BER", status: http.StatusBadRequest},
		{name: "blank ids", ds: testDataset(), method: http.MethodGet, target: "/paths?from=%20&to=%20", status: http.StatusBadRequest},
		{name: "negative weight", ds: invalid, method: http.MethodGet, target: "/paths?from=BER&to=FFM", status: http.StatusUnprocessableEntity},
		{name: "wrong method", ds: testDataset(), method: http.MethodDelete, target: "/paths", status: http.StatusMethodNotAllowed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(newTestRouter(t, tc.ds), tc.method, tc.target, nil)
			if rec.Code != tc.status {
				t.Fatalf("expected status %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			var payload map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil || payload["error"] == "" {
				t.Fatalf("expected error payload, got %s", rec.Body.String())
			}
		})
	}
}

type failingFinder struct {
	err error
}

func (f failingFinder) FindPath(context.Context, string, string) (domain.PathResult, error) {
	return domain.PathResult{}, f.err
}
func (f failingFinder) ListStations(context.Context) ([]domain.Station, error) { return nil, f.err }
func (f failingFinder) ListEdges(context.Context) ([]domain.Edge, error) { return nil, f.err }
func (f failingFinder) ListRoutes(context.Context) ([]domain.Route, error) { return nil, f.err }
func (f failingFinder) EdgesByRoute(context.Context, string) ([]domain.Edge, error) {
	return nil, f.err
}
func (f failingFinder) NearestStation(context.Context, float64, float64) (service.NearestResult, error) {
	return service.NearestResult{}, f.err
}

func TestHandlersStoreFailures(t *testing.T) {
	handlers := NewAPIHandlers(discardLogger(), failingFinder{err: errors.New("bolt: connection refused")})
	router := NewRouter(discardLogger(), RouterDependencies{API: handlers})

	for _, target := range []string{"/paths?from=A&to=B", "/stations", "/edges", "/routes", "/routes/R1/edges", "/stations/nearest?lat=1&lon=2"} {
		rec := serve(router, http.MethodGet, target, nil)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("%s: expected status 500, got %d", target, rec.Code)
		}
	}

	wrapped := fmt.Errorf("graph snapshot 3: %w", &pathfinder.ConfigurationError{Reason: "weight is negative"})
	rec := serve(NewRouter(discardLogger(), RouterDependencies{API: NewAPIHandlers(discardLogger(), failingFinder{err: wrapped})}),
		http.MethodGet, "/paths?from=A&to=B", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}

	rec = serve(NewRouter(discardLogger(), RouterDependencies{API: NewAPIHandlers(discardLogger(), failingFinder{err: context.DeadlineExceeded})}),
		http.MethodGet, "/stations", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
}

func TestHandleStationsAndEdges(t *testing.T) {
	router := newTestRouter(t, testDataset())

	rec := serve(router, http.MethodGet, "/stations", nil)
	var stations []domain.Station
	if err := json.Unmarshal(rec.Body.Bytes(), &stations); err != nil {
		t.Fatalf("failed to decode stations: %v", err)
	}
	if len(stations) != 5 || stations[0].StationID != "BER" {
		t.Fatalf("unexpected stations %+v", stations)
	}

	rec = serve(router, http.MethodGet, "/edges", nil)
	var edges []domain.Edge
	if err := json.Unmarshal(rec.Body.Bytes(), &edges); err != nil {
		t.Fatalf("failed to decode edges: %v", err)
	}
	if len(edges) != 5 {
		t.Fatalf("expected 5 edges, got %d", len(edges))
	}
}

func TestHandleNearestStation(t *testing.T) {
	router := newTestRouter(t, testDataset())

	rec := serve(router, http.MethodGet, "/stations/nearest?lat=51.34&lon=12.38", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var payload service.NearestResult
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.Station.StationID != "LEJ" {
		t.Fatalf("expected LEJ, got %s", payload.Station.StationID)
	}

	cases := map[string]int{
		"/stations/nearest?lat=abc&lon=1": http.StatusBadRequest,
		"/stations/nearest?lat=95&lon=1":  http.StatusBadRequest,
		"/stations/nearest":               http.StatusBadRequest,
	}
	for target, status := range cases {
		if rec := serve(router, http.MethodGet, target, nil); rec.Code != status {
			t.Fatalf("%s: expected %d, got %d", target, status, rec.Code)
		}
	}

	empty := newTestRouter(t, store.Dataset{})
	if rec := serve(empty, http.MethodGet, "/stations/nearest?lat=1&lon=1", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for empty graph, got %d", rec.Code)
	}
}

func TestHandleRoutes(t *testing.T) {
	router := newTestRouter(t, testDataset())

	rec := serve(router, http.MethodGet, "/routes", nil)
	var routes []domain.Route
	if err := json.Unmarshal(rec.Body.Bytes(), &routes); err != nil {
		t.Fatalf("failed to decode routes: %v", err)
	}
	if len(routes) != 2 || routes[0].RouteID != "ICE15" || routes[0].RouteLongName != "Route ICE15" {
		t.Fatalf("unexpected routes %+v", routes)
	}

	rec = serve(router, http.MethodGet, "/routes/ICE28/edges", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var edges []domain.Edge
	if err := json.Unmarshal(rec.Body.Bytes(), &edges); err != nil {
		t.Fatalf("failed to decode edges: %v", err)
	}
	if len(edges) != 3 {
		t.Fatalf("expected 3 ICE28 edges, got %d", len(edges))
	}

	for _, target := range []string{"/routes/ICE28", "/routes/edges", "/routes/a/b/edges"} {
		if rec := serve(router, http.MethodGet, target, nil); rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", target, rec.Code)
		}
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	router := newTestRouter(t, testDataset())

	rec := serve(router, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if id := rec.Header().Get(RequestIDHeader); len(id) != 36 {
		t.Fatalf("expected generated uuid request id, got %q", id)
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "trace-123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if id := rec.Header().Get(RequestIDHeader); id != "trace-123" {
		t.Fatalf("expected inbound request id to be kept, got %q", id)
	}
}

func TestHealthDegraded(t *testing.T) {
	client := graph.NewMemoryClient().WithConnectivityError(errors.New("bolt handshake failed"))
	router := NewRouter(discardLogger(), RouterDependencies{Health: GraphHealthService{Client: client}})

	rec := serve(router, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload["status"] != "degraded" {
		t.Fatalf("expected degraded status, got %v", payload["status"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	m.ObservePathQuery(metrics.OutcomeFound, time.Millisecond)

	router := NewRouter(discardLogger(), RouterDependencies{Metrics: m.Handler()})
	rec := serve(router, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "railradar_path_queries_total") {
		t.Fatal("expected path query counter in exposition")
	}

	if rec := serve(NewRouter(discardLogger(), RouterDependencies{}), http.MethodGet, "/metrics", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when metrics are disabled, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	router := NewRouter(discardLogger(), RouterDependencies{AllowedOrigins: []string{"https://railradar.app"}})

	req := httptest.NewRequest(http.MethodOptions, "/paths", nil)
	req.Header.Set("Origin", "https://railradar.app")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://railradar.app" {
		t.Fatalf("unexpected allow origin %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest(http.MethodOptions, "/paths", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
