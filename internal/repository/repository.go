package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/railradar/backend/internal/domain"
	"github.com/railradar/backend/internal/graph"
)

var (
	// ErrInvalidStation is returned when a station has no id.
	ErrInvalidStation = errors.New("station id is required")
	// ErrInvalidEdge is returned when an edge is missing an endpoint.
	ErrInvalidEdge = errors.New("edge endpoints are required")
)

// Repository reads and writes the station graph.
type Repository struct {
	client graph.Client
}

// New instantiates a Repository backed by the supplied graph client.
func New(client graph.Client) *Repository {
	return &Repository{client: client}
}

// EnsureSchema creates the station id uniqueness constraint if missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.client.ExecuteWrite(ctx, stationConstraintCypher, nil); err != nil {
		return fmt.Errorf("ensure station constraint: %w", err)
	}
	return nil
}

// Clear removes every station and its edges.
func (r *Repository) Clear(ctx context.Context) error {
	if _, err := r.client.ExecuteWrite(ctx, clearGraphCypher, nil); err != nil {
		return fmt.Errorf("clear graph: %w", err)
	}
	return nil
}

// ListStations returns every station in ingestion order.
func (r *Repository) ListStations(ctx context.Context) ([]domain.Station, error) {
	res, err := r.client.ExecuteRead(ctx, listStationsCypher, nil)
	if err != nil {
		return nil, fmt.Errorf("list stations query: %w", err)
	}
	stations := make([]domain.Station, 0, len(res.Records))
	for _, rec := range res.Records {
		stations = append(stations, toStation(rec))
	}
	return stations, nil
}

// ListEdges returns every edge in ingestion order.
func (r *Repository) ListEdges(ctx context.Context) ([]domain.Edge, error) {
	res, err := r.client.ExecuteRead(ctx, listEdgesCypher, nil)
	if err != nil {
		return nil, fmt.Errorf("list edges query: %w", err)
	}
	return toEdges(res), nil
}

// EdgesByRoute returns the edges that serve routeID.
func (r *Repository) EdgesByRoute(ctx context.Context, routeID string) ([]domain.Edge, error) {
	routeID = strings.TrimSpace(routeID)
	if routeID == "" {
		return nil, errors.New("route id is required")
	}
	res, err := r.client.ExecuteRead(ctx, edgesByRouteCypher, map[string]any{"routeId": routeID})
	if err != nil {
		return nil, fmt.Errorf("edges by route %s: %w", routeID, err)
	}
	return toEdges(res), nil
}

// ListRoutes returns the distinct route ids referenced by edges.
func (r *Repository) ListRoutes(ctx context.Context) ([]domain.Route, error) {
	res, err := r.client.ExecuteRead(ctx, listRoutesCypher, nil)
	if err != nil {
		return nil, fmt.Errorf("list routes query: %w", err)
	}
	routes := make([]domain.Route, 0, len(res.Records))
	for _, rec := range res.Records {
		routes = append(routes, domain.NewRoute(rec.String("routeId")))
	}
	return routes, nil
}

// UpsertStations merges a batch of stations. seq is the position of the
// first station in the source dataset and preserves snapshot order.
func (r *Repository) UpsertStations(ctx context.Context, seq int, stations []domain.Station) (int, error) {
	if len(stations) == 0 {
		return 0, nil
	}
	rows := make([]map[string]any, 0, len(stations))
	for i, s := range stations {
		if strings.TrimSpace(s.StationID) == "" {
			return 0, fmt.Errorf("station at position %d: %w", seq+i, ErrInvalidStation)
		}
		rows = append(rows, map[string]any{
			"stationId": s.StationID,
			"name":      s.Name,
			"lat":       s.Lat,
			"lon":       s.Lon,
			"seq":       int64(seq + i),
		})
	}

	res, err := r.client.ExecuteWrite(ctx, upsertStationsCypher, map[string]any{"stations": rows})
	if err != nil {
		return 0, fmt.Errorf("upsert stations batch at %d: %w", seq, err)
	}
	return written(res), nil
}

// UpsertEdges merges a batch of edges. Edges whose endpoints are not stored
// stations are skipped by the database; the returned count says how many
// were written.
func (r *Repository) UpsertEdges(ctx context.Context, seq int, edges []domain.Edge) (int, error) {
	if len(edges) == 0 {
		return 0, nil
	}
	rows := make([]map[string]any, 0, len(edges))
	for i, e := range edges {
		if strings.TrimSpace(e.FromStation) == "" || strings.TrimSpace(e.ToStation) == "" {
			return 0, fmt.Errorf("edge at position %d: %w", seq+i, ErrInvalidEdge)
		}
		routeIDs := e.RouteIDs
		if routeIDs == nil {
			routeIDs = []string{}
		}
		rows = append(rows, map[string]any{
			"from":        e.FromStation,
			"to":          e.ToStation,
			"edgeType":    e.EdgeType,
			"weight":      e.Weight,
			"routeIds":    routeIDs,
			"directionId": int64(e.DirectionID),
			"seq":         int64(seq + i),
		})
	}

	res, err := r.client.ExecuteWrite(ctx, upsertEdgesCypher, map[string]any{"edges": rows})
	if err != nil {
		return 0, fmt.Errorf("upsert edges batch at %d: %w", seq, err)
	}
	return written(res), nil
}

func toStation(rec graph.Record) domain.Station {
	return domain.Station{
		StationID: rec.String("stationId"),
		Name:      rec.String("name"),
		Lat:       rec.Float("lat"),
		Lon:       rec.Float("lon"),
	}
}

func toEdges(res graph.Result) []domain.Edge {
	edges := make([]domain.Edge, 0, len(res.Records))
	for _, rec := range res.Records {
		edges = append(edges, domain.Edge{
			FromStation: rec.String("fromStation"),
			ToStation:   rec.String("toStation"),
			EdgeType:    rec.String("edgeType"),
			Weight:      rec.Float("weight"),
			RouteIDs:    rec.Strings("routeIds"),
			DirectionID: rec.Int("directionId"),
		})
	}
	return edges
}

func written(res graph.Result) int {
	if len(res.Records) == 0 {
		return 0
	}
	return res.Records[0].Int("written")
}
