package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/railradar/backend/internal/domain"
	"github.com/railradar/backend/internal/geojson"
	"github.com/railradar/backend/internal/pathfinder"
	"github.com/railradar/backend/internal/service"
)

// PathFinder is the service surface used by the REST API.
type PathFinder interface {
	FindPath(ctx context.Context, startID, endID string) (domain.PathResult, error)
	ListStations(ctx context.Context) ([]domain.Station, error)
	ListEdges(ctx context.Context) ([]domain.Edge, error)
	ListRoutes(ctx context.Context) ([]domain.Route, error)
	EdgesByRoute(ctx context.Context, routeID string) ([]domain.Edge, error)
	NearestStation(ctx context.Context, lat, lon float64) (service.NearestResult, error)
}

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger  *slog.Logger
	service PathFinder
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, svc PathFinder) *APIHandlers {
	return &APIHandlers{
		logger:  logger,
		service: svc,
	}
}

type pathRequest struct {
	StartStationID string `json:"startStationId"`
	EndStationID   string `json:"endStationId"`
}

const geoJSONContentType = "application/geo+json"

func (h *APIHandlers) handlePaths(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.StartStationID = firstNonEmpty(q.Get("from"), q.Get("startStationId"))
		req.EndStationID = firstNonEmpty(q.Get("to"), q.Get("endStationId"))
	case http.MethodPost:
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}

	result, err := h.service.FindPath(r.Context(), req.StartStationID, req.EndStationID)
	if err != nil {
		var cfgErr *pathfinder.ConfigurationError
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "from and to station ids are required")
		case errors.As(err, &cfgErr):
			h.logger.Error("station graph rejected", "error", err, "request_id", RequestID(r.Context()))
			writeError(w, http.StatusUnprocessableEntity, cfgErr.Error())
		default:
			h.serverError(w, r, "failed to find path", err)
		}
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "geojson") {
		body, err := geojson.Marshal(result)
		if err != nil {
			h.serverError(w, r, "failed to encode path", err)
			return
		}
		w.Header().Set("Content-Type", geoJSONContentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *APIHandlers) handleStations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	stations, err := h.service.ListStations(r.Context())
	if err != nil {
		h.serverError(w, r, "failed to list stations", err)
		return
	}
	respondJSON(w, http.StatusOK, stations)
}

func (h *APIHandlers) handleNearestStation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	lat, latErr := strconv.ParseFloat(strings.TrimSpace(r.URL.Query().Get("lat")), 64)
	lon, lonErr := strconv.ParseFloat(strings.TrimSpace(r.URL.Query().Get("lon")), 64)
	if latErr != nil || lonErr != nil {
		writeError(w, http.StatusBadRequest, "lat and lon must be numbers")
		return
	}

	nearest, err := h.service.NearestStation(r.Context(), lat, lon)
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "coordinate is out of range")
	case errors.Is(err, service.ErrNoStations):
		writeError(w, http.StatusNotFound, "no stations available")
	case err != nil:
		h.serverError(w, r, "failed to find nearest station", err)
	default:
		respondJSON(w, http.StatusOK, nearest)
	}
}

func (h *APIHandlers) handleEdges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	edges, err := h.service.ListEdges(r.Context())
	if err != nil {
		h.serverError(w, r, "failed to list edges", err)
		return
	}
	respondJSON(w, http.StatusOK, edges)
}

func (h *APIHandlers) handleRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	routes, err := h.service.ListRoutes(r.Context())
	if err != nil {
		h.serverError(w, r, "failed to list routes", err)
		return
	}
	respondJSON(w, http.StatusOK, routes)
}

// handleRouteEdges serves /routes/{routeId}/edges.
func (h *APIHandlers) handleRouteEdges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/routes/"), "/")
	routeID, ok := strings.CutSuffix(rest, "/edges")
	if !ok || routeID == "" || strings.Contains(routeID, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	edges, err := h.service.EdgesByRoute(r.Context(), routeID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "route ID is required")
			return
		}
		h.serverError(w, r, "failed to fetch route edges", err)
		return
	}
	respondJSON(w, http.StatusOK, edges)
}

func (h *APIHandlers) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusServiceUnavailable
	}
	h.logger.Error(msg, "error", err, "request_id", RequestID(r.Context()))
	writeError(w, status, msg)
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
