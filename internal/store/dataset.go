package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/railradar/backend/internal/domain"
)

// railGraphFile is the on-disk rail graph: stations keyed by id plus an
// edge list. Platforms are carried through but unused by routing.
type railGraphFile struct {
	Stations json.RawMessage `json:"stations"`
	Edges    []railGraphEdge `json:"edges"`
}

type railGraphStation struct {
	StationID string   `json:"station_id"`
	Name      string   `json:"name"`
	Lat       float64  `json:"lat"`
	Lon       float64  `json:"lon"`
	Platforms []string `json:"platforms,omitempty"`
}

type railGraphEdge struct {
	FromStation string   `json:"from_station"`
	ToStation   string   `json:"to_station"`
	EdgeType    string   `json:"edge_type"`
	Weight      float64  `json:"weight"`
	RouteIDs    []string `json:"route_ids"`
	DirectionID int      `json:"direction_id"`
}

// DecodeDataset reads a rail graph document. Stations may be an object keyed
// by station id (ordered by id) or an array (order kept). A station without
// station_id takes its key. Missing route_ids become an empty list.
func DecodeDataset(r io.Reader) (Dataset, error) {
	var doc railGraphFile
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Dataset{}, fmt.Errorf("decode rail graph: %w", err)
	}

	stations, err := decodeStations(doc.Stations)
	if err != nil {
		return Dataset{}, err
	}

	edges := make([]domain.Edge, 0, len(doc.Edges))
	for _, e := range doc.Edges {
		routes := e.RouteIDs
		if routes == nil {
			routes = []string{}
		}
		edges = append(edges, domain.Edge{
			FromStation: e.FromStation,
			ToStation:   e.ToStation,
			EdgeType:    e.EdgeType,
			Weight:      e.Weight,
			RouteIDs:    routes,
			DirectionID: e.DirectionID,
		})
	}
	return Dataset{Stations: stations, Edges: edges}, nil
}

func decodeStations(raw json.RawMessage) ([]domain.Station, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []domain.Station{}, nil
	}

	if raw[0] == '[' {
		var list []railGraphStation
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode station list: %w", err)
		}
		out := make([]domain.Station, 0, len(list))
		for _, s := range list {
			out = append(out, toStation(s))
		}
		return out, nil
	}

	var byID map[string]railGraphStation
	if err := json.Unmarshal(raw, &byID); err != nil {
		return nil, fmt.Errorf("decode station map: %w", err)
	}
	keys := make([]string, 0, len(byID))
	for k := range byID {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]domain.Station, 0, len(keys))
	for _, k := range keys {
		s := byID[k]
		if s.StationID == "" {
			s.StationID = k
		}
		out = append(out, toStation(s))
	}
	return out, nil
}

func toStation(s railGraphStation) domain.Station {
	return domain.Station{StationID: s.StationID, Name: s.Name, Lat: s.Lat, Lon: s.Lon}
}

// EncodeDataset writes ds in the keyed rail graph format.
func EncodeDataset(w io.Writer, ds Dataset) error {
	byID := make(map[string]railGraphStation, len(ds.Stations))
	for _, s := range ds.Stations {
		byID[s.StationID] = railGraphStation{
			StationID: s.StationID,
			Name:      s.Name,
			Lat:       s.Lat,
			Lon:       s.Lon,
			Platforms: []string{},
		}
	}
	stations, err := json.Marshal(byID)
	if err != nil {
		return fmt.Errorf("encode stations: %w", err)
	}

	edges := make([]railGraphEdge, 0, len(ds.Edges))
	for _, e := range ds.Edges {
		routes := e.RouteIDs
		if routes == nil {
			routes = []string{}
		}
		edges = append(edges, railGraphEdge{
			FromStation: e.FromStation,
			ToStation:   e.ToStation,
			EdgeType:    e.EdgeType,
			Weight:      e.Weight,
			RouteIDs:    routes,
			DirectionID: e.DirectionID,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(railGraphFile{Stations: stations, Edges: edges}); err != nil {
		return fmt.Errorf("encode rail graph: %w", err)
	}
	return nil
}

// ReadDatasetFile decodes the rail graph stored at path.
func ReadDatasetFile(path string) (Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	ds, err := DecodeDataset(file)
	if err != nil {
		return Dataset{}, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// WriteDatasetFile encodes ds to path, creating parent directories.
func WriteDatasetFile(path string, ds Dataset) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	return EncodeDataset(file, ds)
}
