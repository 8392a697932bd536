// Package store provides the station graph snapshots consumed by path queries.
package store

import (
	"context"
	"errors"

	"github.com/railradar/backend/internal/domain"
)

// ErrNoSource is returned when no graph source has been configured.
var ErrNoSource = errors.New("no graph source configured")

// GraphStore supplies a complete station and edge listing.
type GraphStore interface {
	ListStations(ctx context.Context) ([]domain.Station, error)
	ListEdges(ctx context.Context) ([]domain.Edge, error)
}

// datasetLoader is implemented by stores that can return stations and edges
// from a single consistent read.
type datasetLoader interface {
	LoadDataset(ctx context.Context) (Dataset, error)
}

// Dataset is a station graph held in memory.
type Dataset struct {
	Stations []domain.Station
	Edges    []domain.Edge
}

// MemoryStore serves a fixed Dataset.
type MemoryStore struct {
	dataset Dataset
}

// NewMemoryStore wraps ds. The caller must not modify ds afterwards.
func NewMemoryStore(ds Dataset) *MemoryStore {
	return &MemoryStore{dataset: ds}
}

func (m *MemoryStore) ListStations(ctx context.Context) ([]domain.Station, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.dataset.Stations, nil
}

func (m *MemoryStore) ListEdges(ctx context.Context) ([]domain.Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.dataset.Edges, nil
}

// LoadDataset implements datasetLoader.
func (m *MemoryStore) LoadDataset(ctx context.Context) (Dataset, error) {
	if err := ctx.Err(); err != nil {
		return Dataset{}, err
	}
	return m.dataset, nil
}

func load(ctx context.Context, src GraphStore) (Dataset, error) {
	if src == nil {
		return Dataset{}, ErrNoSource
	}
	if l, ok := src.(datasetLoader); ok {
		return l.LoadDataset(ctx)
	}
	stations, err := src.ListStations(ctx)
	if err != nil {
		return Dataset{}, err
	}
	edges, err := src.ListEdges(ctx)
	if err != nil {
		return Dataset{}, err
	}
	return Dataset{Stations: stations, Edges: edges}, nil
}
