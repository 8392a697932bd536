package store

import (
	"context"

	"github.com/railradar/backend/internal/domain"
)

// FileStore reads the rail graph from a JSON file on every load. Wrap it in
// a CachedStore to avoid re-reading per query.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the rail graph at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the dataset location.
func (f *FileStore) Path() string { return f.path }

// LoadDataset implements datasetLoader.
func (f *FileStore) LoadDataset(ctx context.Context) (Dataset, error) {
	if err := ctx.Err(); err != nil {
		return Dataset{}, err
	}
	return ReadDatasetFile(f.path)
}

func (f *FileStore) ListStations(ctx context.Context) ([]domain.Station, error) {
	ds, err := f.LoadDataset(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Stations, nil
}

func (f *FileStore) ListEdges(ctx context.Context) ([]domain.Edge, error) {
	ds, err := f.LoadDataset(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Edges, nil
}
