package generator

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/railradar/backend/internal/store"
)

// DatasetFileName is the file written by WriteDataset.
const DatasetFileName = "rail_graph.json"

// WriteDataset serializes the dataset into rail_graph.json under the provided
// directory and returns the file path.
func WriteDataset(dataset store.Dataset, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(dir, DatasetFileName)
	if err := store.WriteDatasetFile(path, dataset); err != nil {
		return "", err
	}
	return path, nil
}
