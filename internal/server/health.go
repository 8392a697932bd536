package server

import (
	"context"

	"github.com/railradar/backend/internal/graph"
	"github.com/railradar/backend/internal/store"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// GraphHealthService verifies graph connectivity as part of health checks.
type GraphHealthService struct {
	Client graph.Client
}

// Probe implements the HealthService interface.
func (s GraphHealthService) Probe(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	return s.Client.VerifyConnectivity(ctx)
}

// SnapshotHealthService reports healthy once a graph snapshot can be loaded.
// It backs /healthz when stations are served from a dataset file.
type SnapshotHealthService struct {
	Source interface {
		Snapshot(ctx context.Context) (store.Snapshot, error)
	}
}

// Probe implements the HealthService interface.
func (s SnapshotHealthService) Probe(ctx context.Context) error {
	if s.Source == nil {
		return nil
	}
	_, err := s.Source.Snapshot(ctx)
	return err
}
