package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/railradar/backend/internal/config"
	"github.com/railradar/backend/internal/graph"
	"github.com/railradar/backend/internal/logging"
	"github.com/railradar/backend/internal/metrics"
	"github.com/railradar/backend/internal/repository"
	"github.com/railradar/backend/internal/server"
	"github.com/railradar/backend/internal/service"
	"github.com/railradar/backend/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)
	m := metrics.New()

	graphClient, err := buildGraphClient(ctx, cfg)
	if err != nil && !errors.Is(err, graph.ErrMissingURI) {
		logger.Error("failed to create graph client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if graphClient != nil {
			if err := graphClient.Close(context.Background()); err != nil {
				logger.Warn("closing graph client failed", "error", err)
			}
		}
	}()

	var (
		source  store.GraphStore
		options = []service.PathOption{
			service.WithResultCache(cfg.Store.PathCacheSize, cfg.Store.SnapshotTTL),
			service.WithMetrics(m),
		}
	)
	if graphClient != nil {
		repo := repository.New(graphClient)
		source = repo
		options = append(options, service.WithRouteSource(repo))
		logger.Info("serving station graph from neo4j", "uri", cfg.Graph.URI, "database", cfg.Graph.Database)
	} else {
		source = store.NewFileStore(cfg.Store.Dataset)
		logger.Info("serving station graph from file", "path", cfg.Store.Dataset)
	}

	snapshots := store.NewCachedStore(source, cfg.Store.SnapshotTTL,
		store.WithLoadObserver(func(snap store.Snapshot, took time.Duration, err error) {
			m.ObserveSnapshotLoad(snap, took, err)
			logSnapshotLoad(logger, snap, took, err)
		}),
	)
	pathService := service.NewPathService(snapshots, options...)
	apiHandlers := server.NewAPIHandlers(logger, pathService)

	var health server.HealthService = server.SnapshotHealthService{Source: snapshots}
	if graphClient != nil {
		health = server.GraphHealthService{Client: graphClient}
	}

	deps := server.RouterDependencies{
		Health:           health,
		API:              apiHandlers,
		AllowedOrigins:   cfg.HTTP.AllowedOrigins(),
		AllowCredentials: true,
	}
	if cfg.HTTP.MetricsEnabled {
		deps.Metrics = m.Handler()
	}
	router := server.NewRouter(logger, deps)

	// Warm the snapshot so the first path query does not pay for the load.
	if _, err := snapshots.Snapshot(ctx); err != nil {
		logger.Warn("initial graph snapshot failed", "error", err)
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(logger, cfg.HTTP, router)
	if err := srv.Run(runCtx, nil); err != nil {
		logger.Error("http server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("http server stopped")
}

func buildGraphClient(ctx context.Context, cfg config.Config) (graph.Client, error) {
	if cfg.Graph.URI == "" {
		return nil, graph.ErrMissingURI
	}

	opts := graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	}
	return graph.NewNeo4jClient(ctx, opts)
}

func logSnapshotLoad(logger *slog.Logger, snap store.Snapshot, took time.Duration, err error) {
	if err != nil {
		logger.Error("graph snapshot load failed", "error", err, "duration_ms", took.Milliseconds())
		return
	}
	logger.Info("graph snapshot loaded",
		"version", snap.Version,
		"stations", len(snap.Stations),
		"edges", len(snap.Edges),
		"duration_ms", took.Milliseconds(),
	)
}
