package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/railradar/backend/internal/config"
	"github.com/railradar/backend/internal/graph"
	"github.com/railradar/backend/internal/logging"
	"github.com/railradar/backend/internal/pathfinder"
	"github.com/railradar/backend/internal/repository"
	"github.com/railradar/backend/internal/service"
	"github.com/railradar/backend/internal/store"
)

var errMissingDataset = errors.New("dataset not found")

func main() {
	var (
		datasetDir  = flag.String("dataset-dir", "./data", "Directory containing rail_graph.json")
		datasetPath = flag.String("dataset", "", "Path to a rail graph JSON file (overrides dataset-dir)")
		workers     = flag.Int("workers", 4, "Number of concurrent workers for ingestion")
		batchSize   = flag.Int("batch-size", 500, "Stations or edges written per transaction")
		clearGraph  = flag.Bool("clear", false, "Delete existing stations and connections before loading")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging).With("component", "ingest")

	path, err := resolveDatasetPath(*datasetDir, *datasetPath)
	if err != nil {
		logger.Error("dataset resolution failed", "error", err)
		os.Exit(1)
	}

	ds, err := store.ReadDatasetFile(path)
	if err != nil {
		logger.Error("failed to load dataset", "error", err, "path", path)
		os.Exit(1)
	}
	if len(ds.Stations) == 0 {
		logger.Error("dataset has no stations", "path", path)
		os.Exit(1)
	}
	// Refuse datasets the path finder would reject at query time.
	if _, err := pathfinder.NewGraph(ds.Stations, ds.Edges); err != nil {
		logger.Error("dataset rejected", "error", err, "path", path)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	graphClient, err := buildGraphClient(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to create graph client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := graphClient.Close(context.Background()); err != nil {
			logger.Warn("closing graph client failed", "error", err)
		}
	}()

	repo := repository.New(graphClient)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("schema setup failed", "error", err)
		os.Exit(1)
	}
	if *clearGraph {
		logger.Info("clearing existing station graph")
		if err := repo.Clear(ctx); err != nil {
			logger.Error("clear failed", "error", err)
			os.Exit(1)
		}
	}

	ingestor := service.NewBulkIngestor(repo, *workers, *batchSize)

	start := time.Now()
	logger.Info("ingesting station graph", "stations", len(ds.Stations), "edges", len(ds.Edges), "workers", *workers)
	report, err := ingestor.Ingest(ctx, ds)
	if err != nil {
		logger.Error("ingestion failed", "error", err, "stations_written", report.Stations, "edges_written", report.Edges)
		os.Exit(1)
	}
	if skipped := len(ds.Edges) - report.Edges; skipped > 0 {
		logger.Warn("edges with unknown endpoints were skipped", "count", skipped)
	}

	logger.Info("ingestion complete", "duration", time.Since(start).String(), "stations", report.Stations, "edges", report.Edges)
}

func resolveDatasetPath(baseDir, explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("stat %s: %w", explicitPath, err)
		}
		return explicitPath, nil
	}
	path := filepath.Join(baseDir, "rail_graph.json")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", errMissingDataset, path)
	}
	return path, nil
}

func buildGraphClient(ctx context.Context, logger *slog.Logger, cfg config.Config) (graph.Client, error) {
	if cfg.Graph.URI == "" {
		return nil, fmt.Errorf("GRAPH_URI is required for ingestion: %w", graph.ErrMissingURI)
	}
	opts := graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	}
	client, err := graph.NewNeo4jClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		_ = client.Close(ctx)
		return nil, err
	}
	logger.Info("connected to graph", "uri", cfg.Graph.URI, "database", cfg.Graph.Database)
	return client, nil
}
