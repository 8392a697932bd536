package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/railradar/backend/internal/generator"
	"github.com/railradar/backend/internal/store"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		lines          = flag.Int("lines", cfg.NumLines, "number of radial lines to generate")
		perLine        = flag.Int("stations-per-line", cfg.StationsPerLine, "stations on each line, including the hub")
		spacing        = flag.Float64("spacing-km", cfg.SpacingKm, "mean distance between consecutive stops in km")
		transferChance = flag.Float64("transfer-chance", cfg.TransferChance, "probability that a stop gets a walking transfer")
		transferMaxKm  = flag.Float64("transfer-max-km", cfg.TransferMaxKm, "longest walking transfer in km")
		centerLat      = flag.Float64("center-lat", cfg.CenterLat, "latitude of the hub station")
		centerLon      = flag.Float64("center-lon", cfg.CenterLon, "longitude of the hub station")
		seed           = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		outputDir      = flag.String("output-dir", "data", "directory to write rail_graph.json")
		writeStdout    = flag.Bool("stdout", false, "write the dataset to stdout instead of a file")
	)
	flag.Parse()

	genCfg := generator.Config{
		NumLines:        *lines,
		StationsPerLine: *perLine,
		SpacingKm:       *spacing,
		TransferChance:  clampProbability(*transferChance),
		TransferMaxKm:   *transferMaxKm,
		CenterLat:       *centerLat,
		CenterLon:       *centerLon,
		Seed:            *seed,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	gen := generator.New(genCfg)
	dataset, err := gen.Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *writeStdout {
		if err := store.EncodeDataset(os.Stdout, dataset); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	path, err := generator.WriteDataset(dataset, *outputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Generated %d stations and %d edges into %s\n", len(dataset.Stations), len(dataset.Edges), path)
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
