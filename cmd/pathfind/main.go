package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/railradar/backend/internal/geojson"
	"github.com/railradar/backend/internal/pathfinder"
	"github.com/railradar/backend/internal/service"
	"github.com/railradar/backend/internal/store"
)

// exitNotFound is returned when no path connects the two stations.
const exitNotFound = 2

func main() {
	var (
		datasetPath = flag.String("dataset", "data/rail_graph.json", "Path to a rail graph JSON file")
		from        = flag.String("from", "", "Start station id")
		to          = flag.String("to", "", "Destination station id")
		format      = flag.String("format", "json", "Output format: json or geojson")
		timeout     = flag.Duration("timeout", 30*time.Second, "Upper bound for loading and searching")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	svc := service.NewPathService(store.NewCachedStore(store.NewFileStore(*datasetPath), *timeout))
	result, err := svc.FindPath(ctx, *from, *to)
	if err != nil {
		var cfgErr *pathfinder.ConfigurationError
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			fmt.Fprintln(os.Stderr, "both -from and -to are required")
			flag.Usage()
			os.Exit(1)
		case errors.As(err, &cfgErr):
			fmt.Fprintf(os.Stderr, "dataset rejected: %v\n", cfgErr)
		default:
			fmt.Fprintf(os.Stderr, "path search failed: %v\n", err)
		}
		os.Exit(1)
	}

	var out []byte
	switch strings.ToLower(*format) {
	case "geojson":
		out, err = geojson.Marshal(result)
	case "json":
		out, err = json.MarshalIndent(result, "", "  ")
	default:
		fmt.Fprintf(os.Stderr, "unknown format %q\n", *format)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode result: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintln(os.Stdout, string(out))
	if !result.Found {
		os.Exit(exitNotFound)
	}
}
