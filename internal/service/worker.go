package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/railradar/backend/internal/domain"
	"github.com/railradar/backend/internal/store"
)

const (
	defaultIngestWorkers = 4
	defaultBatchSize     = 500
)

// GraphWriter persists batches of stations and edges. seq is the dataset
// position of the first element in the batch.
type GraphWriter interface {
	UpsertStations(ctx context.Context, seq int, stations []domain.Station) (int, error)
	UpsertEdges(ctx context.Context, seq int, edges []domain.Edge) (int, error)
}

// TaskError accumulates multiple errors produced during bulk ingestion.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d batches failed:", len(e.Errors))
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

// Unwrap exposes the individual batch errors to errors.Is and errors.As.
func (e *TaskError) Unwrap() []error {
	return e.Errors
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// IngestReport counts what the database acknowledged.
type IngestReport struct {
	Stations int
	Edges    int
}

// BulkIngestor loads a station graph in batches using a worker pool.
type BulkIngestor struct {
	writer    GraphWriter
	workers   int
	batchSize int
}

// NewBulkIngestor creates a new BulkIngestor with the provided concurrency
// and batch size. Non-positive values fall back to defaults.
func NewBulkIngestor(writer GraphWriter, workers, batchSize int) *BulkIngestor {
	if workers <= 0 {
		workers = defaultIngestWorkers
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &BulkIngestor{
		writer:    writer,
		workers:   workers,
		batchSize: batchSize,
	}
}

// Ingest writes every station before any edge, since edges are matched to
// stored stations by id.
func (bi *BulkIngestor) Ingest(ctx context.Context, ds store.Dataset) (IngestReport, error) {
	var report IngestReport
	n, err := bi.IngestStations(ctx, ds.Stations)
	report.Stations = n
	if err != nil {
		return report, fmt.Errorf("ingest stations: %w", err)
	}
	n, err = bi.IngestEdges(ctx, ds.Edges)
	report.Edges = n
	if err != nil {
		return report, fmt.Errorf("ingest edges: %w", err)
	}
	return report, nil
}

// IngestStations writes stations concurrently in batches.
func (bi *BulkIngestor) IngestStations(ctx context.Context, stations []domain.Station) (int, error) {
	var written atomic.Int64
	err := bi.run(ctx, batches(len(stations), bi.batchSize), func(idx int) error {
		lo, hi := bounds(idx, bi.batchSize, len(stations))
		n, err := bi.writer.UpsertStations(ctx, lo, stations[lo:hi])
		written.Add(int64(n))
		return err
	})
	return int(written.Load()), err
}

// IngestEdges writes edges concurrently in batches.
func (bi *BulkIngestor) IngestEdges(ctx context.Context, edges []domain.Edge) (int, error) {
	var written atomic.Int64
	err := bi.run(ctx, batches(len(edges), bi.batchSize), func(idx int) error {
		lo, hi := bounds(idx, bi.batchSize, len(edges))
		n, err := bi.writer.UpsertEdges(ctx, lo, edges[lo:hi])
		written.Add(int64(n))
		return err
	})
	return int(written.Load()), err
}

func batches(total, size int) int {
	return (total + size - 1) / size
}

func bounds(idx, size, total int) (int, int) {
	lo := idx * size
	hi := lo + size
	if hi > total {
		hi = total
	}
	return lo, hi
}

func (bi *BulkIngestor) run(ctx context.Context, total int, workerFn func(idx int) error) error {
	if total == 0 {
		return nil
	}
	indexCh := make(chan int)
	errCh := make(chan error, total)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			if err := workerFn(idx); err != nil {
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
		}
	}

	workers := bi.workers
	if workers > total {
		workers = total
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := 0; i < total; i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	if err := ctx.Err(); err != nil {
		return err
	}

	var taskErr TaskError
	for err := range errCh {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		taskErr.append(err)
	}
	return taskErr.asError()
}
