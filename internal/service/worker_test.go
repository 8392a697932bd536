package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/railradar/backend/internal/domain"
	"github.com/railradar/backend/internal/store"
)

type call struct {
	kind string
	seq  int
	size int
}

type stubWriter struct {
	mu       sync.Mutex
	calls    []call
	failAt   map[int]error
	dropEdge bool
}

func (s *stubWriter) UpsertStations(ctx context.Context, seq int, stations []domain.Station) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call{kind: "stations", seq: seq, size: len(stations)})
	if err := s.failAt[seq]; err != nil {
		return 0, err
	}
	return len(stations), nil
}

func (s *stubWriter) UpsertEdges(ctx context.Context, seq int, edges []domain.Edge) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call{kind: "edges", seq: seq, size: len(edges)})
	if s.dropEdge {
		return len(edges) - 1, nil
	}
	return len(edges), nil
}

func stationsN(n int) []domain.Station {
	out := make([]domain.Station, n)
	for i := range out {
		out[i] = domain.Station{StationID: string(rune('A' + i))}
	}
	return out
}

func TestBulkIngestorBatches(t *testing.T) {
	writer := &stubWriter{}
	ingestor := NewBulkIngestor(writer, 3, 2)

	ds := store.Dataset{
		Stations: stationsN(5),
		Edges: []domain.Edge{
			{FromStation: "A", ToStation: "B", Weight: 1},
			{FromStation: "B", ToStation: "C", Weight: 1},
			{FromStation: "C", ToStation: "D", Weight: 1},
		},
	}
	report, err := ingestor.Ingest(context.Background(), ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Stations != 5 || report.Edges != 3 {
		t.Fatalf("unexpected report %+v", report)
	}

	if len(writer.calls) != 5 {
		t.Fatalf("expected 5 batches, got %d", len(writer.calls))
	}
	// Every station batch lands before the first edge batch.
	for i, c := range writer.calls {
		if i < 3 && c.kind != "stations" {
			t.Fatalf("call %d: expected stations, got %s", i, c.kind)
		}
		if i >= 3 && c.kind != "edges" {
			t.Fatalf("call %d: expected edges, got %s", i, c.kind)
		}
	}

	var seqs []int
	for _, c := range writer.calls[:3] {
		seqs = append(seqs, c.seq)
	}
	sort.Ints(seqs)
	if seqs[0] != 0 || seqs[1] != 2 || seqs[2] != 4 {
		t.Fatalf("unexpected station batch offsets %v", seqs)
	}
}

func TestBulkIngestorReportsSkippedEdges(t *testing.T) {
	writer := &stubWriter{dropEdge: true}
	ingestor := NewBulkIngestor(writer, 1, 10)

	n, err := ingestor.IngestEdges(context.Background(), []domain.Edge{
		{FromStation: "A", ToStation: "B"},
		{FromStation: "A", ToStation: "ghost"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 written edge, got %d", n)
	}
}

func TestBulkIngestorAggregatesErrors(t *testing.T) {
	errA := errors.New("batch at 0 failed")
	errB := errors.New("batch at 4 failed")
	writer := &stubWriter{failAt: map[int]error{0: errA, 4: errB}}
	ingestor := NewBulkIngestor(writer, 2, 2)

	report, err := ingestor.Ingest(context.Background(), store.Dataset{Stations: stationsN(5)})
	if err == nil {
		t.Fatal("expected error")
	}
	var taskErr *TaskError
	if !errors.As(err, &taskErr) {
		t.Fatalf("expected TaskError, got %T", err)
	}
	if len(taskErr.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(taskErr.Errors))
	}
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected both batch errors to be reachable: %v", err)
	}
	if report.Stations != 2 {
		t.Fatalf("expected 2 stations written, got %d", report.Stations)
	}
	for _, c := range writer.calls {
		if c.kind == "edges" {
			t.Fatal("edges must not be written after station failures")
		}
	}
}

func TestBulkIngestorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBulkIngestor(&stubWriter{}, 2, 1).IngestStations(ctx, stationsN(4))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBulkIngestorEmpty(t *testing.T) {
	writer := &stubWriter{}
	report, err := NewBulkIngestor(writer, 0, 0).Ingest(context.Background(), store.Dataset{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report != (IngestReport{}) || len(writer.calls) != 0 {
		t.Fatalf("expected no work, got %+v and %d calls", report, len(writer.calls))
	}
}
