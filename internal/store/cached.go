package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/railradar/backend/internal/domain"
)

// Snapshot is an immutable view of the station graph. Version increases on
// every successful reload, so it can key caches derived from the snapshot.
type Snapshot struct {
	Version  uint64
	Stations []domain.Station
	Edges    []domain.Edge
	LoadedAt time.Time
}

// LoadObserver is notified after every reload attempt.
type LoadObserver func(snap Snapshot, took time.Duration, err error)

// CachedOption customises a CachedStore.
type CachedOption func(*CachedStore)

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) CachedOption {
	return func(c *CachedStore) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLoadObserver registers fn to be called after each reload.
func WithLoadObserver(fn LoadObserver) CachedOption {
	return func(c *CachedStore) {
		c.observer = fn
	}
}

// CachedStore keeps the latest snapshot of a source for ttl. Concurrent
// callers that find the snapshot stale share a single reload.
//
// A ttl of zero reloads on every call (still coalescing concurrent callers).
type CachedStore struct {
	source   GraphStore
	ttl      time.Duration
	now      func() time.Time
	observer LoadObserver
	flight   singleflight.Group

	mu      sync.RWMutex
	current *Snapshot
	version uint64
}

// NewCachedStore wraps source.
func NewCachedStore(source GraphStore, ttl time.Duration, opts ...CachedOption) *CachedStore {
	c := &CachedStore{
		source: source,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the cached snapshot, reloading it when missing or expired.
// The returned slices are shared and must not be modified.
func (c *CachedStore) Snapshot(ctx context.Context) (Snapshot, error) {
	if snap, ok := c.fresh(); ok {
		return snap, nil
	}

	// The reload outlives any single caller's cancellation; waiters give up
	// on their own context instead.
	ch := c.flight.DoChan("snapshot", func() (any, error) {
		return c.reload(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Snapshot{}, res.Err
		}
		return res.Val.(Snapshot), nil
	}
}

// Invalidate drops the cached snapshot so the next call reloads.
func (c *CachedStore) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = nil
}

// ListStations implements GraphStore from the cached snapshot.
func (c *CachedStore) ListStations(ctx context.Context) ([]domain.Station, error) {
	snap, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Stations, nil
}

// ListEdges implements GraphStore from the cached snapshot.
func (c *CachedStore) ListEdges(ctx context.Context) ([]domain.Edge, error) {
	snap, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Edges, nil
}

// LoadDataset implements datasetLoader so stacked stores read one snapshot.
func (c *CachedStore) LoadDataset(ctx context.Context) (Dataset, error) {
	snap, err := c.Snapshot(ctx)
	if err != nil {
		return Dataset{}, err
	}
	return Dataset{Stations: snap.Stations, Edges: snap.Edges}, nil
}

func (c *CachedStore) fresh() (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return Snapshot{}, false
	}
	if c.now().Sub(c.current.LoadedAt) >= c.ttl {
		return Snapshot{}, false
	}
	return *c.current, true
}

func (c *CachedStore) reload(ctx context.Context) (Snapshot, error) {
	start := c.now()
	ds, err := load(ctx, c.source)
	if err != nil {
		err = fmt.Errorf("load graph snapshot: %w", err)
		c.notify(Snapshot{}, start, err)
		return Snapshot{}, err
	}

	if ds.Stations == nil {
		ds.Stations = []domain.Station{}
	}
	if ds.Edges == nil {
		ds.Edges = []domain.Edge{}
	}

	c.mu.Lock()
	c.version++
	snap := Snapshot{
		Version:  c.version,
		Stations: ds.Stations,
		Edges:    ds.Edges,
		LoadedAt: c.now(),
	}
	c.current = &snap
	c.mu.Unlock()

	c.notify(snap, start, nil)
	return snap, nil
}

func (c *CachedStore) notify(snap Snapshot, start time.Time, err error) {
	if c.observer != nil {
		c.observer(snap, c.now().Sub(start), err)
	}
}
