// Package pathfinder computes minimum-weight paths over a station snapshot.
//
// A Graph never changes after NewGraph returns, so one instance may serve
// concurrent FindPath calls. The package holds no other state.
package pathfinder

import (
	"fmt"
	"math"

	"github.com/railradar/backend/internal/domain"
)

// ConfigurationError reports a snapshot that Dijkstra cannot run on.
type ConfigurationError struct {
	EdgeIndex int
	Edge      domain.Edge
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("edge %d (%s -> %s): %s", e.EdgeIndex, e.Edge.FromStation, e.Edge.ToStation, e.Reason)
}

// Graph is the adjacency view of one snapshot. Station ids are interned to
// their position in the snapshot.
type Graph struct {
	stations  []domain.Station
	index     map[string]int
	edges     []domain.Edge
	adjacency [][]int
	pairs     map[stationPair]int // first edge index per ordered pair
}

type stationPair struct {
	from, to string
}

// NewGraph builds the adjacency lists for the supplied snapshot. Outgoing
// edges keep their order from the edge list, parallel edges are all kept and
// edges whose source is not a known station are left out of the adjacency.
// When a station id repeats, the first record wins. Every weight must be
// finite and strictly positive.
func NewGraph(stations []domain.Station, edges []domain.Edge) (*Graph, error) {
	g := &Graph{
		stations: make([]domain.Station, 0, len(stations)),
		index:    make(map[string]int, len(stations)),
		edges:    edges,
		pairs:    make(map[stationPair]int, len(edges)),
	}
	for _, s := range stations {
		if _, dup := g.index[s.StationID]; dup {
			continue
		}
		g.index[s.StationID] = len(g.stations)
		g.stations = append(g.stations, s)
	}

	g.adjacency = make([][]int, len(g.stations))
	for i := range g.adjacency {
		g.adjacency[i] = []int{}
	}

	for i, e := range edges {
		if err := validateWeight(e.Weight); err != "" {
			return nil, &ConfigurationError{EdgeIndex: i, Edge: e, Reason: err}
		}
		key := stationPair{e.FromStation, e.ToStation}
		if _, seen := g.pairs[key]; !seen {
			g.pairs[key] = i
		}
		from, ok := g.index[e.FromStation]
		if !ok {
			continue
		}
		g.adjacency[from] = append(g.adjacency[from], i)
	}
	return g, nil
}

func validateWeight(w float64) string {
	switch {
	case math.IsNaN(w):
		return "weight is NaN"
	case math.IsInf(w, 0):
		return "weight is infinite"
	case w <= 0:
		return fmt.Sprintf("weight %g is not positive", w)
	}
	return ""
}

// Len returns the number of distinct stations.
func (g *Graph) Len() int { return len(g.stations) }

// Station looks up a station record by id.
func (g *Graph) Station(id string) (domain.Station, bool) {
	idx, ok := g.index[id]
	if !ok {
		return domain.Station{}, false
	}
	return g.stations[idx], true
}

// Outgoing returns the edges leaving id in adjacency order.
func (g *Graph) Outgoing(id string) []domain.Edge {
	idx, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]domain.Edge, 0, len(g.adjacency[idx]))
	for _, ei := range g.adjacency[idx] {
		out = append(out, g.edges[ei])
	}
	return out
}
