package pathfinder

import (
	"container/heap"
	"math"

	"github.com/railradar/backend/internal/domain"
)

const noEdge = -1

// FindPath returns the minimum-weight path from startID to endID together
// with up to domain.MaxNextStations stations beyond the destination.
// Unknown ids and unreachable destinations produce domain.NotFound().
func FindPath(g *Graph, startID, endID string) domain.PathResult {
	if g == nil {
		return domain.NotFound()
	}
	start, ok := g.index[startID]
	if !ok {
		return domain.NotFound()
	}
	end, ok := g.index[endID]
	if !ok {
		return domain.NotFound()
	}

	dist, via := g.shortestFrom(start, end)
	if math.IsInf(dist[end], 1) {
		return domain.NotFound()
	}

	// Walk predecessors back from the destination.
	hops := []int{end}
	for cur := end; cur != start; {
		ei := via[cur]
		if ei == noEdge {
			return domain.NotFound()
		}
		cur = g.index[g.edges[ei].FromStation]
		hops = append(hops, cur)
	}

	result := domain.PathResult{
		Path:        make([]domain.Station, 0, len(hops)),
		Edges:       make([]domain.Edge, 0, len(hops)-1),
		TotalWeight: dist[end],
		Found:       true,
	}
	onPath := make(map[int]struct{}, len(hops))
	for i := len(hops) - 1; i >= 0; i-- {
		idx := hops[i]
		if i < len(hops)-1 {
			result.Edges = append(result.Edges, g.firstEdge(hops[i+1], idx))
		}
		result.Path = append(result.Path, g.stations[idx])
		onPath[idx] = struct{}{}
	}

	result.NextStations, result.NextEdges = g.extend(end, onPath)
	return result
}

// firstEdge returns the earliest edge in the edge list joining from to to.
// With parallel edges this need not be the edge Dijkstra relaxed, so the
// reported edges can weigh more than TotalWeight.
func (g *Graph) firstEdge(from, to int) domain.Edge {
	return g.edges[g.pairs[stationPair{g.stations[from].StationID, g.stations[to].StationID}]]
}

// shortestFrom runs Dijkstra from start. via[i] holds the index of the edge
// that last improved station i. The search stops once target is settled,
// since no later relaxation can change its distance or predecessor chain.
func (g *Graph) shortestFrom(start, target int) ([]float64, []int) {
	n := len(g.stations)
	dist := make([]float64, n)
	via := make([]int, n)
	for i := range dist {
		dist[i] = math.Inf(1)
		via[i] = noEdge
	}
	dist[start] = 0

	visited := make([]bool, n)
	pq := &candidateHeap{{dist: 0, idx: start}}
	for pq.Len() > 0 {
		c := heap.Pop(pq).(candidate)
		if visited[c.idx] || c.dist > dist[c.idx] {
			continue
		}
		visited[c.idx] = true
		if c.idx == target {
			break
		}

		for _, ei := range g.adjacency[c.idx] {
			e := g.edges[ei]
			to, ok := g.index[e.ToStation]
			if !ok || visited[to] {
				continue
			}
			if d := dist[c.idx] + e.Weight; d < dist[to] {
				dist[to] = d
				via[to] = ei
				heap.Push(pq, candidate{dist: d, idx: to})
			}
		}
	}
	return dist, via
}

// extend walks up to domain.MaxNextStations hops past the destination. Each
// hop takes the first edge whose target is not excluded; stations reached by
// the walk join the exclusion set so short cycles are never reported twice.
// The walk stops at the first chosen edge whose target is not a known station.
func (g *Graph) extend(from int, exclude map[int]struct{}) ([]domain.NextStation, []domain.Edge) {
	stations := make([]domain.NextStation, 0, domain.MaxNextStations)
	edges := make([]domain.Edge, 0, domain.MaxNextStations)

	excluded := make(map[int]struct{}, len(exclude)+domain.MaxNextStations)
	for k := range exclude {
		excluded[k] = struct{}{}
	}

	open := func(e domain.Edge) bool {
		to, ok := g.index[e.ToStation]
		if !ok {
			return true
		}
		_, seen := excluded[to]
		return !seen
	}

	cur := from
	total := 0.0
	for len(stations) < domain.MaxNextStations {
		next, ok := g.firstOpen(g.adjacency[cur], open)
		if !ok {
			next, ok = g.scanOpen(g.stations[cur].StationID, open)
		}
		if !ok {
			break
		}
		to, known := g.index[next.ToStation]
		if !known {
			break
		}
		total += next.Weight
		stations = append(stations, domain.NextStation{Station: g.stations[to], Distance: total})
		edges = append(edges, next)
		excluded[to] = struct{}{}
		cur = to
	}
	return stations, edges
}

func (g *Graph) firstOpen(candidates []int, open func(domain.Edge) bool) (domain.Edge, bool) {
	for _, ei := range candidates {
		if open(g.edges[ei]) {
			return g.edges[ei], true
		}
	}
	return domain.Edge{}, false
}

// scanOpen repeats the search over the full edge list. NewGraph already puts
// every edge leaving a known station into its adjacency, so for a Graph built
// there this finds nothing firstOpen missed; it only matters if the adjacency
// is ever derived from partial data.
func (g *Graph) scanOpen(fromID string, open func(domain.Edge) bool) (domain.Edge, bool) {
	for _, e := range g.edges {
		if e.FromStation == fromID && open(e) {
			return e, true
		}
	}
	return domain.Edge{}, false
}
