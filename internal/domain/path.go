package domain

import "encoding/json"

// MaxNextStations bounds the continuation reported beyond the destination.
const MaxNextStations = 3

// NextStation is a station reached after the destination, with the distance
// accumulated from the destination.
type NextStation struct {
	Station
	Distance float64 `json:"distance"`
}

// PathResult describes the minimum-weight path between two stations.
type PathResult struct {
	Path         []Station     `json:"path"`
	Edges        []Edge        `json:"edges"`
	NextStations []NextStation `json:"nextStations"`
	NextEdges    []Edge        `json:"nextEdges"`
	TotalWeight  float64       `json:"totalWeight"`
	Found        bool          `json:"found"`
}

// NotFound returns the canonical empty result.
func NotFound() PathResult {
	return PathResult{
		Path:         []Station{},
		Edges:        []Edge{},
		NextStations: []NextStation{},
		NextEdges:    []Edge{},
	}
}

// MarshalJSON keeps empty collections as [] rather than null.
func (r PathResult) MarshalJSON() ([]byte, error) {
	type alias PathResult
	out := alias(r)
	if out.Path == nil {
		out.Path = []Station{}
	}
	if out.Edges == nil {
		out.Edges = []Edge{}
	}
	if out.NextStations == nil {
		out.NextStations = []NextStation{}
	}
	if out.NextEdges == nil {
		out.NextEdges = []Edge{}
	}
	return json.Marshal(out)
}

// StationIDs lists the ids along the path in order.
func (r PathResult) StationIDs() []string {
	ids := make([]string, len(r.Path))
	for i, s := range r.Path {
		ids[i] = s.StationID
	}
	return ids
}

// Clone returns a copy that shares no slices with r.
func (r PathResult) Clone() PathResult {
	out := r
	if r.Path != nil {
		out.Path = append([]Station{}, r.Path...)
	}
	out.Edges = cloneEdges(r.Edges)
	if r.NextStations != nil {
		out.NextStations = append([]NextStation{}, r.NextStations...)
	}
	out.NextEdges = cloneEdges(r.NextEdges)
	return out
}

func cloneEdges(edges []Edge) []Edge {
	if edges == nil {
		return nil
	}
	out := make([]Edge, len(edges))
	for i, e := range edges {
		if e.RouteIDs != nil {
			e.RouteIDs = append([]string{}, e.RouteIDs...)
		}
		out[i] = e
	}
	return out
}
