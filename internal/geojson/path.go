// Package geojson renders path results as GeoJSON feature collections.
package geojson

import (
	gj "github.com/paulmach/go.geojson"

	"github.com/railradar/backend/internal/domain"
)

// Feature kinds set in the "kind" property.
const (
	KindPath         = "path"
	KindContinuation = "continuation"
	KindStation      = "station"
	KindNextStation  = "next_station"
)

// FromPath builds a collection with one LineString for the path, one for the
// continuation past the destination, and a Point per station. A result that
// was not found produces an empty collection.
func FromPath(res domain.PathResult) *gj.FeatureCollection {
	fc := gj.NewFeatureCollection()
	if !res.Found || len(res.Path) == 0 {
		return fc
	}

	if len(res.Path) > 1 {
		line := gj.NewLineStringFeature(coordinates(res.Path))
		line.SetProperty("kind", KindPath)
		line.SetProperty("from", res.Path[0].StationID)
		line.SetProperty("to", res.Path[len(res.Path)-1].StationID)
		line.SetProperty("total_weight", res.TotalWeight)
		line.SetProperty("route_ids", routeIDs(res.Edges))
		fc.AddFeature(line)
	}

	if len(res.NextStations) > 0 {
		end := res.Path[len(res.Path)-1]
		tail := make([]domain.Station, 0, len(res.NextStations)+1)
		tail = append(tail, end)
		for _, ns := range res.NextStations {
			tail = append(tail, ns.Station)
		}
		line := gj.NewLineStringFeature(coordinates(tail))
		line.SetProperty("kind", KindContinuation)
		line.SetProperty("from", end.StationID)
		line.SetProperty("distance", res.NextStations[len(res.NextStations)-1].Distance)
		fc.AddFeature(line)
	}

	for i, st := range res.Path {
		pt := point(st)
		pt.SetProperty("kind", KindStation)
		pt.SetProperty("order", i)
		fc.AddFeature(pt)
	}
	for i, ns := range res.NextStations {
		pt := point(ns.Station)
		pt.SetProperty("kind", KindNextStation)
		pt.SetProperty("order", i)
		pt.SetProperty("distance", ns.Distance)
		fc.AddFeature(pt)
	}
	return fc
}

// Marshal encodes FromPath(res).
func Marshal(res domain.PathResult) ([]byte, error) {
	return FromPath(res).MarshalJSON()
}

func point(st domain.Station) *gj.Feature {
	f := gj.NewPointFeature([]float64{st.Lon, st.Lat})
	f.ID = st.StationID
	f.SetProperty("station_id", st.StationID)
	f.SetProperty("name", st.Name)
	return f
}

func coordinates(stations []domain.Station) [][]float64 {
	coords := make([][]float64, 0, len(stations))
	for _, st := range stations {
		coords = append(coords, []float64{st.Lon, st.Lat})
	}
	return coords
}

// routeIDs lists the distinct routes used along the path in first-seen order.
func routeIDs(edges []domain.Edge) []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, e := range edges {
		for _, id := range e.RouteIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
