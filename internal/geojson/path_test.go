package geojson

import (
	"testing"

	gj "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railradar/backend/internal/domain"
)

func sample() domain.PathResult {
	a := domain.Station{StationID: "UT", Name: "Utrecht Centraal", Lat: 52.0894, Lon: 5.1100}
	b := domain.Station{StationID: "ASD", Name: "Amsterdam Centraal", Lat: 52.3791, Lon: 4.9003}
	c := domain.Station{StationID: "ASS", Name: "Amsterdam Sloterdijk", Lat: 52.3889, Lon: 4.8378}
	return domain.PathResult{
		Path:         []domain.Station{a, b},
		Edges:        []domain.Edge{{FromStation: "UT", ToStation: "ASD", Weight: 27, RouteIDs: []string{"IC", "SPR", "IC"}}},
		NextStations: []domain.NextStation{{Station: c, Distance: 5}},
		NextEdges:    []domain.Edge{{FromStation: "ASD", ToStation: "ASS", Weight: 5}},
		TotalWeight:  27,
		Found:        true,
	}
}

func TestFromPath(t *testing.T) {
	fc := FromPath(sample())
	require.Len(t, fc.Features, 5)

	path := fc.Features[0]
	require.True(t, path.Geometry.IsLineString())
	assert.Equal(t, [][]float64{{5.1100, 52.0894}, {4.9003, 52.3791}}, path.Geometry.LineString)
	assert.Equal(t, KindPath, path.Properties["kind"])
	assert.Equal(t, 27.0, path.Properties["total_weight"])
	assert.Equal(t, []string{"IC", "SPR"}, path.Properties["route_ids"])

	tail := fc.Features[1]
	assert.Equal(t, KindContinuation, tail.Properties["kind"])
	assert.Len(t, tail.Geometry.LineString, 2)

	stop := fc.Features[2]
	require.True(t, stop.Geometry.IsPoint())
	assert.Equal(t, "UT", stop.ID)
	assert.Equal(t, 0, stop.Properties["order"])

	next := fc.Features[4]
	assert.Equal(t, KindNextStation, next.Properties["kind"])
	assert.Equal(t, 5.0, next.Properties["distance"])
}

func TestFromPathSingleStation(t *testing.T) {
	res := sample()
	res.Path = res.Path[:1]
	res.Edges = nil
	res.NextStations = nil
	res.NextEdges = nil
	res.TotalWeight = 0

	fc := FromPath(res)
	require.Len(t, fc.Features, 1)
	assert.True(t, fc.Features[0].Geometry.IsPoint())
}

func TestMarshalNotFound(t *testing.T) {
	raw, err := Marshal(domain.NotFound())
	require.NoError(t, err)

	fc, err := gj.UnmarshalFeatureCollection(raw)
	require.NoError(t, err)
	assert.Empty(t, fc.Features)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(raw))
}
