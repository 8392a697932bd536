package generator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/railradar/backend/internal/domain"
	"github.com/railradar/backend/internal/store"
)

// HubID is the station shared by every generated line.
const HubID = "HUB"

const (
	edgeTypeRail     = "rail"
	edgeTypeTransfer = "transfer"
	// transferPenalty inflates walking distance so transfers cost more than riding.
	transferPenalty = 3
	// smallest edge weight in km; coincident stations still get a positive edge
	minWeightKm = 0.001
)

// Generator produces synthetic station graphs in the rail graph format.
type Generator struct {
	cfg  Config
	rand *rand.Rand
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.NumLines <= 0 {
		cfg.NumLines = def.NumLines
	}
	if cfg.StationsPerLine <= 1 {
		cfg.StationsPerLine = def.StationsPerLine
	}
	if cfg.SpacingKm <= 0 {
		cfg.SpacingKm = def.SpacingKm
	}
	if cfg.TransferChance < 0 {
		cfg.TransferChance = 0
	}
	if cfg.TransferMaxKm <= 0 {
		cfg.TransferMaxKm = def.TransferMaxKm
	}
	if cfg.CenterLat == 0 && cfg.CenterLon == 0 {
		cfg.CenterLat, cfg.CenterLon = def.CenterLat, def.CenterLon
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:  cfg,
		rand: rand.New(rand.NewSource(cfg.Seed)),
	}
}

type stop struct {
	station domain.Station
	line    int
}

// Generate builds radial lines that all start at the hub. Consecutive stops
// are joined in both directions with weights equal to the great-circle
// distance in kilometres. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (store.Dataset, error) {
	center := orb.Point{g.cfg.CenterLon, g.cfg.CenterLat}
	hub := domain.Station{StationID: HubID, Name: "Central", Lat: center.Lat(), Lon: center.Lon()}

	stations := []domain.Station{hub}
	var edges []domain.Edge
	var stops []stop

	for l := 0; l < g.cfg.NumLines; l++ {
		if err := ctx.Err(); err != nil {
			return store.Dataset{}, err
		}

		routeID := fmt.Sprintf("L%d", l+1)
		bearing := 360*float64(l)/float64(g.cfg.NumLines) + g.jitter(10)
		prev := hub
		for s := 1; s < g.cfg.StationsPerLine; s++ {
			step := g.cfg.SpacingKm * 1000 * (0.7 + 0.6*g.rand.Float64())
			bearing += g.jitter(12)
			pt := geo.PointAtBearingAndDistance(orb.Point{prev.Lon, prev.Lat}, bearing, step)

			st := domain.Station{
				StationID: fmt.Sprintf("%s-%03d", routeID, s),
				Name:      fmt.Sprintf("Line %d Stop %d", l+1, s),
				Lat:       round(pt.Lat(), 6),
				Lon:       round(pt.Lon(), 6),
			}
			stations = append(stations, st)
			stops = append(stops, stop{station: st, line: l})

			km := distanceKm(prev, st)
			edges = append(edges,
				domain.Edge{FromStation: prev.StationID, ToStation: st.StationID, EdgeType: edgeTypeRail, Weight: km, RouteIDs: []string{routeID}, DirectionID: 0},
				domain.Edge{FromStation: st.StationID, ToStation: prev.StationID, EdgeType: edgeTypeRail, Weight: km, RouteIDs: []string{routeID}, DirectionID: 1},
			)
			prev = st
		}
	}

	for _, s := range stops {
		if g.cfg.TransferChance == 0 || g.rand.Float64() >= g.cfg.TransferChance {
			continue
		}
		other, km, ok := nearestOnOtherLine(s, stops)
		if !ok || km > g.cfg.TransferMaxKm {
			continue
		}
		w := round(km*transferPenalty, 3)
		edges = append(edges,
			domain.Edge{FromStation: s.station.StationID, ToStation: other.StationID, EdgeType: edgeTypeTransfer, Weight: w, RouteIDs: []string{}},
			domain.Edge{FromStation: other.StationID, ToStation: s.station.StationID, EdgeType: edgeTypeTransfer, Weight: w, RouteIDs: []string{}},
		)
	}

	return store.Dataset{Stations: stations, Edges: edges}, nil
}

func nearestOnOtherLine(s stop, stops []stop) (domain.Station, float64, bool) {
	best := math.Inf(1)
	var found domain.Station
	for _, o := range stops {
		if o.line == s.line {
			continue
		}
		if km := distanceKm(s.station, o.station); km < best {
			best, found = km, o.station
		}
	}
	return found, best, !math.IsInf(best, 1)
}

func (g *Generator) jitter(deg float64) float64 {
	return (g.rand.Float64()*2 - 1) * deg
}

func distanceKm(a, b domain.Station) float64 {
	km := round(geo.Distance(orb.Point{a.Lon, a.Lat}, orb.Point{b.Lon, b.Lat})/1000, 3)
	return math.Max(km, minWeightKm)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
