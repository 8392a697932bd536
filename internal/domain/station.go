package domain

// Station is a stop in the rail network snapshot. StationID is unique within a snapshot.
type Station struct {
	StationID string  `json:"station_id"`
	Name      string  `json:"name"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
}

// Edge is a directed, weighted segment between two stations.
type Edge struct {
	FromStation string   `json:"from_station"`
	ToStation   string   `json:"to_station"`
	EdgeType    string   `json:"edge_type"`
	Weight      float64  `json:"weight"`
	RouteIDs    []string `json:"route_ids"`
	DirectionID int      `json:"direction_id"`
}

// Route is a route identifier derived from the edges that reference it.
type Route struct {
	RouteID        string `json:"route_id"`
	RouteShortName string `json:"route_short_name"`
	RouteLongName  string `json:"route_long_name"`
}

// NewRoute derives display names for a bare route id.
func NewRoute(routeID string) Route {
	return Route{
		RouteID:        routeID,
		RouteShortName: routeID,
		RouteLongName:  "Route " + routeID,
	}
}
