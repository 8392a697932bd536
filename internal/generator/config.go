package generator

// Config drives the synthetic rail network generator.
type Config struct {
	NumLines        int
	StationsPerLine int
	// SpacingKm is the mean distance between consecutive stops.
	SpacingKm float64
	// TransferChance is the probability that a stop gets a walking transfer
	// to the nearest stop of another line.
	TransferChance float64
	TransferMaxKm  float64
	CenterLat      float64
	CenterLon      float64
	Seed           int64
}

// DefaultConfig returns a mid-sized network centred on Amsterdam.
func DefaultConfig() Config {
	return Config{
		NumLines:        8,
		StationsPerLine: 20,
		SpacingKm:       2.5,
		TransferChance:  0.15,
		TransferMaxKm:   1.5,
		CenterLat:       52.3791,
		CenterLon:       4.9003,
		Seed:            42,
	}
}
