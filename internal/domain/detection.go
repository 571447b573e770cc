package domain

import "time"

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Detection is the domain-rich representation of one SFIDE thermal anomaly
// after parsing and enrichment.
type Detection struct {
	ID        string    `json:"id"`
	Satellite string    `json:"satellite"`
	Geo       Geo       `json:"geo"`
	AcqTime   time.Time `json:"acq_time"`

	// FRP is the fire radiative power in MW, 0 when unmeasured.
	FRP        float64 `json:"frp,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Intensity  *string `json:"intensity,omitempty"`

	// Geocoding enrichment fields.
	PlaceName string `json:"place_name,omitempty"`
	GeoSource string `json:"geo_source,omitempty"` // "reverse", "original", "failed"

	ProcessedAt time.Time `json:"processed_at"`

	// Source is the product feature this detection was parsed from.
	// ToFeature emits a copy of it, never the original map.
	Source Feature `json:"-"`
}

// SourceFile carries a product file path alongside its parsed features so
// the pipeline can report per-file outcomes.
type SourceFile struct {
	Path     string
	ModTime  time.Time
	Features []Feature
}

// AggregateOutcome summarizes one application of a detection batch to the
// aggregate layers.
type AggregateOutcome struct {
	// Added holds the detections newly appended to the year layer, in input
	// order. These are the ones worth publishing downstream.
	Added       []Detection
	Duplicates  int // already aggregated under the same ID
	OutsideYear int // acquired outside the current calendar year
	WindowSize  int // detections in the rolling-window layer after pruning
}
