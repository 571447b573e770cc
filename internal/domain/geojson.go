package domain

// Geometry is a GeoJSON geometry. SFIDE products only ever carry points,
// so coordinates are modeled as a flat [lon, lat] pair.
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [lon, lat]
}

// Feature is a single GeoJSON feature. Properties are kept as a generic map
// so that upstream keys this service does not understand survive aggregation
// untouched.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   *Geometry      `json:"geometry,omitempty"`
	Properties map[string]any `json:"properties"`
}

// FeatureCollection is a GeoJSON feature collection. Name matches the output
// file stem, e.g. "sfide_aggregate_72h".
type FeatureCollection struct {
	Type     string    `json:"type"`
	Name     string    `json:"name,omitempty"`
	Features []Feature `json:"features"`
}

// NewFeatureCollection wraps features in a named collection. A nil slice is
// replaced with an empty one so the output always serializes "features": [].
func NewFeatureCollection(name string, features []Feature) FeatureCollection {
	if features == nil {
		features = []Feature{}
	}
	return FeatureCollection{
		Type:     "FeatureCollection",
		Name:     name,
		Features: features,
	}
}
