package domain

import (
	"context"
	"log/slog"
)

// EnrichWithGeocoding attempts to resolve a detection's coordinates to a
// place name. If geocoder is nil or the lookup fails, the detection is
// returned with GeoSource set accordingly (graceful degradation).
func EnrichWithGeocoding(ctx context.Context, d Detection, geocoder Geocoder, logger *slog.Logger) Detection {
	if geocoder == nil {
		return d
	}

	if d.Geo.Lat == 0 && d.Geo.Lon == 0 {
		d.GeoSource = "original"
		return d
	}

	result, err := geocoder.ReverseGeocode(ctx, d.Geo.Lat, d.Geo.Lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"detection_id", d.ID,
			"lat", d.Geo.Lat,
			"lon", d.Geo.Lon,
			"error", err,
		)
		d.GeoSource = "failed"
		return d
	}
	if result.PlaceName == "" {
		d.GeoSource = "original"
		return d
	}

	d.PlaceName = result.PlaceName
	d.GeoSource = "reverse"
	return d
}
