package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseFeature converts a raw SFIDE product feature into a Detection.
// It expects the property conventions documented in the package comment.
func ParseFeature(f Feature) (Detection, error) {
	if f.Properties == nil {
		return Detection{}, fmt.Errorf("parse feature: no properties")
	}

	acqTime, err := parseAcqTime(propString(f.Properties, "ACQ_DATE"), propString(f.Properties, "ACQ_TIME"))
	if err != nil {
		return Detection{}, fmt.Errorf("parse feature: %w", err)
	}

	lat, lon := featureCoordinates(f)

	return Detection{
		ID:         generateID(f.Properties, acqTime, lat, lon),
		Satellite:  propString(f.Properties, "SATELLITE"),
		Geo:        Geo{Lat: lat, Lon: lon},
		AcqTime:    acqTime,
		FRP:        propFloat(f.Properties, "FRP"),
		Confidence: propFloat(f.Properties, "CONFIDENCE"),
		Source:     f,
	}, nil
}

// parseAcqTime combines ACQ_DATE ("YYYYMMDD") and ACQ_TIME ("HHMM") into a
// UTC time. Three-digit times are zero-padded, matching upstream files that
// drop the leading zero before 10:00 UTC.
func parseAcqTime(acqDate, acqTime string) (time.Time, error) {
	acqDate = strings.TrimSpace(acqDate)
	acqTime = strings.TrimSpace(acqTime)
	if len(acqDate) != 8 {
		return time.Time{}, fmt.Errorf("invalid ACQ_DATE %q", acqDate)
	}
	// An absent ACQ_TIME must not pad into a fabricated midnight acquisition.
	if acqTime == "" {
		return time.Time{}, fmt.Errorf("missing ACQ_TIME")
	}
	for len(acqTime) < 4 {
		acqTime = "0" + acqTime
	}
	if len(acqTime) != 4 {
		return time.Time{}, fmt.Errorf("invalid ACQ_TIME %q", acqTime)
	}

	year, errY := strconv.Atoi(acqDate[0:4])
	month, errMo := strconv.Atoi(acqDate[4:6])
	day, errD := strconv.Atoi(acqDate[6:8])
	hour, errH := strconv.Atoi(acqTime[0:2])
	mins, errMi := strconv.Atoi(acqTime[2:4])
	if errY != nil || errMo != nil || errD != nil || errH != nil || errMi != nil {
		return time.Time{}, fmt.Errorf("invalid acquisition time %q %q", acqDate, acqTime)
	}
	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || mins > 59 {
		return time.Time{}, fmt.Errorf("acquisition time out of range %q %q", acqDate, acqTime)
	}

	t := time.Date(year, time.Month(month), day, hour, mins, 0, 0, time.UTC)
	// time.Date normalizes Feb 30 into March; reject anything that moved.
	if t.Day() != day || t.Month() != time.Month(month) {
		return time.Time{}, fmt.Errorf("acquisition time out of range %q %q", acqDate, acqTime)
	}
	return t, nil
}

// featureCoordinates returns the detection position, preferring the LATITUDE
// and LONGITUDE properties and falling back to the point geometry.
func featureCoordinates(f Feature) (lat, lon float64) {
	lat = propFloat(f.Properties, "LATITUDE")
	lon = propFloat(f.Properties, "LONGITUDE")
	if lat != 0 || lon != 0 {
		return lat, lon
	}
	if f.Geometry != nil && len(f.Geometry.Coordinates) == 2 {
		return f.Geometry.Coordinates[1], f.Geometry.Coordinates[0]
	}
	return 0, 0
}

// generateID reproduces the historical aggregate ID composition:
// <DATETIME>_<SATELLITE>_<lat>_<lon> with coordinates at five decimals.
// A missing DATETIME is derived from the acquisition time; a missing
// SATELLITE falls back to "N/A" so IDs stay compatible with aggregates
// written by earlier tooling.
func generateID(props map[string]any, acqTime time.Time, lat, lon float64) string {
	dt := propString(props, "DATETIME")
	if dt == "" {
		dt = acqTime.Format("200601021504")
	}
	sat := propString(props, "SATELLITE")
	if sat == "" {
		sat = "N/A"
	}
	return fmt.Sprintf("%s_%s_%.5f_%.5f", dt, sat, lat, lon)
}

// EnrichDetection normalizes the satellite name, derives the intensity class
// from FRP, and stamps the processing time.
func EnrichDetection(d Detection) Detection {
	d.Satellite = normalizeSatellite(d.Satellite)
	d.Intensity = deriveIntensity(d.FRP)
	d.ProcessedAt = clock.Now().UTC()
	return d
}

// normalizeSatellite canonicalizes spacecraft names: upper case with "-"
// separators, e.g. "mtg_i1" -> "MTG-I1". Unknown names pass through.
func normalizeSatellite(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "_", "-")
	name = strings.ReplaceAll(name, " ", "-")
	return name
}

// deriveIntensity maps fire radiative power to a four-level class used for
// map styling: <15 MW low, <50 MW moderate, <150 MW high, else extreme.
// Returns nil when FRP is unmeasured.
func deriveIntensity(frp float64) *string {
	if frp <= 0 {
		return nil
	}

	var s string
	switch {
	case frp < 15:
		s = "low"
	case frp < 50:
		s = "moderate"
	case frp < 150:
		s = "high"
	default:
		s = "extreme"
	}
	return &s
}

// ToFeature renders a detection as an output GeoJSON feature. The original
// product properties are copied through with enrichment fields layered on
// top; the source map is never mutated.
func ToFeature(d Detection) Feature {
	props := make(map[string]any, len(d.Source.Properties)+4)
	for k, v := range d.Source.Properties {
		props[k] = v
	}

	if _, ok := props["DATETIME"]; !ok {
		props["DATETIME"] = d.AcqTime.Format("200601021504")
	}
	if d.Satellite != "" {
		props["SATELLITE"] = d.Satellite
	}
	if d.Intensity != nil {
		props["INTENSITY"] = *d.Intensity
	}
	if d.PlaceName != "" {
		props["PLACE_NAME"] = d.PlaceName
	}

	geom := d.Source.Geometry
	if geom == nil {
		geom = &Geometry{Type: "Point", Coordinates: []float64{d.Geo.Lon, d.Geo.Lat}}
	}

	return Feature{
		Type:       "Feature",
		Geometry:   geom,
		Properties: props,
	}
}

// propString reads a property as a string, tolerating numeric JSON values.
func propString(props map[string]any, key string) string {
	v, ok := props[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// propFloat reads a property as a float64, tolerating string-encoded numbers.
func propFloat(props map[string]any, key string) float64 {
	v, ok := props[key]
	if !ok || v == nil {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
