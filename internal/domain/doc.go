// Package domain models SFIDE fire detections derived from Meteosat imagery.
//
// # Data Source
//
// Detections are produced by the SFIDE algorithm from MTG and MSG
// geostationary satellite imagery received over EUMETCast. Each processed
// acquisition is dropped into the source tree as a GeoJSON FeatureCollection
// of point features, one feature per detected thermal anomaly.
//
// # SFIDE Property Conventions
//
// Acquisition time:
//
//	ACQ_DATE = "YYYYMMDD" and ACQ_TIME = "HHMM", both UTC.
//	Three-digit times are zero-padded: "930" → "0930".
//	Features whose date or time cannot be parsed are skipped.
//
// DATETIME:
//
//	Combined "YYYYMMDDHHMM" string, usually present. When absent it is
//	derived from ACQ_DATE and ACQ_TIME.
//
// SATELLITE:
//
//	Spacecraft identifier, e.g. "MTG-I1" or "MSG-3". Upstream files are
//	inconsistent about case and separators ("msg 3", "MTG_I1"); names are
//	normalized to upper case with "-" separators.
//
// Coordinates:
//
//	LATITUDE and LONGITUDE properties in WGS-84 decimal degrees. Point
//	geometry coordinates carry the same position in [lon, lat] order and are
//	used as a fallback when the properties are missing.
//
// FRP:
//
//	Fire radiative power in megawatts, when the retrieval succeeded.
//	Zero or absent means unmeasured.
//
// # Detection IDs
//
// IDs reproduce the aggregator's historical composition so that aggregates
// written by earlier tooling stay deduplicated across upgrades:
//
//	<DATETIME>_<SATELLITE>_<lat %.5f>_<lon %.5f>
//
// A missing DATETIME is derived from the acquisition time; a missing
// SATELLITE falls back to "N/A". Same inputs, same ID: reprocessing a
// product file is idempotent.
//
// # Intensity Classification
//
// Derived from FRP for map styling. The four-level scale is a
// project-specific simplification:
//
//	<15 MW low | <50 MW moderate | <150 MW high | ≥150 MW extreme
//
// Detections without a measured FRP carry no intensity.
package domain
