// Command genmock writes a mock SFIDE product tree for local runs and test
// fixtures. It synthesizes acquisitions of fire detections around a fixed
// set of Mediterranean hotspots using the actual domain package, so the
// generated files exercise the same parsing the service performs.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock/sfide \
//	  -start 2026-08-30T06:00:00Z \
//	  -acquisitions 12 \
//	  -per-acquisition 8
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/valpamp/sfide-fire-map/internal/domain"
)

// hotspot is a seed location detections cluster around.
type hotspot struct {
	name string
	lat  float64
	lon  float64
}

var hotspots = []hotspot{
	{name: "Aspromonte", lat: 38.1652, lon: 15.8341},
	{name: "Gargano", lat: 41.8321, lon: 15.9904},
	{name: "Supramonte", lat: 40.2537, lon: 9.4563},
	{name: "Madonie", lat: 37.8871, lon: 14.0253},
	{name: "Cilento", lat: 40.2784, lon: 15.2683},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory for the mock product tree")
	start := flag.String("start", "2026-08-30T06:00:00Z", "time of the first acquisition (RFC 3339)")
	acquisitions := flag.Int("acquisitions", 12, "number of acquisitions to generate")
	perAcquisition := flag.Int("per-acquisition", 8, "detections per acquisition")
	satellite := flag.String("satellite", "MTG-I1", "satellite identifier")
	seed := flag.Int64("seed", 1, "random seed, fixed for reproducible fixtures")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	startTime, err := time.Parse(time.RFC3339, *start)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}
	startTime = startTime.UTC()

	// Pin the domain clock so the round-trip check below is reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(startTime))
	defer domain.SetClock(nil)

	rng := rand.New(rand.NewSource(*seed))

	total := 0
	for i := 0; i < *acquisitions; i++ {
		acqTime := startTime.Add(time.Duration(i) * 15 * time.Minute)
		features := makeAcquisition(rng, acqTime, *satellite, *perAcquisition)

		path := productPath(*out, acqTime)
		if err := writeProduct(path, features); err != nil {
			return err
		}
		total += len(features)
	}

	log.Printf("wrote %d acquisitions, %d detections, under %s", *acquisitions, total, *out)
	return nil
}

// makeAcquisition builds one acquisition's features and verifies each one
// round-trips through the domain parser.
func makeAcquisition(rng *rand.Rand, acqTime time.Time, satellite string, count int) []domain.Feature {
	features := make([]domain.Feature, 0, count)
	for i := 0; i < count; i++ {
		h := hotspots[rng.Intn(len(hotspots))]
		lat := h.lat + (rng.Float64()-0.5)*0.2
		lon := h.lon + (rng.Float64()-0.5)*0.2
		frp := 5 + rng.Float64()*250

		f := domain.Feature{
			Type:     "Feature",
			Geometry: &domain.Geometry{Type: "Point", Coordinates: []float64{round5(lon), round5(lat)}},
			Properties: map[string]any{
				"ACQ_DATE":   acqTime.Format("20060102"),
				"ACQ_TIME":   acqTime.Format("1504"),
				"DATETIME":   acqTime.Format("200601021504"),
				"SATELLITE":  satellite,
				"LATITUDE":   round5(lat),
				"LONGITUDE":  round5(lon),
				"FRP":        round1(frp),
				"CONFIDENCE": round1(50 + rng.Float64()*50),
			},
		}

		if _, err := domain.ParseFeature(f); err != nil {
			log.Fatalf("generated unparseable feature: %v", err)
		}
		features = append(features, f)
	}
	return features
}

// productPath mirrors the layout of the real drop: per-day subdirectories.
func productPath(out string, acqTime time.Time) string {
	name := fmt.Sprintf("SFIDE_%s_%s.geojson", acqTime.Format("20060102"), acqTime.Format("1504"))
	return filepath.Join(out, acqTime.Format("20060102"), name)
}

func writeProduct(path string, features []domain.Feature) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	stem := filepath.Base(path)
	stem = stem[:len(stem)-len(filepath.Ext(stem))]
	data, err := json.MarshalIndent(domain.NewFeatureCollection(stem, features), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}

	log.Printf("%s: %d detections", path, len(features))
	return nil
}

func round5(v float64) float64 {
	return float64(int64(v*1e5+0.5)) / 1e5
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
