// Command validate performs end-to-end data integrity checks across a SFIDE
// product tree and the aggregate layers the service produced from it: source
// GeoJSON, the per-year aggregate, and the rolling-window aggregate. It
// verifies parseability, deduplication, window membership, and enrichment
// correctness.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -source-dir data/mock/sfide \
//	  -aggregate-dir data/out \
//	  -now 2026-08-30T09:00:00Z
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/valpamp/sfide-fire-map/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	sourceDir := flag.String("source-dir", "", "directory containing source SFIDE GeoJSON products")
	aggregateDir := flag.String("aggregate-dir", "", "directory containing the aggregate layer files")
	window := flag.Duration("window", 72*time.Hour, "rolling window the aggregate was built with")
	now := flag.String("now", "", "reference time (RFC 3339); defaults to the latest source acquisition")
	flag.Parse()

	if *sourceDir == "" || *aggregateDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	var refTime time.Time
	if *now != "" {
		t, err := time.Parse(time.RFC3339, *now)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: invalid -now: %v\n", err)
			os.Exit(1)
		}
		refTime = t.UTC()
	}

	if code := run(*sourceDir, *aggregateDir, *window, refTime); code != 0 {
		os.Exit(code)
	}
}

func run(sourceDir, aggregateDir string, window time.Duration, refTime time.Time) int {
	fmt.Println("=== SFIDE Aggregate Integrity Validation ===")
	fmt.Println()

	source, srcPhase := loadSource(sourceDir)

	if refTime.IsZero() {
		for _, d := range source {
			if d.AcqTime.After(refTime) {
				refTime = d.AcqTime
			}
		}
	}
	if refTime.IsZero() {
		fmt.Fprintln(os.Stderr, "FATAL: no reference time: no -now flag and no parseable source detections")
		return 1
	}
	fmt.Printf("Reference time: %s, window: %s\n", refTime.Format(time.RFC3339), window)

	// Enrichment below re-derives ProcessedAt; the value is not compared, but
	// pin the clock so runs are reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(refTime))
	defer domain.SetClock(nil)

	yearPath := filepath.Join(aggregateDir, fmt.Sprintf("sfide_aggregate_%d.geojson", refTime.Year()))
	windowPath := filepath.Join(aggregateDir, "sfide_aggregate_72h.geojson")

	yearDets, yearPhase := loadAggregate("year aggregate parseability", yearPath)
	winDets, winPhase := loadAggregate("window aggregate parseability", windowPath)

	phases := []*phase{
		srcPhase,
		yearPhase,
		validateYearAggregate(source, yearDets, refTime),
		winPhase,
		validateWindowAggregate(source, yearDets, winDets, refTime, window),
		validateEnrichment(append(yearDets, winDets...)),
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Detections: %d source, %d year layer, %d window layer\n",
		len(source), len(yearDets), len(winDets))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// loadSource walks the product tree and parses every feature, recording parse
// failures in the returned phase.
func loadSource(dir string) ([]domain.Detection, *phase) {
	p := &phase{name: "source parseability"}

	var detections []domain.Detection
	files := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".geojson") {
			return nil
		}
		files++

		fc, err := readCollection(path)
		if err != nil {
			p.errorf("%s: %v", path, err)
			return nil
		}
		for i, f := range fc.Features {
			det, err := domain.ParseFeature(f)
			if err != nil {
				p.errorf("%s feature %d: %v", path, i, err)
				continue
			}
			detections = append(detections, domain.EnrichDetection(det))
		}
		return nil
	})
	if err != nil {
		p.errorf("walk %s: %v", dir, err)
	}
	if files == 0 {
		p.errorf("no .geojson files under %s", dir)
	}
	return detections, p
}

// loadAggregate parses an aggregate layer file back through the same feature
// parser the service uses, so a layer the service could not re-load fails here.
func loadAggregate(name, path string) ([]domain.Detection, *phase) {
	p := &phase{name: name}

	fc, err := readCollection(path)
	if err != nil {
		p.errorf("%s: %v", path, err)
		return nil, p
	}

	detections := make([]domain.Detection, 0, len(fc.Features))
	for i, f := range fc.Features {
		det, err := domain.ParseFeature(f)
		if err != nil {
			p.errorf("%s feature %d: %v", path, i, err)
			continue
		}
		detections = append(detections, det)
	}
	return detections, p
}

func readCollection(path string) (domain.FeatureCollection, error) {
	var fc domain.FeatureCollection
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := json.Unmarshal(data, &fc); err != nil {
		return fc, err
	}
	if fc.Features == nil {
		return fc, fmt.Errorf("missing features array")
	}
	return fc, nil
}

// ── Validation phases ──

// validateYearAggregate checks the year layer holds every current-year source
// detection exactly once.
func validateYearAggregate(source, year []domain.Detection, refTime time.Time) *phase {
	p := &phase{name: "year aggregate completeness"}

	yearIDs := make(map[string]int, len(year))
	for _, d := range year {
		yearIDs[d.ID]++
	}
	for id, n := range yearIDs {
		if n > 1 {
			p.errorf("duplicate ID in year layer: %s (%d occurrences)", id, n)
		}
	}

	for _, d := range source {
		if d.AcqTime.Year() != refTime.Year() {
			continue
		}
		if _, ok := yearIDs[d.ID]; !ok {
			p.errorf("source detection missing from year layer: %s", d.ID)
		}
	}
	return p
}

// validateWindowAggregate checks the window layer is exactly the current-year
// detections acquired within the window, with no strays.
func validateWindowAggregate(source, year, win []domain.Detection, refTime time.Time, window time.Duration) *phase {
	p := &phase{name: "window aggregate correctness"}
	cutoff := refTime.Add(-window)

	yearIDs := make(map[string]bool, len(year))
	for _, d := range year {
		yearIDs[d.ID] = true
	}

	winIDs := make(map[string]int, len(win))
	for _, d := range win {
		winIDs[d.ID]++
		if !yearIDs[d.ID] {
			p.errorf("window detection absent from year layer: %s", d.ID)
		}
		if d.AcqTime.Before(cutoff) {
			p.errorf("window detection older than cutoff %s: %s acquired %s",
				cutoff.Format(time.RFC3339), d.ID, d.AcqTime.Format(time.RFC3339))
		}
	}
	for id, n := range winIDs {
		if n > 1 {
			p.errorf("duplicate ID in window layer: %s (%d occurrences)", id, n)
		}
	}

	for _, d := range source {
		if d.AcqTime.Year() != refTime.Year() || d.AcqTime.Before(cutoff) || d.AcqTime.After(refTime) {
			continue
		}
		if _, ok := winIDs[d.ID]; !ok {
			p.errorf("in-window source detection missing from window layer: %s", d.ID)
		}
	}
	return p
}

// validateEnrichment re-derives enrichment for every aggregate detection and
// checks the layered properties agree with it.
func validateEnrichment(dets []domain.Detection) *phase {
	p := &phase{name: "enrichment consistency"}

	for _, d := range dets {
		enriched := domain.EnrichDetection(d)

		if got := propString(d.Source, "SATELLITE"); got != enriched.Satellite {
			p.errorf("%s: SATELLITE property %q, expected normalized %q", d.ID, got, enriched.Satellite)
		}

		got := propString(d.Source, "INTENSITY")
		switch {
		case enriched.Intensity == nil && got != "":
			p.errorf("%s: INTENSITY property %q present but FRP is unmeasured", d.ID, got)
		case enriched.Intensity != nil && got != *enriched.Intensity:
			p.errorf("%s: INTENSITY property %q, expected %q for FRP %.1f", d.ID, got, *enriched.Intensity, d.FRP)
		}

		if got := propString(d.Source, "DATETIME"); got != d.AcqTime.Format("200601021504") {
			p.errorf("%s: DATETIME property %q does not match acquisition time", d.ID, got)
		}
	}
	return p
}

func propString(f domain.Feature, key string) string {
	v, ok := f.Properties[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
