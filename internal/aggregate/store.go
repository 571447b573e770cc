// Package aggregate maintains the map-ready GeoJSON layers: the deduplicated
// current-year aggregate and the rolling-window aggregate the fire map polls.
package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/valpamp/sfide-fire-map/internal/domain"
)

// Layer names servable over HTTP.
const (
	LayerWindow = "window"
	LayerYear   = "year"
)

// windowFileName is fixed regardless of the configured window duration; the
// hosted map requests this exact name.
const windowFileName = "sfide_aggregate_72h.geojson"

// entry is one aggregated detection: the output feature plus the fields
// needed for dedupe and pruning.
type entry struct {
	id      string
	acqTime time.Time
	feature domain.Feature
}

// snapshot is a serialized layer ready to serve.
type snapshot struct {
	data    []byte
	modTime time.Time
}

// Store holds the aggregate layers in memory and mirrors every change to the
// GeoJSON files in the output directory. It implements pipeline.Loader.
type Store struct {
	outputDir string
	window    time.Duration
	logger    *slog.Logger

	mu      sync.RWMutex
	year    int
	yearAgg []entry
	index   map[string]struct{}
	winAgg  []entry
	snaps   map[string]snapshot
}

// NewStore creates a store and loads any existing aggregate files for the
// current year. Corrupt or missing files start the corresponding layer
// empty; features inside them that no longer parse are dropped with a
// warning.
func NewStore(outputDir string, window time.Duration, logger *slog.Logger) *Store {
	s := &Store{
		outputDir: outputDir,
		window:    window,
		logger:    logger,
		year:      domain.Clock().Now().UTC().Year(),
		index:     make(map[string]struct{}),
		snaps:     make(map[string]snapshot),
	}

	s.yearAgg = s.loadLayer(s.yearFileName(), LayerYear)
	for _, e := range s.yearAgg {
		s.index[e.id] = struct{}{}
	}
	s.winAgg = s.loadLayer(windowFileName, LayerWindow)

	return s
}

// Apply merges a batch of detections into the layers and rewrites the
// aggregate files. Detections whose ID is already aggregated are dropped;
// detections acquired outside the current calendar year never enter the
// layers. The rolling window is pruned and rewritten on every call, even for
// an empty batch, so stale detections age out between product drops.
func (s *Store) Apply(_ context.Context, detections []domain.Detection) (domain.AggregateOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := domain.Clock().Now().UTC()
	s.rolloverLocked(now.Year())

	// Additions are staged and committed only after both layer files are
	// written, so a failed write leaves them uncommitted and the retry adds
	// them again instead of misclassifying them as duplicates.
	var out domain.AggregateOutcome
	var staged []entry
	batch := make(map[string]struct{})
	for _, d := range detections {
		if d.AcqTime.Year() != s.year {
			out.OutsideYear++
			continue
		}
		if _, dup := s.index[d.ID]; dup {
			out.Duplicates++
			continue
		}
		if _, dup := batch[d.ID]; dup {
			out.Duplicates++
			continue
		}
		staged = append(staged, entry{id: d.ID, acqTime: d.AcqTime, feature: domain.ToFeature(d)})
		batch[d.ID] = struct{}{}
		out.Added = append(out.Added, d)
	}

	window := pruneWindow(s.winAgg, staged, now.Add(-s.window))
	out.WindowSize = len(window)

	if err := s.writeLayerLocked(windowFileName, LayerWindow, window, now); err != nil {
		return out, err
	}
	if len(out.Added) > 0 {
		year := make([]entry, 0, len(s.yearAgg)+len(staged))
		year = append(year, s.yearAgg...)
		year = append(year, staged...)
		if err := s.writeLayerLocked(s.yearFileName(), LayerYear, year, now); err != nil {
			return out, err
		}
		s.yearAgg = year
		for _, e := range staged {
			s.index[e.id] = struct{}{}
		}
	}
	s.winAgg = window

	return out, nil
}

// Snapshot returns the serialized GeoJSON for a layer and its last write
// time. ok is false until the layer has been written at least once.
func (s *Store) Snapshot(layer string) (data []byte, modTime time.Time, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snaps[layer]
	return snap.data, snap.modTime, ok
}

// WindowSize returns the number of detections currently in the window layer.
func (s *Store) WindowSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.winAgg)
}

// rolloverLocked resets the year layer when the calendar year changes. The
// window layer survives rollover; its entries age out via the cutoff.
func (s *Store) rolloverLocked(year int) {
	if year == s.year {
		return
	}
	s.logger.Info("year rollover, starting new aggregate", "previous", s.year, "current", year)
	s.year = year
	s.yearAgg = nil
	s.index = make(map[string]struct{})
}

// pruneWindow rebuilds the window layer from the surviving existing entries
// plus the newly staged ones, deduplicated in order.
func pruneWindow(existing, staged []entry, cutoff time.Time) []entry {
	kept := make([]entry, 0, len(existing)+len(staged))
	seen := make(map[string]struct{}, len(existing)+len(staged))
	for _, e := range append(append([]entry{}, existing...), staged...) {
		if e.acqTime.Before(cutoff) {
			continue
		}
		if _, dup := seen[e.id]; dup {
			continue
		}
		kept = append(kept, e)
		seen[e.id] = struct{}{}
	}
	return kept
}

// writeLayerLocked serializes a layer, writes it atomically next to its
// final path, and refreshes the HTTP snapshot.
func (s *Store) writeLayerLocked(fileName, layer string, entries []entry, now time.Time) error {
	features := make([]domain.Feature, len(entries))
	for i, e := range entries {
		features[i] = e.feature
	}

	stem := fileName[:len(fileName)-len(filepath.Ext(fileName))]
	data, err := json.Marshal(domain.NewFeatureCollection(stem, features))
	if err != nil {
		return fmt.Errorf("serialize %s: %w", fileName, err)
	}

	path := filepath.Join(s.outputDir, fileName)
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("write %s: %w", fileName, err)
	}

	s.snaps[layer] = snapshot{data: data, modTime: now}
	return nil
}

// loadLayer reads an existing aggregate file, re-parses its features, and
// seeds the HTTP snapshot so restarts serve the last written layer
// immediately.
func (s *Store) loadLayer(fileName, layer string) []entry {
	path := filepath.Join(s.outputDir, fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("could not read aggregate file, starting empty", "path", path, "error", err)
		}
		return nil
	}

	var fc domain.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		s.logger.Warn("corrupt aggregate file, starting empty", "path", path, "error", err)
		return nil
	}

	if info, err := os.Stat(path); err == nil {
		s.snaps[layer] = snapshot{data: data, modTime: info.ModTime()}
	}

	entries := make([]entry, 0, len(fc.Features))
	for _, f := range fc.Features {
		d, err := domain.ParseFeature(f)
		if err != nil {
			s.logger.Warn("dropping unparseable aggregated feature", "path", path, "error", err)
			continue
		}
		entries = append(entries, entry{id: d.ID, acqTime: d.AcqTime, feature: f})
	}
	s.logger.Info("loaded aggregate file", "path", path, "features", len(entries))
	return entries
}

func (s *Store) yearFileName() string {
	return fmt.Sprintf("sfide_aggregate_%d.geojson", s.year)
}

// writeFileAtomic writes via a temp file and rename so the map never reads a
// half-written layer.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()        //nolint:errcheck // write error wins
		os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return err
	}
	return nil
}
