// Package sfide reads the SFIDE product drop directory: the tree of per-
// acquisition GeoJSON files written by the EUMETCast processing chain.
package sfide

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/valpamp/sfide-fire-map/internal/domain"
)

// Scanner finds product files modified since the last successful run.
// It implements pipeline.Extractor.
type Scanner struct {
	root   string
	logger *slog.Logger
}

// NewScanner creates a scanner over the given source tree.
func NewScanner(root string, logger *slog.Logger) *Scanner {
	return &Scanner{root: root, logger: logger}
}

// ChangedSince walks the source tree and returns every .geojson file whose
// modification time is strictly after since, with its features parsed.
// A zero since means a full scan. Unreadable or malformed files are logged
// and skipped; a missing source root is an error.
func (s *Scanner) ChangedSince(ctx context.Context, since time.Time) ([]domain.SourceFile, error) {
	if _, err := os.Stat(s.root); err != nil {
		return nil, fmt.Errorf("source directory %s: %w", s.root, err)
	}

	var files []domain.SourceFile
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			s.logger.Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".geojson") {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			s.logger.Warn("skipping file, stat failed", "path", path, "error", err)
			return nil
		}
		if !info.ModTime().After(since) {
			return nil
		}

		features, err := readFeatures(path)
		if err != nil {
			s.logger.Warn("skipping file", "path", path, "error", err)
			return nil
		}

		files = append(files, domain.SourceFile{
			Path:     path,
			ModTime:  info.ModTime(),
			Features: features,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// readFeatures parses a product file as a GeoJSON FeatureCollection and
// returns its features.
func readFeatures(path string) ([]domain.Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var fc domain.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if fc.Features == nil {
		return nil, fmt.Errorf("no features list")
	}
	return fc.Features, nil
}
