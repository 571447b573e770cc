package pipeline

import (
	"context"
	"log/slog"

	"github.com/valpamp/sfide-fire-map/internal/domain"
)

// DetectionTransformer implements Transformer using domain transform
// functions with optional geocoding enrichment.
type DetectionTransformer struct {
	geocoder domain.Geocoder
	logger   *slog.Logger
}

// NewTransformer creates a DetectionTransformer. Pass a nil geocoder to
// disable geocoding enrichment.
func NewTransformer(geocoder domain.Geocoder, logger *slog.Logger) *DetectionTransformer {
	return &DetectionTransformer{
		geocoder: geocoder,
		logger:   logger,
	}
}

func (t *DetectionTransformer) Transform(ctx context.Context, f domain.Feature) (domain.Detection, error) {
	d, err := domain.ParseFeature(f)
	if err != nil {
		return domain.Detection{}, err
	}

	d = domain.EnrichDetection(d)
	d = domain.EnrichWithGeocoding(ctx, d, t.geocoder, t.logger)

	return d, nil
}
