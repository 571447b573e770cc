package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/valpamp/sfide-fire-map/internal/domain"
	"github.com/valpamp/sfide-fire-map/internal/observability"
)

// Extractor finds product files changed since the given time.
type Extractor interface {
	ChangedSince(ctx context.Context, since time.Time) ([]domain.SourceFile, error)
}

// Transformer converts a raw product feature into an enriched detection.
type Transformer interface {
	Transform(ctx context.Context, f domain.Feature) (domain.Detection, error)
}

// Loader merges detections into the aggregate layers.
type Loader interface {
	Apply(ctx context.Context, detections []domain.Detection) (domain.AggregateOutcome, error)
}

// Publisher forwards newly aggregated detections downstream. Optional.
type Publisher interface {
	PublishBatch(ctx context.Context, detections []domain.Detection) error
}

// StateStore persists the last successful run time between restarts.
type StateStore interface {
	LastRun() time.Time
	SaveLastRun(t time.Time) error
}

// Pipeline orchestrates the scan-transform-aggregate loop.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loader      Loader
	publisher   Publisher
	state       StateStore
	logger      *slog.Logger
	metrics     *observability.Metrics

	scanInterval time.Duration
	notify       <-chan struct{}
	ready        atomic.Bool
}

// New creates a Pipeline. publisher may be nil to disable publishing; notify
// may be nil when directory watching is disabled, leaving the periodic scan
// as the only trigger.
func New(e Extractor, t Transformer, l Loader, pub Publisher, state StateStore,
	logger *slog.Logger, metrics *observability.Metrics,
	scanInterval time.Duration, notify <-chan struct{},
) *Pipeline {
	return &Pipeline{
		extractor:    e,
		transformer:  t,
		loader:       l,
		publisher:    pub,
		state:        state,
		logger:       logger,
		metrics:      metrics,
		scanInterval: scanInterval,
		notify:       notify,
	}
}

// CheckReadiness returns nil once at least one aggregation run has
// completed, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no aggregation run has completed yet")
	}
	return nil
}

// Run executes an initial aggregation run, then re-runs on every scan
// interval tick or source change notification until the context is
// cancelled. Failed runs are retried with exponential backoff.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "scan_interval", p.scanInterval)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	ticker := time.NewTicker(p.scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if err := p.runOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Error("aggregation run failed", "error", err)
			p.metrics.RunsFailed.Inc()
			if !p.backoffOrStop(ctx, &backoff, maxBackoff) {
				return nil
			}
			continue
		}
		backoff = 200 * time.Millisecond

		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.C:
		case <-p.notify:
			p.logger.Debug("source change notification")
		}
	}
}

// runOnce performs one scan-transform-aggregate cycle.
func (p *Pipeline) runOnce(ctx context.Context) error {
	start := time.Now()
	// The state timestamp is taken before the scan so files landing while it
	// runs are picked up again next time.
	scanStart := domain.Clock().Now().UTC()
	p.metrics.RunsTotal.Inc()

	since := p.state.LastRun()
	if since.IsZero() {
		p.logger.Info("no previous run recorded, performing full scan")
	}

	files, err := p.extractor.ChangedSince(ctx, since)
	if err != nil {
		return err
	}
	p.metrics.FilesScanned.Add(float64(len(files)))

	detections := p.transformFiles(ctx, files)

	out, err := p.loader.Apply(ctx, detections)
	if err != nil {
		return err
	}
	p.metrics.DetectionsAdded.Add(float64(len(out.Added)))
	p.metrics.DuplicatesSkipped.Add(float64(out.Duplicates))
	p.metrics.WindowSize.Set(float64(out.WindowSize))

	p.publish(ctx, out.Added)

	if err := p.state.SaveLastRun(scanStart); err != nil {
		return err
	}

	p.metrics.ScanDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)

	if len(files) > 0 || len(out.Added) > 0 {
		p.logger.Info("aggregation run complete",
			"files", len(files),
			"added", len(out.Added),
			"duplicates", out.Duplicates,
			"outside_year", out.OutsideYear,
			"window", out.WindowSize,
			"duration", time.Since(start),
		)
	}
	return nil
}

// transformFiles parses every feature from the scanned files. Individual
// failures skip the feature, never the run.
func (p *Pipeline) transformFiles(ctx context.Context, files []domain.SourceFile) []domain.Detection {
	var detections []domain.Detection
	for _, f := range files {
		for _, feature := range f.Features {
			d, err := p.transformer.Transform(ctx, feature)
			if err != nil {
				p.logger.Warn("skipping feature", "file", f.Path, "error", err)
				p.metrics.ParseErrors.Inc()
				continue
			}
			detections = append(detections, d)
		}
	}
	p.metrics.FeaturesParsed.Add(float64(len(detections)))
	return detections
}

// publish forwards newly added detections. Publish failures are logged but
// never fail the run: the aggregate files, not the sink, are the system of
// record.
func (p *Pipeline) publish(ctx context.Context, added []domain.Detection) {
	if p.publisher == nil || len(added) == 0 {
		return
	}
	if err := p.publisher.PublishBatch(ctx, added); err != nil {
		p.logger.Warn("publish failed", "error", err, "detections", len(added))
		p.metrics.PublishErrors.Inc()
		return
	}
	p.metrics.DetectionsPublished.Add(float64(len(added)))
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
