package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/ctfwatch/ctfwatch/internal/logging"
	"github.com/ctfwatch/ctfwatch/internal/metrics"
	"github.com/ctfwatch/ctfwatch/pkg/models"
	"github.com/ctfwatch/ctfwatch/pkg/normalize"
	"github.com/ctfwatch/ctfwatch/pkg/sources"
	"github.com/ctfwatch/ctfwatch/pkg/tagger"
	"github.com/ctfwatch/ctfwatch/pkg/upsert"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const maxParallelSources = 4

type Summary struct {
	RunID   string
	Source  string
	Fetched int
	Created int
	Updated int
	Skipped int
	Failed  int
}

func (s Summary) String() string {
	return fmt.Sprintf("Successfully ingested %d events (%d new)", s.Fetched, s.Created)
}

type Outcome struct {
	Summary Summary
	Err     error
}

// Notifier receives the events a run created.
type Notifier interface {
	Notify(ctx context.Context, events []*models.Event)
}

// Invalidator drops cached reads once a run changed stored events.
type Invalidator interface {
	Purge(ctx context.Context) error
}

type Pipeline struct {
	registry    *sources.Registry
	tagger      tagger.Tagger
	engine      *upsert.Engine
	notifier    Notifier
	invalidator Invalidator
}

type Option func(*Pipeline)

func WithInvalidator(inv Invalidator) Option {
	return func(p *Pipeline) { p.invalidator = inv }
}

func NewPipeline(registry *sources.Registry, tg tagger.Tagger, engine *upsert.Engine, notifier Notifier, opts ...Option) *Pipeline {
	p := &Pipeline{
		registry: registry,
		tagger:   tg,
		engine:   engine,
		notifier: notifier,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run ingests one source. Only a failure to read the upstream at all is
// returned; record level problems are logged and counted.
func (p *Pipeline) Run(ctx context.Context, source string, limit int) (Summary, error) {
	runID := uuid.NewString()
	lg := logging.FromContext(ctx).With(zap.String("run_id", runID), zap.String("source", source))
	ctx = logging.WithLogger(ctx, lg)
	summary := Summary{RunID: runID, Source: source}
	begin := time.Now()

	adapter, err := p.registry.Get(source)
	if err != nil {
		return summary, err
	}

	lg.Info("ingest.start", zap.Int("limit", limit))
	records, err := adapter.Fetch(ctx, limit)
	if err != nil {
		var pe *sources.ParseError
		if !errors.As(err, &pe) {
			metrics.IngestRuns.WithLabelValues(source, "failed").Inc()
			lg.Error("ingest.fetch_failed", zap.Error(err))
			return summary, errors.Wrapf(err, "ingest %s", source)
		}
		// an unreadable payload yields no records but is not a failed run
		lg.Error("ingest.parse_failed", zap.Error(err))
		records = nil
	}
	summary.Fetched = len(records)

	events := make([]*models.Event, 0, len(records))
	for _, rec := range records {
		ev, err := normalize.Normalize(rec, adapter.Type())
		if err != nil {
			summary.Skipped++
			lg.Warn("ingest.record_skipped", zap.String("source_id", rec.SourceID), zap.Error(err))
			continue
		}
		tags := tagger.Safe(ctx, p.tagger, ev.Title, ev.Description)
		ev.Meta["tags"] = tags.Strings()
		events = append(events, ev)
	}

	res := p.engine.Reconcile(ctx, events)
	summary.Created = len(res.Created)
	summary.Updated = res.Updated
	summary.Failed = res.Failed

	if res.Total > 0 && p.invalidator != nil {
		if err := p.invalidator.Purge(ctx); err != nil {
			lg.Warn("ingest.cache_purge_failed", zap.Error(err))
		}
	}
	if len(res.Created) > 0 && p.notifier != nil {
		p.notifier.Notify(ctx, res.Created)
	}

	metrics.IngestRuns.WithLabelValues(source, "ok").Inc()
	metrics.IngestRecords.WithLabelValues(source, "created").Add(float64(summary.Created))
	metrics.IngestRecords.WithLabelValues(source, "updated").Add(float64(summary.Updated))
	metrics.IngestRecords.WithLabelValues(source, "skipped").Add(float64(summary.Skipped))
	metrics.IngestRecords.WithLabelValues(source, "failed").Add(float64(summary.Failed))
	metrics.IngestDuration.WithLabelValues(source).Observe(time.Since(begin).Seconds())

	lg.Info("ingest.done",
		zap.Int("fetched", summary.Fetched),
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Duration("took", time.Since(begin)))
	return summary, nil
}

// RunAll ingests the named sources, or every registered source when none
// are named, concurrently. A failing source never stops the others.
func (p *Pipeline) RunAll(ctx context.Context, limit int, names ...string) []Outcome {
	if len(names) == 0 {
		names = p.registry.Names()
	}
	outcomes := make([]Outcome, len(names))

	var g errgroup.Group
	g.SetLimit(maxParallelSources)
	for i, name := range names {
		g.Go(func() error {
			summary, err := p.Run(ctx, name, limit)
			summary.Source = name
			outcomes[i] = Outcome{Summary: summary, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}
