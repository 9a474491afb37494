package jobs

import (
	"context"

	"github.com/ctfwatch/ctfwatch/internal/config"
	"github.com/ctfwatch/ctfwatch/internal/logging"
	"github.com/ctfwatch/ctfwatch/pkg/sources"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/riverqueue/river/rivertype"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Client = river.Client[pgx.Tx]

// Schedules maps every enabled source to its cron expression.
func Schedules(cfg *config.SourcesConfig) map[string]string {
	s := make(map[string]string)
	if cfg.CTFTime.Enable && cfg.CTFTime.Schedule != "" {
		s[sources.CTFTimeName] = cfg.CTFTime.Schedule
	}
	if cfg.RSS.Enable && cfg.RSS.Schedule != "" {
		s[sources.FeedName] = cfg.RSS.Schedule
	}
	return s
}

// PeriodicJobs turns cron expressions into River periodic jobs.
func PeriodicJobs(schedules map[string]string, limit int) ([]*river.PeriodicJob, error) {
	jobs := make([]*river.PeriodicJob, 0, len(schedules))
	for source, spec := range schedules {
		schedule, err := cron.ParseStandard(spec)
		if err != nil {
			return nil, errors.Wrapf(err, "schedule for %s", source)
		}
		jobs = append(jobs, river.NewPeriodicJob(
			schedule,
			func() (river.JobArgs, *river.InsertOpts) {
				return IngestArgs{Source: source, Limit: limit}, nil
			},
			nil,
		))
	}
	return jobs, nil
}

// NewWorkerClient builds a client that works one queue per source with a
// single worker each.
func NewWorkerClient(pool *pgxpool.Pool, cfg *config.ServerCmdConfig, registry *sources.Registry, runner Runner, lg *zap.Logger) (*Client, error) {
	workers := river.NewWorkers()
	if err := river.AddWorkerSafely(workers, NewIngestWorker(runner, cfg.Sources.Limit, cfg.Queue.JobTimeout)); err != nil {
		return nil, err
	}

	queues := make(map[string]river.QueueConfig)
	for _, name := range registry.Names() {
		queues[QueueName(name)] = river.QueueConfig{MaxWorkers: 1}
	}

	var periodic []*river.PeriodicJob
	if cfg.Queue.Periodic {
		var err error
		if periodic, err = PeriodicJobs(Schedules(&cfg.Sources), cfg.Sources.Limit); err != nil {
			return nil, err
		}
	}

	return river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:       queues,
		Workers:      workers,
		PeriodicJobs: periodic,
		MaxAttempts:  cfg.Queue.MaxAttempts,
		JobTimeout:   cfg.Queue.JobTimeout,
		Logger:       logging.Slog(lg),
	})
}

// NewInsertClient builds a client that only enqueues jobs.
func NewInsertClient(pool *pgxpool.Pool, cfg *config.QueueConfig, lg *zap.Logger) (*Client, error) {
	return river.NewClient(riverpgxv5.New(pool), &river.Config{
		MaxAttempts: cfg.MaxAttempts,
		Logger:      logging.Slog(lg),
	})
}

// Enqueue inserts an ingestion job. A job already pending for the source is
// reported through JobInsertResult.UniqueSkippedAsDuplicate.
func Enqueue(ctx context.Context, client *Client, source string, limit int) (*rivertype.JobInsertResult, error) {
	res, err := client.Insert(ctx, IngestArgs{Source: source, Limit: limit}, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "enqueue %s", source)
	}
	return res, nil
}

// Migrate brings River's tables up to date.
func Migrate(ctx context.Context, pool *pgxpool.Pool, lg *zap.Logger) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), &rivermigrate.Config{Logger: logging.Slog(lg)})
	if err != nil {
		return err
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return errors.Wrap(err, "river migrate")
	}
	for _, v := range res.Versions {
		lg.Info("river.migrated", zap.Int("version", v.Version), zap.Duration("took", v.Duration))
	}
	return nil
}
