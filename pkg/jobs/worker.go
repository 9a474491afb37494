package jobs

import (
	"context"
	"time"

	"github.com/ctfwatch/ctfwatch/internal/logging"
	"github.com/ctfwatch/ctfwatch/pkg/ingest"
	"github.com/ctfwatch/ctfwatch/pkg/sources"
	"github.com/go-faster/errors"
	"github.com/riverqueue/river"
	"go.uber.org/zap"
)

type Runner interface {
	Run(ctx context.Context, source string, limit int) (ingest.Summary, error)
}

type IngestWorker struct {
	river.WorkerDefaults[IngestArgs]
	runner       Runner
	defaultLimit int
	timeout      time.Duration
}

func NewIngestWorker(runner Runner, defaultLimit int, timeout time.Duration) *IngestWorker {
	return &IngestWorker{
		runner:       runner,
		defaultLimit: defaultLimit,
		timeout:      timeout,
	}
}

// Work returns an error only when the upstream could not be read, leaving the
// retry to River. An unknown source is cancelled outright.
func (w *IngestWorker) Work(ctx context.Context, job *river.Job[IngestArgs]) error {
	lg := logging.FromContext(ctx).With(
		zap.Int64("job_id", job.ID),
		zap.Int("attempt", job.Attempt))
	ctx = logging.WithLogger(ctx, lg)

	limit := job.Args.Limit
	if limit <= 0 {
		limit = w.defaultLimit
	}

	summary, err := w.runner.Run(ctx, job.Args.Source, limit)
	if err != nil {
		if errors.Is(err, sources.ErrUnknownSource) {
			return river.JobCancel(err)
		}
		return err
	}

	if err := river.RecordOutput(ctx, summary.String()); err != nil {
		lg.Debug("jobs.output_not_recorded", zap.Error(err))
	}
	return nil
}

func (w *IngestWorker) Timeout(*river.Job[IngestArgs]) time.Duration {
	return w.timeout
}
