package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/ctfwatch/ctfwatch/internal/cache"
	"github.com/ctfwatch/ctfwatch/internal/config"
	"github.com/ctfwatch/ctfwatch/internal/database"
	"github.com/ctfwatch/ctfwatch/internal/logging"
	"github.com/ctfwatch/ctfwatch/pkg/ingest"
	"github.com/ctfwatch/ctfwatch/pkg/jobs"
	"github.com/ctfwatch/ctfwatch/pkg/sources"
	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type ingestOptions struct {
	source string
	limit  int
	now    bool
}

func NewIngest() *cobra.Command {
	var (
		cfg  config.ServerCmdConfig
		opts ingestOptions
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Trigger an ingestion run",
		Long: `Enqueue an ingestion job for one source, or for every enabled source.
With --now the sources run concurrently in this process, after the events
schema is migrated, and one summary per source is printed.

Examples:
  ctfwatch ingest --source ctftime --limit 50
  ctfwatch ingest --now`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, &cfg, &opts)
		},
	}
	cmd.Flags().StringVar(&opts.source, "source", "", "Source to ingest (default all enabled sources)")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "Upstream records to request (default sources-limit)")
	cmd.Flags().BoolVar(&opts.now, "now", false, "Run inline instead of enqueueing a job")
	return withConfig(cmd, &cfg)
}

func runIngest(cmd *cobra.Command, conf *config.ServerCmdConfig, opts *ingestOptions) error {
	lg := setupLogger(conf)
	defer lg.Sync()
	ctx := logging.WithLogger(cmd.Context(), lg)

	limit := opts.limit
	if limit <= 0 {
		limit = conf.Sources.Limit
	}

	registry := sources.New(&conf.Sources, sources.NewClient(&conf.Sources))
	names := registry.Names()
	if opts.source != "" {
		if _, err := registry.Get(opts.source); err != nil {
			return err
		}
		names = []string{opts.source}
	}

	if opts.now {
		db, err := database.NewDatabase(ctx, &conf.DB, lg)
		if err != nil {
			return err
		}
		if err := database.MigrateDB(db); err != nil {
			return err
		}
		cacher, redisClient := cache.NewCache(&conf.Cache)
		if redisClient != nil {
			defer redisClient.Close()
		}
		pipeline, _ := newPipeline(conf, db, cacher)
		return reportOutcomes(ctx, cmd.OutOrStdout(), pipeline.RunAll(ctx, limit, names...))
	}

	pool, err := database.NewPool(ctx, &conf.DB)
	if err != nil {
		return err
	}
	defer pool.Close()
	client, err := jobs.NewInsertClient(pool, &conf.Queue, lg)
	if err != nil {
		return err
	}
	for _, name := range names {
		res, err := jobs.Enqueue(ctx, client, name, limit)
		if err != nil {
			return err
		}
		if res.UniqueSkippedAsDuplicate {
			cmd.Printf("%s: job %d already pending\n", name, res.Job.ID)
			continue
		}
		cmd.Printf("%s: enqueued job %d\n", name, res.Job.ID)
	}
	return nil
}

// reportOutcomes prints one line per source and fails when any source did.
func reportOutcomes(ctx context.Context, w io.Writer, outcomes []ingest.Outcome) error {
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			logging.FromContext(ctx).Error("ingest.failed", zap.String("source", o.Summary.Source), zap.Error(o.Err))
			fmt.Fprintf(w, "%s: failed: %v\n", o.Summary.Source, o.Err)
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", o.Summary.Source, o.Summary)
	}
	if failed > 0 {
		return errors.Errorf("%d of %d sources failed", failed, len(outcomes))
	}
	return nil
}
