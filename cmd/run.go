package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ctfwatch/ctfwatch/internal/cache"
	"github.com/ctfwatch/ctfwatch/internal/config"
	"github.com/ctfwatch/ctfwatch/internal/database"
	"github.com/ctfwatch/ctfwatch/internal/logging"
	"github.com/ctfwatch/ctfwatch/pkg/api"
	"github.com/ctfwatch/ctfwatch/pkg/health"
	"github.com/ctfwatch/ctfwatch/pkg/jobs"
	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewRun() *cobra.Command {
	var cfg config.ServerCmdConfig
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the read API, the ingestion worker and the periodic schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApplication(cmd.Context(), &cfg)
		},
	}
	return withConfig(cmd, &cfg)
}

func runApplication(ctx context.Context, conf *config.ServerCmdConfig) error {
	lg := setupLogger(conf)
	defer lg.Sync()
	ctx = logging.WithLogger(ctx, lg)

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

	pipeline, registry := newPipeline(conf, db, cacher)

	var riverClient *jobs.Client
	if conf.Queue.Enable {
		pool, err := database.NewPool(ctx, &conf.DB)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := jobs.Migrate(ctx, pool, lg); err != nil {
			return err
		}
		riverClient, err = jobs.NewWorkerClient(pool, conf, registry, pipeline, lg)
		if err != nil {
			return errors.Wrap(err, "create job client")
		}
		if err := riverClient.Start(ctx); err != nil {
			return errors.Wrap(err, "start job client")
		}
		lg.Info("jobs.started", zap.Strings("sources", registry.Names()))
	}

	server := api.NewServer(db, cacher, conf.Cache.TTL, health.NewChecker(db, redisClient))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", conf.Server.Port),
		Handler:           api.NewRouter(server, lg),
		ReadTimeout:       conf.Server.ReadTimeout,
		WriteTimeout:      conf.Server.WriteTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("server.started", zap.String("addr", fmt.Sprintf("http://localhost:%d", conf.Server.Port)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		lg.Error("server.failed", zap.Error(err))
	}

	lg.Info("server.shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("server.shutdown_failed", zap.Error(err))
	}
	if riverClient != nil {
		if err := riverClient.Stop(shutdownCtx); err != nil {
			lg.Error("jobs.stop_failed", zap.Error(err))
		}
	}
	lg.Info("server.stopped")
	return nil
}
