package database

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ctfwatch/ctfwatch/internal/config"
	"github.com/ctfwatch/ctfwatch/internal/logging"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const connectAttempts = 5

// NewDatabase opens the Postgres connection, retrying a few times so the
// service survives a database that is still starting up.
func NewDatabase(ctx context.Context, cfg *config.DBConfig, lg *zap.Logger) (*gorm.DB, error) {
	gormLogger := NewLogger(time.Second, true, logging.ParseLevel(cfg.LogLevel))

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second

	var db *gorm.DB
	op := func() error {
		var err error
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  cfg.DataSource,
			PreferSimpleProtocol: !cfg.PrepareStmt,
		}), &gorm.Config{
			Logger:         gormLogger,
			TranslateError: true,
			NowFunc: func() time.Time {
				return time.Now().UTC()
			},
		})
		if err != nil {
			lg.Warn("database.open_failed", zap.Error(err))
		}
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, connectAttempts), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	if cfg.Pool.Enable {
		rawDB, err := db.DB()
		if err != nil {
			return nil, errors.Wrap(err, "get sql db")
		}
		rawDB.SetMaxOpenConns(cfg.Pool.MaxOpenConnections)
		rawDB.SetMaxIdleConns(cfg.Pool.MaxIdleConnections)
		rawDB.SetConnMaxLifetime(cfg.Pool.MaxLifetime)
	}

	return db, nil
}

// Ping reports whether the database answers.
func Ping(ctx context.Context, db *gorm.DB) error {
	rawDB, err := db.DB()
	if err != nil {
		return err
	}
	return rawDB.PingContext(ctx)
}

// NewPool opens the pgx pool used by the job queue.
func NewPool(ctx context.Context, cfg *config.DBConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DataSource)
	if err != nil {
		return nil, errors.Wrap(err, "parse data source")
	}
	if cfg.Pool.Enable && cfg.Pool.MaxOpenConnections > 0 {
		poolCfg.MaxConns = int32(cfg.Pool.MaxOpenConnections)
		poolCfg.MaxConnLifetime = cfg.Pool.MaxLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Wrap(err, "open pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping pool")
	}
	return pool, nil
}
