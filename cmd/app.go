package cmd

import (
	"github.com/ctfwatch/ctfwatch/internal/cache"
	"github.com/ctfwatch/ctfwatch/internal/config"
	"github.com/ctfwatch/ctfwatch/pkg/ingest"
	"github.com/ctfwatch/ctfwatch/pkg/notify"
	"github.com/ctfwatch/ctfwatch/pkg/sources"
	"github.com/ctfwatch/ctfwatch/pkg/tagger"
	"github.com/ctfwatch/ctfwatch/pkg/upsert"
	"gorm.io/gorm"
)

func newPipeline(cfg *config.ServerCmdConfig, db *gorm.DB, cacher cache.Cacher) (*ingest.Pipeline, *sources.Registry) {
	registry := sources.New(&cfg.Sources, sources.NewClient(&cfg.Sources))
	pipeline := ingest.NewPipeline(
		registry,
		tagger.NewKeywordTagger(),
		upsert.NewEngine(upsert.NewGormStore(db)),
		notify.FromConfig(&cfg.Notify),
		ingest.WithInvalidator(cacher),
	)
	return pipeline, registry
}
