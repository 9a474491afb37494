package cmd

import (
	"github.com/ctfwatch/ctfwatch/internal/config"
	"github.com/ctfwatch/ctfwatch/internal/database"
	"github.com/ctfwatch/ctfwatch/internal/logging"
	"github.com/ctfwatch/ctfwatch/pkg/jobs"
	"github.com/spf13/cobra"
)

func NewMigrate() *cobra.Command {
	var cfg config.ServerCmdConfig
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the events schema and job queue migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			lg := setupLogger(&cfg)
			defer lg.Sync()
			ctx := logging.WithLogger(cmd.Context(), lg)

			db, err := database.NewDatabase(ctx, &cfg.DB, lg)
			if err != nil {
				return err
			}
			if err := database.MigrateDB(db); err != nil {
				return err
			}
			pool, err := database.NewPool(ctx, &cfg.DB)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := jobs.Migrate(ctx, pool, lg); err != nil {
				return err
			}
			cmd.Println("migrations applied")
			return nil
		},
	}
	return withConfig(cmd, &cfg)
}
