package cmd

import (
	"github.com/ctfwatch/ctfwatch/internal/cache"
	"github.com/ctfwatch/ctfwatch/internal/config"
	"github.com/ctfwatch/ctfwatch/internal/database"
	"github.com/ctfwatch/ctfwatch/internal/logging"
	"github.com/ctfwatch/ctfwatch/pkg/health"
	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
)

func NewCheckCmd() *cobra.Command {
	var cfg config.ServerCmdConfig
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the self-check against the database, redis and stored data",
		RunE: func(cmd *cobra.Command, args []string) error {
			lg := setupLogger(&cfg)
			defer lg.Sync()
			ctx := logging.WithLogger(cmd.Context(), lg)

			db, err := database.NewDatabase(ctx, &cfg.DB, lg)
			if err != nil {
				return err
			}
			_, redisClient := cache.NewCache(&cfg.Cache)
			if redisClient != nil {
				defer redisClient.Close()
			}

			st := health.NewChecker(db, redisClient).Check(ctx)
			cmd.Printf("api:      %s\n", st.API)
			cmd.Printf("database: %s\n", st.Database)
			cmd.Printf("redis:    %s\n", st.Redis)
			cmd.Printf("data:     %s\n", st.Data)
			cmd.Printf("overall:  %s\n", st.Overall)
			if !st.Healthy() {
				return errors.New("self-check failed")
			}
			return nil
		},
	}
	return withConfig(cmd, &cfg)
}
