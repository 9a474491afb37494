package cmd

import (
	"github.com/ctfwatch/ctfwatch/internal/config"
	"github.com/ctfwatch/ctfwatch/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "ctfwatch",
		Short:             "Collects CTF and security conference events and announces new ones",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		SilenceUsage:      true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	cmd.AddCommand(NewRun(), NewIngest(), NewMigrate(), NewCheckCmd(), NewVersion())
	return cmd
}

// withConfig registers the config flags on cmd and loads and validates them
// before the command runs.
func withConfig(cmd *cobra.Command, cfg *config.ServerCmdConfig) *cobra.Command {
	loader := config.NewConfigLoader()
	if err := loader.RegisterFlags(cmd.Flags(), "", cfg); err != nil {
		panic(err)
	}
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := loader.Load(cmd, cfg); err != nil {
			return err
		}
		return loader.Validate()
	}
	return cmd
}

func setupLogger(cfg *config.ServerCmdConfig) *zap.Logger {
	logging.SetConfig(&logging.Config{
		Level:    logging.ParseLevel(cfg.Log.Level),
		FilePath: cfg.Log.File,
	})
	return logging.DefaultLogger()
}
