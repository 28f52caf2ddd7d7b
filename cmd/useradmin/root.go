package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ayush/useradmin/internal/config"
	"github.com/ayush/useradmin/internal/logging"
)

const serviceName = "useradmin"

// NewRootCmd creates the root command for the useradmin CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "useradmin",
		Short:        "User management service",
		Long:         `useradmin serves registration, cookie-session login and user administration.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "config file path (YAML)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSessionsCmd())

	return cmd
}

// loadConfig reads configuration using the command's flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.Load(path, cmd.Flags())
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	logger := logging.Setup(serviceName, version, cfg.Log.Format, cfg.Log.Level, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	return logger
}
