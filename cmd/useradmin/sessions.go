package main

import (
	"github.com/spf13/cobra"

	"github.com/ayush/useradmin/internal/auth"
	"github.com/ayush/useradmin/internal/config"
)

// NewSessionsCmd creates the sessions command.
func NewSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and maintain login sessions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Delete expired sessions",
		Long: `Delete every session whose expiry has passed. Expired sessions are
already unusable and are removed lazily when read; this reclaims the rest.`,
		Args: cobra.NoArgs,
		RunE: runPrune,
	})
	return cmd
}

func runPrune(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	if cfg.Sessions.Backend == config.BackendMemory {
		cmd.Println("Nothing to prune: the memory backend does not persist sessions")
		return nil
	}

	st, err := openStores(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := auth.NewSessionService(st.sessions, logger).PruneExpired(cmd.Context())
	if err != nil {
		return err
	}
	cmd.Printf("Pruned %d expired sessions\n", n)
	return nil
}
