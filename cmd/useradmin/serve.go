package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ayush/useradmin/internal/apperr"
	"github.com/ayush/useradmin/internal/auth"
	"github.com/ayush/useradmin/internal/metrics"
	"github.com/ayush/useradmin/internal/middleware"
	"github.com/ayush/useradmin/internal/remote"
	"github.com/ayush/useradmin/internal/server"
	"github.com/ayush/useradmin/internal/users"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	recorder, closeAudit, err := openAudit(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeAudit()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(reg)

	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	sessions := auth.NewSessionService(st.sessions, logger)
	authSvc, err := auth.NewService(st.users, hasher, logger)
	if err != nil {
		return err
	}
	userSvc := users.NewService(st.users, hasher, sessions, logger)

	handlers := server.Handlers{
		Auth:    auth.NewHandler(authSvc, sessions, recorder, logger),
		Users:   users.NewHandler(userSvc, sessions, recorder, logger),
		Guard:   middleware.NewGuard(sessions, userSvc, logger),
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}

	src, err := remoteSource(cfg)
	if err != nil {
		return err
	}
	if src != nil {
		loader := remote.NewLoader(src, cfg.Remote.BaseURL, logger)
		handlers.Remote = remote.NewHandler(loader, logger)
		go warmRemote(ctx, loader, logger)
	}

	return server.Run(ctx, server.NewRouter(handlers, cfg.HTTP.AllowedOrigins), server.Options{
		Addr:            cfg.HTTP.Addr,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, logger)
}

// warmRemote triggers the first manifest load. A failure is not cached;
// the next request retries.
func warmRemote(ctx context.Context, loader *remote.Loader, logger *slog.Logger) {
	if _, err := loader.Load(ctx); err != nil {
		apperr.LogError(logger, "remote manifest warm-up failed", err)
	}
}
