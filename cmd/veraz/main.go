package main

import (
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"veraz/internal/auth"
	"veraz/internal/backend"
	"veraz/internal/cache"
	"veraz/internal/cli"
	"veraz/internal/config"
	apphttp "veraz/internal/http"
	"veraz/internal/log"
	"veraz/internal/middleware/ratelimit"
	"veraz/internal/services"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 30 * time.Second
)

func main() {
	cfg, logger := cli.LoadConfig(log.ComponentApp, (*config.Config).Validate)
	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	backends, err := backend.NewFactory(logger).Create(ctx, bcfg)
	if err != nil {
		return err
	}
	defer backends.Close()

	snapshots := cache.NewSnapshots(cfg.SnapshotCacheSize, cfg.SnapshotTTL)
	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimitPerMinute,
		IdleTTL:           ratelimit.DefaultConfig().IdleTTL,
	})

	dashboard := services.NewDashboardService(services.DashboardOptions{
		Fetcher:   backends.Registry,
		Snapshots: snapshots,
		Recorder:  backends.Recorder,
		Publisher: backends.Publisher,
		Logger:    logger,
	})

	checks := make([]apphttp.ReadinessCheck, 0, len(backends.Checks))
	for _, c := range backends.Checks {
		checks = append(checks, apphttp.ReadinessCheck{Name: c.Name, Check: c.Ping})
	}

	srv, err := apphttp.NewServer(apphttp.ServerOptions{
		Addr:      ":" + cfg.Port,
		Dashboard: dashboard,
		Auth:      auth.NewService(backends.Users, logger),
		Sessions:  auth.NewSessions(cfg.JWTSecret, cfg.SessionTTL, cfg.SecureCookies),
		Limiter:   limiter,
		Snapshots: snapshots,
		Checks:    checks,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	janitor := cache.NewJanitor(logger)
	janitor.Register(snapshots)
	janitor.Register(srv.RateLimiter())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting veraz server",
			"port", cfg.Port,
			"registry_backend", cfg.RegistryBackend,
			"user_backend", cfg.UserBackend,
			"audit_events", backends.Publisher != nil,
			log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return janitor.Run(gctx, sweepInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		return cli.Shutdown(logger, shutdownTimeout, srv.Shutdown)
	})
	return g.Wait()
}
