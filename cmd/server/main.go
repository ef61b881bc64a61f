package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/flowforge/internal/config"
	"github.com/JonMunkholm/flowforge/internal/logging"
	"github.com/JonMunkholm/flowforge/internal/session"
	"github.com/JonMunkholm/flowforge/internal/store"
	"github.com/JonMunkholm/flowforge/internal/transform"
	"github.com/JonMunkholm/flowforge/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"session_ttl", cfg.Session.TTL,
		"session_max", cfg.Session.MaxSessions,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sources := map[string]store.Source{}
	sinks := map[string]store.Sink{}

	if cfg.Database.URL != "" {
		pg, err := store.OpenPostgres(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		sources[web.SourcePostgres] = pg
		sinks[web.SourcePostgres] = pg
		slog.Info("postgres connected")
	}

	if cfg.Database.MySQLDSN != "" {
		my, err := store.OpenMySQL(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to mysql", "error", err)
			os.Exit(1)
		}
		defer my.Close()
		sources[web.SourceMySQL] = my
		sinks[web.SourceMySQL] = my
		slog.Info("mysql connected")
	}

	if len(sources) == 0 {
		slog.Info("no databases configured; extract and load are disabled")
	}

	sessions := session.NewManager(session.ManagerOptions{
		TTL:         cfg.Session.TTL,
		MaxSessions: cfg.Session.MaxSessions,
		EngineOptions: []transform.Option{
			transform.WithTypoConfig(transform.TypoConfig{
				ColumnCutoff:        cfg.Typo.ColumnCutoff,
				DataCutoff:          cfg.Typo.DataCutoff,
				MaxColumnCandidates: cfg.Typo.MaxColumnMatches,
				MaxDataCandidates:   cfg.Typo.MaxDataMatches,
			}),
		},
	})

	server := web.NewServer(cfg, web.Deps{
		Sessions: sessions,
		Limiter:  session.NewLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		Exporter: store.NewExporter(),
		API:      store.NewAPI(cfg.Extract, nil),
		Sources:  sources,
		Sinks:    sinks,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start()
	})
	g.Go(func() error {
		return sessions.StartSweeper(gctx, cfg.Session.SweepInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
