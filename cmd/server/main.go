package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/arnevik/csv2pg/internal/catalog"
	"github.com/arnevik/csv2pg/internal/config"
	"github.com/arnevik/csv2pg/internal/importer"
	"github.com/arnevik/csv2pg/internal/inspect"
	"github.com/arnevik/csv2pg/internal/logging"
	"github.com/arnevik/csv2pg/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"dest_schema", cfg.Import.DestSchema,
		"catalog_schema", cfg.Import.CatalogSchema,
		"max_concurrent_imports", cfg.Import.MaxConcurrent,
	)

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	cat := catalog.New(pool, cfg.Import.CatalogSchema)
	if err := cat.Ensure(ctx); err != nil {
		slog.Error("failed to ensure import catalog", "error", err)
		os.Exit(1)
	}

	imp, err := importer.New(pool, cat, cfg.Import.DestSchema)
	if err != nil {
		slog.Error("invalid import configuration", "error", err)
		os.Exit(1)
	}

	insp := inspect.New(pool, cat)
	server := web.NewServer(imp, cat, insp, cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		if err := server.Shutdown(context.Background()); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
