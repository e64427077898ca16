package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/sheetcheck/internal/config"
	"github.com/JonMunkholm/sheetcheck/internal/logging"
	"github.com/JonMunkholm/sheetcheck/internal/schema"
	_ "github.com/JonMunkholm/sheetcheck/internal/schema/builtin" // Register built-in schemas
	"github.com/JonMunkholm/sheetcheck/internal/service"
	"github.com/JonMunkholm/sheetcheck/internal/storage/postgres"
	"github.com/JonMunkholm/sheetcheck/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	if dir := cfg.Validation.SchemaDir; dir != "" {
		n, err := schema.RegisterDir(dir)
		if err != nil {
			slog.Error("failed to load schema definitions", "dir", dir, "error", err)
			os.Exit(1)
		}
		slog.Info("schema definitions loaded", "dir", dir, "count", n)
	}
	slog.Info("schemas registered", "count", schema.Count())

	ctx := context.Background()
	opts := service.Options{
		Limiter:     service.NewLimiter(cfg.Validation.MaxConcurrent, cfg.Validation.MaxWaitTime),
		Logger:      slog.Default(),
		MaxFileSize: cfg.Validation.MaxFileSize,
		Workers:     cfg.Validation.Workers,
	}

	if cfg.Database.Enabled() {
		pool, err := postgres.Connect(ctx, cfg.Database)
		if err != nil {
			slog.Error("database unavailable", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		opts.Exporter = postgres.NewExporter(pool)
	} else {
		slog.Info("DATABASE_URL not set, export disabled")
	}

	svc := service.New(opts)
	server := web.NewServer(svc, web.Options{
		MaxUploadSize: cfg.Validation.MaxFileSize,
		RunTimeout:    cfg.Validation.Timeout,
		APIKeys:       cfg.Security.APIKeys,
	})

	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		limiter := svc.Limiter()
		if active := limiter.ActiveCount(); active > 0 {
			slog.Info("waiting for runs to complete", "active", active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("runs did not complete in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
