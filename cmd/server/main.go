// Package main is the entry point for the village portal server. It loads
// configuration, connects the optional backing stores, wires the plugins
// and runs the HTTP server next to the upload janitor.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/siddesa/portal/internal/app"
	"github.com/siddesa/portal/internal/config"
	"github.com/siddesa/portal/internal/database"
)

// janitorInterval is how often abandoned upload jobs are swept.
const janitorInterval = time.Minute

func main() {
	// A missing .env is normal in production.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", slog.Any("error", err))
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	setupLogging(cfg)

	slog.Info("starting portal",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
		slog.String("api", cfg.APIBaseURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.ActivityLog.Enabled {
		db, err = database.OpenActivityLog(ctx, cfg.ActivityLog)
		if err != nil {
			slog.Error("failed to open activity log", slog.Any("error", err))
			os.Exit(1)
		}
		defer db.Close()
	} else {
		slog.Info("activity log disabled")
	}

	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		rdb, err = database.NewRedis(cfg.Redis)
		if err != nil {
			slog.Error("failed to connect to Redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer rdb.Close()
		slog.Info("connected to Redis")
	} else {
		slog.Info("redis disabled, settings cache is in memory")
	}

	application := app.New(cfg, db, rdb)
	application.RegisterRoutes()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := application.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return application.Uploads.Run(gCtx, janitorInterval)
	})

	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("shutting down server...")

		// In-flight requests get 10 seconds to finish.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return application.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("server exited")
}

// setupLogging configures the global slog logger. Development uses text
// format for readability, production JSON for log aggregation.
func setupLogging(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}

	var handler slog.Handler
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
