package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcoot/assassins-go/internal/api"
	"github.com/mcoot/assassins-go/internal/config"
	"github.com/mcoot/assassins-go/internal/factory"
	"github.com/mcoot/assassins-go/internal/services/retry"
	redisstorage "github.com/mcoot/assassins-go/internal/storage/redis"
	"github.com/mcoot/assassins-go/internal/storage/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// Create application factory
	app, err := factory.New(factoryConfig(cfg, logger))
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.HTTPHost
	serverConfig.Port = cfg.HTTPPort
	server := api.NewServer(api.NewRouter(app, logger), serverConfig, logger)

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting server",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.StorageType),
	)
	if err := server.Run(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// factoryConfig maps environment settings onto the application factory
func factoryConfig(cfg config.Server, logger *slog.Logger) factory.Config {
	policy := retry.DefaultPolicy()
	policy.MaxAttempts = cfg.RetryMaxAttempts

	fc := factory.Config{
		Logger:      logger,
		StorageType: cfg.StorageType,
		LockTimeout: cfg.LockTimeout,
		RetryPolicy: policy,
	}
	switch cfg.StorageType {
	case factory.StorageTypeRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		fc.RedisConfig = &redisCfg
	case factory.StorageTypeSQLite:
		sqliteCfg := sqlite.DefaultConfig()
		sqliteCfg.Path = cfg.SQLitePath
		sqliteCfg.BusyTimeout = cfg.LockTimeout
		fc.SQLiteConfig = &sqliteCfg
	}
	return fc
}
