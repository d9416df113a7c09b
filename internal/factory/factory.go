package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/assassins-go/internal/dependencies/clock"
	"github.com/mcoot/assassins-go/internal/dependencies/idgen"
	"github.com/mcoot/assassins-go/internal/dependencies/random"
	"github.com/mcoot/assassins-go/internal/services/assignment"
	"github.com/mcoot/assassins-go/internal/services/directory"
	"github.com/mcoot/assassins-go/internal/services/elimination"
	"github.com/mcoot/assassins-go/internal/services/leaderboard"
	"github.com/mcoot/assassins-go/internal/services/registry"
	"github.com/mcoot/assassins-go/internal/services/retry"
	"github.com/mcoot/assassins-go/internal/services/roster"
	"github.com/mcoot/assassins-go/internal/services/teams"
	"github.com/mcoot/assassins-go/internal/storage"
	"github.com/mcoot/assassins-go/internal/storage/memory"
	redisstorage "github.com/mcoot/assassins-go/internal/storage/redis"
	"github.com/mcoot/assassins-go/internal/storage/sqlite"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
	StorageTypeSQLite = "sqlite"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random
	IDs    idgen.Generator

	// Services
	Directory   *directory.Service
	Registry    *registry.Service
	Roster      *roster.Service
	Teams       *teams.Service
	Assignment  *assignment.Service
	Elimination *elimination.Service
	Leaderboard *leaderboard.Service

	Logger *slog.Logger

	closer io.Closer
}

// Close releases the storage backend's connections, if any
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "sqlite")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SQLiteConfig holds the database location (required if StorageType is "sqlite")
	SQLiteConfig *sqlite.Config
	// LockTimeout bounds waits for a game's write region (optional)
	LockTimeout time.Duration
	// RetryPolicy bounds contention retries
	// If zero value, defaults to retry.DefaultPolicy()
	RetryPolicy retry.Policy
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	var closer io.Closer
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		memCfg := memory.DefaultConfig()
		if cfg.LockTimeout > 0 {
			memCfg.LockTimeout = cfg.LockTimeout
		}
		store = memory.NewWithConfig(memCfg)
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		store, closer = redisStore, redisStore
	case StorageTypeSQLite:
		if cfg.SQLiteConfig == nil {
			return nil, errors.New("SQLiteConfig required when StorageType is sqlite")
		}
		sqlCfg := *cfg.SQLiteConfig
		if cfg.LockTimeout > 0 && sqlCfg.BusyTimeout == 0 {
			sqlCfg.BusyTimeout = cfg.LockTimeout
		}
		sqliteStore, err := sqlite.Open(sqlCfg)
		if err != nil {
			return nil, err
		}
		store, closer = sqliteStore, sqliteStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'redis' or 'sqlite'")
	}

	policy := cfg.RetryPolicy
	if policy.MaxAttempts == 0 {
		policy = retry.DefaultPolicy()
	}

	app := newWithDependencies(store, clock.New(), random.New(), idgen.New(), policy, logger)
	app.closer = closer
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	ids idgen.Generator,
	policy retry.Policy,
	logger *slog.Logger,
) *App {
	retrier := retry.New(policy, logger)

	registryService := registry.New(store, clk, ids, logger)

	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		IDs:         ids,
		Directory:   directory.New(store, clk, ids, logger),
		Registry:    registryService,
		Roster:      roster.New(store, registryService, retrier, clk, ids, logger),
		Teams:       teams.New(store, logger),
		Assignment:  assignment.New(store, registryService, retrier, clk, rnd, ids, logger),
		Elimination: elimination.New(store, registryService, retrier, clk, ids, logger),
		Leaderboard: leaderboard.New(store, logger),
		Logger:      logger,
	}
}
