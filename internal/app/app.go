// Package app wires configuration into the database, Redis, the collaborators
// and the services shared by the server, worker and CLI binaries.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/ignite/outreach-tracker/internal/config"
	"github.com/ignite/outreach-tracker/internal/content"
	"github.com/ignite/outreach-tracker/internal/gmail"
	"github.com/ignite/outreach-tracker/internal/notify"
	"github.com/ignite/outreach-tracker/internal/pkg/distlock"
	"github.com/ignite/outreach-tracker/internal/pkg/logger"
	"github.com/ignite/outreach-tracker/internal/repository/postgres"
	"github.com/ignite/outreach-tracker/internal/service/dedup"
	"github.com/ignite/outreach-tracker/internal/service/friends"
	"github.com/ignite/outreach-tracker/internal/service/outreach"
	"github.com/ignite/outreach-tracker/internal/service/settings"
	"github.com/ignite/outreach-tracker/internal/service/sharing"
	"github.com/ignite/outreach-tracker/internal/storage"
	"github.com/ignite/outreach-tracker/internal/worker"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

// App holds the long-lived dependencies of one process.
type App struct {
	Config *config.Config
	DB     *sql.DB
	Redis  *redis.Client
	Store  *postgres.Store
	Locks  distlock.Factory

	Outreach *outreach.Service
	Dedup    *dedup.Service
	Sharing  *sharing.Service
	Friends  *friends.Service
	Settings *settings.Service
	Sweep    *worker.FollowupSweep

	closers []io.Closer
}

// Load reads configuration from path (plus .env and environment overrides)
// and configures the logger. A missing file means defaults plus environment.
func Load(path string) (*config.Config, error) {
	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			log.Printf("[App] Config file %s not found, using defaults and environment", path)
			path = ""
		}
	}
	cfg, err := config.LoadFromEnv(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger.Configure(cfg.Log.Level, cfg.Log.Redact())
	return cfg, nil
}

// New connects to the database and Redis and builds every service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := OpenDB(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, DB: db, Store: postgres.NewStore(db)}
	a.closers = append(a.closers, db)

	a.Redis = OpenRedis(ctx, cfg.Redis)
	if a.Redis != nil {
		a.closers = append(a.closers, a.Redis)
	}
	a.Locks = distlock.NewFactory(a.Redis, db)

	provider, err := content.New(ctx, cfg.Content)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("content provider: %w", err)
	}
	notifier, err := notify.New(ctx, cfg.Notify)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("notifier: %w", err)
	}
	if c, ok := notifier.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	a.Outreach = outreach.NewService(a.Store, a.Store, provider)
	a.Outreach.SetTemplates(a.Store)
	a.Outreach.SetSpawnLocker(a.Locks)
	a.Dedup = dedup.NewService(a.Store, dedup.Options{})
	a.Sharing = sharing.NewService(a.Store)
	a.Friends = friends.NewService(a.Store)
	a.Settings = settings.NewService(a.Store, cfg.Lifecycle.Intervals())

	oracle := gmail.NewReplyOracle(cfg.Gmail, a.Store)
	a.Sweep = worker.NewFollowupSweep(a.Store, a.Store, oracle, notifier)
	a.Sweep.SetLocker(a.Locks, cfg.Worker.LockTTL())
	a.Sweep.SetSchedule(cfg.Worker.SweepInterval(), cfg.Worker.SweepBatchSize)

	if cfg.Archive.Enabled {
		archive, err := storage.NewSweepArchive(ctx, cfg.Archive.DynamoDBTable, cfg.Archive.S3Bucket, cfg.Archive.Region)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("sweep archive: %w", err)
		}
		a.Sweep.SetArchiver(archive)
		log.Printf("[App] Sweep archive enabled (table=%s bucket=%s)", cfg.Archive.DynamoDBTable, cfg.Archive.S3Bucket)
	}
	return a, nil
}

// OpenDB opens and pings PostgreSQL with the configured pool limits.
func OpenDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime())
	db.SetConnMaxIdleTime(time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Println("[App] Connected to database")
	return db, nil
}

// OpenRedis connects when a URL is configured. An unreachable Redis is
// logged and nil is returned so locking falls back to advisory locks.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if cfg.URL == "" {
		log.Println("[App] Redis not configured, using PG advisory locks")
		return nil
	}
	var client *redis.Client
	if opts, err := redis.ParseURL(cfg.URL); err != nil {
		client = redis.NewClient(&redis.Options{Addr: cfg.URL})
	} else {
		client = redis.NewClient(opts)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Printf("[App] Warning: Redis connection failed: %v, falling back to PG advisory locks", err)
		client.Close()
		return nil
	}
	log.Println("[App] Redis connected (distributed locking enabled)")
	return client
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
