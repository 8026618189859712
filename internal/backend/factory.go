package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expenses/internal/amqp"
	"expenses/internal/cache"
	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/storage"
	"expenses/internal/storage/memory"
)

const cacheCleanupInterval = 10 * time.Minute

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend builds the store, then the cache, then the optional
// publisher. On error everything built so far is released.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var cleanups []CleanupFunc
	release := func() error {
		var errs []error
		for i := len(cleanups) - 1; i >= 0; i-- {
			errs = append(errs, cleanups[i]())
		}
		return errors.Join(errs...)
	}

	store, err := f.createStore(ctx, config)
	if err != nil {
		return nil, err
	}
	cleanups = append(cleanups, store.Close)

	cacheStore, cacheCleanup, err := f.createCache(ctx, config)
	if err != nil {
		_ = release()
		return nil, err
	}
	cleanups = append(cleanups, cacheCleanup)

	res := &Result{Store: store, Cache: cacheStore}

	// An unreachable broker disables events rather than failing startup.
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without change events", log.FieldError, err)
		} else {
			res.Publisher = client
			cleanups = append(cleanups, client.Close)
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	res.Cleanup = release
	return res, nil
}

func (f *DefaultFactory) createStore(ctx context.Context, config Config) (core.Store, error) {
	switch config.Store {
	case SQLiteStore:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return repo, nil
	case PostgresStore:
		repo, err := storage.NewPostgresRepository(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		f.logger.Info("Initialized Postgres store")
		return repo, nil
	case MemoryStore:
		f.logger.Info("Initialized memory store")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Store)
	}
}

func (f *DefaultFactory) createCache(ctx context.Context, config Config) (cache.Store, CleanupFunc, error) {
	switch config.Cache {
	case RedisCache:
		r, err := cache.NewRedis(ctx, config.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		f.logger.Info("Initialized redis cache", "addr", config.Redis.Addr)
		return r, r.Close, nil
	default:
		lru := cache.NewLRUCache(config.CacheMaxEntries)
		manager := cache.NewManager(f.logger)
		manager.Register(lru)
		manager.StartCleanup(cacheCleanupInterval)
		f.logger.Info("Initialized in-memory cache", "max_entries", config.CacheMaxEntries)
		return lru, func() error {
			manager.Stop()
			return nil
		}, nil
	}
}
