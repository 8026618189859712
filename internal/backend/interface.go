// Package backend builds the store, cache and event publisher selected by
// configuration.
package backend

import (
	"context"

	"expenses/internal/cache"
	"expenses/internal/core"
	"expenses/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result holds everything the factory built. Publisher is nil when
// change events are disabled or the broker was unreachable.
type Result struct {
	Store     core.Store
	Cache     cache.Store
	Publisher services.EventPublisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Store        StoreType
	SQLiteDBPath string
	DatabaseURL  string

	Cache           CacheType
	CacheMaxEntries int
	Redis           cache.RedisConfig

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// StoreType selects the expense store.
type StoreType string

const (
	MemoryStore   StoreType = "memory"
	SQLiteStore   StoreType = "sqlite"
	PostgresStore StoreType = "postgres"
)

func (t StoreType) String() string {
	return string(t)
}

func (t StoreType) IsValid() bool {
	switch t {
	case MemoryStore, SQLiteStore, PostgresStore:
		return true
	default:
		return false
	}
}

// CacheType selects the list-result cache.
type CacheType string

const (
	MemoryCache CacheType = "memory"
	RedisCache  CacheType = "redis"
)

func (t CacheType) IsValid() bool {
	return t == MemoryCache || t == RedisCache
}
