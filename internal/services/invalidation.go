package services

import (
	"context"
	"encoding/json"
	"fmt"

	"expenses/internal/cache"
	"expenses/internal/core"
	"expenses/internal/log"
)

const listKeyPrefix = "expenses:"

// UserKeyPrefix is the prefix shared by every cached list page of userID.
func UserKeyPrefix(userID string) string {
	return listKeyPrefix + userID + ":"
}

// ListCacheKey identifies one normalized list query of userID.
func ListCacheKey(userID string, q core.ListQuery) (string, error) {
	b, err := json.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("encode list query: %w", err)
	}
	return UserKeyPrefix(userID) + string(b), nil
}

// Invalidator drops a user's cached list pages after a write. Failures
// are logged and never returned: the write has already succeeded.
type Invalidator struct {
	cache  cache.Store
	logger *log.Logger
}

func NewInvalidator(c cache.Store, logger *log.Logger) *Invalidator {
	return &Invalidator{cache: c, logger: logger.WithComponent(log.ComponentCache)}
}

// InvalidateUser removes every key under UserKeyPrefix(userID) and
// reports how many were removed.
func (i *Invalidator) InvalidateUser(ctx context.Context, userID string) int {
	if i == nil || i.cache == nil {
		return 0
	}
	prefix := UserKeyPrefix(userID)
	keys, err := i.cache.Keys(ctx, prefix)
	if err != nil {
		i.logger.WarnContext(ctx, "Cache invalidation failed listing keys",
			log.NewFields().WithUser(userID).WithOperation(log.OpInvalidate).
				WithErrorType(log.ErrorTypeCache).WithError(err).ToSlice()...)
		return 0
	}
	if len(keys) == 0 {
		return 0
	}
	if err := i.cache.Delete(ctx, keys...); err != nil {
		i.logger.WarnContext(ctx, "Cache invalidation failed deleting keys",
			log.NewFields().WithUser(userID).WithOperation(log.OpInvalidate).
				WithErrorType(log.ErrorTypeCache).WithCount(len(keys)).WithError(err).ToSlice()...)
		return 0
	}
	i.logger.DebugContext(ctx, "Cache invalidated", log.FieldUserID, userID, log.FieldCount, len(keys))
	return len(keys)
}
