package services

import (
	"context"

	"expenses/internal/amqp"
	"expenses/internal/core"
)

const (
	DefaultActivityLimit = 20
	MaxActivityLimit     = 100
)

// ActivityService records change events and lists them per user.
type ActivityService struct {
	repo core.ActivityRepository
}

func NewActivityService(repo core.ActivityRepository) *ActivityService {
	return &ActivityService{repo: repo}
}

// RecordChange stores one change event.
func (s *ActivityService) RecordChange(ctx context.Context, msg *amqp.ExpenseChangedMessage) error {
	return s.repo.RecordActivity(ctx, core.Activity{
		UserID:     msg.UserID,
		Action:     msg.Action,
		Count:      msg.Count,
		ExpenseIDs: msg.ExpenseIDs,
		OccurredAt: msg.Timestamp,
	})
}

// Recent returns up to limit entries, newest first.
func (s *ActivityService) Recent(ctx context.Context, userID string, limit int) ([]core.Activity, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	if limit > MaxActivityLimit {
		limit = MaxActivityLimit
	}
	return s.repo.ListActivity(ctx, userID, limit)
}
