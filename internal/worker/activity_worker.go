// Package worker consumes expense change events and records them as
// per-user activity.
package worker

import (
	"context"
	"fmt"

	"expenses/internal/amqp"
	"expenses/internal/log"
)

// ChangeRecorder stores one change event.
type ChangeRecorder interface {
	RecordChange(ctx context.Context, msg *amqp.ExpenseChangedMessage) error
}

// Consumer delivers change events until ctx ends.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, *amqp.ExpenseChangedMessage) error) error
}

type ActivityWorker struct {
	recorder ChangeRecorder
	logger   *log.Logger
}

func NewActivityWorker(recorder ChangeRecorder, logger *log.Logger) *ActivityWorker {
	return &ActivityWorker{recorder: recorder, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleMessage records msg. A returned error makes the consumer requeue it.
func (w *ActivityWorker) HandleMessage(ctx context.Context, msg *amqp.ExpenseChangedMessage) error {
	if err := w.recorder.RecordChange(ctx, msg); err != nil {
		return fmt.Errorf("record %s activity for %s: %w", msg.Action, msg.UserID, err)
	}
	w.logger.InfoContext(ctx, "Activity recorded",
		log.FieldUserID, msg.UserID, "action", msg.Action, log.FieldCount, msg.Count)
	return nil
}

// Run consumes until ctx is cancelled.
func (w *ActivityWorker) Run(ctx context.Context, c Consumer) error {
	w.logger.InfoContext(ctx, "Activity worker started")
	err := c.Consume(ctx, w.HandleMessage)
	if ctx.Err() != nil {
		w.logger.InfoContext(ctx, "Activity worker stopped")
		return nil
	}
	return err
}
