package storage

import (
	"context"
	"fmt"
	"strings"

	"expenses/internal/core"
)

func (r *Repository) RecordActivity(ctx context.Context, a core.Activity) error {
	if a.OccurredAt.IsZero() {
		a.OccurredAt = r.now()
	}
	_, err := r.db.ExecContext(ctx,
		r.q("INSERT INTO activity (user_id, action, count, expense_ids, occurred_at) VALUES (?, ?, ?, ?, ?)"),
		a.UserID, a.Action, a.Count, strings.Join(a.ExpenseIDs, ","), a.OccurredAt.UTC())
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

// ListActivity returns the most recent entries first.
func (r *Repository) ListActivity(ctx context.Context, userID string, limit int) ([]core.Activity, error) {
	rows, err := r.db.QueryContext(ctx,
		r.q("SELECT id, user_id, action, count, expense_ids, occurred_at FROM activity WHERE user_id = ? ORDER BY occurred_at DESC, id DESC LIMIT ?"),
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	out := []core.Activity{}
	for rows.Next() {
		var (
			a   core.Activity
			ids string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.Action, &a.Count, &ids, &a.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if ids != "" {
			a.ExpenseIDs = strings.Split(ids, ",")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
