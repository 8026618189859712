package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"expenses/internal/core"
)

const expenseColumns = "id, user_id, amount, description, date, category, payment_method, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(s rowScanner) (core.Expense, error) {
	var e core.Expense
	err := s.Scan(&e.ID, &e.UserID, &e.Amount, &e.Description, &e.Date,
		&e.Category, &e.PaymentMethod, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func whereClause(f core.ExpenseFilter) (string, []any) {
	conds := []string{"user_id = ?"}
	args := []any{f.UserID}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if f.PaymentMethod != "" {
		conds = append(conds, "payment_method = ?")
		args = append(args, f.PaymentMethod)
	}
	if f.From != nil {
		conds = append(conds, "date >= ?")
		args = append(args, *f.From)
	}
	if f.To != nil {
		conds = append(conds, "date <= ?")
		args = append(args, *f.To)
	}
	if len(f.IDs) > 0 {
		conds = append(conds, "id IN ("+placeholders(len(f.IDs))+")")
		for _, id := range f.IDs {
			args = append(args, id)
		}
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// FindExpenses returns matches newest date first. limit <= 0 returns all.
func (r *Repository) FindExpenses(ctx context.Context, f core.ExpenseFilter, skip, limit int) ([]core.Expense, error) {
	where, args := whereClause(f)
	query := "SELECT " + expenseColumns + " FROM expenses" + where +
		" ORDER BY date DESC, created_at DESC, id"
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, skip)
	}

	rows, err := r.db.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("find expenses: %w", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) CountExpenses(ctx context.Context, f core.ExpenseFilter) (int64, error) {
	where, args := whereClause(f)
	var n int64
	if err := r.db.QueryRowContext(ctx, r.q("SELECT COUNT(*) FROM expenses"+where), args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

const insertExpenseSQL = "INSERT INTO expenses (" + expenseColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"

func (r *Repository) InsertExpense(ctx context.Context, e core.Expense) error {
	return r.InsertExpenses(ctx, []core.Expense{e})
}

// InsertExpenses writes every record in one transaction.
func (r *Repository) InsertExpenses(ctx context.Context, es []core.Expense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, r.q(insertExpenseSQL))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := r.now()
	for i, e := range es {
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if e.UpdatedAt.IsZero() {
			e.UpdatedAt = e.CreatedAt
		}
		if _, err := stmt.ExecContext(ctx, e.ID, e.UserID, e.Amount, e.Description, e.Date,
			e.Category, e.PaymentMethod, e.CreatedAt, e.UpdatedAt); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("insert expense %d: %w", i, core.ErrConflict)
			}
			return fmt.Errorf("insert expense %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *Repository) UpdateExpense(ctx context.Context, userID, id string, p core.ExpensePatch) (core.Expense, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Expense{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRowContext(ctx, r.q("SELECT "+expenseColumns+" FROM expenses WHERE id = ? AND user_id = ?"), id, userID)
	current, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("load expense: %w", err)
	}

	updated := p.Apply(current)
	updated.UpdatedAt = r.now()
	_, err = tx.ExecContext(ctx, r.q(`UPDATE expenses
		SET amount = ?, description = ?, date = ?, category = ?, payment_method = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`),
		updated.Amount, updated.Description, updated.Date, updated.Category, updated.PaymentMethod,
		updated.UpdatedAt, id, userID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Expense{}, fmt.Errorf("commit: %w", err)
	}
	return updated, nil
}

func (r *Repository) DeleteExpense(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, r.q("DELETE FROM expenses WHERE id = ? AND user_id = ?"), id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteExpenses(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := r.db.ExecContext(ctx,
		r.q("DELETE FROM expenses WHERE user_id = ? AND id IN ("+placeholders(len(ids))+")"), args...)
	if err != nil {
		return 0, fmt.Errorf("delete expenses: %w", err)
	}
	return res.RowsAffected()
}

// SumExpenses groups matching amounts. PostgreSQL sums NUMERIC natively;
// SQLite has no exact decimal type, so rows are summed in Go.
func (r *Repository) SumExpenses(ctx context.Context, f core.ExpenseFilter, by core.GroupBy) ([]core.GroupTotal, error) {
	if r.dialect == DialectPostgres {
		return r.sumNative(ctx, f, by)
	}

	where, args := whereClause(f)
	rows, err := r.db.QueryContext(ctx, r.q("SELECT amount, category, date FROM expenses"+where+" ORDER BY date DESC"), args...)
	if err != nil {
		return nil, fmt.Errorf("sum expenses by %s: %w", by, err)
	}
	defer rows.Close()

	totals := core.NewTotals(by)
	for rows.Next() {
		var e core.Expense
		if err := rows.Scan(&e.Amount, &e.Category, &e.Date); err != nil {
			return nil, fmt.Errorf("scan amount: %w", err)
		}
		totals.Add(e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return totals.Result(), nil
}

func (r *Repository) sumNative(ctx context.Context, f core.ExpenseFilter, by core.GroupBy) ([]core.GroupTotal, error) {
	where, args := whereClause(f)
	var query string
	switch by {
	case core.GroupCategory:
		query = "SELECT category, COALESCE(SUM(amount), 0), COUNT(*) FROM expenses" + where + " GROUP BY category"
	case core.GroupMonth:
		key := "EXTRACT(YEAR FROM date)::int || '-' || EXTRACT(MONTH FROM date)::int"
		query = "SELECT " + key + ", COALESCE(SUM(amount), 0), COUNT(*) FROM expenses" + where + " GROUP BY 1"
	default:
		query = "SELECT '', COALESCE(SUM(amount), 0), COUNT(*) FROM expenses" + where
	}

	rows, err := r.db.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("sum expenses by %s: %w", by, err)
	}
	defer rows.Close()

	out := []core.GroupTotal{}
	for rows.Next() {
		var g core.GroupTotal
		if err := rows.Scan(&g.Key, &g.Total, &g.Count); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
