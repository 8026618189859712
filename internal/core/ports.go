package core

import "context"

// ExpenseRepository is the persistence port for expense records. Every
// method is scoped to the owning user through the filter or userID.
type ExpenseRepository interface {
	// FindExpenses returns matching records newest date first.
	FindExpenses(ctx context.Context, f ExpenseFilter, skip, limit int) ([]Expense, error)
	CountExpenses(ctx context.Context, f ExpenseFilter) (int64, error)
	InsertExpense(ctx context.Context, e Expense) error
	// InsertExpenses persists all records or none.
	InsertExpenses(ctx context.Context, es []Expense) error
	// UpdateExpense returns ErrNotFound when no record matches id and userID.
	UpdateExpense(ctx context.Context, userID, id string, p ExpensePatch) (Expense, error)
	DeleteExpense(ctx context.Context, userID, id string) error
	DeleteExpenses(ctx context.Context, userID string, ids []string) (int64, error)
	SumExpenses(ctx context.Context, f ExpenseFilter, by GroupBy) ([]GroupTotal, error)
}

type UserRepository interface {
	// CreateUser returns ErrConflict when the email is taken.
	CreateUser(ctx context.Context, u User) error
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
}

type ActivityRepository interface {
	RecordActivity(ctx context.Context, a Activity) error
	ListActivity(ctx context.Context, userID string, limit int) ([]Activity, error)
}

// Store bundles the repositories a backend provides.
type Store interface {
	ExpenseRepository
	UserRepository
	ActivityRepository
	Ping(ctx context.Context) error
	Close() error
}
