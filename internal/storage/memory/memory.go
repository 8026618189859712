// Package memory is an in-process core.Store for development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"expenses/internal/core"
)

type Store struct {
	mu       sync.Mutex
	expenses []core.Expense
	users    map[string]core.User
	activity []core.Activity
	nextID   int64
	now      func() time.Time
}

var _ core.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users: make(map[string]core.User),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// sortNewestFirst orders by date, then creation time, both descending.
func sortNewestFirst(es []core.Expense) {
	sort.SliceStable(es, func(i, j int) bool {
		if !es[i].Date.Equal(es[j].Date.Time) {
			return es[i].Date.After(es[j].Date.Time)
		}
		return es[i].CreatedAt.After(es[j].CreatedAt)
	})
}

func (s *Store) matching(f core.ExpenseFilter) []core.Expense {
	var out []core.Expense
	for _, e := range s.expenses {
		if e.UserID == f.UserID && f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) FindExpenses(_ context.Context, f core.ExpenseFilter, skip, limit int) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := s.matching(f)
	sortNewestFirst(found)
	if limit <= 0 {
		return append([]core.Expense{}, found...), nil
	}
	if skip >= len(found) {
		return []core.Expense{}, nil
	}
	end := skip + limit
	if end > len(found) {
		end = len(found)
	}
	return append([]core.Expense{}, found[skip:end]...), nil
}

func (s *Store) CountExpenses(_ context.Context, f core.ExpenseFilter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.matching(f))), nil
}

func (s *Store) InsertExpense(ctx context.Context, e core.Expense) error {
	return s.InsertExpenses(ctx, []core.Expense{e})
}

// InsertExpenses adds all records under one lock, or none on a duplicate ID.
func (s *Store) InsertExpenses(_ context.Context, es []core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(s.expenses)+len(es))
	for _, e := range s.expenses {
		seen[e.ID] = struct{}{}
	}
	now := s.now()
	batch := make([]core.Expense, 0, len(es))
	for _, e := range es {
		if _, dup := seen[e.ID]; dup {
			return core.ErrConflict
		}
		seen[e.ID] = struct{}{}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if e.UpdatedAt.IsZero() {
			e.UpdatedAt = e.CreatedAt
		}
		batch = append(batch, e)
	}
	s.expenses = append(s.expenses, batch...)
	return nil
}

func (s *Store) UpdateExpense(_ context.Context, userID, id string, p core.ExpensePatch) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.expenses {
		if e.ID == id && e.UserID == userID {
			updated := p.Apply(e)
			updated.UpdatedAt = s.now()
			s.expenses[i] = updated
			return updated, nil
		}
	}
	return core.Expense{}, core.ErrNotFound
}

func (s *Store) DeleteExpense(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.expenses {
		if e.ID == id && e.UserID == userID {
			s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) DeleteExpenses(_ context.Context, userID string, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := s.expenses[:0]
	var n int64
	for _, e := range s.expenses {
		if _, ok := drop[e.ID]; ok && e.UserID == userID {
			n++
			continue
		}
		kept = append(kept, e)
	}
	s.expenses = kept
	return n, nil
}

func (s *Store) SumExpenses(_ context.Context, f core.ExpenseFilter, by core.GroupBy) ([]core.GroupTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := core.NewTotals(by)
	for _, e := range s.matching(f) {
		totals.Add(e)
	}
	return totals.Result(), nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return core.ErrConflict
		}
	}
	if _, ok := s.users[u.ID]; ok {
		return core.ErrConflict
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	s.users[u.ID] = u
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (s *Store) GetUserByID(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (s *Store) RecordActivity(_ context.Context, a core.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	a.ID = s.nextID
	if a.OccurredAt.IsZero() {
		a.OccurredAt = s.now()
	}
	s.activity = append(s.activity, a)
	return nil
}

func (s *Store) ListActivity(_ context.Context, userID string, limit int) ([]core.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []core.Activity{}
	for i := len(s.activity) - 1; i >= 0 && len(out) < limit; i-- {
		if s.activity[i].UserID == userID {
			out = append(out, s.activity[i])
		}
	}
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
