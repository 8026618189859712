package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"expenses/internal/core"
)

func exp(id, user, amount string, d core.Date) core.Expense {
	return core.Expense{
		ID: id, UserID: user, Amount: decimal.RequireFromString(amount),
		Description: "d", Date: d, Category: "Food", PaymentMethod: "Cash",
	}
}

func TestStoreFindAndCount(t *testing.T) {
	ctx := context.Background()
	s := New()
	err := s.InsertExpenses(ctx, []core.Expense{
		exp("a", "u1", "1", core.NewDate(2024, 1, 1)),
		exp("b", "u1", "2", core.NewDate(2024, 3, 1)),
		exp("c", "u2", "3", core.NewDate(2024, 2, 1)),
		exp("d", "u1", "4", core.NewDate(2024, 2, 1)),
	})
	if err != nil {
		t.Fatal(err)
	}

	got, _ := s.FindExpenses(ctx, core.ExpenseFilter{UserID: "u1"}, 0, 2)
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "d" {
		t.Fatalf("unexpected page %+v", got)
	}
	got, _ = s.FindExpenses(ctx, core.ExpenseFilter{UserID: "u1"}, 2, 2)
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("unexpected second page %+v", got)
	}
	got, _ = s.FindExpenses(ctx, core.ExpenseFilter{UserID: "u1"}, 10, 2)
	if len(got) != 0 {
		t.Fatalf("expected empty page, got %+v", got)
	}
	if n, _ := s.CountExpenses(ctx, core.ExpenseFilter{UserID: "u1"}); n != 3 {
		t.Fatalf("expected 3, got %d", n)
	}
}

func TestStoreBatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.InsertExpense(ctx, exp("a", "u1", "1", core.NewDate(2024, 1, 1)))

	err := s.InsertExpenses(ctx, []core.Expense{
		exp("b", "u1", "1", core.NewDate(2024, 1, 1)),
		exp("a", "u1", "1", core.NewDate(2024, 1, 1)),
	})
	if err != core.ErrConflict {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if n, _ := s.CountExpenses(ctx, core.ExpenseFilter{UserID: "u1"}); n != 1 {
		t.Fatalf("expected batch to be rejected whole, have %d records", n)
	}
}

func TestStoreOwnershipScoping(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.InsertExpense(ctx, exp("a", "u1", "1", core.NewDate(2024, 1, 1)))

	cat := "Travel"
	if _, err := s.UpdateExpense(ctx, "u2", "a", core.ExpensePatch{Category: &cat}); err != core.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteExpense(ctx, "u2", "a"); err != core.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if n, _ := s.DeleteExpenses(ctx, "u2", []string{"a"}); n != 0 {
		t.Fatalf("other user deleted %d records", n)
	}
	if n, _ := s.DeleteExpenses(ctx, "u1", []string{"a", "zzz"}); n != 1 {
		t.Fatalf("expected 1 deletion, got %d", n)
	}
}

func TestStoreUsersAndActivity(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.CreateUser(ctx, core.User{ID: "u1", Email: "a@b.c"}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateUser(ctx, core.User{ID: "u2", Email: "a@b.c"}); err != core.ErrConflict {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := s.GetUserByEmail(ctx, "x@y.z"); err != core.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	for _, action := range []string{"create", "import", "delete"} {
		_ = s.RecordActivity(ctx, core.Activity{UserID: "u1", Action: action})
	}
	got, _ := s.ListActivity(ctx, "u1", 2)
	if len(got) != 2 || got[0].Action != "delete" || got[1].Action != "import" {
		t.Fatalf("unexpected activity %+v", got)
	}
}
