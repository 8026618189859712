package core

import (
	"errors"
	"testing"
)

func TestNewListQueryDefaults(t *testing.T) {
	q, err := NewListQuery("", "", "", "", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if q.Page != DefaultPage || q.Limit != DefaultLimit || q.Skip() != 0 {
		t.Fatalf("unexpected defaults %+v", q)
	}

	q, err = NewListQuery(" Food ", "Card", "3/1/2024", "2024-03-31", "3", "500")
	if err != nil {
		t.Fatal(err)
	}
	if q.Category != "Food" || q.StartDate != "2024-03-01" || q.EndDate != "2024-03-31" {
		t.Fatalf("unexpected query %+v", q)
	}
	if q.Limit != MaxLimit || q.Skip() != 2*MaxLimit {
		t.Fatalf("unexpected paging %+v", q)
	}

	if _, err := NewListQuery("", "", "not-a-date", "", "", ""); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestFilterMatch(t *testing.T) {
	q, _ := NewListQuery("Food", "", "2024-01-01", "", "", "")
	f := q.Filter("u1")
	e := validExpense()

	if !f.Match(e) {
		t.Fatalf("expected match for %+v", e)
	}
	e.UserID = "u2"
	if f.Match(e) {
		t.Fatalf("other user must not match")
	}
	e = validExpense()
	e.Date = NewDate(2023, 12, 31)
	if f.Match(e) {
		t.Fatalf("date before start must not match")
	}
	// Only an end bound applies on its own.
	to := NewDate(2024, 3, 5)
	if !(ExpenseFilter{UserID: "u1", To: &to}).Match(validExpense()) {
		t.Fatalf("end bound is inclusive")
	}
	if (ExpenseFilter{IDs: []string{"nope"}}).Match(validExpense()) {
		t.Fatalf("ids filter must exclude")
	}
}

func TestTotalPages(t *testing.T) {
	cases := []struct {
		total int64
		limit int
		want  int
	}{{0, 10, 0}, {1, 10, 1}, {10, 10, 1}, {11, 10, 2}, {5, 0, 0}}
	for _, tc := range cases {
		if got := TotalPages(tc.total, tc.limit); got != tc.want {
			t.Fatalf("TotalPages(%d,%d) = %d, want %d", tc.total, tc.limit, got, tc.want)
		}
	}
}
