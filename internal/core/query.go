package core

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

type (
	// ExpenseFilter narrows a query to one user's records. Zero-valued
	// fields do not filter.
	ExpenseFilter struct {
		UserID        string
		Category      string
		PaymentMethod string
		From          *Date
		To            *Date
		IDs           []string
	}

	// DateRange is an inclusive calendar range; nil bounds are open.
	DateRange struct {
		From *Date
		To   *Date
	}

	// ListQuery is the normalized form of the list endpoint parameters.
	// Its JSON encoding is part of the cache key, so field order matters.
	ListQuery struct {
		Category      string `json:"category,omitempty"`
		PaymentMethod string `json:"paymentMethod,omitempty"`
		StartDate     string `json:"startDate,omitempty"`
		EndDate       string `json:"endDate,omitempty"`
		Page          int    `json:"page"`
		Limit         int    `json:"limit"`
	}

	ExpensePage struct {
		Expenses   []Expense `json:"expenses"`
		Total      int64     `json:"total"`
		Page       int       `json:"page"`
		TotalPages int       `json:"totalPages"`
	}
)

// Match reports whether e satisfies every set field of f.
func (f ExpenseFilter) Match(e Expense) bool {
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.PaymentMethod != "" && e.PaymentMethod != f.PaymentMethod {
		return false
	}
	if f.From != nil && e.Date.Before(f.From.Time) {
		return false
	}
	if f.To != nil && e.Date.After(f.To.Time) {
		return false
	}
	if len(f.IDs) > 0 {
		found := false
		for _, id := range f.IDs {
			if id == e.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// NewListQuery parses raw query parameters. Unparseable page or limit
// values fall back to defaults; an unparseable date is an error.
func NewListQuery(category, paymentMethod, startDate, endDate, page, limit string) (ListQuery, error) {
	q := ListQuery{
		Category:      strings.TrimSpace(category),
		PaymentMethod: strings.TrimSpace(paymentMethod),
		Page:          DefaultPage,
		Limit:         DefaultLimit,
	}
	if strings.TrimSpace(startDate) != "" {
		d, err := ParseDate(startDate)
		if err != nil {
			return q, fmt.Errorf("startDate: %w", err)
		}
		q.StartDate = d.String()
	}
	if strings.TrimSpace(endDate) != "" {
		d, err := ParseDate(endDate)
		if err != nil {
			return q, fmt.Errorf("endDate: %w", err)
		}
		q.EndDate = d.String()
	}
	if n, err := strconv.Atoi(strings.TrimSpace(page)); err == nil && n > 0 {
		q.Page = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(limit)); err == nil && n > 0 {
		q.Limit = n
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q, nil
}

// Filter turns the query into a store filter for userID.
func (q ListQuery) Filter(userID string) ExpenseFilter {
	f := ExpenseFilter{UserID: userID, Category: q.Category, PaymentMethod: q.PaymentMethod}
	if q.StartDate != "" {
		if d, err := ParseDate(q.StartDate); err == nil {
			f.From = &d
		}
	}
	if q.EndDate != "" {
		if d, err := ParseDate(q.EndDate); err == nil {
			f.To = &d
		}
	}
	return f
}

// Skip is the number of records before the requested page.
func (q ListQuery) Skip() int {
	return (q.Page - 1) * q.Limit
}

// TotalPages returns ceil(total/limit).
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
