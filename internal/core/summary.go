package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// TopCategoryCount is how many categories a Summary reports.
const TopCategoryCount = 3

type (
	// GroupBy selects the grouping key of SumExpenses.
	GroupBy int

	// GroupTotal is one bucket of an aggregation. Key is empty for GroupNone.
	GroupTotal struct {
		Key   string
		Total decimal.Decimal
		Count int64
	}

	Statistics struct {
		TotalExpenses      decimal.Decimal            `json:"totalExpenses"`
		AverageExpense     decimal.Decimal            `json:"averageExpense"`
		Count              int64                      `json:"count"`
		ExpensesByCategory map[string]decimal.Decimal `json:"expensesByCategory"`
		ExpensesByMonth    map[string]decimal.Decimal `json:"expensesByMonth"`
	}

	CategoryTotal struct {
		Name  string          `json:"name"`
		Total decimal.Decimal `json:"total"`
	}

	Summary struct {
		TotalExpenses decimal.Decimal `json:"totalExpenses"`
		Categories    []CategoryTotal `json:"categories"`
	}
)

const (
	GroupNone GroupBy = iota
	GroupCategory
	GroupMonth
)

func (g GroupBy) String() string {
	switch g {
	case GroupCategory:
		return "category"
	case GroupMonth:
		return "month"
	default:
		return "none"
	}
}

// Key returns the bucket an expense falls in.
func (g GroupBy) Key(e Expense) string {
	switch g {
	case GroupCategory:
		return e.Category
	case GroupMonth:
		return e.Date.MonthKey()
	default:
		return ""
	}
}

// Totals accumulates amounts per group key. Stores that cannot sum
// decimals natively feed their rows through it.
type Totals struct {
	by    GroupBy
	order []string
	sums  map[string]*GroupTotal
}

func NewTotals(by GroupBy) *Totals {
	return &Totals{by: by, sums: make(map[string]*GroupTotal)}
}

func (t *Totals) Add(e Expense) {
	t.AddKey(t.by.Key(e), e.Amount)
}

func (t *Totals) AddKey(key string, amount decimal.Decimal) {
	g, ok := t.sums[key]
	if !ok {
		g = &GroupTotal{Key: key, Total: decimal.Zero}
		t.sums[key] = g
		t.order = append(t.order, key)
	}
	g.Total = g.Total.Add(amount)
	g.Count++
}

// Result returns the buckets in first-seen order. For GroupNone with no
// input it returns a single zero bucket.
func (t *Totals) Result() []GroupTotal {
	if t.by == GroupNone && len(t.order) == 0 {
		return []GroupTotal{{Total: decimal.Zero}}
	}
	out := make([]GroupTotal, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, *t.sums[k])
	}
	return out
}

// NewStatistics builds Statistics from the overall total and the two
// groupings. Totals are exact; the average is the unrounded mean at
// decimal division precision.
func NewStatistics(overall GroupTotal, byCategory, byMonth []GroupTotal) Statistics {
	s := Statistics{
		TotalExpenses:      overall.Total,
		AverageExpense:     decimal.Zero,
		Count:              overall.Count,
		ExpensesByCategory: make(map[string]decimal.Decimal, len(byCategory)),
		ExpensesByMonth:    make(map[string]decimal.Decimal, len(byMonth)),
	}
	if overall.Count > 0 {
		s.AverageExpense = overall.Total.Div(decimal.NewFromInt(overall.Count))
	}
	for _, g := range byCategory {
		s.ExpensesByCategory[g.Key] = g.Total
	}
	for _, g := range byMonth {
		s.ExpensesByMonth[g.Key] = g.Total
	}
	return s
}

// TopCategories orders categories by total descending, breaking ties by
// name, and keeps the first n.
func TopCategories(groups []GroupTotal, n int) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(groups))
	for _, g := range groups {
		out = append(out, CategoryTotal{Name: g.Key, Total: g.Total})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
