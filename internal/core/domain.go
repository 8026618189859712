package core

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// ISODateLayout is the canonical storage and export form of a Date.
	ISODateLayout = "2006-01-02"
	// ImportDateLayout is the M/D/YYYY form accepted in CSV imports.
	ImportDateLayout = "1/2/2006"
)

// Actions recorded for changes to a user's expenses.
const (
	ActionCreate     = "create"
	ActionUpdate     = "update"
	ActionDelete     = "delete"
	ActionImport     = "import"
	ActionBulkDelete = "bulk_delete"
)

type (
	// Date is a calendar date held at UTC midnight.
	Date struct {
		time.Time
	}

	Expense struct {
		ID            string          `json:"id"`
		UserID        string          `json:"user"`
		Amount        decimal.Decimal `json:"amount"`
		Description   string          `json:"description"`
		Date          Date            `json:"date"`
		Category      string          `json:"category"`
		PaymentMethod string          `json:"paymentMethod"`
		CreatedAt     time.Time       `json:"createdAt"`
		UpdatedAt     time.Time       `json:"updatedAt"`
	}

	// ExpensePatch carries the subset of mutable fields sent in an update.
	ExpensePatch struct {
		Amount        *decimal.Decimal
		Description   *string
		Date          *Date
		Category      *string
		PaymentMethod *string
	}

	User struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		CreatedAt    time.Time `json:"createdAt"`
	}

	// Activity is one recorded change to a user's expenses.
	Activity struct {
		ID         int64     `json:"id"`
		UserID     string    `json:"user"`
		Action     string    `json:"action"`
		Count      int       `json:"count"`
		ExpenseIDs []string  `json:"expenseIds,omitempty"`
		OccurredAt time.Time `json:"occurredAt"`
	}
)

var (
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")

	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrAmountOutOfRange   = fmt.Errorf("%w: out of range", ErrInvalidAmount)
	ErrEmptyDescription   = errors.New("empty description")
	ErrEmptyCategory      = errors.New("empty category")
	ErrEmptyPaymentMethod = errors.New("empty payment method")
	ErrEmptyPatch         = errors.New("no fields to update")
	ErrDescriptionTooLong = errors.New("description too long (max 500 characters)")
)

// MaxDescriptionLen caps descriptions on every write path.
const MaxDescriptionLen = 500

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) Date {
	t = t.UTC()
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Today returns the current UTC calendar date.
func Today() Date {
	return DateOf(time.Now())
}

var dateLayouts = []string{ISODateLayout, time.RFC3339, ImportDateLayout}

// ParseDate accepts YYYY-MM-DD, RFC 3339 and M/D/YYYY.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func (d Date) String() string {
	return d.Format(ISODateLayout)
}

// MonthKey returns "YYYY-M" with the month not zero-padded.
func (d Date) MonthKey() string {
	return fmt.Sprintf("%d-%d", d.Year(), int(d.Month()))
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return ErrInvalidDate
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores a Date as YYYY-MM-DD.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		return d.Scan(string(v))
	}
	return fmt.Errorf("%w: cannot scan %T", ErrInvalidDate, src)
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	if len(e.Description) > MaxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(e.PaymentMethod) == "" {
		return ErrEmptyPaymentMethod
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p ExpensePatch) IsEmpty() bool {
	return p.Amount == nil && p.Description == nil && p.Date == nil &&
		p.Category == nil && p.PaymentMethod == nil
}

// Apply returns e with the patch applied. The result is not validated.
func (p ExpensePatch) Apply(e Expense) Expense {
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Description != nil {
		e.Description = strings.TrimSpace(*p.Description)
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Category != nil {
		e.Category = strings.TrimSpace(*p.Category)
	}
	if p.PaymentMethod != nil {
		e.PaymentMethod = strings.TrimSpace(*p.PaymentMethod)
	}
	return e
}

func (p ExpensePatch) Validate() error {
	if p.IsEmpty() {
		return ErrEmptyPatch
	}
	// Validate the patched fields against a known-good base.
	base := Expense{
		Amount:        decimal.NewFromInt(1),
		Description:   "x",
		Date:          NewDate(2000, 1, 1),
		Category:      "x",
		PaymentMethod: "x",
	}
	return p.Apply(base).Validate()
}
