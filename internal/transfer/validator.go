// Package transfer converts between expense records and their CSV form.
package transfer

import (
	"errors"
	"strings"
	"time"

	"expenses/internal/core"
)

// Column names of the CSV form. Export writes them in this order.
const (
	ColAmount        = "amount"
	ColDescription   = "description"
	ColDate          = "date"
	ColCategory      = "category"
	ColPaymentMethod = "paymentMethod"
)

var Columns = []string{ColAmount, ColDescription, ColDate, ColCategory, ColPaymentMethod}

// Messages reported for a failing row, in rule order.
const (
	MsgInvalidAmount         = "Invalid amount"
	MsgNonPositiveAmount     = "Amount must be greater than zero"
	MsgAmountOutOfRange      = "Amount is out of range"
	MsgInvalidDate           = "Invalid date format. Use M/D/YYYY"
	MsgDescriptionRequired   = "Description is required"
	MsgDescriptionTooLong    = "Description must be at most 500 characters"
	MsgCategoryRequired      = "Category is required"
	MsgPaymentMethodRequired = "Payment method is required"
)

// ValidateRow checks every rule against one row and returns either a
// typed expense (without ID or owner) or the list of failures.
func ValidateRow(row map[string]string) (core.Expense, []string) {
	var (
		e    core.Expense
		errs []string
	)

	amount, err := core.ParseAmount(row[ColAmount])
	switch {
	case errors.Is(err, core.ErrAmountOutOfRange):
		errs = append(errs, MsgAmountOutOfRange)
	case err != nil:
		errs = append(errs, MsgInvalidAmount)
	case !amount.IsPositive():
		errs = append(errs, MsgNonPositiveAmount)
	default:
		e.Amount = amount
	}

	if t, err := time.Parse(core.ImportDateLayout, strings.TrimSpace(row[ColDate])); err != nil {
		errs = append(errs, MsgInvalidDate)
	} else {
		e.Date = core.DateOf(t)
	}

	e.Description = strings.TrimSpace(row[ColDescription])
	switch {
	case e.Description == "":
		errs = append(errs, MsgDescriptionRequired)
	case len(e.Description) > core.MaxDescriptionLen:
		errs = append(errs, MsgDescriptionTooLong)
	}
	e.Category = strings.TrimSpace(row[ColCategory])
	if e.Category == "" {
		errs = append(errs, MsgCategoryRequired)
	}
	e.PaymentMethod = strings.TrimSpace(row[ColPaymentMethod])
	if e.PaymentMethod == "" {
		errs = append(errs, MsgPaymentMethodRequired)
	}

	if len(errs) > 0 {
		return core.Expense{}, errs
	}
	return e, nil
}

// IsBlankRow reports whether every cell is blank after trimming.
func IsBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
