package transfer

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenses/internal/core"
)

func goodRow() map[string]string {
	return map[string]string{
		ColAmount:        "50",
		ColDescription:   "Lunch",
		ColDate:          "3/1/2024",
		ColCategory:      "Food",
		ColPaymentMethod: "Cash",
	}
}

func TestValidateRowAccepts(t *testing.T) {
	e, errs := ValidateRow(goodRow())
	require.Empty(t, errs)
	assert.Equal(t, "50", e.Amount.String())
	assert.Equal(t, "Lunch", e.Description)
	assert.True(t, e.Date.Equal(core.NewDate(2024, 3, 1).Time))
	assert.Equal(t, "Food", e.Category)
	assert.Equal(t, "Cash", e.PaymentMethod)
}

func TestValidateRowAcceptsBoundaryValues(t *testing.T) {
	row := goodRow()
	row[ColAmount] = "999999999999.99"
	row[ColDescription] = strings.Repeat("x", core.MaxDescriptionLen)
	e, errs := ValidateRow(row)
	require.Empty(t, errs)
	assert.Equal(t, "999999999999.99", e.Amount.String())
}

func TestValidateRowTrimsValues(t *testing.T) {
	row := map[string]string{
		ColAmount:        " 12.75 ",
		ColDescription:   "  Taxi ",
		ColDate:          " 12/31/2023 ",
		ColCategory:      " Travel",
		ColPaymentMethod: "Card ",
	}
	e, errs := ValidateRow(row)
	require.Empty(t, errs)
	assert.Equal(t, "12.75", e.Amount.String())
	assert.Equal(t, "Taxi", e.Description)
	assert.Equal(t, "2023-12-31", e.Date.String())
}

func TestValidateRowRules(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value string
		want  []string
	}{
		{"blank amount", ColAmount, "", []string{MsgInvalidAmount}},
		{"text amount", ColAmount, "ten", []string{MsgInvalidAmount}},
		{"zero amount", ColAmount, "0", []string{MsgNonPositiveAmount}},
		{"negative amount", ColAmount, "-4", []string{MsgNonPositiveAmount}},
		{"huge exponent", ColAmount, "1e50000000", []string{MsgAmountOutOfRange}},
		{"too many integer digits", ColAmount, "1000000000000", []string{MsgAmountOutOfRange}},
		{"too many decimals", ColAmount, "0.000000001", []string{MsgAmountOutOfRange}},
		{"long description", ColDescription, strings.Repeat("x", core.MaxDescriptionLen+1), []string{MsgDescriptionTooLong}},
		{"iso date", ColDate, "2024-03-01", []string{MsgInvalidDate}},
		{"impossible date", ColDate, "2/30/2024", []string{MsgInvalidDate}},
		{"two-digit year", ColDate, "3/1/24", []string{MsgInvalidDate}},
		{"blank description", ColDescription, "  ", []string{MsgDescriptionRequired}},
		{"blank category", ColCategory, "", []string{MsgCategoryRequired}},
		{"blank payment method", ColPaymentMethod, "\t", []string{MsgPaymentMethodRequired}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := goodRow()
			row[tt.field] = tt.value
			_, errs := ValidateRow(row)
			assert.Equal(t, tt.want, errs)
		})
	}
}

func TestValidateRowAccumulatesInOrder(t *testing.T) {
	_, errs := ValidateRow(map[string]string{ColAmount: "x"})
	assert.Equal(t, []string{
		MsgInvalidAmount,
		MsgInvalidDate,
		MsgDescriptionRequired,
		MsgCategoryRequired,
		MsgPaymentMethodRequired,
	}, errs)
}

func TestValidityIndependentOfOrder(t *testing.T) {
	rows := []map[string]string{goodRow(), {ColAmount: "1"}, goodRow(), {ColDate: "1/1/2020"}}
	rows[2][ColAmount] = "7.5"

	verdict := func(rs []map[string]string) map[string]bool {
		out := map[string]bool{}
		for _, r := range rs {
			_, errs := ValidateRow(r)
			out[r[ColAmount]+"|"+r[ColDate]] = len(errs) == 0
		}
		return out
	}
	want := verdict(rows)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 5; i++ {
		shuffled := append([]map[string]string(nil), rows...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, verdict(shuffled))
	}
}

func TestIsBlankRow(t *testing.T) {
	assert.True(t, IsBlankRow([]string{"", "  ", "\t"}))
	assert.True(t, IsBlankRow(nil))
	assert.False(t, IsBlankRow([]string{"", "x"}))
}
