package transfer

import (
	"encoding/csv"
	"io"

	"expenses/internal/core"
)

// WriteCSV writes the header and one record per expense, in the given
// order, with ISO dates.
func WriteCSV(w io.Writer, es []core.Expense) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, e := range es {
		rec := []string{
			core.FormatAmount(e.Amount),
			e.Description,
			e.Date.String(),
			e.Category,
			e.PaymentMethod,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
