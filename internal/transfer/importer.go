package transfer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"expenses/internal/core"
)

var ErrMalformedCSV = errors.New("malformed CSV")

const utf8BOM = "\ufeff"

type (
	// Row is one non-blank data record. Position is the number reported
	// to users: 2 for the first data row, the header being row 1.
	Row struct {
		Position int
		Fields   map[string]string
	}

	RowError struct {
		Position int
		Messages []string
	}

	// Batch is the outcome of validating every row of an import.
	Batch struct {
		Valid  []core.Expense
		Errors []RowError
	}
)

func (e RowError) String() string {
	return fmt.Sprintf("Row %d: %s", e.Position, strings.Join(e.Messages, ", "))
}

// ParseCSV reads a header row and the data rows below it, keyed by
// column name. Blank rows are dropped. An empty payload yields no rows.
func ParseCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
	}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		header[i] = strings.TrimSpace(h)
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
		}
		if IsBlankRow(rec) {
			continue
		}
		fields := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(rec) && name != "" {
				fields[name] = rec[i]
			}
		}
		rows = append(rows, Row{Position: len(rows) + 2, Fields: fields})
	}
	return rows, nil
}

// Partition validates rows in order, tags valid records with the owner
// and a fresh ID, and collects per-row failures.
func Partition(rows []Row, userID string, newID func() string) Batch {
	var b Batch
	for _, row := range rows {
		e, msgs := ValidateRow(row.Fields)
		if len(msgs) > 0 {
			b.Errors = append(b.Errors, RowError{Position: row.Position, Messages: msgs})
			continue
		}
		e.ID = newID()
		e.UserID = userID
		b.Valid = append(b.Valid, e)
	}
	return b
}

// ErrorStrings renders every row error as "Row N: msg, msg".
func (b Batch) ErrorStrings() []string {
	out := make([]string, 0, len(b.Errors))
	for _, e := range b.Errors {
		out = append(out, e.String())
	}
	return out
}
