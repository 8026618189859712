// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"expenses/internal/core"
)

const (
	msgAllFieldsRequired = "All fields are required"
	msgInvalidBody       = "Invalid request body"
)

var errAllFieldsRequired = fmt.Errorf("%w: all fields are required", core.ErrBadRequest)

// RequestBodyParser handles JSON and form-encoded request bodies.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(r.Body)
	return p
}

// Parse attempts to parse the body as JSON or form data. JSON numbers
// are kept as text so amounts keep their exact decimal value.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(trimmed))
	return p.err
}

// Get returns a sanitized string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Has reports whether key was sent at all, even with an empty value.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		v, ok := p.jsonData[key]
		return ok && v != nil
	}
	return p.formData != nil && p.formData.Has(key)
}

// GetStrings returns a list value: a JSON array of strings or repeated
// form keys. ok is false when the value is absent or not a string list.
func (p *RequestBodyParser) GetStrings(key string) ([]string, bool) {
	if p.jsonData != nil {
		raw, ok := p.jsonData[key].([]any)
		if !ok {
			return nil, false
		}
		out := make([]string, 0, len(raw))
		for _, v := range raw {
			s, ok := v.(string)
			if !ok {
				return nil, false
			}
			out = append(out, strings.TrimSpace(s))
		}
		return out, true
	}
	if p.formData != nil && p.formData.Has(key) {
		return p.formData[key], true
	}
	return nil, false
}

// GetRaw returns the raw body bytes.
func (p *RequestBodyParser) GetRaw() []byte {
	return p.body
}

func (p *RequestBodyParser) ContentType() string {
	return p.contentType
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseExpense builds a new expense from the body. Every field must be
// present and non-blank.
func parseExpense(p *RequestBodyParser) (core.Expense, error) {
	fields := map[string]string{}
	for _, k := range []string{"amount", "description", "date", "category", "paymentMethod"} {
		v := p.Get(k)
		if v == "" {
			return core.Expense{}, errAllFieldsRequired
		}
		fields[k] = v
	}

	amount, err := core.ParseAmount(fields["amount"])
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: %w", core.ErrBadRequest, err)
	}
	date, err := core.ParseDate(fields["date"])
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: %w", core.ErrBadRequest, err)
	}
	return core.Expense{
		Amount:        amount,
		Description:   fields["description"],
		Date:          date,
		Category:      fields["category"],
		PaymentMethod: fields["paymentMethod"],
	}, nil
}

// parsePatch collects the fields present in the body into a patch.
func parsePatch(p *RequestBodyParser) (core.ExpensePatch, error) {
	var patch core.ExpensePatch
	if p.Has("amount") {
		amount, err := core.ParseAmount(p.Get("amount"))
		if err != nil {
			return patch, fmt.Errorf("%w: %w", core.ErrBadRequest, err)
		}
		patch.Amount = &amount
	}
	if p.Has("date") {
		date, err := core.ParseDate(p.Get("date"))
		if err != nil {
			return patch, fmt.Errorf("%w: %w", core.ErrBadRequest, err)
		}
		patch.Date = &date
	}
	for key, dst := range map[string]**string{
		"description":   &patch.Description,
		"category":      &patch.Category,
		"paymentMethod": &patch.PaymentMethod,
	} {
		if p.Has(key) {
			v := p.Get(key)
			*dst = &v
		}
	}
	return patch, nil
}

// parseListQuery reads the list endpoint's query parameters.
func parseListQuery(q url.Values) (core.ListQuery, error) {
	lq, err := core.NewListQuery(
		sanitizeInput(q.Get("category")),
		sanitizeInput(q.Get("paymentMethod")),
		q.Get("startDate"),
		q.Get("endDate"),
		q.Get("page"),
		q.Get("limit"),
	)
	if err != nil {
		return lq, fmt.Errorf("%w: %w", core.ErrBadRequest, err)
	}
	return lq, nil
}

// parseDateRange reads optional startDate and endDate parameters.
func parseDateRange(q url.Values) (core.DateRange, error) {
	var r core.DateRange
	for key, dst := range map[string]**core.Date{"startDate": &r.From, "endDate": &r.To} {
		raw := strings.TrimSpace(q.Get(key))
		if raw == "" {
			continue
		}
		d, err := core.ParseDate(raw)
		if err != nil {
			return r, fmt.Errorf("%w: %s: %w", core.ErrBadRequest, key, err)
		}
		*dst = &d
	}
	return r, nil
}

// isBodyTooLarge reports whether err came from an http.MaxBytesReader.
func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// parsePositiveInt returns def when s is empty or not a positive integer.
func parsePositiveInt(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
