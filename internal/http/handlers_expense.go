package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/services"
)

// multipartMemory bounds how much of an upload is held in memory before
// spilling to a temp file.
const multipartMemory = 1 << 20

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError(msgInvalidBody).Write(w)
		return
	}

	e, err := parseExpense(p)
	if err != nil {
		if errors.Is(err, errAllFieldsRequired) {
			BadRequestError(msgAllFieldsRequired).Write(w)
			return
		}
		writeError(w, r, err, "")
		return
	}

	created, err := s.expenses.Create(r.Context(), user.ID, e)
	if err != nil {
		writeError(w, r, err, "")
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Expense created",
		log.FieldExpenseID, created.ID, log.FieldOperation, log.OpCreate)
	NewResponse().Status(http.StatusCreated).Data(created).Message("Expense added successfully").Write(w)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())
	q, err := parseListQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err, "")
		return
	}

	page, cached, err := s.expenses.List(r.Context(), user.ID, q)
	if err != nil {
		writeError(w, r, err, "")
		return
	}

	msg := "Expenses retrieved successfully"
	if cached {
		msg = "Expenses retrieved from cache"
	}
	NewResponse().Data(page).Message(msg).Write(w)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())
	rng, err := parseDateRange(r.URL.Query())
	if err != nil {
		writeError(w, r, err, "")
		return
	}

	stats, err := s.expenses.Statistics(r.Context(), user.ID, rng)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	NewResponse().Data(stats).Message("Expense statistics retrieved successfully").Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())
	sum, err := s.expenses.Summary(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	NewResponse().Data(sum).Message("Expense summary retrieved successfully").Write(w)
}

// handleExport buffers the CSV so a store failure can still produce a
// proper error response.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())
	var buf bytes.Buffer
	if err := s.expenses.Export(r.Context(), user.ID, &buf); err != nil {
		writeError(w, r, err, "")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=expenses.csv")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())
	limit := parsePositiveInt(r.URL.Query().Get("limit"), services.DefaultActivityLimit)

	entries, err := s.activity.Recent(r.Context(), user.ID, limit)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	if entries == nil {
		entries = []core.Activity{}
	}
	NewResponse().Data(entries).Message("Activity retrieved successfully").Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())
	id := r.PathValue("id")
	if !validID(id) {
		NotFoundError("Expense not found").Write(w)
		return
	}

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError(msgInvalidBody).Write(w)
		return
	}
	patch, err := parsePatch(p)
	if err != nil {
		writeError(w, r, err, "")
		return
	}

	updated, err := s.expenses.Update(r.Context(), user.ID, id, patch)
	if err != nil {
		msg := ""
		if errors.Is(err, core.ErrNotFound) {
			msg = "Expense not found"
		}
		writeError(w, r, err, msg)
		return
	}
	NewResponse().Data(updated).Message("Expense updated successfully").Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())
	id := r.PathValue("id")
	if !validID(id) {
		NotFoundError("Expense not found").Write(w)
		return
	}

	if err := s.expenses.Delete(r.Context(), user.ID, id); err != nil {
		msg := ""
		if errors.Is(err, core.ErrNotFound) {
			msg = "Expense not found"
		}
		writeError(w, r, err, msg)
		return
	}
	NewResponse().Message("Expense deleted successfully").Write(w)
}

// handleBulkUpload accepts the CSV as a multipart "file" field or as the
// raw request body.
func (s *Server) handleBulkUpload(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.ImportMaxBytes)

	payload, err := readUpload(r)
	if err != nil {
		if isBodyTooLarge(err) {
			ErrorResponse(http.StatusRequestEntityTooLarge,
				fmt.Sprintf("CSV file exceeds %d bytes", s.opts.ImportMaxBytes)).Write(w)
			return
		}
		BadRequestError("CSV file is required").Write(w)
		return
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		BadRequestError("CSV file is required").Write(w)
		return
	}

	res, err := s.expenses.Import(r.Context(), user.ID, bytes.NewReader(payload))
	switch {
	case errors.Is(err, services.ErrImportRejected):
		NewResponse().
			Status(http.StatusBadRequest).
			Data(map[string]any{"errors": res.Errors, "validCount": res.ValidCount}).
			Message("Validation errors in CSV data").
			Write(w)
		return
	case errors.Is(err, services.ErrNoValidRecords):
		BadRequestError("No valid expenses found in CSV").Write(w)
		return
	case err != nil:
		writeError(w, r, err, "")
		return
	}

	NewResponse().
		Status(http.StatusCreated).
		Data(res.Inserted).
		Message(fmt.Sprintf("%d expenses uploaded successfully", len(res.Inserted))).
		Write(w)
}

func readUpload(r *http.Request) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return io.ReadAll(r.Body)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, err
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError(msgInvalidBody).Write(w)
		return
	}

	ids, ok := p.GetStrings("ids")
	if !ok || len(ids) == 0 {
		BadRequestError("Valid expense IDs are required").Write(w)
		return
	}
	for _, id := range ids {
		if !validID(id) {
			BadRequestError("Valid expense IDs are required").Write(w)
			return
		}
	}

	n, err := s.expenses.BulkDelete(r.Context(), user.ID, ids)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	NewResponse().
		Data(map[string]int64{"deletedCount": n}).
		Message(fmt.Sprintf("%d expenses deleted successfully", n)).
		Write(w)
}
