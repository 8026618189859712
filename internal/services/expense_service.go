// Package services holds the expense and auth use cases. Services receive
// their store, cache and publisher at construction.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"expenses/internal/amqp"
	"expenses/internal/cache"
	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/transfer"
)

var (
	ErrImportRejected = fmt.Errorf("%w: validation errors in CSV data", core.ErrBadRequest)
	ErrNoValidRecords = fmt.Errorf("%w: no valid expenses found in CSV", core.ErrBadRequest)
	ErrNoIDs          = fmt.Errorf("%w: valid expense IDs are required", core.ErrBadRequest)
)

// DefaultCacheTTL is how long a list page stays cached.
const DefaultCacheTTL = 300 * time.Second

// EventPublisher announces completed writes. A nil publisher disables events.
type EventPublisher interface {
	PublishExpenseChanged(ctx context.Context, msg *amqp.ExpenseChangedMessage) error
}

// ImportResult describes an import. On rejection only Errors and
// ValidCount are set; on success Inserted holds the stored records.
type ImportResult struct {
	Inserted   []core.Expense
	Errors     []string
	ValidCount int
}

type ExpenseService struct {
	repo        core.ExpenseRepository
	cache       cache.Store
	invalidator *Invalidator
	publisher   EventPublisher
	logger      *log.Logger
	cacheTTL    time.Duration
	newID       func() string
	now         func() time.Time

	// gens counts writes per user so a list read can tell whether its
	// page went stale before it reached the cache.
	gensMu sync.Mutex
	gens   map[string]uint64
}

// NewExpenseService wires the service. cacheStore and publisher may be nil.
func NewExpenseService(repo core.ExpenseRepository, cacheStore cache.Store, publisher EventPublisher, logger *log.Logger, cacheTTL time.Duration) *ExpenseService {
	if logger == nil {
		logger = log.Discard()
	}
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &ExpenseService{
		repo:        repo,
		cache:       cacheStore,
		invalidator: NewInvalidator(cacheStore, logger),
		publisher:   publisher,
		logger:      logger.WithComponent(log.ComponentExpense),
		cacheTTL:    cacheTTL,
		newID:       uuid.NewString,
		now:         func() time.Time { return time.Now().UTC() },
		gens:        make(map[string]uint64),
	}
}

// Create validates and stores a new expense owned by userID.
func (s *ExpenseService) Create(ctx context.Context, userID string, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("%w: %w", core.ErrBadRequest, err)
	}
	now := s.now()
	e.ID = s.newID()
	e.UserID = userID
	e.CreatedAt, e.UpdatedAt = now, now

	if err := s.repo.InsertExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.afterWrite(ctx, userID, core.ActionCreate, []string{e.ID})
	return e, nil
}

// List returns one page of userID's expenses, newest first. cached
// reports whether the page came from the cache.
func (s *ExpenseService) List(ctx context.Context, userID string, q core.ListQuery) (page core.ExpensePage, cached bool, err error) {
	key, err := ListCacheKey(userID, q)
	if err != nil {
		return page, false, err
	}
	if p, ok := s.cachedPage(ctx, key); ok {
		return p, true, nil
	}

	gen := s.generation(userID)
	f := q.Filter(userID)
	var (
		expenses []core.Expense
		total    int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = s.repo.FindExpenses(gctx, f, q.Skip(), q.Limit)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.CountExpenses(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return page, false, fmt.Errorf("list expenses: %w", err)
	}

	page = core.ExpensePage{
		Expenses:   expenses,
		Total:      total,
		Page:       q.Page,
		TotalPages: core.TotalPages(total, q.Limit),
	}
	s.storePage(ctx, userID, gen, key, page)
	return page, false, nil
}

func (s *ExpenseService) generation(userID string) uint64 {
	s.gensMu.Lock()
	defer s.gensMu.Unlock()
	return s.gens[userID]
}

func (s *ExpenseService) bumpGeneration(userID string) {
	s.gensMu.Lock()
	s.gens[userID]++
	s.gensMu.Unlock()
}

func (s *ExpenseService) cachedPage(ctx context.Context, key string) (core.ExpensePage, bool) {
	var page core.ExpensePage
	if s.cache == nil {
		return page, false
	}
	b, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "Cache read failed", log.FieldCacheKey, key, log.FieldError, err)
		return page, false
	}
	if !ok {
		return page, false
	}
	if err := json.Unmarshal(b, &page); err != nil {
		s.logger.WarnContext(ctx, "Discarding undecodable cache entry", log.FieldCacheKey, key, log.FieldError, err)
		return page, false
	}
	return page, true
}

// storePage caches page unless a write to userID happened after gen was
// read. A write landing between the check and the Set is caught by the
// second check, which removes the entry again.
func (s *ExpenseService) storePage(ctx context.Context, userID string, gen uint64, key string, page core.ExpensePage) {
	if s.cache == nil || s.generation(userID) != gen {
		return
	}
	b, err := json.Marshal(page)
	if err != nil {
		s.logger.WarnContext(ctx, "Cache encode failed", log.FieldError, err)
		return
	}
	if err := s.cache.Set(ctx, key, b, s.cacheTTL); err != nil {
		s.logger.WarnContext(ctx, "Cache write failed", log.FieldCacheKey, key, log.FieldError, err)
		return
	}
	if s.generation(userID) != gen {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "Cache delete of stale page failed", log.FieldCacheKey, key, log.FieldError, err)
		}
	}
}

// Update applies a partial update to one of userID's expenses.
func (s *ExpenseService) Update(ctx context.Context, userID, id string, p core.ExpensePatch) (core.Expense, error) {
	if err := p.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("%w: %w", core.ErrBadRequest, err)
	}
	e, err := s.repo.UpdateExpense(ctx, userID, id, p)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	s.afterWrite(ctx, userID, core.ActionUpdate, []string{id})
	return e, nil
}

func (s *ExpenseService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteExpense(ctx, userID, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.afterWrite(ctx, userID, core.ActionDelete, []string{id})
	return nil
}

// BulkDelete removes the listed expenses owned by userID; IDs that do
// not exist or belong to someone else are ignored.
func (s *ExpenseService) BulkDelete(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, ErrNoIDs
	}
	n, err := s.repo.DeleteExpenses(ctx, userID, ids)
	if err != nil {
		return 0, fmt.Errorf("bulk delete expenses: %w", err)
	}
	s.invalidate(ctx, userID)
	if n > 0 {
		s.publish(ctx, userID, core.ActionBulkDelete, ids)
	}
	return n, nil
}

// Import reads a CSV payload and stores every row, or none of them when
// any row is invalid.
func (s *ExpenseService) Import(ctx context.Context, userID string, r io.Reader) (ImportResult, error) {
	rows, err := transfer.ParseCSV(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: %w", core.ErrBadRequest, err)
	}

	batch := transfer.Partition(rows, userID, s.newID)
	if len(batch.Errors) > 0 {
		fields := log.NewFields().WithUser(userID).WithOperation(log.OpImport).WithErrorType(log.ErrorTypeValidation)
		fields["invalid_rows"], fields["valid_rows"] = len(batch.Errors), len(batch.Valid)
		s.logger.InfoContext(ctx, "Import rejected", fields.ToSlice()...)
		return ImportResult{Errors: batch.ErrorStrings(), ValidCount: len(batch.Valid)}, ErrImportRejected
	}
	if len(batch.Valid) == 0 {
		return ImportResult{}, ErrNoValidRecords
	}

	now := s.now()
	ids := make([]string, len(batch.Valid))
	for i := range batch.Valid {
		batch.Valid[i].CreatedAt, batch.Valid[i].UpdatedAt = now, now
		ids[i] = batch.Valid[i].ID
	}
	if err := s.repo.InsertExpenses(ctx, batch.Valid); err != nil {
		return ImportResult{}, fmt.Errorf("save imported expenses: %w", err)
	}

	s.logger.InfoContext(ctx, "Import stored",
		log.NewFields().WithUser(userID).WithOperation(log.OpImport).WithCount(len(ids)).ToSlice()...)
	s.afterWrite(ctx, userID, core.ActionImport, ids)
	return ImportResult{Inserted: batch.Valid, ValidCount: len(batch.Valid)}, nil
}

// Export writes all of userID's expenses as CSV, newest first.
func (s *ExpenseService) Export(ctx context.Context, userID string, w io.Writer) error {
	es, err := s.repo.FindExpenses(ctx, core.ExpenseFilter{UserID: userID}, 0, 0)
	if err != nil {
		return fmt.Errorf("load expenses: %w", err)
	}
	if err := transfer.WriteCSV(w, es); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// Statistics aggregates userID's expenses dated within r. An unset end
// defaults to today; an unset start is unbounded.
func (s *ExpenseService) Statistics(ctx context.Context, userID string, r core.DateRange) (core.Statistics, error) {
	if r.To == nil {
		today := core.DateOf(s.now())
		r.To = &today
	}
	f := core.ExpenseFilter{UserID: userID, From: r.From, To: r.To}

	var overall, byCategory, byMonth []core.GroupTotal
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		overall, err = s.repo.SumExpenses(gctx, f, core.GroupNone)
		return err
	})
	g.Go(func() (err error) {
		byCategory, err = s.repo.SumExpenses(gctx, f, core.GroupCategory)
		return err
	})
	g.Go(func() (err error) {
		byMonth, err = s.repo.SumExpenses(gctx, f, core.GroupMonth)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Statistics{}, fmt.Errorf("statistics: %w", err)
	}
	return core.NewStatistics(first(overall), byCategory, byMonth), nil
}

// Summary totals all of userID's expenses and names the top categories.
func (s *ExpenseService) Summary(ctx context.Context, userID string) (core.Summary, error) {
	f := core.ExpenseFilter{UserID: userID}

	var overall, byCategory []core.GroupTotal
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		overall, err = s.repo.SumExpenses(gctx, f, core.GroupNone)
		return err
	})
	g.Go(func() (err error) {
		byCategory, err = s.repo.SumExpenses(gctx, f, core.GroupCategory)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Summary{}, fmt.Errorf("summary: %w", err)
	}
	return core.Summary{
		TotalExpenses: first(overall).Total,
		Categories:    core.TopCategories(byCategory, core.TopCategoryCount),
	}, nil
}

func first(gs []core.GroupTotal) core.GroupTotal {
	if len(gs) == 0 {
		return core.GroupTotal{Total: decimal.Zero}
	}
	return gs[0]
}

func (s *ExpenseService) afterWrite(ctx context.Context, userID, action string, ids []string) {
	s.invalidate(ctx, userID)
	s.publish(ctx, userID, action, ids)
}

// invalidate must run after the store write has committed.
func (s *ExpenseService) invalidate(ctx context.Context, userID string) {
	s.bumpGeneration(userID)
	s.invalidator.InvalidateUser(ctx, userID)
}

func (s *ExpenseService) publish(ctx context.Context, userID, action string, ids []string) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "Event publisher not configured, skipping", "action", action)
		return
	}
	msg := amqp.NewExpenseChangedMessage(userID, action, ids)
	if err := s.publisher.PublishExpenseChanged(ctx, msg); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.ErrorContext(ctx, "Failed to publish expense changed event",
			log.NewFields().WithUser(userID).WithOperation(log.OpPublish).
				WithErrorType(log.ErrorTypeNetwork).WithError(err).ToSlice()...)
	}
}
