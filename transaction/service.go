package transaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/goliatone/go-finance-tracker/apperrors"
	"github.com/goliatone/go-finance-tracker/model"
	"github.com/goliatone/go-finance-tracker/persistence"
	"github.com/goliatone/go-finance-tracker/repositorycache"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100

	maxDescriptionLength = 500
)

// CategoryLoader resolves a live category of an owner. *category.Validator
// satisfies it.
type CategoryLoader interface {
	LoadOwned(ctx context.Context, owner, id uuid.UUID) (*model.Category, error)
}

var notNilUUID = validation.By(func(value any) error {
	switch v := value.(type) {
	case uuid.UUID:
		if v == uuid.Nil {
			return validation.ErrRequired
		}
	case *uuid.UUID:
		if v != nil && *v == uuid.Nil {
			return validation.ErrRequired
		}
	}
	return nil
})

var validAmount = validation.By(func(value any) error {
	s, _ := value.(*string)
	if s == nil {
		if v, ok := value.(string); ok {
			s = &v
		} else {
			return nil
		}
	}
	if _, err := model.ParseAmount(*s); err != nil {
		return validation.NewError("validation_amount", err.Error())
	}
	return nil
})

// CreateInput is the payload of Create. Amount is a decimal string.
type CreateInput struct {
	CategoryID   uuid.UUID  `json:"categoryId"`
	Kind         model.Kind `json:"type"`
	Amount       string     `json:"amount"`
	CurrencyCode string     `json:"currencyCode"`
	Date         time.Time  `json:"date"`
	Description  *string    `json:"description"`
}

// Validate checks the fields on their own.
func (in CreateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.CategoryID, notNilUUID),
		validation.Field(&in.Kind, validation.Required, validation.In(model.KindIncome, model.KindExpense)),
		validation.Field(&in.Amount, validation.Required, validAmount),
		validation.Field(&in.CurrencyCode, validation.Required, is.CurrencyCode),
		validation.Field(&in.Date, validation.Required),
		validation.Field(&in.Description, validation.RuneLength(0, maxDescriptionLength)),
	)
}

// UpdateInput is the payload of Update. Nil fields are left unchanged.
type UpdateInput struct {
	CategoryID   *uuid.UUID  `json:"categoryId"`
	Kind         *model.Kind `json:"type"`
	Amount       *string     `json:"amount"`
	CurrencyCode *string     `json:"currencyCode"`
	Date         *time.Time  `json:"date"`
	Description  *string     `json:"description"`
}

// Validate checks the fields on their own.
func (in UpdateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.CategoryID, notNilUUID),
		validation.Field(&in.Kind, validation.NilOrNotEmpty, validation.In(model.KindIncome, model.KindExpense)),
		validation.Field(&in.Amount, validation.NilOrNotEmpty, validAmount),
		validation.Field(&in.CurrencyCode, validation.NilOrNotEmpty, is.CurrencyCode),
		validation.Field(&in.Date, validation.NilOrNotEmpty),
		validation.Field(&in.Description, validation.RuneLength(0, maxDescriptionLength)),
	)
}

func (in UpdateInput) empty() bool {
	return in.CategoryID == nil && in.Kind == nil && in.Amount == nil &&
		in.CurrencyCode == nil && in.Date == nil && in.Description == nil
}

// ListQuery filters and pages List. Zero Page and Limit take the defaults.
type ListQuery struct {
	Kind         model.Kind `json:"type"`
	CategoryID   uuid.UUID  `json:"categoryId"`
	CurrencyCode string     `json:"currencyCode"`
	DateFrom     *time.Time `json:"dateFrom"`
	DateTo       *time.Time `json:"dateTo"`
	Page         int        `json:"page"`
	Limit        int        `json:"limit"`
}

// Validate checks the fields on their own.
func (q ListQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Kind, validation.In(model.KindIncome, model.KindExpense)),
		validation.Field(&q.CurrencyCode, is.CurrencyCode),
		validation.Field(&q.Page, validation.Min(1)),
		validation.Field(&q.Limit, validation.Min(1), validation.Max(MaxLimit)),
	)
}

// Page is one page of List.
type Page struct {
	Data  []View `json:"data"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}

// Service implements transaction CRUD and statistics for one owner at a
// time. Every write drops the owner's cached statistics.
type Service struct {
	transactions persistence.TransactionStore
	categories   CategoryLoader
	engine       *Engine
	cache        *repositorycache.Manager
	clock        clockwork.Clock
	logger       *slog.Logger
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithClock sets the clock used for timestamps and date-range checks.
func WithClock(clock clockwork.Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService wires a Service and its statistics Engine.
func NewService(transactions persistence.TransactionStore, categories CategoryLoader, mgr *repositorycache.Manager, opts ...ServiceOption) *Service {
	s := &Service{
		transactions: transactions,
		categories:   categories,
		cache:        mgr,
		clock:        clockwork.NewRealClock(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = NewEngine(transactions, mgr, s.clock, s.logger)
	s.logger = s.logger.With("component", "transaction_service")
	return s
}

// Engine returns the statistics engine.
func (s *Service) Engine() *Engine {
	return s.engine
}

// Create records a transaction in one of owner's categories.
func (s *Service) Create(ctx context.Context, owner uuid.UUID, in CreateInput) (View, error) {
	in.CurrencyCode = strings.ToUpper(strings.TrimSpace(in.CurrencyCode))
	if err := apperrors.FromValidation(in.Validate()); err != nil {
		return View{}, err
	}
	amount, err := model.ParseAmount(in.Amount)
	if err != nil {
		return View{}, apperrors.Validation(err, map[string]string{"amount": err.Error()})
	}

	cat, err := s.checkCategory(ctx, owner, in.CategoryID, in.Kind)
	if err != nil {
		return View{}, err
	}

	now := s.clock.Now().UTC()
	tx := &model.Transaction{
		ID:           uuid.New(),
		OwnerID:      owner,
		CategoryID:   in.CategoryID,
		Kind:         in.Kind,
		Amount:       amount,
		CurrencyCode: in.CurrencyCode,
		Date:         in.Date.UTC(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Description != nil {
		tx.Description = *in.Description
	}

	created, err := s.transactions.Create(ctx, tx)
	if err != nil {
		return View{}, fmt.Errorf("create transaction: %w", err)
	}

	s.cache.InvalidateStatistics(ctx, owner)
	s.logger.Info("transaction created", "owner_id", owner, "transaction_id", created.ID, "category_id", created.CategoryID)

	return newView(created, cat), nil
}

// List returns a page of owner's transactions, newest first.
func (s *Service) List(ctx context.Context, owner uuid.UUID, q ListQuery) (Page, error) {
	q.CurrencyCode = strings.ToUpper(strings.TrimSpace(q.CurrencyCode))
	if err := apperrors.FromValidation(q.Validate()); err != nil {
		return Page{}, err
	}
	if err := checkDateRange(s.clock.Now(), q.DateFrom, q.DateTo); err != nil {
		return Page{}, err
	}
	if q.Page == 0 {
		q.Page = DefaultPage
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}

	filter := persistence.TransactionFilter{
		OwnerID:      owner,
		CategoryID:   q.CategoryID,
		Kind:         q.Kind,
		CurrencyCode: q.CurrencyCode,
		DateFrom:     q.DateFrom,
		DateTo:       q.DateTo,
	}

	rows, err := s.transactions.FindMany(ctx, filter, persistence.Page{
		Offset: (q.Page - 1) * q.Limit,
		Limit:  q.Limit,
	})
	if err != nil {
		return Page{}, fmt.Errorf("list transactions: %w", err)
	}
	total, err := s.transactions.Count(ctx, filter)
	if err != nil {
		return Page{}, fmt.Errorf("count transactions: %w", err)
	}

	page := Page{Data: make([]View, 0, len(rows)), Total: total, Page: q.Page, Limit: q.Limit}
	categories := map[uuid.UUID]*model.Category{}
	for _, row := range rows {
		cat, ok := categories[row.CategoryID]
		if !ok {
			cat, err = s.categoryRef(ctx, owner, row.CategoryID)
			if err != nil {
				return Page{}, err
			}
			categories[row.CategoryID] = cat
		}
		page.Data = append(page.Data, newView(row, cat))
	}
	return page, nil
}

// Get returns one of owner's transactions.
func (s *Service) Get(ctx context.Context, owner, id uuid.UUID) (View, error) {
	tx, err := s.loadOwned(ctx, owner, id)
	if err != nil {
		return View{}, err
	}
	cat, err := s.categoryRef(ctx, owner, tx.CategoryID)
	if err != nil {
		return View{}, err
	}
	return newView(tx, cat), nil
}

// categoryRef loads the category a view refers to. A category deleted after
// the fact leaves the reference empty.
func (s *Service) categoryRef(ctx context.Context, owner, id uuid.UUID) (*model.Category, error) {
	cat, err := s.categories.LoadOwned(ctx, owner, id)
	if apperrors.IsCode(err, apperrors.CodeCategoryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load category of transaction: %w", err)
	}
	return cat, nil
}

// Update changes some fields of a transaction. The resulting kind must
// still match the resulting category.
func (s *Service) Update(ctx context.Context, owner, id uuid.UUID, in UpdateInput) (View, error) {
	if in.empty() {
		return View{}, apperrors.ErrNoFieldsToUpdate
	}
	if in.CurrencyCode != nil {
		code := strings.ToUpper(strings.TrimSpace(*in.CurrencyCode))
		in.CurrencyCode = &code
	}
	if err := apperrors.FromValidation(in.Validate()); err != nil {
		return View{}, err
	}

	current, err := s.loadOwned(ctx, owner, id)
	if err != nil {
		return View{}, err
	}

	kind := current.Kind
	if in.Kind != nil {
		kind = *in.Kind
	}
	categoryID := current.CategoryID
	if in.CategoryID != nil {
		categoryID = *in.CategoryID
	}
	cat, err := s.checkCategory(ctx, owner, categoryID, kind)
	if err != nil {
		return View{}, err
	}

	changes := persistence.TransactionChanges{
		CategoryID:   in.CategoryID,
		Kind:         in.Kind,
		CurrencyCode: in.CurrencyCode,
		Description:  in.Description,
	}
	if in.Amount != nil {
		amount, err := model.ParseAmount(*in.Amount)
		if err != nil {
			return View{}, apperrors.Validation(err, map[string]string{"amount": err.Error()})
		}
		changes.Amount = &amount
	}
	if in.Date != nil {
		d := in.Date.UTC()
		changes.Date = &d
	}

	updated, err := s.transactions.Update(ctx, id, changes)
	if errors.Is(err, persistence.ErrNotFound) {
		return View{}, apperrors.ErrTransactionNotFound
	}
	if err != nil {
		return View{}, fmt.Errorf("update transaction %s: %w", id, err)
	}

	s.cache.InvalidateStatistics(ctx, owner)
	s.logger.Info("transaction updated", "owner_id", owner, "transaction_id", id)

	return newView(updated, cat), nil
}

// Delete soft deletes one of owner's transactions.
func (s *Service) Delete(ctx context.Context, owner, id uuid.UUID) error {
	if _, err := s.loadOwned(ctx, owner, id); err != nil {
		return err
	}

	_, err := s.transactions.SoftDelete(ctx, id)
	if errors.Is(err, persistence.ErrNotFound) {
		return apperrors.ErrTransactionNotFound
	}
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}

	s.cache.InvalidateStatistics(ctx, owner)
	s.logger.Info("transaction deleted", "owner_id", owner, "transaction_id", id)
	return nil
}

// GetStatistics summarizes owner's transactions.
func (s *Service) GetStatistics(ctx context.Context, owner uuid.UUID, q Query, opts ...repositorycache.ReadOption) (Statistics, error) {
	if q.CurrencyCode != "" {
		q.CurrencyCode = strings.ToUpper(strings.TrimSpace(q.CurrencyCode))
	}
	return s.engine.Compute(ctx, owner, q, opts...)
}

func (s *Service) loadOwned(ctx context.Context, owner, id uuid.UUID) (*model.Transaction, error) {
	tx, err := s.transactions.FindByID(ctx, id)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, apperrors.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load transaction %s: %w", id, err)
	}
	if !tx.Live() || tx.OwnerID != owner {
		return nil, apperrors.ErrTransactionNotFound
	}
	return tx, nil
}

func (s *Service) checkCategory(ctx context.Context, owner, categoryID uuid.UUID, kind model.Kind) (*model.Category, error) {
	cat, err := s.categories.LoadOwned(ctx, owner, categoryID)
	if err != nil {
		return nil, err
	}
	if cat.Kind != kind {
		return nil, apperrors.ErrTransactionTypeMismatch
	}
	return cat, nil
}

// View is what the service returns for a transaction.
type View struct {
	ID           uuid.UUID    `json:"id"`
	CategoryID   uuid.UUID    `json:"categoryId"`
	Kind         model.Kind   `json:"type"`
	Amount       string       `json:"amount"`
	CurrencyCode string       `json:"currencyCode"`
	Date         time.Time    `json:"date"`
	Description  *string      `json:"description"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
	Category     *CategoryRef `json:"category,omitempty"`
}

// CategoryRef is the category a transaction belongs to.
type CategoryRef struct {
	ID   uuid.UUID  `json:"id"`
	Name string     `json:"name"`
	Kind model.Kind `json:"type"`
}

func newView(t *model.Transaction, cat *model.Category) View {
	v := View{
		ID:           t.ID,
		CategoryID:   t.CategoryID,
		Kind:         t.Kind,
		Amount:       model.FormatAmount(t.Amount),
		CurrencyCode: t.CurrencyCode,
		Date:         t.Date.UTC(),
		CreatedAt:    t.CreatedAt.UTC(),
		UpdatedAt:    t.UpdatedAt.UTC(),
	}
	if t.Description != "" {
		d := t.Description
		v.Description = &d
	}
	if cat != nil {
		v.Category = &CategoryRef{ID: cat.ID, Name: cat.Name, Kind: cat.Kind}
	}
	return v
}
