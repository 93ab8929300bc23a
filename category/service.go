package category

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/goliatone/go-finance-tracker/apperrors"
	"github.com/goliatone/go-finance-tracker/cache"
	"github.com/goliatone/go-finance-tracker/model"
	"github.com/goliatone/go-finance-tracker/persistence"
	"github.com/goliatone/go-finance-tracker/repositorycache"
)

const maxNameLength = 100

// CreateInput is the payload of Create.
type CreateInput struct {
	Name     string     `json:"name"`
	Kind     model.Kind `json:"type"`
	ParentID *uuid.UUID `json:"parentCategoryId"`
}

// Validate checks the fields on their own. Name is expected trimmed.
func (in CreateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.RuneLength(1, maxNameLength)),
		validation.Field(&in.Kind, validation.Required, validation.In(model.KindIncome, model.KindExpense)),
	)
}

// UpdateInput is the payload of Update. Nil fields are left unchanged.
type UpdateInput struct {
	Name   *string      `json:"name"`
	Kind   *model.Kind  `json:"type"`
	Parent ParentChange `json:"-"`
}

// Validate checks the fields on their own. Name is expected trimmed.
func (in UpdateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.NilOrNotEmpty, validation.RuneLength(1, maxNameLength)),
		validation.Field(&in.Kind, validation.NilOrNotEmpty, validation.In(model.KindIncome, model.KindExpense)),
	)
}

func (in UpdateInput) empty() bool {
	return in.Name == nil && in.Kind == nil && !in.Parent.Changed()
}

// Service implements category CRUD on top of the validator, persistence and
// the cache.
type Service struct {
	categories persistence.CategoryStore
	validator  *Validator
	cache      *repositorycache.Manager
	clock      clockwork.Clock
	logger     *slog.Logger
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithClock sets the clock used for timestamps.
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

// WithWalkLimit overrides DefaultWalkLimit.
func WithWalkLimit(limit int) ServiceOption {
	return func(s *Service) {
		s.validator.walkLimit = limit
		if limit <= 0 {
			s.validator.walkLimit = DefaultWalkLimit
		}
	}
}

// NewService wires a Service.
func NewService(categories persistence.CategoryStore, transactions TransactionCounter, mgr *repositorycache.Manager, opts ...ServiceOption) *Service {
	s := &Service{
		categories: categories,
		cache:      mgr,
		clock:      clockwork.NewRealClock(),
		logger:     slog.Default(),
	}
	s.validator = NewValidator(categories, transactions, DefaultWalkLimit, nil)
	for _, opt := range opts {
		opt(s)
	}
	s.validator.logger = s.logger.With("component", "category_validator")
	s.logger = s.logger.With("component", "category_service")
	return s
}

// Validator exposes the hierarchy rules to other services.
func (s *Service) Validator() *Validator {
	return s.validator
}

// Create inserts a category for owner.
func (s *Service) Create(ctx context.Context, owner uuid.UUID, in CreateInput) (View, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.ParentID != nil && *in.ParentID == uuid.Nil {
		in.ParentID = nil
	}
	if err := apperrors.FromValidation(in.Validate()); err != nil {
		return View{}, err
	}

	parent, err := s.validator.ValidateForCreate(ctx, owner, in.Name, in.Kind, in.ParentID)
	if err != nil {
		return View{}, err
	}

	now := s.clock.Now().UTC()
	created, err := s.categories.Create(ctx, &model.Category{
		ID:        uuid.New(),
		OwnerID:   owner,
		Name:      in.Name,
		Kind:      in.Kind,
		ParentID:  in.ParentID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if errors.Is(err, persistence.ErrDuplicate) {
		return View{}, apperrors.ErrCategoryAlreadyExists.WithError(err)
	}
	if err != nil {
		return View{}, fmt.Errorf("create category: %w", err)
	}

	s.cache.InvalidateCategory(ctx, owner, created.ID, parentIDOf(created))
	s.logger.Info("category created", "owner_id", owner, "category_id", created.ID, "kind", created.Kind)

	return newView(created, parent, nil), nil
}

// List returns owner's root categories with their subcategories, optionally
// restricted to one kind.
func (s *Service) List(ctx context.Context, owner uuid.UUID, kind model.Kind, opts ...repositorycache.ReadOption) ([]View, error) {
	if kind != "" && !kind.Valid() {
		return nil, apperrors.Validation(fmt.Errorf("unknown kind %q", kind), map[string]string{"type": "must be a valid value"})
	}

	key := cache.CategoryListKey(owner, kind)
	return repositorycache.GetOrFetch(ctx, s.cache, key, s.cache.TTL().Category,
		func(ctx context.Context) ([]View, error) {
			all, err := s.categories.FindMany(ctx, persistence.CategoryFilter{OwnerID: owner, Kind: kind})
			if err != nil {
				return nil, fmt.Errorf("list categories: %w", err)
			}
			return buildTree(all), nil
		}, opts...)
}

// Get returns one category of owner with its parent and subcategories.
func (s *Service) Get(ctx context.Context, owner, id uuid.UUID, opts ...repositorycache.ReadOption) (View, error) {
	view, err := repositorycache.GetOrFetch(ctx, s.cache, cache.CategoryKey(id), s.cache.TTL().Category,
		func(ctx context.Context) (View, error) {
			return s.loadView(ctx, owner, id)
		}, opts...)
	if err != nil {
		return View{}, err
	}

	// The key is not owner scoped, so a hit may belong to someone else.
	if view.OwnerID != owner {
		return View{}, apperrors.ErrCategoryNotFound
	}
	return view, nil
}

func (s *Service) loadView(ctx context.Context, owner, id uuid.UUID) (View, error) {
	c, err := s.validator.LoadOwned(ctx, owner, id)
	if err != nil {
		return View{}, err
	}

	var parent *model.Category
	if c.HasParent() {
		parent, err = s.categories.FindByID(ctx, *c.ParentID)
		if errors.Is(err, persistence.ErrNotFound) {
			parent = nil
		} else if err != nil {
			return View{}, fmt.Errorf("load parent of %s: %w", id, err)
		}
	}

	children, err := s.categories.FindMany(ctx, persistence.CategoryFilter{
		OwnerID:  owner,
		Parent:   persistence.ChildOf,
		ParentID: id,
	})
	if err != nil {
		return View{}, fmt.Errorf("load subcategories of %s: %w", id, err)
	}

	return newView(c, parent, children), nil
}

// Update changes name, kind or parent of a category.
func (s *Service) Update(ctx context.Context, owner, id uuid.UUID, in UpdateInput) (View, error) {
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		in.Name = &trimmed
	}
	if in.empty() {
		return View{}, apperrors.ErrNoFieldsToUpdate
	}
	if err := apperrors.FromValidation(in.Validate()); err != nil {
		return View{}, err
	}

	current, err := s.validator.ValidateForUpdate(ctx, id, owner, UpdateRequest{
		Name:   in.Name,
		Kind:   in.Kind,
		Parent: in.Parent,
	})
	if err != nil {
		return View{}, err
	}

	changes := persistence.CategoryChanges{Name: in.Name, Kind: in.Kind}
	if in.Parent.Changed() {
		if p := in.Parent.ID(); p != nil {
			changes.ParentID = p
		} else {
			changes.ClearParent = true
		}
	}

	updated, err := s.categories.Update(ctx, id, changes)
	switch {
	case errors.Is(err, persistence.ErrDuplicate):
		return View{}, apperrors.ErrCategoryAlreadyExists.WithError(err)
	case errors.Is(err, persistence.ErrNotFound):
		return View{}, apperrors.ErrCategoryNotFound
	case err != nil:
		return View{}, fmt.Errorf("update category %s: %w", id, err)
	}

	stale := []uuid.UUID{id, parentIDOf(current), parentIDOf(updated)}
	stale = append(stale, s.childIDs(ctx, owner, id)...)
	s.cache.InvalidateCategory(ctx, owner, stale...)
	s.logger.Info("category updated", "owner_id", owner, "category_id", id)

	return s.loadView(ctx, owner, id)
}

// Delete soft deletes a category without live subcategories or
// transactions.
func (s *Service) Delete(ctx context.Context, owner, id uuid.UUID) error {
	current, err := s.validator.ValidateForDelete(ctx, id, owner)
	if err != nil {
		return err
	}

	_, err = s.categories.SoftDelete(ctx, id)
	if errors.Is(err, persistence.ErrNotFound) {
		return apperrors.ErrCategoryNotFound
	}
	if err != nil {
		return fmt.Errorf("delete category %s: %w", id, err)
	}

	s.cache.InvalidateCategory(ctx, owner, id, parentIDOf(current))
	s.logger.Info("category deleted", "owner_id", owner, "category_id", id)
	return nil
}

// childIDs lists the live subcategories of id. Their cached views embed a
// summary of id. A failed lookup leaves them to expire with their TTL.
func (s *Service) childIDs(ctx context.Context, owner, id uuid.UUID) []uuid.UUID {
	children, err := s.categories.FindMany(ctx, persistence.CategoryFilter{
		OwnerID:  owner,
		Parent:   persistence.ChildOf,
		ParentID: id,
	})
	if err != nil {
		s.logger.Warn("subcategory lookup failed", "category_id", id, "error", err)
		return nil
	}
	ids := make([]uuid.UUID, 0, len(children))
	for _, c := range children {
		ids = append(ids, c.ID)
	}
	return ids
}

func parentIDOf(c *model.Category) uuid.UUID {
	if c == nil || !c.HasParent() {
		return uuid.Nil
	}
	return *c.ParentID
}
