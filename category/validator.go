package category

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/goliatone/go-finance-tracker/apperrors"
	"github.com/goliatone/go-finance-tracker/model"
	"github.com/goliatone/go-finance-tracker/persistence"
)

// DefaultWalkLimit bounds the ancestor walk. Real trees are two levels
// deep; hitting the limit means the stored graph is corrupt.
const DefaultWalkLimit = 1024

// TransactionCounter counts live transactions.
type TransactionCounter interface {
	Count(ctx context.Context, filter persistence.TransactionFilter) (int, error)
}

// ParentChange describes what an update does to the parent link. The zero
// value leaves it alone.
type ParentChange struct {
	set bool
	id  uuid.UUID
}

// KeepParent leaves the parent unchanged.
func KeepParent() ParentChange { return ParentChange{} }

// ClearParent turns the category into a root.
func ClearParent() ParentChange { return ParentChange{set: true} }

// SetParent moves the category under id. uuid.Nil is the same as
// ClearParent.
func SetParent(id uuid.UUID) ParentChange { return ParentChange{set: true, id: id} }

// Changed reports whether the parent is part of the update.
func (p ParentChange) Changed() bool { return p.set }

// ID returns the new parent, or nil when the update clears it.
func (p ParentChange) ID() *uuid.UUID {
	if !p.set || p.id == uuid.Nil {
		return nil
	}
	id := p.id
	return &id
}

// Validator enforces ownership, kind coherence, uniqueness and acyclicity
// of a user's category tree. It only reads.
type Validator struct {
	categories   persistence.CategoryStore
	transactions TransactionCounter
	walkLimit    int
	logger       *slog.Logger
}

// NewValidator builds a Validator. A non-positive walkLimit uses
// DefaultWalkLimit.
func NewValidator(categories persistence.CategoryStore, transactions TransactionCounter, walkLimit int, logger *slog.Logger) *Validator {
	if walkLimit <= 0 {
		walkLimit = DefaultWalkLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		categories:   categories,
		transactions: transactions,
		walkLimit:    walkLimit,
		logger:       logger.With("component", "category_validator"),
	}
}

// ValidateForCreate checks that a new category may be inserted. It returns
// the parent when one was given.
func (v *Validator) ValidateForCreate(ctx context.Context, owner uuid.UUID, name string, kind model.Kind, parentID *uuid.UUID) (*model.Category, error) {
	var parent *model.Category
	if parentID != nil && *parentID != uuid.Nil {
		p, err := v.loadParent(ctx, owner, *parentID, kind)
		if err != nil {
			return nil, err
		}
		parent = p
	}

	if err := v.checkUnique(ctx, owner, name, kind, parentID, uuid.Nil); err != nil {
		return nil, err
	}
	return parent, nil
}

// UpdateRequest carries the fields an update may change. Nil fields keep
// their current value.
type UpdateRequest struct {
	Name   *string
	Kind   *model.Kind
	Parent ParentChange
}

// ValidateForUpdate checks an update against the current state of the tree
// and returns the category as it is before the update.
func (v *Validator) ValidateForUpdate(ctx context.Context, categoryID, owner uuid.UUID, req UpdateRequest) (*model.Category, error) {
	current, err := v.loadOwned(ctx, owner, categoryID)
	if err != nil {
		return nil, err
	}

	newParent := req.Parent.ID()
	if newParent != nil && *newParent == categoryID {
		return nil, apperrors.ErrCircularReference
	}

	kind := current.Kind
	if req.Kind != nil {
		kind = *req.Kind
	}
	name := current.Name
	if req.Name != nil {
		name = *req.Name
	}
	parentID := current.ParentID
	if req.Parent.Changed() {
		parentID = newParent
	}

	if newParent != nil {
		if _, err := v.loadParent(ctx, owner, *newParent, kind); err != nil {
			return nil, err
		}
		if err := v.checkAncestors(ctx, categoryID, *newParent); err != nil {
			return nil, err
		}
	}

	if current.HasParent() {
		currentParent, err := v.categories.FindByID(ctx, *current.ParentID)
		switch {
		case errors.Is(err, persistence.ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("load parent %s: %w", *current.ParentID, err)
		case currentParent.Kind != kind:
			return nil, apperrors.ErrParentTypeMismatch
		}
	}

	if kind != current.Kind {
		children, err := v.countChildren(ctx, categoryID)
		if err != nil {
			return nil, err
		}
		if children > 0 {
			return nil, apperrors.ErrKindChangeBlocked
		}
	}

	if name != current.Name || kind != current.Kind || !sameParent(parentID, current.ParentID) {
		if err := v.checkUnique(ctx, owner, name, kind, parentID, categoryID); err != nil {
			return nil, err
		}
	}

	return current, nil
}

// ValidateForDelete checks that the category has no live dependents and
// returns it.
func (v *Validator) ValidateForDelete(ctx context.Context, categoryID, owner uuid.UUID) (*model.Category, error) {
	current, err := v.loadOwned(ctx, owner, categoryID)
	if err != nil {
		return nil, err
	}

	children, err := v.countChildren(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if children > 0 {
		return nil, apperrors.ErrCategoryHasSubcategories
	}

	txs, err := v.transactions.Count(ctx, persistence.TransactionFilter{CategoryID: categoryID})
	if err != nil {
		return nil, fmt.Errorf("count transactions of %s: %w", categoryID, err)
	}
	if txs > 0 {
		return nil, apperrors.ErrCategoryHasTransactions
	}

	return current, nil
}

// LoadOwned returns the live category id of owner, or CategoryNotFound.
func (v *Validator) LoadOwned(ctx context.Context, owner, id uuid.UUID) (*model.Category, error) {
	return v.loadOwned(ctx, owner, id)
}

func (v *Validator) loadOwned(ctx context.Context, owner, id uuid.UUID) (*model.Category, error) {
	c, err := v.categories.FindByID(ctx, id)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, apperrors.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load category %s: %w", id, err)
	}
	if !c.Live() || c.OwnerID != owner {
		return nil, apperrors.ErrCategoryNotFound
	}
	return c, nil
}

func (v *Validator) loadParent(ctx context.Context, owner, parentID uuid.UUID, kind model.Kind) (*model.Category, error) {
	parent, err := v.categories.FindByID(ctx, parentID)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, apperrors.ErrInvalidParentCategory
	}
	if err != nil {
		return nil, fmt.Errorf("load parent %s: %w", parentID, err)
	}
	if !parent.Live() || parent.OwnerID != owner {
		return nil, apperrors.ErrInvalidParentCategory
	}
	if parent.Kind != kind {
		return nil, apperrors.ErrParentTypeMismatch
	}
	return parent, nil
}

// checkAncestors walks up from newParent. Reaching categoryID, or any node
// twice, means the update would close a cycle. A node without a parent or
// a missing node ends the walk.
func (v *Validator) checkAncestors(ctx context.Context, categoryID, newParent uuid.UUID) error {
	visited := map[uuid.UUID]struct{}{categoryID: {}}
	next := newParent

	for steps := 0; ; steps++ {
		if steps >= v.walkLimit {
			v.logger.Error("ancestor walk exceeded limit",
				"category_id", categoryID, "parent_id", newParent, "limit", v.walkLimit)
			return apperrors.Internal(fmt.Errorf("ancestor walk from %s exceeded %d steps", newParent, v.walkLimit))
		}

		if _, seen := visited[next]; seen {
			return apperrors.ErrCircularReference
		}
		visited[next] = struct{}{}

		node, err := v.categories.FindByID(ctx, next)
		if errors.Is(err, persistence.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load ancestor %s: %w", next, err)
		}
		if !node.HasParent() {
			return nil
		}
		next = *node.ParentID
	}
}

func (v *Validator) checkUnique(ctx context.Context, owner uuid.UUID, name string, kind model.Kind, parentID *uuid.UUID, exclude uuid.UUID) error {
	filter := persistence.CategoryFilter{
		OwnerID:   owner,
		Name:      name,
		Kind:      kind,
		Parent:    persistence.RootOnly,
		ExcludeID: exclude,
	}
	if parentID != nil && *parentID != uuid.Nil {
		filter.Parent = persistence.ChildOf
		filter.ParentID = *parentID
	}

	n, err := v.categories.Count(ctx, filter)
	if err != nil {
		return fmt.Errorf("check category uniqueness: %w", err)
	}
	if n > 0 {
		return apperrors.ErrCategoryAlreadyExists
	}
	return nil
}

func (v *Validator) countChildren(ctx context.Context, id uuid.UUID) (int, error) {
	n, err := v.categories.Count(ctx, persistence.CategoryFilter{Parent: persistence.ChildOf, ParentID: id})
	if err != nil {
		return 0, fmt.Errorf("count subcategories of %s: %w", id, err)
	}
	return n, nil
}

func sameParent(a, b *uuid.UUID) bool {
	an := a == nil || *a == uuid.Nil
	bn := b == nil || *b == uuid.Nil
	if an || bn {
		return an == bn
	}
	return *a == *b
}
