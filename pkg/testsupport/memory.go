package testsupport

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goliatone/go-finance-tracker/model"
	"github.com/goliatone/go-finance-tracker/persistence"
)

// MemoryDB holds in-memory stores that follow the persistence contracts,
// including the live-row unique index on categories and user emails.
type MemoryDB struct {
	Categories   *CategoryStore
	Transactions *TransactionStore
	Users        *UserStore
}

// NewMemoryDB returns empty stores stamping deletions with clock.
func NewMemoryDB(now func() time.Time) *MemoryDB {
	if now == nil {
		now = time.Now
	}
	return &MemoryDB{
		Categories:   &CategoryStore{rows: map[uuid.UUID]model.Category{}, now: now},
		Transactions: &TransactionStore{rows: map[uuid.UUID]model.Transaction{}, now: now},
		Users:        &UserStore{rows: map[uuid.UUID]model.User{}, now: now},
	}
}

// CategoryStore implements persistence.CategoryStore.
type CategoryStore struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]model.Category
	now   func() time.Time
	calls int
}

var _ persistence.CategoryStore = (*CategoryStore)(nil)

// Calls reports how many store methods ran.
func (s *CategoryStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Insert stores c as is, bypassing the unique check. It is meant for
// seeding states the services would refuse to create, such as cycles.
func (s *CategoryStore) Insert(c model.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[c.ID] = c
}

// SetParent rewrites a parent link directly.
func (s *CategoryStore) SetParent(id uuid.UUID, parent *uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.rows[id]
	c.ParentID = parent
	s.rows[id] = c
}

func (s *CategoryStore) FindByID(_ context.Context, id uuid.UUID) (*model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	c, ok := s.rows[id]
	if !ok || !c.DeletedAt.IsZero() {
		return nil, persistence.ErrNotFound
	}
	return &c, nil
}

func (s *CategoryStore) FindMany(_ context.Context, filter persistence.CategoryFilter) ([]*model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	var out []*model.Category
	for _, c := range s.rows {
		if matchCategory(c, filter) {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *CategoryStore) Count(_ context.Context, filter persistence.CategoryFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	n := 0
	for _, c := range s.rows {
		if matchCategory(c, filter) {
			n++
		}
	}
	return n, nil
}

func (s *CategoryStore) Create(_ context.Context, c *model.Category) (*model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	if s.duplicateLocked(*c) {
		return nil, persistence.ErrDuplicate
	}
	row := *c
	s.rows[row.ID] = row
	return &row, nil
}

func (s *CategoryStore) Update(_ context.Context, id uuid.UUID, changes persistence.CategoryChanges) (*model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	row, ok := s.rows[id]
	if !ok || !row.DeletedAt.IsZero() {
		return nil, persistence.ErrNotFound
	}
	if changes.Name != nil {
		row.Name = *changes.Name
	}
	if changes.Kind != nil {
		row.Kind = *changes.Kind
	}
	if changes.ClearParent {
		row.ParentID = nil
	} else if changes.ParentID != nil {
		p := *changes.ParentID
		row.ParentID = &p
	}
	row.UpdatedAt = s.now().UTC()

	if s.duplicateLocked(row) {
		return nil, persistence.ErrDuplicate
	}
	s.rows[id] = row
	return &row, nil
}

func (s *CategoryStore) SoftDelete(_ context.Context, id uuid.UUID) (*model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	row, ok := s.rows[id]
	if !ok || !row.DeletedAt.IsZero() {
		return nil, persistence.ErrNotFound
	}
	row.DeletedAt = s.now().UTC()
	s.rows[id] = row
	return &row, nil
}

func (s *CategoryStore) duplicateLocked(c model.Category) bool {
	for _, other := range s.rows {
		if other.ID == c.ID || !other.DeletedAt.IsZero() {
			continue
		}
		if other.OwnerID == c.OwnerID && other.Name == c.Name && other.Kind == c.Kind &&
			parentKey(other.ParentID) == parentKey(c.ParentID) {
			return true
		}
	}
	return false
}

func parentKey(p *uuid.UUID) uuid.UUID {
	if p == nil {
		return uuid.Nil
	}
	return *p
}

func matchCategory(c model.Category, f persistence.CategoryFilter) bool {
	if !c.DeletedAt.IsZero() {
		return false
	}
	if f.OwnerID != uuid.Nil && c.OwnerID != f.OwnerID {
		return false
	}
	if f.Kind != "" && c.Kind != f.Kind {
		return false
	}
	if f.Name != "" && c.Name != f.Name {
		return false
	}
	if f.ExcludeID != uuid.Nil && c.ID == f.ExcludeID {
		return false
	}
	switch f.Parent {
	case persistence.RootOnly:
		return parentKey(c.ParentID) == uuid.Nil
	case persistence.ChildOf:
		return parentKey(c.ParentID) == f.ParentID
	}
	return true
}

// TransactionStore implements persistence.TransactionStore.
type TransactionStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]model.Transaction
	now  func() time.Time
}

var _ persistence.TransactionStore = (*TransactionStore)(nil)

// Insert stores t as is.
func (s *TransactionStore) Insert(t model.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[t.ID] = t
}

func (s *TransactionStore) FindByID(_ context.Context, id uuid.UUID) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.rows[id]
	if !ok || !t.DeletedAt.IsZero() {
		return nil, persistence.ErrNotFound
	}
	return &t, nil
}

func (s *TransactionStore) FindMany(_ context.Context, filter persistence.TransactionFilter, page persistence.Page) ([]*model.Transaction, error) {
	matched := s.matching(filter)
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date) {
			return matched[i].Date.After(matched[j].Date)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if page.Offset > 0 {
		if page.Offset >= len(matched) {
			return []*model.Transaction{}, nil
		}
		matched = matched[page.Offset:]
	}
	if page.Limit > 0 && len(matched) > page.Limit {
		matched = matched[:page.Limit]
	}

	out := make([]*model.Transaction, 0, len(matched))
	for i := range matched {
		out = append(out, &matched[i])
	}
	return out, nil
}

func (s *TransactionStore) Create(_ context.Context, t *model.Transaction) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := *t
	s.rows[row.ID] = row
	return &row, nil
}

func (s *TransactionStore) Update(_ context.Context, id uuid.UUID, changes persistence.TransactionChanges) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok || !row.DeletedAt.IsZero() {
		return nil, persistence.ErrNotFound
	}
	if changes.CategoryID != nil {
		row.CategoryID = *changes.CategoryID
	}
	if changes.Kind != nil {
		row.Kind = *changes.Kind
	}
	if changes.Amount != nil {
		row.Amount = *changes.Amount
	}
	if changes.CurrencyCode != nil {
		row.CurrencyCode = *changes.CurrencyCode
	}
	if changes.Date != nil {
		row.Date = *changes.Date
	}
	if changes.Description != nil {
		row.Description = *changes.Description
	}
	row.UpdatedAt = s.now().UTC()
	s.rows[id] = row
	return &row, nil
}

func (s *TransactionStore) SoftDelete(_ context.Context, id uuid.UUID) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok || !row.DeletedAt.IsZero() {
		return nil, persistence.ErrNotFound
	}
	row.DeletedAt = s.now().UTC()
	s.rows[id] = row
	return &row, nil
}

func (s *TransactionStore) Count(_ context.Context, filter persistence.TransactionFilter) (int, error) {
	return len(s.matching(filter)), nil
}

func (s *TransactionStore) Aggregate(_ context.Context, filter persistence.TransactionFilter) (persistence.Summary, error) {
	sum := persistence.Summary{Sum: decimal.Zero}
	for _, t := range s.matching(filter) {
		sum.Sum = sum.Sum.Add(t.Amount)
		sum.Count++
	}
	return sum, nil
}

func (s *TransactionStore) AggregateBy(_ context.Context, filter persistence.TransactionFilter, groupBy persistence.GroupBy) ([]persistence.GroupSummary, error) {
	return persistence.Fold(s.matching(filter), groupBy)
}

func (s *TransactionStore) matching(f persistence.TransactionFilter) []model.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Transaction
	for _, t := range s.rows {
		if !t.DeletedAt.IsZero() {
			continue
		}
		if f.OwnerID != uuid.Nil && t.OwnerID != f.OwnerID {
			continue
		}
		if f.CategoryID != uuid.Nil && t.CategoryID != f.CategoryID {
			continue
		}
		if f.Kind != "" && t.Kind != f.Kind {
			continue
		}
		if f.CurrencyCode != "" && t.CurrencyCode != f.CurrencyCode {
			continue
		}
		if f.DateFrom != nil && t.Date.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && t.Date.After(*f.DateTo) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// UserStore implements persistence.UserStore.
type UserStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]model.User
	now  func() time.Time
}

var _ persistence.UserStore = (*UserStore)(nil)

func (s *UserStore) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok || !u.DeletedAt.IsZero() {
		return nil, persistence.ErrNotFound
	}
	return &u, nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.rows {
		if u.Email == email && u.DeletedAt.IsZero() {
			u := u
			return &u, nil
		}
	}
	return nil, persistence.ErrNotFound
}

func (s *UserStore) Create(_ context.Context, u *model.User) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.rows {
		if other.Email == u.Email {
			return nil, persistence.ErrDuplicate
		}
	}
	row := *u
	s.rows[row.ID] = row
	return &row, nil
}

func (s *UserStore) Update(_ context.Context, id uuid.UUID, changes persistence.UserChanges) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || !row.DeletedAt.IsZero() {
		return nil, persistence.ErrNotFound
	}
	if changes.Role != nil {
		row.Role = *changes.Role
	}
	if changes.CountryCode != nil {
		row.CountryCode = *changes.CountryCode
	}
	if changes.BaseCurrencyCode != nil {
		row.BaseCurrencyCode = *changes.BaseCurrencyCode
	}
	row.UpdatedAt = s.now().UTC()
	s.rows[id] = row
	return &row, nil
}
