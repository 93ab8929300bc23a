// Package user serves user profiles through the cache and applies profile
// and role changes.
package user

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
	"github.com/goliatone/go-finance-tracker/cache"
	"github.com/goliatone/go-finance-tracker/model"
	"github.com/goliatone/go-finance-tracker/persistence"
	"github.com/goliatone/go-finance-tracker/repositorycache"
)

// Profile is the public view of a user.
type Profile struct {
	ID               uuid.UUID  `json:"id" msgpack:"id"`
	Email            string     `json:"email" msgpack:"email"`
	Role             model.Role `json:"role" msgpack:"role"`
	CountryCode      *string    `json:"countryCode" msgpack:"countryCode"`
	BaseCurrencyCode *string    `json:"baseCurrencyCode" msgpack:"baseCurrencyCode"`
	CreatedAt        time.Time  `json:"createdAt" msgpack:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt" msgpack:"updatedAt"`
}

func newProfile(u *model.User) Profile {
	p := Profile{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt.UTC(),
		UpdatedAt: u.UpdatedAt.UTC(),
	}
	if u.CountryCode != "" {
		c := u.CountryCode
		p.CountryCode = &c
	}
	if u.BaseCurrencyCode != "" {
		c := u.BaseCurrencyCode
		p.BaseCurrencyCode = &c
	}
	return p
}

// RegisterInput is the payload of Register.
type RegisterInput struct {
	Email            string `json:"email"`
	CountryCode      string `json:"countryCode"`
	BaseCurrencyCode string `json:"baseCurrencyCode"`
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, is.EmailFormat),
		validation.Field(&in.CountryCode, is.CountryCode2),
		validation.Field(&in.BaseCurrencyCode, is.CurrencyCode),
	)
}

// ProfileInput is the payload of UpdateProfile. Nil fields are left
// unchanged.
type ProfileInput struct {
	CountryCode      *string `json:"countryCode"`
	BaseCurrencyCode *string `json:"baseCurrencyCode"`
}

func (in ProfileInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.CountryCode, validation.NilOrNotEmpty, is.CountryCode2),
		validation.Field(&in.BaseCurrencyCode, validation.NilOrNotEmpty, is.CurrencyCode),
	)
}

// Service reads and updates users.
type Service struct {
	users  persistence.UserStore
	cache  *repositorycache.Manager
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewService wires a Service. A nil clock uses the wall clock and a nil
// logger uses slog.Default.
func NewService(users persistence.UserStore, mgr *repositorycache.Manager, clock clockwork.Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:  users,
		cache:  mgr,
		clock:  clock,
		logger: logger.With("component", "user_service"),
	}
}

// Register creates a user with the default role.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Profile, error) {
	in.Email = normalizeEmail(in.Email)
	in.CountryCode = strings.ToUpper(strings.TrimSpace(in.CountryCode))
	in.BaseCurrencyCode = strings.ToUpper(strings.TrimSpace(in.BaseCurrencyCode))
	if err := apperrors.FromValidation(in.Validate()); err != nil {
		return Profile{}, err
	}

	now := s.clock.Now().UTC()
	created, err := s.users.Create(ctx, &model.User{
		ID:               uuid.New(),
		Email:            in.Email,
		Role:             model.RoleUser,
		CountryCode:      in.CountryCode,
		BaseCurrencyCode: in.BaseCurrencyCode,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if errors.Is(err, persistence.ErrDuplicate) {
		return Profile{}, apperrors.ErrEmailAlreadyExists.WithError(err)
	}
	if err != nil {
		return Profile{}, fmt.Errorf("create user: %w", err)
	}

	// A lookup by this email may have been answered before the user existed.
	s.cache.InvalidateUser(ctx, created.ID, created.Email)
	s.logger.Info("user registered", "user_id", created.ID)
	return newProfile(created), nil
}

// GetProfile returns the profile of id.
func (s *Service) GetProfile(ctx context.Context, id uuid.UUID, opts ...repositorycache.ReadOption) (Profile, error) {
	return repositorycache.GetOrFetch(ctx, s.cache, cache.UserProfileKey(id), s.cache.TTL().Profile,
		func(ctx context.Context) (Profile, error) {
			u, err := s.load(ctx, id)
			if err != nil {
				return Profile{}, err
			}
			return newProfile(u), nil
		}, opts...)
}

// GetByEmail returns the profile registered under email.
func (s *Service) GetByEmail(ctx context.Context, email string, opts ...repositorycache.ReadOption) (Profile, error) {
	email = normalizeEmail(email)
	return repositorycache.GetOrFetch(ctx, s.cache, cache.UserEmailKey(email), s.cache.TTL().Profile,
		func(ctx context.Context) (Profile, error) {
			u, err := s.users.FindByEmail(ctx, email)
			if errors.Is(err, persistence.ErrNotFound) {
				return Profile{}, apperrors.ErrUserNotFound
			}
			if err != nil {
				return Profile{}, fmt.Errorf("find user by email: %w", err)
			}
			if !u.Live() {
				return Profile{}, apperrors.ErrUserNotFound
			}
			return newProfile(u), nil
		}, opts...)
}

// UpdateProfile changes the country and base currency of id.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileInput) (Profile, error) {
	in.CountryCode = upper(in.CountryCode)
	in.BaseCurrencyCode = upper(in.BaseCurrencyCode)
	if err := apperrors.FromValidation(in.Validate()); err != nil {
		return Profile{}, err
	}

	if _, err := s.load(ctx, id); err != nil {
		return Profile{}, err
	}

	return s.update(ctx, id, persistence.UserChanges{
		CountryCode:      in.CountryCode,
		BaseCurrencyCode: in.BaseCurrencyCode,
	})
}

// UpdateRole sets the role of id. A super admin keeps its role.
func (s *Service) UpdateRole(ctx context.Context, id uuid.UUID, role model.Role) (Profile, error) {
	if !role.Valid() {
		return Profile{}, apperrors.Validation(fmt.Errorf("unknown role %q", role),
			map[string]string{"role": "must be a valid value"})
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	if current.Role == model.RoleSuperAdmin && role != model.RoleSuperAdmin {
		return Profile{}, apperrors.ErrSuperAdminDemotion
	}

	profile, err := s.update(ctx, id, persistence.UserChanges{Role: &role})
	if err != nil {
		return Profile{}, err
	}
	s.logger.Info("user role changed", "user_id", id, "from", current.Role, "to", role)
	return profile, nil
}

func (s *Service) update(ctx context.Context, id uuid.UUID, changes persistence.UserChanges) (Profile, error) {
	updated, err := s.users.Update(ctx, id, changes)
	if errors.Is(err, persistence.ErrNotFound) {
		return Profile{}, apperrors.ErrUserNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("update user %s: %w", id, err)
	}

	s.cache.InvalidateUser(ctx, id, updated.Email)
	return newProfile(updated), nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", id, err)
	}
	if !u.Live() {
		return nil, apperrors.ErrUserNotFound
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func upper(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.ToUpper(strings.TrimSpace(*s))
	return &v
}
