// Package model holds the plain data records shared by the services and the
// persistence adapters. Records carry no behaviour beyond small helpers; all
// mutation goes through the persistence interfaces.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Kind classifies categories and transactions.
type Kind string

const (
	KindIncome  Kind = "INCOME"
	KindExpense Kind = "EXPENSE"
)

// Kinds lists every valid Kind in a stable order.
var Kinds = []Kind{KindIncome, KindExpense}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

func (k Kind) String() string {
	return string(k)
}

// Category is a node in a user's category tree.
type Category struct {
	bun.BaseModel `bun:"table:categories,alias:c"`

	ID        uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	OwnerID   uuid.UUID  `bun:"owner_id,type:uuid,notnull" json:"ownerId"`
	Name      string     `bun:"name,notnull" json:"name"`
	Kind      Kind       `bun:"kind,notnull" json:"kind"`
	ParentID  *uuid.UUID `bun:"parent_id,type:uuid" json:"parentId"`
	CreatedAt time.Time  `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt time.Time  `bun:"updated_at,notnull" json:"updatedAt"`
	DeletedAt time.Time  `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// Live reports whether the category has not been soft deleted.
func (c *Category) Live() bool {
	return c != nil && c.DeletedAt.IsZero()
}

// HasParent reports whether the category is a subcategory.
func (c *Category) HasParent() bool {
	return c.ParentID != nil && *c.ParentID != uuid.Nil
}

// Transaction is a single income or expense entry.
type Transaction struct {
	bun.BaseModel `bun:"table:transactions,alias:t"`

	ID           uuid.UUID       `bun:"id,pk,type:uuid" json:"id"`
	OwnerID      uuid.UUID       `bun:"owner_id,type:uuid,notnull" json:"ownerId"`
	CategoryID   uuid.UUID       `bun:"category_id,type:uuid,notnull" json:"categoryId"`
	Kind         Kind            `bun:"kind,notnull" json:"kind"`
	Amount       decimal.Decimal `bun:"amount,notnull" json:"amount"`
	CurrencyCode string          `bun:"currency_code,notnull" json:"currencyCode"`
	Date         time.Time       `bun:"date,notnull" json:"date"`
	Description  string          `bun:"description" json:"description,omitempty"`
	CreatedAt    time.Time       `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt    time.Time       `bun:"updated_at,notnull" json:"updatedAt"`
	DeletedAt    time.Time       `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// Live reports whether the transaction has not been soft deleted.
func (t *Transaction) Live() bool {
	return t != nil && t.DeletedAt.IsZero()
}

// Role is the authorization level of a user.
type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// User is the owner of categories and transactions. Credentials live with
// the authentication service and are not part of this record.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID               uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Email            string    `bun:"email,notnull,unique" json:"email"`
	Role             Role      `bun:"role,notnull" json:"role"`
	CountryCode      string    `bun:"country_code" json:"countryCode,omitempty"`
	BaseCurrencyCode string    `bun:"base_currency_code" json:"baseCurrencyCode,omitempty"`
	CreatedAt        time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt        time.Time `bun:"updated_at,notnull" json:"updatedAt"`
	DeletedAt        time.Time `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// Live reports whether the user has not been soft deleted.
func (u *User) Live() bool {
	return u != nil && u.DeletedAt.IsZero()
}
