// Package apperrors defines the error taxonomy returned by the services.
//
// Every failure a caller can act on is an *Error carrying a Kind (the broad
// class used to pick a transport status) and a Code (the stable identifier
// of the exact condition). Messages are fixed per code so clients can rely
// on them.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind is the broad class of an error.
type Kind string

const (
	KindNotFound   Kind = "NOT_FOUND"
	KindConflict   Kind = "CONFLICT"
	KindBadRequest Kind = "BAD_REQUEST"
	KindForbidden  Kind = "FORBIDDEN"
	KindInternal   Kind = "INTERNAL"
)

// Code identifies one specific error condition.
type Code string

const (
	CodeCategoryNotFound         Code = "CATEGORY_NOT_FOUND"
	CodeCategoryAlreadyExists    Code = "CATEGORY_ALREADY_EXISTS"
	CodeCategoryHasTransactions  Code = "CATEGORY_HAS_TRANSACTIONS"
	CodeCategoryHasSubcategories Code = "CATEGORY_HAS_SUBCATEGORIES"
	CodeInvalidParentCategory    Code = "INVALID_PARENT_CATEGORY"
	CodeCircularReference        Code = "CIRCULAR_CATEGORY_REFERENCE"
	CodeParentTypeMismatch       Code = "PARENT_CATEGORY_TYPE_MISMATCH"
	CodeTransactionNotFound      Code = "TRANSACTION_NOT_FOUND"
	CodeInvalidTransactionCat    Code = "INVALID_CATEGORY_FOR_TRANSACTION"
	CodeInvalidDateRange         Code = "INVALID_DATE_RANGE"
	CodeNoFieldsToUpdate         Code = "NO_FIELDS_TO_UPDATE"
	CodeUserNotFound             Code = "USER_NOT_FOUND"
	CodeEmailAlreadyExists       Code = "EMAIL_ALREADY_EXISTS"
	CodeSuperAdminDemotion       Code = "SUPER_ADMIN_DEMOTION"
	CodeValidation               Code = "VALIDATION_ERROR"
	CodeInternal                 Code = "INTERNAL_ERROR"
)

// Error is the application error returned by every service operation.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Code, so sentinels work with errors.Is
// even after WithError or WithDetails produced a copy.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details map[string]any) *Error {
	clone := *e
	clone.Details = details
	return &clone
}

// WithError returns a copy of e wrapping err.
func (e *Error) WithError(err error) *Error {
	clone := *e
	clone.Err = err
	return &clone
}

// WithMessage returns a copy of e with a different message.
func (e *Error) WithMessage(msg string) *Error {
	clone := *e
	clone.Message = msg
	return &clone
}

// New builds an error from its parts.
func New(kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrCategoryNotFound = New(KindNotFound, CodeCategoryNotFound,
		"Category not found")
	ErrCategoryAlreadyExists = New(KindConflict, CodeCategoryAlreadyExists,
		"Category with this name already exists for this type and parent")
	ErrCategoryHasTransactions = New(KindConflict, CodeCategoryHasTransactions,
		"Cannot delete category with associated transactions")
	ErrCategoryHasSubcategories = New(KindConflict, CodeCategoryHasSubcategories,
		"Cannot delete category with subcategories")
	ErrInvalidParentCategory = New(KindNotFound, CodeInvalidParentCategory,
		"Parent category not found or does not belong to you")
	ErrCircularReference = New(KindBadRequest, CodeCircularReference,
		"Cannot set parent that would create a circular reference")
	ErrParentTypeMismatch = New(KindBadRequest, CodeParentTypeMismatch,
		"Parent category type must match")
	// ErrKindChangeBlocked shares the type mismatch code; only the message
	// tells the two conditions apart.
	ErrKindChangeBlocked = New(KindBadRequest, CodeParentTypeMismatch,
		"Cannot change category type while it has subcategories")
	ErrTransactionNotFound = New(KindNotFound, CodeTransactionNotFound,
		"Transaction not found")
	ErrTransactionTypeMismatch = New(KindBadRequest, CodeInvalidTransactionCat,
		"Transaction type must match category type")
	ErrInvalidDateRange = New(KindBadRequest, CodeInvalidDateRange,
		"Invalid date range: start date must not be after end date and neither may be in the future")
	ErrNoFieldsToUpdate = New(KindBadRequest, CodeNoFieldsToUpdate,
		"At least one field must be provided for update")
	ErrUserNotFound = New(KindNotFound, CodeUserNotFound,
		"User not found")
	ErrEmailAlreadyExists = New(KindConflict, CodeEmailAlreadyExists,
		"Email already exists")
	ErrSuperAdminDemotion = New(KindForbidden, CodeSuperAdminDemotion,
		"Cannot change the role of a super admin")
	ErrValidation = New(KindBadRequest, CodeValidation,
		"Validation failed")
	ErrInternal = New(KindInternal, CodeInternal,
		"Internal error")
)

// KindOf returns the Kind of the first *Error in err's chain, or
// KindInternal for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the Code of the first *Error in err's chain.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries code.
func IsCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	return ErrInternal.WithError(err)
}

// Validation wraps field validation failures. fields maps field name to
// message.
func Validation(err error, fields map[string]string) *Error {
	details := make(map[string]any, len(fields))
	for k, v := range fields {
		details[k] = v
	}
	return ErrValidation.WithError(err).WithDetails(details)
}
