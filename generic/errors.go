/*
errors.go - Centralized error types shared by every domain package

PURPOSE:
  All failure categories in one place so the API layer can map any error
  to a status code with errors.Is, regardless of which package raised it.

ERROR CATEGORIES:
  1. Validation - missing or invalid field, non-positive quantity
  2. Insufficient stock - raised by the production engine (inventory wraps it)
  3. Referential integrity - delete blocked by dependents
  4. Not found - referenced entity does not exist
  5. Backend - the store call itself failed

USAGE:
  if errors.Is(err, generic.ErrReferentialIntegrity) {
      var ref *generic.ReferentialIntegrityError
      errors.As(err, &ref)
      ...
  }

SEE ALSO:
  - inventory/engine.go: InsufficientStockError
  - api/handlers.go: status mapping
*/
package generic

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when an input field is missing or invalid.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientStock is returned when a production run cannot be covered
	// by current stock.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrReferentialIntegrity is returned when a delete is blocked by dependents.
	ErrReferentialIntegrity = errors.New("referential integrity violation")

	// ErrNotFound is returned when a referenced entity doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an insert collides with an existing id.
	ErrConflict = errors.New("already exists")

	// ErrBackend is returned when the underlying store call fails.
	ErrBackend = errors.New("backend failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field and why it was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ReferentialIntegrityError reports which dependents block a delete.
type ReferentialIntegrityError struct {
	Entity     string
	ID         string
	Dependents []string
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("cannot delete %s %s: still referenced by %s",
		e.Entity, e.ID, strings.Join(e.Dependents, ", "))
}

func (e *ReferentialIntegrityError) Unwrap() error { return ErrReferentialIntegrity }

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError reports an insert against an id that already exists.
type ConflictError struct {
	Entity string
	ID     string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Entity, e.ID)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// BackendError wraps a store failure with the operation that issued it.
// errors.Is matches both ErrBackend and the underlying cause.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() []error { return []error{ErrBackend, e.Err} }

// Backend wraps err as a BackendError unless it is nil or already a
// domain error (validation, not found, conflict...) raised inside a store.
func Backend(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsClientError(err) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrBackend) {
		return err
	}
	return &BackendError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// or a business rule rejecting it.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrReferentialIntegrity) ||
		errors.Is(err, ErrConflict)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
