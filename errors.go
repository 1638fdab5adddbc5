package burrow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/burrowdb/burrow/graph"
	"github.com/burrowdb/burrow/query"
	"github.com/burrowdb/burrow/schema"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("burrow: entity not found")
)

// NotFoundError represents an error when an entity is not found.
type NotFoundError struct {
	label string
	id    any
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("burrow: %s not found (key=%v)", e.label, e.id)
	}
	return fmt.Sprintf("burrow: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError. This
// allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the entity type label.
func (e *NotFoundError) Label() string {
	return e.label
}

// NewNotFoundError returns a new NotFoundError for the given entity
// type.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithKey returns a new NotFoundError carrying the key
// that was searched for.
func NewNotFoundErrorWithKey(label string, key any) *NotFoundError {
	return &NotFoundError{label: label, id: key}
}

// IsNotFound reports whether err is a not-found error, wrapped or not.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nf *NotFoundError
	return errors.As(err, &nf) || errors.Is(err, ErrNotFound)
}

// KeyUniquenessError reports an attempt to insert a new entity whose
// key already exists in the backing table.
type KeyUniquenessError struct {
	Type string
	Key  string
}

// Error returns the error string.
func (e *KeyUniquenessError) Error() string {
	return fmt.Sprintf("burrow: %s: duplicate key %q", e.Type, e.Key)
}

// IsKeyUniqueness reports whether err is a key-uniqueness violation.
func IsKeyUniqueness(err error) bool {
	var ke *KeyUniquenessError
	return errors.As(err, &ke)
}

// ValidationError reports that one entity failed validation. A save
// cycle aggregates all of them; the remaining entities still persist.
type ValidationError struct {
	Type     string
	Key      string
	Messages []string
}

// Error returns the error string with all violation messages.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("burrow: %s(%s): validation failed: %s", e.Type, e.Key, strings.Join(e.Messages, "; "))
}

// IsValidation reports whether err is, or aggregates, a validation
// error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsCycle reports whether err is a dependency-cycle error.
func IsCycle(err error) bool {
	var ce *graph.CycleError
	return errors.As(err, &ce)
}

// IsSchema reports whether err is a schema-declaration error.
func IsSchema(err error) bool {
	var se *schema.Error
	return errors.As(err, &se)
}

// IsUnsupportedOperator reports whether err is an unsupported
// query-operator error.
func IsUnsupportedOperator(err error) bool {
	var oe *query.UnsupportedOperatorError
	return errors.As(err, &oe)
}
