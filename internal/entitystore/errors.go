// Package entitystore is the reference Entity Store: a small REST service over
// SQLite that owns clients, assets and allocations and enforces referential
// integrity between them.
package entitystore

import (
	"errors"
	"fmt"

	"github.com/aristath/folio/internal/validation"
)

// ErrNotFound is matched by every NotFoundError
var ErrNotFound = errors.New("not found")

// NotFoundError reports a missing entity
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is makes errors.Is(err, ErrNotFound) work for any resource
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// InputError rejects a payload that fails field checks or points at
// unknown entities
type InputError struct {
	Fields validation.FieldErrors
}

func (e *InputError) Error() string {
	return "invalid input: " + e.Fields.Error()
}

func notFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func invalid(fields validation.FieldErrors) error {
	return &InputError{Fields: fields}
}
