package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/devstash/internal/filestore"
)

// NotFoundError reports a named item missing from a collection.
type NotFoundError struct {
	Kind string
	Key  string
	Name string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
	}
	return fmt.Sprintf("%s %q not found in %s", e.Kind, e.Name, e.Key)
}

// DuplicateError reports an item that collides with an existing one.
type DuplicateError struct {
	Kind  string
	Key   string
	Field string
	Value string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists in %s", e.Kind, e.Field, e.Value, e.Key)
}

// IsNotFound reports whether err is a NotFoundError or a not-found error
// from the collection store.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf) || filestore.IsNotFound(err)
}

// IsDuplicate reports whether err is a DuplicateError.
func IsDuplicate(err error) bool {
	var de *DuplicateError
	return errors.As(err, &de)
}

// GroupError is the failure of one key group in a batch.
type GroupError struct {
	Key string
	Err error
}

func (e GroupError) Error() string {
	return fmt.Sprintf("%s: %v", e.Key, e.Err)
}

func (e GroupError) Unwrap() error {
	return e.Err
}

// BatchError lists the key groups of a batch that were not applied.
// Groups not listed were persisted.
type BatchError struct {
	Op     string
	Failed []GroupError
}

func (e *BatchError) Error() string {
	parts := make([]string, len(e.Failed))
	for i, g := range e.Failed {
		parts[i] = g.Error()
	}
	return fmt.Sprintf("%s: %d group(s) failed: %s", e.Op, len(e.Failed), strings.Join(parts, "; "))
}

// Unwrap exposes each group error to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failed))
	for i, g := range e.Failed {
		errs[i] = g
	}
	return errs
}

// BatchResult lists the keys whose groups were persisted, in request order.
type BatchResult struct {
	Applied []string
}
