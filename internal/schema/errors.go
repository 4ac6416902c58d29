package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Validation error codes (E200-E299)
const (
	ErrMalformedJSON   = "E201" // bytes are not a single JSON value
	ErrSchemaViolation = "E202" // value does not satisfy the kind's definition
	ErrTypeMismatch    = "E203" // value satisfied the schema but not the Go type
	ErrDuplicateKey    = "E204" // uniqueness constraint violated
	ErrSchemaLoad      = "E205" // embedded schema failed to compile
)

// ValidationError describes one problem found in a record.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Errors is returned by Validator.Parse when a record is rejected.
// It lists every problem found, not just the first.
type Errors struct {
	Kind  string
	Items []ValidationError
}

// Error implements the error interface.
func (e *Errors) Error() string {
	if len(e.Items) == 1 {
		return fmt.Sprintf("invalid %s: %s", e.Kind, e.Items[0].Error())
	}
	msgs := make([]string, len(e.Items))
	for i, item := range e.Items {
		msgs[i] = item.Error()
	}
	return fmt.Sprintf("invalid %s (%d problems): %s", e.Kind, len(e.Items), strings.Join(msgs, "; "))
}

// Has reports whether any item carries code.
func (e *Errors) Has(code string) bool {
	for _, item := range e.Items {
		if item.Code == code {
			return true
		}
	}
	return false
}

// IsValidationError reports whether err is, or wraps, a validation failure.
func IsValidationError(err error) bool {
	var errs *Errors
	return errors.As(err, &errs)
}

func newErrors(kind string, items ...ValidationError) *Errors {
	return &Errors{Kind: kind, Items: items}
}
