package filestore

import (
	"errors"
	"fmt"
)

// Code categorizes channel errors.
type Code string

const (
	// CodePathInvalid means the path would escape the root. Nothing was
	// read or written.
	CodePathInvalid Code = "PATH_INVALID"

	// CodeIOFailed is an OS-level failure other than not-found.
	CodeIOFailed Code = "IO_FAILED"

	// CodeDecryptionFailed means the file is encrypted and could not be
	// opened with the supplied passphrase (wrong key or tampered data).
	CodeDecryptionFailed Code = "DECRYPTION_FAILED"

	// CodeInvalidRecord means a record passed to Write failed validation.
	CodeInvalidRecord Code = "INVALID_RECORD"

	// CodeNotFound is used by callers layered on the channel for lookups
	// that require an existing file.
	CodeNotFound Code = "NOT_FOUND"
)

// Error is the typed error returned by channel operations.
type Error struct {
	Code Code
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, e.Code, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Code)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an *Error.
func NewError(code Code, op, path string, err error) *Error {
	return &Error{Code: code, Op: op, Path: path, Err: err}
}

// CodeOf returns the Code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// IsPathInvalid reports whether err is a path traversal rejection.
func IsPathInvalid(err error) bool { return CodeOf(err) == CodePathInvalid }

// IsIOFailed reports whether err is an OS-level I/O failure.
func IsIOFailed(err error) bool { return CodeOf(err) == CodeIOFailed }

// IsDecryptionFailed reports whether err is a decryption failure.
func IsDecryptionFailed(err error) bool { return CodeOf(err) == CodeDecryptionFailed }

// IsInvalidRecord reports whether err is a write-side validation failure.
func IsInvalidRecord(err error) bool { return CodeOf(err) == CodeInvalidRecord }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }
