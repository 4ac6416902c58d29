package filestore

// Outcome is the closed set of results of Channel.Read.
type Outcome uint8

const (
	// OutcomeFound: the file existed and held a valid record.
	OutcomeFound Outcome = iota + 1

	// OutcomeNotFound: no file at path. Value holds the kind's default,
	// which has not been persisted.
	OutcomeNotFound

	// OutcomeCorrupt: the file failed JSON parsing or validation. It was
	// quarantined and Value holds the default that replaced it.
	OutcomeCorrupt

	// OutcomeFailed: the read could not complete. Err holds an *Error with
	// CodePathInvalid, CodeIOFailed or CodeDecryptionFailed.
	OutcomeFailed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeCorrupt:
		return "corrupt"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ReadResult is returned by Channel.Read.
type ReadResult[T any] struct {
	Outcome Outcome
	Value   T

	// Encrypted reports whether the bytes on disk were an envelope.
	Encrypted bool

	// Quarantine is the path the corrupt file was moved to, for
	// OutcomeCorrupt. Empty if quarantining itself failed.
	Quarantine string

	// Err is set only for OutcomeFailed.
	Err error
}

// Get returns the value, or the error for OutcomeFailed. NotFound and
// Corrupt both yield their default value with a nil error.
func (r ReadResult[T]) Get() (T, error) {
	if r.Outcome == OutcomeFailed {
		var zero T
		return zero, r.Err
	}
	return r.Value, nil
}
