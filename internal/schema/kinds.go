package schema

import (
	"fmt"
	"sync"

	"github.com/roach88/devstash/internal/record"
)

// Record kind names used in errors, logs and metrics.
const (
	KindConfig              = "config"
	KindScripts             = "scripts"
	KindTerminalCollections = "terminals"
	KindSessions            = "sessions"
	KindIndex               = "index"
)

func mustCUE[T any](kind, def string, checks ...Check[T]) *CUEValidator[T] {
	v, err := NewCUE[T](kind, def, checks...)
	if err != nil {
		panic(err)
	}
	return v
}

var (
	configValidator = sync.OnceValue(func() *CUEValidator[record.Config] {
		return mustCUE[record.Config](KindConfig, "#Config").WithNormalize(func(c *record.Config) {
			c.ApplyDefaults()
		})
	})
	scriptsValidator = sync.OnceValue(func() *CUEValidator[[]record.Script] {
		return mustCUE[[]record.Script](KindScripts, "#Scripts").WithNormalize(func(s *[]record.Script) {
			if *s == nil {
				*s = []record.Script{}
			}
		})
	})
	scriptValidator = sync.OnceValue(func() *CUEValidator[record.Script] {
		return mustCUE[record.Script]("script", "#Script")
	})
	terminalsValidator = sync.OnceValue(func() *CUEValidator[[]record.TerminalCollection] {
		return mustCUE[[]record.TerminalCollection](KindTerminalCollections, "#TerminalCollections").WithNormalize(func(s *[]record.TerminalCollection) {
			if *s == nil {
				*s = []record.TerminalCollection{}
			}
			for i := range *s {
				if (*s)[i].Terminals == nil {
					(*s)[i].Terminals = []record.Terminal{}
				}
			}
		})
	})
	terminalValidator = sync.OnceValue(func() *CUEValidator[record.TerminalCollection] {
		return mustCUE[record.TerminalCollection]("terminal collection", "#TerminalCollection")
	})
	sessionsValidator = sync.OnceValue(func() *CUEValidator[[]record.Session] {
		return mustCUE[[]record.Session](KindSessions, "#Sessions",
			uniqueBy("id", func(s record.Session) string { return s.ID }),
		).WithNormalize(func(s *[]record.Session) {
			if *s == nil {
				*s = []record.Session{}
			}
		})
	})
	sessionValidator = sync.OnceValue(func() *CUEValidator[record.Session] {
		return mustCUE[record.Session]("session", "#Session")
	})
	indexValidator = sync.OnceValue(func() *CUEValidator[record.Index] {
		return mustCUE[record.Index](KindIndex, "#Index", uniqueIndexKeys).WithNormalize(func(idx *record.Index) {
			if idx.Entries == nil {
				idx.Entries = []record.IndexEntry{}
			}
		})
	})
)

// Config validates config.json.
func Config() Validator[record.Config] { return configValidator() }

// Scripts validates a script collection document.
func Scripts() Validator[[]record.Script] { return scriptsValidator() }

// Script validates a single script item.
func Script() Validator[record.Script] { return scriptValidator() }

// TerminalCollections validates a terminal-collection document.
func TerminalCollections() Validator[[]record.TerminalCollection] { return terminalsValidator() }

// TerminalCollection validates a single terminal collection.
func TerminalCollection() Validator[record.TerminalCollection] { return terminalValidator() }

// Sessions validates a session collection document. IDs must be unique.
func Sessions() Validator[[]record.Session] { return sessionsValidator() }

// Session validates a single session.
func Session() Validator[record.Session] { return sessionValidator() }

// Index validates an index document. Keys must be unique.
func Index() Validator[record.Index] { return indexValidator() }

func uniqueIndexKeys(idx record.Index) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(idx.Entries))
	for i, e := range idx.Entries {
		if seen[e.Key] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("entries[%d].key", i),
				Message: fmt.Sprintf("duplicate key: %q", e.Key),
				Code:    ErrDuplicateKey,
			})
		}
		seen[e.Key] = true
	}
	return errs
}

func uniqueBy[T any](field string, keyOf func(T) string) Check[[]T] {
	return func(items []T) []ValidationError {
		var errs []ValidationError
		seen := make(map[string]bool, len(items))
		for i, item := range items {
			k := keyOf(item)
			if seen[k] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("[%d].%s", i, field),
					Message: fmt.Sprintf("duplicate %s: %q", field, k),
					Code:    ErrDuplicateKey,
				})
			}
			seen[k] = true
		}
		return errs
	}
}
