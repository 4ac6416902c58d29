package filestore

import (
	"context"
	"time"
)

// Event operations reported to an Observer.
const (
	OpWrite         = "write"
	OpDelete        = "delete"
	OpQuarantine    = "quarantine"
	OpHeal          = "heal"
	OpDecryptFailed = "decrypt_failed"
)

// Event describes a completed mutation or a notable read.
type Event struct {
	Op     string
	Kind   string
	Path   string // relative to the channel root
	Detail string
	At     time.Time
}

// Observer receives channel events. Observe errors are logged and never
// returned to the caller of the channel operation.
type Observer interface {
	Observe(ctx context.Context, ev Event) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event) error

// Observe calls f(ctx, ev).
func (f ObserverFunc) Observe(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}
