package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/roach88/devstash/internal/cryptobox"
	"github.com/roach88/devstash/internal/filestore"
)

// ErrPassphraseRequired is returned when a write must be encrypted and the
// provider has no passphrase.
var ErrPassphraseRequired = errors.New("passphrase required for encrypted data")

// PassphraseProvider supplies the passphrase for a single call. An empty
// passphrase with a nil error means none is configured.
type PassphraseProvider interface {
	Passphrase(ctx context.Context) (string, error)
}

// StaticPassphrase is a PassphraseProvider returning a fixed value.
type StaticPassphrase string

// Passphrase implements PassphraseProvider.
func (p StaticPassphrase) Passphrase(context.Context) (string, error) {
	return string(p), nil
}

// IDGenerator produces record IDs.
type IDGenerator interface {
	NewID() string
}

// UUIDv7 generates time-sortable UUIDv7 IDs.
type UUIDv7 struct{}

// NewID returns a new UUIDv7 string. Panics if the system random source
// fails.
func (UUIDv7) NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Options configures every repository. DataDir is required; the rest
// default the same way filestore.Options does.
//
// Repositories built from the same Options share DataDir and Fs but keep
// separate channels, so a config and a script repository can be open at
// the same time.
type Options struct {
	// DataDir is the root all record files live under.
	DataDir string

	// Fs defaults to the OS filesystem.
	Fs afero.Fs

	// Box defaults to cryptobox.New().
	Box *cryptobox.Box

	// Passphrase is asked on every call. Nil means no passphrase.
	Passphrase PassphraseProvider

	// Encrypt makes collection repositories write envelopes. Reads always
	// decrypt whatever is encrypted on disk. The config repository ignores
	// it and follows the record's own encryption.enabled.
	Encrypt bool

	Logger   *slog.Logger
	Clock    func() time.Time
	Observer filestore.Observer

	// IDs assigns session IDs. Defaults to UUIDv7.
	IDs IDGenerator
}

func (o Options) withDefaults() (Options, error) {
	if o.DataDir == "" {
		return o, errors.New("repository: data dir is required")
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.IDs == nil {
		o.IDs = UUIDv7{}
	}
	return o, nil
}

func (o Options) fileOptions() filestore.Options {
	return filestore.Options{
		Root:     o.DataDir,
		Fs:       o.Fs,
		Box:      o.Box,
		Logger:   o.Logger,
		Clock:    o.Clock,
		Observer: o.Observer,
	}
}

func (o Options) passphrase(ctx context.Context) (string, error) {
	if o.Passphrase == nil {
		return "", nil
	}
	return o.Passphrase.Passphrase(ctx)
}

// now returns the clock reading truncated to milliseconds, the precision
// timestamps are compared at after a round trip.
func (o Options) now() time.Time {
	return o.Clock().UTC().Truncate(time.Millisecond)
}
