package filestore

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/roach88/devstash/internal/cryptobox"
)

// Options configures channels. Root is required; every other field has a
// default.
type Options struct {
	// Root is the directory all channel paths are resolved against.
	Root string

	// Fs is the filesystem. Defaults to afero.NewOsFs().
	Fs afero.Fs

	// Box encrypts and decrypts envelopes. Defaults to cryptobox.New().
	Box *cryptobox.Box

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Clock stamps quarantine files and events. Defaults to time.Now.
	Clock func() time.Time

	// Observer, if set, receives an Event for every write, delete, heal,
	// quarantine and decryption failure.
	Observer Observer

	// FileMode is the permission used for new files. Defaults to 0o600.
	FileMode uint32
}

func (o Options) withDefaults() Options {
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.Box == nil {
		o.Box = cryptobox.New()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.FileMode == 0 {
		o.FileMode = 0o600
	}
	return o
}

func filePerm(mode uint32) os.FileMode {
	return os.FileMode(mode).Perm()
}
