package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/roach88/devstash/internal/cryptobox"
	"github.com/roach88/devstash/internal/schema"
)

// Channel reads and writes records of one kind under a root directory.
type Channel[T any] struct {
	kind      string
	files     *files
	validator schema.Validator[T]
	defaults  func() T
	box       *cryptobox.Box
	logger    *slog.Logger
	opts      Options
	metrics   channelMetrics
}

// NewChannel returns a channel for one record kind. defaults produces the
// value returned for missing files and written over corrupt ones.
//
// The channel is configured from opts:
//   - every rel path is resolved against Root and may not escape it
//   - Fs defaults to the OS filesystem and Box to cryptobox.New()
//   - Observer, when set, is told about writes, deletes, heals and
//     decryption failures
//
// Counters are registered per kind, so two channels for the same kind
// share them.
func NewChannel[T any](kind string, validator schema.Validator[T], defaults func() T, opts Options) (*Channel[T], error) {
	if opts.Root == "" {
		return nil, errors.New("filestore: root is required")
	}
	if validator == nil {
		return nil, errors.New("filestore: validator is required")
	}
	if defaults == nil {
		return nil, errors.New("filestore: defaults is required")
	}
	opts = opts.withDefaults()
	logger := opts.Logger.With("kind", kind)

	return &Channel[T]{
		kind: kind,
		files: &files{
			root:   filepath.Clean(opts.Root),
			fs:     opts.Fs,
			mode:   filePerm(opts.FileMode),
			logger: logger,
		},
		validator: validator,
		defaults:  defaults,
		box:       opts.Box,
		logger:    logger,
		opts:      opts,
		metrics:   newChannelMetrics(kind),
	}, nil
}

// Path resolves rel against the root without touching the filesystem.
func (c *Channel[T]) Path(rel string) (string, error) {
	return c.files.resolve("resolve", rel)
}

// Write validates value and atomically replaces the file at rel. A
// non-empty passphrase encrypts the whole serialized record.
//
// The write goes through three steps:
//  1. the encoded bytes are written and synced to rel + ".tmp"
//  2. any existing file is copied to rel + ".bak"
//  3. the temp file is renamed over rel
//
// A failure in any step leaves the previous file in place and removes the
// temp file. Validation happens before anything touches the filesystem.
func (c *Channel[T]) Write(ctx context.Context, rel string, value T, passphrase string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := c.files.resolve("write", rel)
	if err != nil {
		return err
	}

	data, err := c.encode("write", rel, value, passphrase)
	if err != nil {
		return err
	}

	if err := c.files.writeAtomic("write", abs, data); err != nil {
		c.metrics.ioFailed.Inc()
		return err
	}

	c.metrics.writes.Inc()
	if passphrase != "" {
		c.metrics.encryptedWrite.Inc()
	}
	c.logger.Debug("record written", "path", rel, "bytes", len(data), "encrypted", passphrase != "")
	c.notify(ctx, OpWrite, rel, encryptedDetail(passphrase != ""))
	return nil
}

// Read loads the record at rel. See Outcome for the possible results.
//
// The raw bytes are checked for the envelope header before any parsing, so
// whether to decrypt never depends on the record's own content.
func (c *Channel[T]) Read(ctx context.Context, rel string, passphrase string) ReadResult[T] {
	if err := ctx.Err(); err != nil {
		return ReadResult[T]{Outcome: OutcomeFailed, Err: err}
	}
	abs, err := c.files.resolve("read", rel)
	if err != nil {
		return ReadResult[T]{Outcome: OutcomeFailed, Err: err}
	}

	c.metrics.reads.Inc()
	data, found, err := c.files.read("read", abs)
	if err != nil {
		c.metrics.ioFailed.Inc()
		return ReadResult[T]{Outcome: OutcomeFailed, Err: err}
	}
	if !found {
		c.logger.Debug("record not found", "path", rel)
		return ReadResult[T]{Outcome: OutcomeNotFound, Value: c.defaults()}
	}

	encrypted := cryptobox.IsEnvelope(data)
	plain := data
	if encrypted {
		plain, err = c.box.Decrypt(data, passphrase)
		if err != nil {
			c.metrics.decryptFailed.Inc()
			c.logger.Warn("record decryption failed", "path", rel, "error", err)
			c.notify(ctx, OpDecryptFailed, rel, err.Error())
			return ReadResult[T]{
				Outcome:   OutcomeFailed,
				Encrypted: true,
				Err:       NewError(CodeDecryptionFailed, "read", rel, err),
			}
		}
	}

	value, err := c.validator.Parse(plain)
	if err != nil {
		return c.heal(ctx, rel, abs, encrypted, passphrase, err)
	}

	c.logger.Debug("record read", "path", rel, "encrypted", encrypted)
	return ReadResult[T]{Outcome: OutcomeFound, Value: value, Encrypted: encrypted}
}

// heal quarantines the unreadable file at abs and replaces it with the
// kind's default. It never fails the caller.
func (c *Channel[T]) heal(ctx context.Context, rel, abs string, encrypted bool, passphrase string, cause error) ReadResult[T] {
	c.metrics.heals.Inc()
	c.logger.Warn("corrupt record detected, healing", "path", rel, "error", cause)

	def := c.defaults()
	result := ReadResult[T]{Outcome: OutcomeCorrupt, Value: def, Encrypted: encrypted}

	quarantined, err := c.files.quarantine(abs, c.opts.Clock())
	if err != nil {
		// Without a quarantine copy the original bytes would be lost, so the
		// file is left in place.
		c.logger.Error("quarantine failed, corrupt file left in place", "path", rel, "error", err)
		return result
	}
	result.Quarantine = quarantined
	c.notify(ctx, OpQuarantine, rel, filepath.Base(quarantined))

	pass := ""
	if encrypted {
		pass = passphrase
	}
	data, err := c.encode("heal", rel, def, pass)
	if err == nil {
		err = c.files.writeAtomic("heal", abs, data)
	}
	if err != nil {
		c.logger.Error("writing default after quarantine failed", "path", rel, "error", err)
		return result
	}

	c.logger.Warn("corrupt record replaced with default", "path", rel, "quarantine", quarantined)
	c.notify(ctx, OpHeal, rel, cause.Error())
	return result
}

// Exists reports whether a file exists at rel.
func (c *Channel[T]) Exists(ctx context.Context, rel string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	abs, err := c.files.resolve("exists", rel)
	if err != nil {
		return false, err
	}
	return c.files.exists("exists", abs)
}

// Delete backs the file at rel up to rel.bak and removes it. Deleting a
// missing file is not an error.
func (c *Channel[T]) Delete(ctx context.Context, rel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := c.files.resolve("delete", rel)
	if err != nil {
		return err
	}

	c.files.backup(abs)
	removed, err := c.files.remove("delete", abs)
	if err != nil {
		c.metrics.ioFailed.Inc()
		return err
	}
	if !removed {
		return nil
	}

	c.metrics.deletes.Inc()
	c.logger.Debug("record deleted", "path", rel)
	c.notify(ctx, OpDelete, rel, "")
	return nil
}

// encode validates value and serializes it, encrypting when passphrase is
// set. What is written is the validator's normalized form.
func (c *Channel[T]) encode(op, rel string, value T, passphrase string) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, NewError(CodeInvalidRecord, op, rel, fmt.Errorf("marshal %s: %w", c.kind, err))
	}
	normalized, err := c.validator.Parse(raw)
	if err != nil {
		return nil, NewError(CodeInvalidRecord, op, rel, err)
	}
	data, err := json.MarshalIndent(normalized, "", "  ")
	if err != nil {
		return nil, NewError(CodeInvalidRecord, op, rel, fmt.Errorf("marshal %s: %w", c.kind, err))
	}
	data = append(data, '\n')

	if passphrase == "" {
		return data, nil
	}
	sealed, err := c.box.Encrypt(data, passphrase)
	if err != nil {
		return nil, NewError(CodeIOFailed, op, rel, err)
	}
	return sealed, nil
}

func (c *Channel[T]) notify(ctx context.Context, op, rel, detail string) {
	if c.opts.Observer == nil {
		return
	}
	ev := Event{Op: op, Kind: c.kind, Path: rel, Detail: detail, At: c.opts.Clock()}
	if err := c.opts.Observer.Observe(ctx, ev); err != nil {
		c.logger.Warn("observer failed", "op", op, "path", rel, "error", err)
	}
}

func encryptedDetail(encrypted bool) string {
	if encrypted {
		return "encrypted"
	}
	return "plain"
}
