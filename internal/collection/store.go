package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/roach88/devstash/internal/filestore"
	"github.com/roach88/devstash/internal/record"
	"github.com/roach88/devstash/internal/schema"
)

// ErrEmptyKey is returned for blank collection keys.
var ErrEmptyKey = errors.New("collection: empty key")

// Store maps logical keys to per-key collection files of T.
//
// Store caches the index after first load. It is meant for one CLI
// invocation and is not safe for concurrent use.
type Store[T any] struct {
	dir       string
	indexPath string
	index     *filestore.Channel[record.Index]
	items     *filestore.Channel[[]T]
	logger    *slog.Logger
	cached    *record.Index
}

// New returns a store for the collection directory dir (e.g. "scripts")
// under opts.Root. validator checks whole collection documents.
//
// The store uses two channels sharing opts: one for dir/index.json and one
// for the collection files next to it. Nothing is read or created until the
// first call.
func New[T any](dir string, validator schema.Validator[[]T], opts filestore.Options) (*Store[T], error) {
	if dir == "" {
		return nil, errors.New("collection: dir is required")
	}

	index, err := filestore.NewChannel[record.Index](dir+"/"+schema.KindIndex, schema.Index(), record.EmptyIndex, opts)
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", dir, err)
	}
	items, err := filestore.NewChannel[[]T](dir, validator, func() []T { return []T{} }, opts)
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", dir, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Store[T]{
		dir:       dir,
		indexPath: path.Join(filepath.ToSlash(dir), IndexFile),
		index:     index,
		items:     items,
		logger:    logger.With("collection", dir),
	}, nil
}

// Dir returns the collection directory relative to the data root.
func (s *Store[T]) Dir() string {
	return s.dir
}

// IndexPath returns the index document path relative to the data root.
func (s *Store[T]) IndexPath() string {
	return s.indexPath
}

// LoadIndex returns the current index. A missing index is empty; a corrupt
// one is healed to empty, leaving its collection files as orphans.
func (s *Store[T]) LoadIndex(ctx context.Context, passphrase string) (record.Index, error) {
	if s.cached != nil {
		return *s.cached, nil
	}

	res := s.index.Read(ctx, s.indexPath, passphrase)
	switch res.Outcome {
	case filestore.OutcomeFailed:
		return record.Index{}, fmt.Errorf("load index %s: %w", s.indexPath, res.Err)
	case filestore.OutcomeCorrupt:
		s.logger.Warn("index was corrupt and has been reset; existing collection files are orphaned",
			"index", s.indexPath, "quarantine", res.Quarantine)
	}

	idx := res.Value
	s.cached = &idx
	return idx, nil
}

// SaveIndex persists idx as the whole index document.
func (s *Store[T]) SaveIndex(ctx context.Context, idx record.Index, passphrase string) error {
	if idx.Version == 0 {
		idx.Version = record.CurrentIndexVersion
	}
	if idx.Entries == nil {
		idx.Entries = []record.IndexEntry{}
	}
	if err := s.index.Write(ctx, s.indexPath, idx, passphrase); err != nil {
		return fmt.Errorf("save index %s: %w", s.indexPath, err)
	}
	s.cached = &idx
	return nil
}

// Keys returns every key in the index.
func (s *Store[T]) Keys(ctx context.Context, passphrase string) ([]string, error) {
	idx, err := s.LoadIndex(ctx, passphrase)
	if err != nil {
		return nil, err
	}
	return idx.Keys(), nil
}

// GetReferenceFile returns the reference file recorded for key.
// ok is false when the index has no entry, or when the entry names a file
// outside the collection directory. Such an entry is replaced by the
// derived name on the next save.
func (s *Store[T]) GetReferenceFile(ctx context.Context, key, passphrase string) (ref string, ok bool, err error) {
	nk := NormalizeKey(key)
	if nk == "" {
		return "", false, ErrEmptyKey
	}
	idx, err := s.LoadIndex(ctx, passphrase)
	if err != nil {
		return "", false, err
	}
	ref, ok = idx.Lookup(nk)
	if ok && !s.owns(ref) {
		s.logger.Warn("ignoring index entry outside the collection directory", "key", nk, "file", ref)
		return "", false, nil
	}
	return ref, ok, nil
}

// owns reports whether ref is a collection file directly inside the
// store's directory. Anything else in the index is treated as absent.
func (s *Store[T]) owns(ref string) bool {
	return path.Clean(ref) == ref &&
		path.Dir(ref) == path.Dir(s.indexPath) &&
		path.Base(ref) != IndexFile &&
		path.Ext(ref) == ".json"
}

// GetOrCreateReferenceFile returns the recorded reference file for key, or
// the derived one if there is no entry yet. It does not persist anything.
func (s *Store[T]) GetOrCreateReferenceFile(ctx context.Context, key, passphrase string) (string, error) {
	ref, ok, err := s.GetReferenceFile(ctx, key, passphrase)
	if err != nil {
		return "", err
	}
	if ok {
		return ref, nil
	}
	return DeriveReferenceFile(s.dir, key), nil
}

// UpsertIndexEntry maps key to ref and persists the index. The in-memory
// index only changes once the write succeeded.
func (s *Store[T]) UpsertIndexEntry(ctx context.Context, key, ref, passphrase string) error {
	nk := NormalizeKey(key)
	if nk == "" {
		return ErrEmptyKey
	}
	idx, err := s.LoadIndex(ctx, passphrase)
	if err != nil {
		return err
	}
	if cur, ok := idx.Lookup(nk); ok && cur == ref {
		return nil
	}
	return s.SaveIndex(ctx, idx.With(nk, ref), passphrase)
}

// RemoveIndexEntry drops key from the index and persists it. Removing an
// absent key is a no-op.
func (s *Store[T]) RemoveIndexEntry(ctx context.Context, key, passphrase string) error {
	nk := NormalizeKey(key)
	if nk == "" {
		return ErrEmptyKey
	}
	idx, err := s.LoadIndex(ctx, passphrase)
	if err != nil {
		return err
	}
	if _, ok := idx.Lookup(nk); !ok {
		return nil
	}
	return s.SaveIndex(ctx, idx.Without(nk), passphrase)
}

// LoadCollection returns the items stored for key. It fails with a
// filestore.CodeNotFound error when the entry's file is missing, or when
// the key has no entry and no file exists under its derived name.
//
// A derived file without an index entry is left behind when an index
// write fails or a corrupt index is reset. It is returned as the key's
// collection, and the next SaveCollection for the key records it again.
func (s *Store[T]) LoadCollection(ctx context.Context, key, passphrase string) ([]T, error) {
	ref, ok, err := s.GetReferenceFile(ctx, key, passphrase)
	if err != nil {
		return nil, err
	}
	indexed := ok
	if !indexed {
		ref = DeriveReferenceFile(s.dir, key)
	}

	res := s.items.Read(ctx, ref, passphrase)
	switch res.Outcome {
	case filestore.OutcomeFailed:
		return nil, fmt.Errorf("load collection %q: %w", key, res.Err)
	case filestore.OutcomeNotFound:
		if !indexed {
			return nil, filestore.NewError(filestore.CodeNotFound, "load collection", key, errors.New("no index entry"))
		}
		return nil, filestore.NewError(filestore.CodeNotFound, "load collection", key,
			fmt.Errorf("reference file %s is missing", ref))
	case filestore.OutcomeCorrupt:
		s.logger.Warn("collection was corrupt and has been reset", "key", key, "file", ref, "quarantine", res.Quarantine)
	}
	if !indexed {
		s.logger.Info("recovered collection file without an index entry", "key", key, "file", ref)
	}
	return res.Value, nil
}

// SaveCollection writes items as the whole collection for key, then records
// the index entry. If the collection write fails the index is untouched.
//
// The file name is taken from the existing entry when there is one and
// derived from the key otherwise, so saving a key whose index entry was
// lost overwrites its recovered file rather than creating a second one.
// A nil items slice is stored as an empty collection.
func (s *Store[T]) SaveCollection(ctx context.Context, key string, items []T, passphrase string) error {
	ref, err := s.GetOrCreateReferenceFile(ctx, key, passphrase)
	if err != nil {
		return err
	}
	if items == nil {
		items = []T{}
	}
	if err := s.items.Write(ctx, ref, items, passphrase); err != nil {
		return fmt.Errorf("save collection %q: %w", key, err)
	}
	if err := s.UpsertIndexEntry(ctx, key, ref, passphrase); err != nil {
		return fmt.Errorf("save collection %q: %w", key, err)
	}
	return nil
}

// DeleteCollection removes the index entry for key, then its file. A
// failure after the entry is gone leaves an orphan file, never a dangling
// entry; calling it again removes the orphan. Files outside the collection
// directory are never deleted.
func (s *Store[T]) DeleteCollection(ctx context.Context, key, passphrase string) error {
	nk := NormalizeKey(key)
	if nk == "" {
		return ErrEmptyKey
	}
	idx, err := s.LoadIndex(ctx, passphrase)
	if err != nil {
		return err
	}
	ref, ok := idx.Lookup(nk)
	if ok {
		if err := s.RemoveIndexEntry(ctx, nk, passphrase); err != nil {
			return fmt.Errorf("delete collection %q: %w", key, err)
		}
	}
	if !ok || !s.owns(ref) {
		ref = DeriveReferenceFile(s.dir, nk)
	}
	if err := s.items.Delete(ctx, ref); err != nil {
		return fmt.Errorf("delete collection %q: %w", key, err)
	}
	return nil
}
