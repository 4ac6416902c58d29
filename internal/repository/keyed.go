package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/roach88/devstash/internal/collection"
	"github.com/roach88/devstash/internal/filestore"
	"github.com/roach88/devstash/internal/schema"
)

// keyed is the shared read-modify-write core of the collection
// repositories.
type keyed[T any] struct {
	kind   string
	store  *collection.Store[T]
	item   schema.Validator[T]
	opts   Options
	logger *slog.Logger
}

func newKeyed[T any](kind, dir string, all schema.Validator[[]T], item schema.Validator[T], opts Options) (*keyed[T], error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	store, err := collection.New[T](dir, all, opts.fileOptions())
	if err != nil {
		return nil, err
	}
	return &keyed[T]{
		kind:   kind,
		store:  store,
		item:   item,
		opts:   opts,
		logger: opts.Logger.With("repository", kind),
	}, nil
}

// passphrases returns the passphrase for reads and the one for writes.
func (k *keyed[T]) passphrases(ctx context.Context) (read, write string, err error) {
	pass, err := k.opts.passphrase(ctx)
	if err != nil {
		return "", "", fmt.Errorf("%s: passphrase: %w", k.kind, err)
	}
	if !k.opts.Encrypt {
		return pass, "", nil
	}
	if pass == "" {
		return "", "", fmt.Errorf("%s: %w", k.kind, ErrPassphraseRequired)
	}
	return pass, pass, nil
}

// list returns the items stored for key. A key without a collection is
// empty.
func (k *keyed[T]) list(ctx context.Context, key string) ([]T, error) {
	pass, _, err := k.passphrases(ctx)
	if err != nil {
		return nil, err
	}
	items, err := k.store.LoadCollection(ctx, key, pass)
	if filestore.IsNotFound(err) {
		return []T{}, nil
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}

// roots returns every key that has a collection.
func (k *keyed[T]) roots(ctx context.Context) ([]string, error) {
	pass, _, err := k.passphrases(ctx)
	if err != nil {
		return nil, err
	}
	return k.store.Keys(ctx, pass)
}

// mutate loads the collection for key, applies fn and writes the result.
// Nothing is written if fn fails.
func (k *keyed[T]) mutate(ctx context.Context, key string, fn func([]T) ([]T, error)) error {
	if collection.NormalizeKey(key) == "" {
		return collection.ErrEmptyKey
	}
	items, err := k.list(ctx, key)
	if err != nil {
		return err
	}
	// fn works on a copy so a failure leaves nothing half-applied.
	next, err := fn(append([]T(nil), items...))
	if err != nil {
		return err
	}
	_, pass, err := k.passphrases(ctx)
	if err != nil {
		return err
	}
	return k.store.SaveCollection(ctx, key, next, pass)
}

// DeleteRoot removes the whole collection stored for root along with its
// index entry. Removing a root with nothing stored is a no-op.
func (k *keyed[T]) DeleteRoot(ctx context.Context, root string) error {
	pass, _, err := k.passphrases(ctx)
	if err != nil {
		return err
	}
	if err := k.store.DeleteCollection(ctx, root, pass); err != nil {
		return fmt.Errorf("delete %s collection: %w", k.kind, err)
	}
	return nil
}

// check validates a single item.
func (k *keyed[T]) check(v T) (T, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s: marshal: %w", k.kind, err)
	}
	return k.item.Parse(raw)
}

// batch groups reqs by normalized key, preserving first-seen order, and
// applies each group through one mutate call.
func batch[T, R any](ctx context.Context, k *keyed[T], op string, reqs []R, keyOf func(R) string, apply func([]T, R) ([]T, error)) (BatchResult, error) {
	var order []string
	groups := make(map[string][]R)
	for _, r := range reqs {
		key := collection.NormalizeKey(keyOf(r))
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	var (
		result BatchResult
		failed []GroupError
	)
	for _, key := range order {
		group := groups[key]
		err := k.mutate(ctx, key, func(items []T) ([]T, error) {
			var err error
			for i, r := range group {
				if items, err = apply(items, r); err != nil {
					return nil, fmt.Errorf("item %d: %w", i, err)
				}
			}
			return items, nil
		})
		if err != nil {
			k.logger.Warn("batch group failed", "op", op, "key", key, "items", len(group), "error", err)
			failed = append(failed, GroupError{Key: key, Err: err})
			continue
		}
		result.Applied = append(result.Applied, key)
	}

	if len(failed) > 0 {
		return result, &BatchError{Op: op, Failed: failed}
	}
	return result, nil
}

// Rewrite reads every collection and writes it back, then rewrites the
// index. It is how stored data follows a change of Options.Encrypt. It
// returns the number of collections rewritten.
func (k *keyed[T]) Rewrite(ctx context.Context) (int, error) {
	readPass, writePass, err := k.passphrases(ctx)
	if err != nil {
		return 0, err
	}
	idx, err := k.store.LoadIndex(ctx, readPass)
	if err != nil {
		return 0, err
	}
	if len(idx.Entries) == 0 {
		return 0, nil
	}

	n := 0
	for _, key := range idx.Keys() {
		items, err := k.store.LoadCollection(ctx, key, readPass)
		if filestore.IsNotFound(err) {
			k.logger.Warn("skipping index entry without a file", "key", key)
			continue
		}
		if err != nil {
			return n, fmt.Errorf("rewrite %s: %w", key, err)
		}
		if err := k.store.SaveCollection(ctx, key, items, writePass); err != nil {
			return n, fmt.Errorf("rewrite %s: %w", key, err)
		}
		n++
	}
	if err := k.store.SaveIndex(ctx, idx, writePass); err != nil {
		return n, fmt.Errorf("rewrite index: %w", err)
	}
	return n, nil
}
