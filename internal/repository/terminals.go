package repository

import (
	"context"
	"fmt"

	"github.com/roach88/devstash/internal/record"
	"github.com/roach88/devstash/internal/schema"
)

// TerminalsDir holds the terminal collection files.
const TerminalsDir = "terminals"

const kindTerminalCollection = "terminal collection"

// TerminalCollectionRepository stores terminal collections keyed by project
// root path. Names are unique per root.
type TerminalCollectionRepository struct {
	*keyed[record.TerminalCollection]
}

// NewTerminalCollectionRepository returns a repository over terminals/ in
// opts.DataDir.
func NewTerminalCollectionRepository(opts Options) (*TerminalCollectionRepository, error) {
	k, err := newKeyed(kindTerminalCollection, TerminalsDir, schema.TerminalCollections(), schema.TerminalCollection(), opts)
	if err != nil {
		return nil, err
	}
	return &TerminalCollectionRepository{keyed: k}, nil
}

// Roots returns every root path that has terminal collections.
func (r *TerminalCollectionRepository) Roots(ctx context.Context) ([]string, error) {
	return r.roots(ctx)
}

// List returns the terminal collections for root.
func (r *TerminalCollectionRepository) List(ctx context.Context, root string) ([]record.TerminalCollection, error) {
	return r.list(ctx, root)
}

// Get returns the collection called name under root.
func (r *TerminalCollectionRepository) Get(ctx context.Context, root, name string) (record.TerminalCollection, error) {
	items, err := r.list(ctx, root)
	if err != nil {
		return record.TerminalCollection{}, err
	}
	i := indexOfTerminals(items, name)
	if i < 0 {
		return record.TerminalCollection{}, &NotFoundError{Kind: kindTerminalCollection, Key: root, Name: name}
	}
	return items[i], nil
}

// Create adds tc under root.
func (r *TerminalCollectionRepository) Create(ctx context.Context, root string, tc record.TerminalCollection) (record.TerminalCollection, error) {
	var created record.TerminalCollection
	err := r.mutate(ctx, root, func(items []record.TerminalCollection) ([]record.TerminalCollection, error) {
		if indexOfTerminals(items, tc.Name) >= 0 {
			return nil, &DuplicateError{Kind: kindTerminalCollection, Key: root, Field: "name", Value: tc.Name}
		}
		now := r.opts.now()
		tc.CreatedAt, tc.UpdatedAt = now, now
		if tc.Terminals == nil {
			tc.Terminals = []record.Terminal{}
		}
		checked, err := r.check(tc)
		if err != nil {
			return nil, err
		}
		created = checked
		return append(items, checked), nil
	})
	if err != nil {
		return record.TerminalCollection{}, fmt.Errorf("create terminal collection: %w", err)
	}
	return created, nil
}

// Update replaces the collection called name under root. CreatedAt is kept.
func (r *TerminalCollectionRepository) Update(ctx context.Context, root, name string, tc record.TerminalCollection) (record.TerminalCollection, error) {
	var updated record.TerminalCollection
	err := r.mutate(ctx, root, func(items []record.TerminalCollection) ([]record.TerminalCollection, error) {
		i := indexOfTerminals(items, name)
		if i < 0 {
			return nil, &NotFoundError{Kind: kindTerminalCollection, Key: root, Name: name}
		}
		if tc.Name == "" {
			tc.Name = name
		}
		if j := indexOfTerminals(items, tc.Name); j >= 0 && j != i {
			return nil, &DuplicateError{Kind: kindTerminalCollection, Key: root, Field: "name", Value: tc.Name}
		}
		if tc.Terminals == nil {
			tc.Terminals = []record.Terminal{}
		}
		tc.CreatedAt = items[i].CreatedAt
		tc.UpdatedAt = r.opts.now()
		checked, err := r.check(tc)
		if err != nil {
			return nil, err
		}
		items[i] = checked
		updated = checked
		return items, nil
	})
	if err != nil {
		return record.TerminalCollection{}, fmt.Errorf("update terminal collection: %w", err)
	}
	return updated, nil
}

// Delete removes the collection called name under root.
func (r *TerminalCollectionRepository) Delete(ctx context.Context, root, name string) error {
	err := r.mutate(ctx, root, func(items []record.TerminalCollection) ([]record.TerminalCollection, error) {
		i := indexOfTerminals(items, name)
		if i < 0 {
			return nil, &NotFoundError{Kind: kindTerminalCollection, Key: root, Name: name}
		}
		return append(items[:i], items[i+1:]...), nil
	})
	if err != nil {
		return fmt.Errorf("delete terminal collection: %w", err)
	}
	return nil
}

func indexOfTerminals(items []record.TerminalCollection, name string) int {
	for i, tc := range items {
		if tc.Name == name {
			return i
		}
	}
	return -1
}
