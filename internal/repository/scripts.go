package repository

import (
	"context"
	"fmt"

	"github.com/roach88/devstash/internal/record"
	"github.com/roach88/devstash/internal/schema"
)

// ScriptsDir holds the script collections.
const ScriptsDir = "scripts"

const kindScript = "script"

// ScriptInput is one script to create under Root.
type ScriptInput struct {
	Root   string
	Script record.Script
}

// ScriptUpdate replaces the script called Name under Root.
type ScriptUpdate struct {
	Root   string
	Name   string
	Script record.Script
}

// ScriptRef names one script under Root.
type ScriptRef struct {
	Root string
	Name string
}

// ScriptRepository stores scripts keyed by project root path.
type ScriptRepository struct {
	*keyed[record.Script]
}

// NewScriptRepository returns a repository over scripts/ in opts.DataDir.
func NewScriptRepository(opts Options) (*ScriptRepository, error) {
	k, err := newKeyed(kindScript, ScriptsDir, schema.Scripts(), schema.Script(), opts)
	if err != nil {
		return nil, err
	}
	return &ScriptRepository{keyed: k}, nil
}

// Roots returns every root path that has scripts.
func (r *ScriptRepository) Roots(ctx context.Context) ([]string, error) {
	return r.roots(ctx)
}

// List returns the scripts for root.
func (r *ScriptRepository) List(ctx context.Context, root string) ([]record.Script, error) {
	return r.list(ctx, root)
}

// Get returns the script called name under root.
func (r *ScriptRepository) Get(ctx context.Context, root, name string) (record.Script, error) {
	items, err := r.list(ctx, root)
	if err != nil {
		return record.Script{}, err
	}
	i := indexOfScript(items, name)
	if i < 0 {
		return record.Script{}, &NotFoundError{Kind: kindScript, Key: root, Name: name}
	}
	return items[i], nil
}

// Create adds s under root. A script with the same command under the same
// root is rejected with a DuplicateError.
func (r *ScriptRepository) Create(ctx context.Context, root string, s record.Script) (record.Script, error) {
	var created record.Script
	err := r.mutate(ctx, root, func(items []record.Script) ([]record.Script, error) {
		next, err := r.create(items, root, s)
		if err != nil {
			return nil, err
		}
		created = next[len(next)-1]
		return next, nil
	})
	if err != nil {
		return record.Script{}, fmt.Errorf("create script: %w", err)
	}
	return created, nil
}

// Update replaces the script called name under root with s. CreatedAt is
// kept.
func (r *ScriptRepository) Update(ctx context.Context, root, name string, s record.Script) (record.Script, error) {
	var updated record.Script
	err := r.mutate(ctx, root, func(items []record.Script) ([]record.Script, error) {
		next, i, err := r.update(items, root, name, s)
		if err != nil {
			return nil, err
		}
		updated = next[i]
		return next, nil
	})
	if err != nil {
		return record.Script{}, fmt.Errorf("update script: %w", err)
	}
	return updated, nil
}

// Delete removes the script called name under root.
func (r *ScriptRepository) Delete(ctx context.Context, root, name string) error {
	err := r.mutate(ctx, root, func(items []record.Script) ([]record.Script, error) {
		return r.delete(items, root, name)
	})
	if err != nil {
		return fmt.Errorf("delete script: %w", err)
	}
	return nil
}

// CreateScripts creates scripts grouped by root. Each root's group is
// written all-or-nothing; a failed group does not undo the others.
func (r *ScriptRepository) CreateScripts(ctx context.Context, in []ScriptInput) (BatchResult, error) {
	return batch(ctx, r.keyed, "create scripts", in,
		func(in ScriptInput) string { return in.Root },
		func(items []record.Script, in ScriptInput) ([]record.Script, error) {
			return r.create(items, in.Root, in.Script)
		})
}

// UpdateScripts applies updates grouped by root, with the same grouping
// semantics as CreateScripts.
func (r *ScriptRepository) UpdateScripts(ctx context.Context, in []ScriptUpdate) (BatchResult, error) {
	return batch(ctx, r.keyed, "update scripts", in,
		func(u ScriptUpdate) string { return u.Root },
		func(items []record.Script, u ScriptUpdate) ([]record.Script, error) {
			next, _, err := r.update(items, u.Root, u.Name, u.Script)
			return next, err
		})
}

// DeleteScripts deletes scripts grouped by root, with the same grouping
// semantics as CreateScripts.
func (r *ScriptRepository) DeleteScripts(ctx context.Context, in []ScriptRef) (BatchResult, error) {
	return batch(ctx, r.keyed, "delete scripts", in,
		func(ref ScriptRef) string { return ref.Root },
		func(items []record.Script, ref ScriptRef) ([]record.Script, error) {
			return r.delete(items, ref.Root, ref.Name)
		})
}

func (r *ScriptRepository) create(items []record.Script, root string, s record.Script) ([]record.Script, error) {
	now := r.opts.now()
	s.CreatedAt, s.UpdatedAt = now, now
	s, err := r.check(s)
	if err != nil {
		return nil, err
	}
	for _, cur := range items {
		if cur.Command == s.Command {
			return nil, &DuplicateError{Kind: kindScript, Key: root, Field: "command", Value: s.Command}
		}
	}
	return append(items, s), nil
}

func (r *ScriptRepository) update(items []record.Script, root, name string, s record.Script) ([]record.Script, int, error) {
	i := indexOfScript(items, name)
	if i < 0 {
		return nil, 0, &NotFoundError{Kind: kindScript, Key: root, Name: name}
	}
	if s.Name == "" {
		s.Name = items[i].Name
	}
	if j := indexOfScript(items, s.Name); j >= 0 && j != i {
		return nil, 0, &DuplicateError{Kind: kindScript, Key: root, Field: "name", Value: s.Name}
	}
	if s.Command == "" {
		s.Command = items[i].Command
	}
	s.CreatedAt = items[i].CreatedAt
	s.UpdatedAt = r.opts.now()
	s, err := r.check(s)
	if err != nil {
		return nil, 0, err
	}
	for j, cur := range items {
		if j != i && cur.Command == s.Command {
			return nil, 0, &DuplicateError{Kind: kindScript, Key: root, Field: "command", Value: s.Command}
		}
	}
	items[i] = s
	return items, i, nil
}

func (r *ScriptRepository) delete(items []record.Script, root, name string) ([]record.Script, error) {
	i := indexOfScript(items, name)
	if i < 0 {
		return nil, &NotFoundError{Kind: kindScript, Key: root, Name: name}
	}
	return append(items[:i], items[i+1:]...), nil
}

func indexOfScript(items []record.Script, name string) int {
	for i, s := range items {
		if s.Name == name {
			return i
		}
	}
	return -1
}
