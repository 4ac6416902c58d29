package repository

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/roach88/devstash/internal/record"
	"github.com/roach88/devstash/internal/schema"
)

// SessionsDir holds the session collection files.
const SessionsDir = "sessions"

const kindSession = "session"

// SessionRepository stores sessions keyed by their root path. IDs are
// assigned on create; names are unique per root.
type SessionRepository struct {
	*keyed[record.Session]
}

// NewSessionRepository returns a repository over sessions/ in
// opts.DataDir.
func NewSessionRepository(opts Options) (*SessionRepository, error) {
	k, err := newKeyed(kindSession, SessionsDir, schema.Sessions(), schema.Session(), opts)
	if err != nil {
		return nil, err
	}
	return &SessionRepository{keyed: k}, nil
}

// Roots returns every root path that has sessions.
func (r *SessionRepository) Roots(ctx context.Context) ([]string, error) {
	return r.roots(ctx)
}

// List returns the sessions for root.
func (r *SessionRepository) List(ctx context.Context, root string) ([]record.Session, error) {
	return r.list(ctx, root)
}

// ListAll returns the sessions of every root, grouped in index order.
func (r *SessionRepository) ListAll(ctx context.Context) ([]record.Session, error) {
	roots, err := r.roots(ctx)
	if err != nil {
		return nil, err
	}
	all := []record.Session{}
	for _, root := range roots {
		items, err := r.list(ctx, root)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	return all, nil
}

// Create stores s under s.RootPath with a new ID.
func (r *SessionRepository) Create(ctx context.Context, s record.Session) (record.Session, error) {
	if s.RootPath != "" {
		s.RootPath = filepath.Clean(s.RootPath)
	}
	var created record.Session
	err := r.mutate(ctx, s.RootPath, func(items []record.Session) ([]record.Session, error) {
		if indexOfSessionName(items, s.Name) >= 0 {
			return nil, &DuplicateError{Kind: kindSession, Key: s.RootPath, Field: "name", Value: s.Name}
		}
		now := r.opts.now()
		s.ID = r.opts.IDs.NewID()
		s.CreatedAt, s.UpdatedAt = now, now
		checked, err := r.check(s)
		if err != nil {
			return nil, err
		}
		created = checked
		return append(items, checked), nil
	})
	if err != nil {
		return record.Session{}, fmt.Errorf("create session: %w", err)
	}
	return created, nil
}

// Get returns the session with id.
func (r *SessionRepository) Get(ctx context.Context, id string) (record.Session, error) {
	s, _, err := r.find(ctx, func(s record.Session) bool { return s.ID == id })
	if err != nil {
		return record.Session{}, err
	}
	if s == nil {
		return record.Session{}, &NotFoundError{Kind: kindSession, Name: id}
	}
	return *s, nil
}

// FindByName returns the sessions called name across all roots.
func (r *SessionRepository) FindByName(ctx context.Context, name string) ([]record.Session, error) {
	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := []record.Session{}
	for _, s := range all {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out, nil
}

// Update replaces the session with id. ID, RootPath and CreatedAt are kept.
func (r *SessionRepository) Update(ctx context.Context, id string, s record.Session) (record.Session, error) {
	return r.modify(ctx, "update session", id, func(cur record.Session, items []record.Session) (record.Session, error) {
		if s.Name == "" {
			s.Name = cur.Name
		}
		if j := indexOfSessionName(items, s.Name); j >= 0 && items[j].ID != id {
			return record.Session{}, &DuplicateError{Kind: kindSession, Key: cur.RootPath, Field: "name", Value: s.Name}
		}
		s.ID, s.RootPath, s.CreatedAt = cur.ID, cur.RootPath, cur.CreatedAt
		if s.LastOpenedAt == nil {
			s.LastOpenedAt = cur.LastOpenedAt
		}
		s.UpdatedAt = r.opts.now()
		return s, nil
	})
}

// Touch sets LastOpenedAt on the session with id to now.
func (r *SessionRepository) Touch(ctx context.Context, id string) (record.Session, error) {
	return r.modify(ctx, "touch session", id, func(cur record.Session, _ []record.Session) (record.Session, error) {
		now := r.opts.now()
		cur.LastOpenedAt = &now
		return cur, nil
	})
}

// Delete removes the session with id.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	cur, root, err := r.find(ctx, func(s record.Session) bool { return s.ID == id })
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if cur == nil {
		return fmt.Errorf("delete session: %w", &NotFoundError{Kind: kindSession, Name: id})
	}
	err = r.mutate(ctx, root, func(items []record.Session) ([]record.Session, error) {
		i := indexOfSessionID(items, id)
		if i < 0 {
			return nil, &NotFoundError{Kind: kindSession, Key: root, Name: id}
		}
		return append(items[:i], items[i+1:]...), nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// modify locates the session with id, replaces it with fn's result and
// writes its root's collection.
func (r *SessionRepository) modify(ctx context.Context, op, id string, fn func(record.Session, []record.Session) (record.Session, error)) (record.Session, error) {
	cur, root, err := r.find(ctx, func(s record.Session) bool { return s.ID == id })
	if err != nil {
		return record.Session{}, fmt.Errorf("%s: %w", op, err)
	}
	if cur == nil {
		return record.Session{}, fmt.Errorf("%s: %w", op, &NotFoundError{Kind: kindSession, Name: id})
	}

	var out record.Session
	err = r.mutate(ctx, root, func(items []record.Session) ([]record.Session, error) {
		i := indexOfSessionID(items, id)
		if i < 0 {
			return nil, &NotFoundError{Kind: kindSession, Key: root, Name: id}
		}
		next, err := fn(items[i], items)
		if err != nil {
			return nil, err
		}
		checked, err := r.check(next)
		if err != nil {
			return nil, err
		}
		items[i] = checked
		out = checked
		return items, nil
	})
	if err != nil {
		return record.Session{}, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// find returns the first session matching pred and the root it is stored
// under, or nil.
func (r *SessionRepository) find(ctx context.Context, pred func(record.Session) bool) (*record.Session, string, error) {
	roots, err := r.roots(ctx)
	if err != nil {
		return nil, "", err
	}
	for _, root := range roots {
		items, err := r.list(ctx, root)
		if err != nil {
			return nil, "", err
		}
		for i := range items {
			if pred(items[i]) {
				return &items[i], root, nil
			}
		}
	}
	return nil, "", nil
}

func indexOfSessionID(items []record.Session, id string) int {
	for i, s := range items {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func indexOfSessionName(items []record.Session, name string) int {
	for i, s := range items {
		if s.Name == name {
			return i
		}
	}
	return -1
}
