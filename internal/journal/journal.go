package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/devstash/internal/filestore"
)

// FileName is the journal database name inside the data directory.
const FileName = "journal.db"

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - no schema
// 1 - events table
const currentSchemaVersion = 1

// Entry is one journaled event.
type Entry struct {
	ID     int64     `json:"id" yaml:"id"`
	Op     string    `json:"op" yaml:"op"`
	Kind   string    `json:"kind" yaml:"kind"`
	Path   string    `json:"path" yaml:"path"`
	Detail string    `json:"detail,omitempty" yaml:"detail,omitempty"`
	At     time.Time `json:"at" yaml:"at"`
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Kind  string
	Op    string
	Limit int
}

// Journal is an append-only event log backed by SQLite.
type Journal struct {
	db *sql.DB
}

var _ filestore.Observer = (*Journal)(nil)

// Open creates or opens the journal at path and applies pragmas and
// migrations.
//
// The database is configured with:
//   - WAL mode so history queries do not block appends
//   - NORMAL synchronous mode
//   - 5-second busy timeout for a second CLI process holding the lock
//   - a single open connection
//
// The schema version is tracked in user_version; a journal written by a
// newer schema is rejected rather than migrated down. Open is safe to call
// on an existing journal.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	// Verify connection works
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect journal: %w", err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Apply required pragmas
	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	// Apply schema migrations
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Observe appends ev.
func (j *Journal) Observe(ctx context.Context, ev filestore.Event) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO events (op, kind, path, detail, at_ms) VALUES (?, ?, ?, ?, ?)`,
		ev.Op, ev.Kind, ev.Path, ev.Detail, at.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("journal %s %s: %w", ev.Op, ev.Path, err)
	}
	return nil
}

// List returns entries matching f, newest first.
func (j *Journal) List(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, f.Kind)
	}
	if f.Op != "" {
		where = append(where, "op = ?")
		args = append(args, f.Op)
	}

	query := "SELECT id, op, kind, path, detail, at_ms FROM events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY at_ms DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e  Entry
			ms int64
		)
		if err := rows.Scan(&e.ID, &e.Op, &e.Kind, &e.Path, &e.Detail, &ms); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		e.At = time.UnixMilli(ms).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}

// Count returns the number of journaled events.
func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		return 0, fmt.Errorf("count journal: %w", err)
	}
	return n, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if needed and records the schema version.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("journal schema version %d is newer than supported %d", version, currentSchemaVersion)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
