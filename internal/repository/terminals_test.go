package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/devstash/internal/collection"
	"github.com/roach88/devstash/internal/record"
	"github.com/roach88/devstash/internal/schema"
)

func newTerminalRepo(t *testing.T, f *fixture) *TerminalCollectionRepository {
	t.Helper()
	r, err := NewTerminalCollectionRepository(f.options(""))
	require.NoError(t, err)
	return r
}

func devTerminals() record.TerminalCollection {
	return record.TerminalCollection{
		Name:   "dev",
		Layout: record.LayoutSplit,
		Terminals: []record.Terminal{
			{Name: "server", Command: "go run ./cmd/api"},
			{Name: "shell"},
		},
	}
}

func TestTerminalCollections_CRUD(t *testing.T) {
	f := newFixture(t)
	r := newTerminalRepo(t, f)
	ctx := context.Background()

	created, err := r.Create(ctx, rootA, devTerminals())
	require.NoError(t, err)
	assert.Len(t, created.Terminals, 2)

	got, err := newTerminalRepo(t, f).Get(ctx, rootA, "dev")
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = r.Create(ctx, rootA, devTerminals())
	assert.True(t, IsDuplicate(err))

	updated, err := r.Update(ctx, rootA, "dev", record.TerminalCollection{Name: "daily", Layout: record.LayoutTabs})
	require.NoError(t, err)
	assert.Equal(t, "daily", updated.Name)
	assert.NotNil(t, updated.Terminals)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	_, err = r.Get(ctx, rootA, "dev")
	assert.True(t, IsNotFound(err))

	require.NoError(t, r.Delete(ctx, rootA, "daily"))
	assert.True(t, IsNotFound(r.Delete(ctx, rootA, "daily")))

	roots, err := r.Roots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{rootA}, roots)
}

func TestTerminalCollections_RejectsBadLayout(t *testing.T) {
	f := newFixture(t)
	tc := devTerminals()
	tc.Layout = "grid"

	_, err := newTerminalRepo(t, f).Create(context.Background(), rootA, tc)
	require.Error(t, err)
	assert.True(t, schema.IsValidationError(err))
}

func TestTerminalCollections_UpdateRenameCollision(t *testing.T) {
	f := newFixture(t)
	r := newTerminalRepo(t, f)
	ctx := context.Background()

	_, err := r.Create(ctx, rootA, devTerminals())
	require.NoError(t, err)
	_, err = r.Create(ctx, rootA, record.TerminalCollection{Name: "ops"})
	require.NoError(t, err)

	_, err = r.Update(ctx, rootA, "ops", record.TerminalCollection{Name: "dev"})
	assert.True(t, IsDuplicate(err))
}

func TestTerminalCollections_DeleteRoot(t *testing.T) {
	f := newFixture(t)
	r := newTerminalRepo(t, f)
	ctx := context.Background()

	_, err := r.Create(ctx, rootA, devTerminals())
	require.NoError(t, err)
	ref := collection.DeriveReferenceFile(TerminalsDir, rootA)
	require.FileExists(t, f.abs(ref))

	require.NoError(t, r.DeleteRoot(ctx, rootA))
	assert.NoFileExists(t, f.abs(ref))

	roots, err := newTerminalRepo(t, f).Roots(ctx)
	require.NoError(t, err)
	assert.Empty(t, roots)
}
