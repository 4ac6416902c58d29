package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/devstash/internal/collection"
	"github.com/roach88/devstash/internal/record"
	"github.com/roach88/devstash/internal/repository"
	"github.com/roach88/devstash/internal/settings"
)

func TestOpenApp_AllRecordIOGoesThroughFs(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	dir := filepath.Join(t.TempDir(), "nested", "devstash")

	app, err := openApp(ctx, settings.Settings{DataDir: dir, LogLevel: "info"}, nil, fs)
	require.NoError(t, err)
	defer app.Close()

	info, err := fs.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())

	ok, err := afero.Exists(fs, filepath.Join(dir, repository.ConfigFile))
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = app.Scripts.Create(ctx, "/src/api", record.Script{Name: "build", Command: "make"})
	require.NoError(t, err)
	ref := filepath.Join(dir, filepath.FromSlash(collection.DeriveReferenceFile(repository.ScriptsDir, "/src/api")))
	ok, err = afero.Exists(fs, ref)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "nothing is written to the OS filesystem")
}

func TestSetEncryption_RequiresPassphrase(t *testing.T) {
	ctx := context.Background()
	app, err := openApp(ctx, settings.Settings{DataDir: "/data", LogLevel: "info"}, nil, afero.NewMemMapFs())
	require.NoError(t, err)
	defer app.Close()

	_, _, err = app.SetEncryption(ctx, true)
	assert.ErrorIs(t, err, repository.ErrPassphraseRequired)
}
