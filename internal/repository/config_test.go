package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/devstash/internal/filestore"
	"github.com/roach88/devstash/internal/record"
	"github.com/roach88/devstash/internal/testutil"
)

func newConfigRepo(t *testing.T, f *fixture, passphrase string) *ConfigRepository {
	t.Helper()
	r, err := NewConfigRepository(f.options(passphrase))
	require.NoError(t, err)
	return r
}

func TestNewConfigRepository_RequiresDataDir(t *testing.T) {
	_, err := NewConfigRepository(Options{})
	require.Error(t, err)
}

func TestConfigLoad_FirstRunWritesDefaults(t *testing.T) {
	f := newFixture(t)
	r := newConfigRepo(t, f, "")
	ctx := context.Background()

	exists, err := r.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	cfg, err := r.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, record.DefaultConfig(), cfg)

	exists, err = r.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := os.ReadFile(f.abs(ConfigFile))
	require.NoError(t, err)
	g := goldie.New(t)
	g.Assert(t, "default_config", data)
}

func TestConfigSaveLoad_RoundTrip(t *testing.T) {
	f := newFixture(t)
	r := newConfigRepo(t, f, "")
	ctx := context.Background()

	cfg := record.DefaultConfig()
	cfg.Editor = "nvim"
	cfg.Git = &record.GitSettings{DefaultBranch: "main", AutoFetch: true}

	saved, err := r.Save(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, saved.UpdatedAt)
	assert.Equal(t, testutil.Epoch, *saved.UpdatedAt)

	got, err := newConfigRepo(t, f, "").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, got)
}

// With dataDir=<tmp>/x, a plaintext config round-trips unchanged; switching
// encryption on with "secret" writes an envelope that "secret" opens and
// "wrong" does not.
func TestConfig_EncryptionScenario(t *testing.T) {
	f := newFixture(t)
	f.dir = filepath.Join(f.dir, "x")
	ctx := context.Background()

	plain := record.DefaultConfig()
	plain.Encryption.Enabled = false
	saved, err := newConfigRepo(t, f, "").Save(ctx, plain)
	require.NoError(t, err)

	got, err := newConfigRepo(t, f, "").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, got)

	got.Encryption.Enabled = true
	encrypted, err := newConfigRepo(t, f, "secret").Save(ctx, got)
	require.NoError(t, err)

	raw, err := os.ReadFile(f.abs(ConfigFile))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "ENCRYPTED_v1:"))

	opened, err := newConfigRepo(t, f, "secret").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, encrypted, opened)

	_, err = newConfigRepo(t, f, "wrong").Load(ctx)
	require.Error(t, err)
	assert.True(t, filestore.IsDecryptionFailed(err))

	// A failed decryption is not healed: the envelope is still there.
	after, err := os.ReadFile(f.abs(ConfigFile))
	require.NoError(t, err)
	assert.Equal(t, raw, after)
}

func TestConfigSave_EncryptedNeedsPassphrase(t *testing.T) {
	f := newFixture(t)
	cfg := record.DefaultConfig()
	cfg.Encryption.Enabled = true

	_, err := newConfigRepo(t, f, "").Save(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrPassphraseRequired)
	assert.NoFileExists(t, f.abs(ConfigFile))
}

func TestConfigLoad_CorruptFileHeals(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.abs(ConfigFile), []byte("not json"), 0o600))

	cfg, err := newConfigRepo(t, f, "").Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, record.DefaultConfig(), cfg)

	matches, err := filepath.Glob(f.abs(ConfigFile) + ".bak.*")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	original, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, "not json", string(original))
}

func TestConfigDelete(t *testing.T) {
	f := newFixture(t)
	r := newConfigRepo(t, f, "")
	ctx := context.Background()

	_, err := r.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, r.Delete(ctx))

	exists, err := r.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.FileExists(t, f.abs(ConfigFile+".bak"))

	require.NoError(t, r.Delete(ctx))
}
