package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/devstash/internal/cryptobox"
	"github.com/roach88/devstash/internal/record"
	"github.com/roach88/devstash/internal/schema"
	"github.com/roach88/devstash/internal/testutil"
)

const configFile = "config.json"

// recorder collects observer events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Observe(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make([]string, len(r.events))
	for i, ev := range r.events {
		ops[i] = ev.Op
	}
	return ops
}

type fixture struct {
	root    string
	fs      *testutil.FaultFs
	clock   *testutil.Clock
	events  *recorder
	channel *Channel[record.Config]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		root:   t.TempDir(),
		fs:     testutil.NewFaultFs(afero.NewOsFs()),
		clock:  testutil.NewClock(testutil.Epoch),
		events: &recorder{},
	}
	ch, err := NewChannel[record.Config](schema.KindConfig, schema.Config(), record.DefaultConfig, Options{
		Root:     f.root,
		Fs:       f.fs,
		Box:      cryptobox.New(cryptobox.WithIterations(1000)),
		Clock:    f.clock.Now,
		Observer: f.events,
	})
	require.NoError(t, err)
	f.channel = ch
	return f
}

func (f *fixture) path(name string) string {
	return filepath.Join(f.root, name)
}

func (f *fixture) readRaw(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(f.path(name))
	require.NoError(t, err)
	return string(data)
}

func sampleConfig() record.Config {
	cfg := record.DefaultConfig()
	cfg.Editor = "code"
	cfg.LogLevel = record.LogLevelDebug
	cfg.Terminal = &record.TerminalSettings{Shell: "/bin/zsh"}
	return cfg
}

func TestNewChannel_RequiresRootValidatorDefaults(t *testing.T) {
	_, err := NewChannel[record.Config]("config", schema.Config(), record.DefaultConfig, Options{})
	assert.Error(t, err)
	_, err = NewChannel[record.Config]("config", nil, record.DefaultConfig, Options{Root: t.TempDir()})
	assert.Error(t, err)
	_, err = NewChannel[record.Config]("config", schema.Config(), nil, Options{Root: t.TempDir()})
	assert.Error(t, err)
}

func TestWriteRead_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cfg := sampleConfig()

	require.NoError(t, f.channel.Write(ctx, configFile, cfg, ""))

	res := f.channel.Read(ctx, configFile, "")
	require.Equal(t, OutcomeFound, res.Outcome)
	assert.False(t, res.Encrypted)
	assert.Equal(t, cfg, res.Value)

	raw := f.readRaw(t, configFile)
	assert.True(t, strings.HasPrefix(raw, "{\n"), "plain files are indented JSON")
	assert.NoFileExists(t, f.path(configFile+TempSuffix))
}

func TestWriteRead_Encrypted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cfg := sampleConfig()
	cfg.Encryption.Enabled = true

	require.NoError(t, f.channel.Write(ctx, configFile, cfg, "secret"))
	assert.True(t, strings.HasPrefix(f.readRaw(t, configFile), cryptobox.Header+":"))

	res := f.channel.Read(ctx, configFile, "secret")
	require.Equal(t, OutcomeFound, res.Outcome)
	assert.True(t, res.Encrypted)
	assert.Equal(t, cfg, res.Value)

	for _, pass := range []string{"wrong", ""} {
		res := f.channel.Read(ctx, configFile, pass)
		require.Equal(t, OutcomeFailed, res.Outcome, "passphrase %q", pass)
		assert.True(t, IsDecryptionFailed(res.Err))
		assert.ErrorIs(t, res.Err, cryptobox.ErrDecrypt)
	}

	// Decryption failures are surfaced, never healed.
	assert.True(t, strings.HasPrefix(f.readRaw(t, configFile), cryptobox.Header+":"))
	matches, err := filepath.Glob(f.path(configFile + QuarantineSuffix + "*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRead_EnvelopeAfterBOMOrNewline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cfg := sampleConfig()
	cfg.Encryption.Enabled = true

	require.NoError(t, f.channel.Write(ctx, configFile, cfg, "secret"))
	sealed := f.readRaw(t, configFile)

	for _, prefix := range []string{"\n", "\xEF\xBB\xBF", "\xEF\xBB\xBF\r\n"} {
		edited := prefix + sealed
		require.NoError(t, os.WriteFile(f.path(configFile), []byte(edited), 0o600))

		res := f.channel.Read(ctx, configFile, "secret")
		require.Equal(t, OutcomeFound, res.Outcome, "prefix %q", prefix)
		assert.True(t, res.Encrypted)
		assert.Equal(t, cfg, res.Value)

		res = f.channel.Read(ctx, configFile, "wrong")
		require.Equal(t, OutcomeFailed, res.Outcome, "prefix %q", prefix)
		assert.True(t, IsDecryptionFailed(res.Err))
		assert.Equal(t, edited, f.readRaw(t, configFile))
	}

	matches, err := filepath.Glob(f.path(configFile + QuarantineSuffix + "*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRead_HeaderSniffIgnoresRecordFlag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A plaintext record claiming encryption is read as plaintext.
	cfg := record.DefaultConfig()
	cfg.Encryption.Enabled = true
	require.NoError(t, f.channel.Write(ctx, configFile, cfg, ""))

	res := f.channel.Read(ctx, configFile, "")
	require.Equal(t, OutcomeFound, res.Outcome)
	assert.False(t, res.Encrypted)
	assert.True(t, res.Value.Encryption.Enabled)
}

func TestRead_NotFoundReturnsDefault(t *testing.T) {
	f := newFixture(t)

	res := f.channel.Read(context.Background(), configFile, "")
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.Equal(t, record.DefaultConfig(), res.Value)
	assert.NoFileExists(t, f.path(configFile), "defaults are not persisted by Read")

	v, err := res.Get()
	require.NoError(t, err)
	assert.Equal(t, record.DefaultConfig(), v)
}

func TestRead_HealsCorruptFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "this is not json {{"},
		{"truncated json", `{"version":1,"encryption":{"enab`},
		{"schema violation", `{"version":1,"encryption":{"enabled":"yes"}}`},
		{"unknown field", `{"version":1,"surprise":true}`},
		{"empty file", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			require.NoError(t, os.WriteFile(f.path(configFile), []byte(tt.content), 0o600))

			res := f.channel.Read(ctx, configFile, "")
			require.Equal(t, OutcomeCorrupt, res.Outcome)
			assert.Equal(t, record.DefaultConfig(), res.Value)

			wantQuarantine := f.path(fmt.Sprintf("%s%s%d", configFile, QuarantineSuffix, testutil.Epoch.UnixMilli()))
			assert.Equal(t, wantQuarantine, res.Quarantine)
			quarantined, err := os.ReadFile(wantQuarantine)
			require.NoError(t, err)
			assert.Equal(t, tt.content, string(quarantined), "quarantine keeps the original bytes")

			again := f.channel.Read(ctx, configFile, "")
			assert.Equal(t, OutcomeFound, again.Outcome, "healed file is readable")
			assert.Equal(t, record.DefaultConfig(), again.Value)

			assert.Equal(t, []string{OpQuarantine, OpHeal}, f.events.ops())
		})
	}
}

func TestRead_QuarantineNeverOverwritten(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(f.path(configFile), []byte(fmt.Sprintf("garbage %d", i)), 0o600))
		res := f.channel.Read(ctx, configFile, "")
		require.Equal(t, OutcomeCorrupt, res.Outcome)
	}

	base := f.path(fmt.Sprintf("%s%s%d", configFile, QuarantineSuffix, testutil.Epoch.UnixMilli()))
	for i, name := range []string{base, base + "-1", base + "-2"} {
		data, err := os.ReadFile(name)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("garbage %d", i), string(data))
	}
}

func TestRead_HealsCorruptEncryptedPayload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	env, err := cryptobox.New(cryptobox.WithIterations(1000)).Encrypt([]byte("not json at all"), "secret")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.path(configFile), env, 0o600))

	res := f.channel.Read(ctx, configFile, "secret")
	require.Equal(t, OutcomeCorrupt, res.Outcome)
	assert.True(t, res.Encrypted)

	assert.True(t, strings.HasPrefix(f.readRaw(t, configFile), cryptobox.Header+":"), "default rewritten encrypted")
	again := f.channel.Read(ctx, configFile, "secret")
	assert.Equal(t, OutcomeFound, again.Outcome)
}

func TestRead_MalformedEnvelopeIsDecryptionFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.path(configFile), []byte(cryptobox.Header+":only:three"), 0o600))

	res := f.channel.Read(context.Background(), configFile, "secret")
	require.Equal(t, OutcomeFailed, res.Outcome)
	assert.True(t, IsDecryptionFailed(res.Err))
	assert.ErrorIs(t, res.Err, cryptobox.ErrFormat)
	assert.Contains(t, f.events.ops(), OpDecryptFailed)
}

func TestRead_IOFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Mkdir(f.path(configFile), 0o700))

	res := f.channel.Read(context.Background(), configFile, "")
	require.Equal(t, OutcomeFailed, res.Outcome)
	assert.True(t, IsIOFailed(res.Err))

	_, err := res.Get()
	assert.Error(t, err)
}

func TestWrite_AtomicUnderInjectedCrash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	before := sampleConfig()
	require.NoError(t, f.channel.Write(ctx, configFile, before, ""))
	committed := f.readRaw(t, configFile)

	after := sampleConfig()
	after.Editor = "vim"
	f.fs.FailRenames(TempSuffix, errors.New("simulated crash"))

	err := f.channel.Write(ctx, configFile, after, "")
	require.Error(t, err)
	assert.True(t, IsIOFailed(err))

	assert.Equal(t, committed, f.readRaw(t, configFile), "file holds the previous complete version")
	assert.NoFileExists(t, f.path(configFile+TempSuffix))

	f.fs.FailRenames("", nil)
	res := f.channel.Read(ctx, configFile, "")
	require.Equal(t, OutcomeFound, res.Outcome)
	assert.Equal(t, before, res.Value)
}

func TestWrite_KeepsSingleBackup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := sampleConfig()
	require.NoError(t, f.channel.Write(ctx, configFile, first, ""))
	assert.NoFileExists(t, f.path(configFile+BackupSuffix), "nothing to back up on first write")
	firstRaw := f.readRaw(t, configFile)

	second := sampleConfig()
	second.Editor = "vim"
	require.NoError(t, f.channel.Write(ctx, configFile, second, ""))
	assert.Equal(t, firstRaw, f.readRaw(t, configFile+BackupSuffix))

	secondRaw := f.readRaw(t, configFile)
	third := sampleConfig()
	third.Editor = "emacs"
	require.NoError(t, f.channel.Write(ctx, configFile, third, ""))
	assert.Equal(t, secondRaw, f.readRaw(t, configFile+BackupSuffix), "backup is overwritten each save")
}

func TestWrite_RejectsInvalidRecord(t *testing.T) {
	f := newFixture(t)
	cfg := sampleConfig()
	cfg.LogLevel = "loud"

	err := f.channel.Write(context.Background(), configFile, cfg, "")
	require.Error(t, err)
	assert.True(t, IsInvalidRecord(err))
	assert.True(t, schema.IsValidationError(err))
	assert.NoFileExists(t, f.path(configFile))
}

func TestWrite_CreatesDirectories(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.channel.Write(context.Background(), "nested/deeper/config.json", sampleConfig(), ""))
	assert.FileExists(t, f.path("nested/deeper/config.json"))
}

func TestPaths_RejectTraversal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	outside := filepath.Join(filepath.Dir(f.root), "escaped.json")

	for _, rel := range []string{"", "../escaped.json", "a/../../escaped.json", outside} {
		t.Run(rel, func(t *testing.T) {
			err := f.channel.Write(ctx, rel, sampleConfig(), "")
			assert.True(t, IsPathInvalid(err), "write %q: %v", rel, err)

			res := f.channel.Read(ctx, rel, "")
			assert.Equal(t, OutcomeFailed, res.Outcome)
			assert.True(t, IsPathInvalid(res.Err))

			_, err = f.channel.Exists(ctx, rel)
			assert.True(t, IsPathInvalid(err))
			assert.True(t, IsPathInvalid(f.channel.Delete(ctx, rel)))
		})
	}
	assert.NoFileExists(t, outside)
	assert.Equal(t, 0, f.fs.Renames())
}

func TestPaths_AbsoluteInsideRootAccepted(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.channel.Write(context.Background(), f.path(configFile), sampleConfig(), ""))
	assert.FileExists(t, f.path(configFile))
}

func TestExistsAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok, err := f.channel.Exists(ctx, configFile)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, f.channel.Write(ctx, configFile, sampleConfig(), ""))
	raw := f.readRaw(t, configFile)

	ok, err = f.channel.Exists(ctx, configFile)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, f.channel.Delete(ctx, configFile))
	assert.NoFileExists(t, f.path(configFile))
	assert.Equal(t, raw, f.readRaw(t, configFile+BackupSuffix), "delete backs up first")

	require.NoError(t, f.channel.Delete(ctx, configFile), "deleting a missing file is not an error")
	assert.Equal(t, []string{OpWrite, OpDelete}, f.events.ops())
}

func TestOperations_HonorCancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, f.channel.Write(ctx, configFile, sampleConfig(), ""), context.Canceled)
	assert.ErrorIs(t, f.channel.Read(ctx, configFile, "").Err, context.Canceled)
	assert.NoFileExists(t, f.path(configFile))
}

func TestObserverErrorsAreSwallowed(t *testing.T) {
	root := t.TempDir()
	ch, err := NewChannel[record.Config]("config", schema.Config(), record.DefaultConfig, Options{
		Root: root,
		Observer: ObserverFunc(func(context.Context, Event) error {
			return errors.New("journal unavailable")
		}),
	})
	require.NoError(t, err)
	require.NoError(t, ch.Write(context.Background(), configFile, sampleConfig(), ""))
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "found", OutcomeFound.String())
	assert.Equal(t, "not_found", OutcomeNotFound.String())
	assert.Equal(t, "corrupt", OutcomeCorrupt.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
	assert.Equal(t, "unknown", Outcome(0).String())
}

func TestError_Format(t *testing.T) {
	err := NewError(CodeIOFailed, "write", "config.json", errors.New("disk full"))
	assert.Equal(t, "write config.json: IO_FAILED: disk full", err.Error())
	assert.Equal(t, CodeIOFailed, CodeOf(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
}
