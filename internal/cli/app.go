package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/roach88/devstash/internal/journal"
	"github.com/roach88/devstash/internal/record"
	"github.com/roach88/devstash/internal/repository"
	"github.com/roach88/devstash/internal/settings"
)

// App holds the repositories for one data directory.
type App struct {
	Settings  settings.Settings
	Config    *repository.ConfigRepository
	Scripts   *repository.ScriptRepository
	Terminals *repository.TerminalCollectionRepository
	Sessions  *repository.SessionRepository
	Journal   *journal.Journal // nil when disabled

	logger *slog.Logger
	opts   repository.Options
}

// OpenApp opens the data directory described by s on the OS filesystem.
//
// Opening does the following:
//   - creates the data directory with 0700 permissions if it is missing
//   - opens the journal unless s.Journal is false
//   - loads config.json, writing the defaults on first run
//   - opens the collection repositories, encrypting writes when the
//     loaded config has encryption enabled
//
// The caller must Close the returned App.
func OpenApp(ctx context.Context, s settings.Settings, logger *slog.Logger) (*App, error) {
	return openApp(ctx, s, logger, afero.NewOsFs())
}

// openApp opens the data directory on fs. Every record read and write goes
// through fs; the journal, when enabled, is a SQLite file and needs the OS
// filesystem.
func openApp(ctx context.Context, s settings.Settings, logger *slog.Logger, fs afero.Fs) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := fs.MkdirAll(s.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	app := &App{Settings: s, logger: logger}
	app.opts = repository.Options{
		DataDir:    s.DataDir,
		Fs:         fs,
		Passphrase: repository.StaticPassphrase(s.Passphrase),
		Logger:     logger,
	}

	if s.Journal {
		j, err := journal.Open(filepath.Join(s.DataDir, journal.FileName))
		if err != nil {
			return nil, err
		}
		app.Journal = j
		app.opts.Observer = j
	}

	cfgRepo, err := repository.NewConfigRepository(app.opts)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Config = cfgRepo

	cfg, err := cfgRepo.Load(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	if err := app.reopenCollections(cfg.Encryption.Enabled); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// reopenCollections rebuilds the collection repositories with the given
// write encryption.
func (a *App) reopenCollections(encrypt bool) error {
	opts := a.opts
	opts.Encrypt = encrypt

	scripts, err := repository.NewScriptRepository(opts)
	if err != nil {
		return err
	}
	terminals, err := repository.NewTerminalCollectionRepository(opts)
	if err != nil {
		return err
	}
	sessions, err := repository.NewSessionRepository(opts)
	if err != nil {
		return err
	}
	a.Scripts, a.Terminals, a.Sessions = scripts, terminals, sessions
	return nil
}

// SetEncryption saves the config with encryption on or off and rewrites
// every collection to match. It returns the saved config and the number
// of collections rewritten.
func (a *App) SetEncryption(ctx context.Context, enabled bool) (record.Config, int, error) {
	if enabled && a.Settings.Passphrase == "" {
		return record.Config{}, 0, repository.ErrPassphraseRequired
	}

	cfg, err := a.Config.Load(ctx)
	if err != nil {
		return record.Config{}, 0, err
	}
	if err := a.reopenCollections(enabled); err != nil {
		return record.Config{}, 0, err
	}

	total := 0
	for _, r := range []interface {
		Rewrite(context.Context) (int, error)
	}{a.Scripts, a.Terminals, a.Sessions} {
		n, err := r.Rewrite(ctx)
		total += n
		if err != nil {
			return record.Config{}, total, err
		}
	}

	// The config flag flips last so a failed rewrite leaves it describing
	// how new writes were being made before.
	cfg.Encryption.Enabled = enabled
	saved, err := a.Config.Save(ctx, cfg)
	if err != nil {
		return record.Config{}, total, err
	}
	a.logger.Info("encryption updated", "enabled", enabled, "collections", total)
	return saved, total, nil
}

// Close closes the journal.
func (a *App) Close() error {
	if a.Journal == nil {
		return nil
	}
	err := a.Journal.Close()
	a.Journal = nil
	return err
}
