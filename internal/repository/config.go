package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/devstash/internal/filestore"
	"github.com/roach88/devstash/internal/record"
	"github.com/roach88/devstash/internal/schema"
)

// ConfigFile is the config record path relative to the data directory.
const ConfigFile = "config.json"

// ConfigRepository manages the singleton config record.
type ConfigRepository struct {
	channel *filestore.Channel[record.Config]
	opts    Options
	logger  *slog.Logger
}

// NewConfigRepository returns a repository for config.json under
// opts.DataDir.
func NewConfigRepository(opts Options) (*ConfigRepository, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	ch, err := filestore.NewChannel[record.Config](schema.KindConfig, schema.Config(), record.DefaultConfig, opts.fileOptions())
	if err != nil {
		return nil, err
	}
	return &ConfigRepository{channel: ch, opts: opts, logger: opts.Logger.With("repository", schema.KindConfig)}, nil
}

// Path returns the absolute path of config.json.
func (r *ConfigRepository) Path() (string, error) {
	return r.channel.Path(ConfigFile)
}

// Load returns the config. On first run the defaults are written and
// returned; a corrupt file is replaced by the defaults.
func (r *ConfigRepository) Load(ctx context.Context) (record.Config, error) {
	pass, err := r.opts.passphrase(ctx)
	if err != nil {
		return record.Config{}, fmt.Errorf("config: passphrase: %w", err)
	}

	res := r.channel.Read(ctx, ConfigFile, pass)
	switch res.Outcome {
	case filestore.OutcomeFailed:
		return record.Config{}, fmt.Errorf("load config: %w", res.Err)
	case filestore.OutcomeNotFound:
		r.logger.Info("no config found, writing defaults")
		if err := r.channel.Write(ctx, ConfigFile, res.Value, ""); err != nil {
			return record.Config{}, fmt.Errorf("create default config: %w", err)
		}
	case filestore.OutcomeCorrupt:
		r.logger.Warn("config was corrupt and has been reset to defaults", "quarantine", res.Quarantine)
	}
	return res.Value, nil
}

// Save stamps UpdatedAt and writes cfg, encrypted when
// cfg.Encryption.Enabled is set. It returns the record as written.
func (r *ConfigRepository) Save(ctx context.Context, cfg record.Config) (record.Config, error) {
	cfg.ApplyDefaults()
	now := r.opts.now()
	cfg.UpdatedAt = &now

	pass := ""
	if cfg.Encryption.Enabled {
		p, err := r.opts.passphrase(ctx)
		if err != nil {
			return record.Config{}, fmt.Errorf("config: passphrase: %w", err)
		}
		if p == "" {
			return record.Config{}, fmt.Errorf("save config: %w", ErrPassphraseRequired)
		}
		pass = p
	}

	if err := r.channel.Write(ctx, ConfigFile, cfg, pass); err != nil {
		return record.Config{}, fmt.Errorf("save config: %w", err)
	}
	return cfg, nil
}

// Exists reports whether config.json exists.
func (r *ConfigRepository) Exists(ctx context.Context) (bool, error) {
	return r.channel.Exists(ctx, ConfigFile)
}

// Delete removes config.json, keeping a .bak copy.
func (r *ConfigRepository) Delete(ctx context.Context) error {
	return r.channel.Delete(ctx, ConfigFile)
}
