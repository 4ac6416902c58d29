// Package settings resolves CLI settings from flags, DEVSTASH_* environment
// variables and .env files.
//
// Precedence is flag, then environment, then default. .env files only fill
// variables that are not already set.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. DEVSTASH_DATA_DIR.
const EnvPrefix = "devstash"

// Setting keys. Flags use the same names.
const (
	KeyDataDir    = "data-dir"
	KeyPassphrase = "passphrase"
	KeyLogLevel   = "log-level"
	KeyNoJournal  = "no-journal"
)

// Settings is the resolved CLI configuration.
type Settings struct {
	DataDir    string
	Passphrase string
	LogLevel   string
	Journal    bool
}

// Loader resolves Settings. Each Loader has its own viper instance.
type Loader struct {
	v *viper.Viper
}

// New returns a Loader reading DEVSTASH_* variables.
func New() *Loader {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyDataDir, DefaultDataDir())
	v.SetDefault(KeyLogLevel, "")
	v.SetDefault(KeyNoJournal, false)
	return &Loader{v: v}
}

// LoadEnvFiles loads each file that exists. Variables already in the
// environment win.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// BindCommandFlags binds cmd's flags so a set flag overrides the
// environment.
func (l *Loader) BindCommandFlags(cmd *cobra.Command) error {
	if err := l.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	return l.v.BindPFlags(cmd.PersistentFlags())
}

// Settings returns the resolved settings. A leading "~/" in the data dir
// is expanded and the result made absolute. An empty data dir or an
// unknown log level is an error.
func (l *Loader) Settings() (Settings, error) {
	s := Settings{
		DataDir:    l.v.GetString(KeyDataDir),
		Passphrase: l.v.GetString(KeyPassphrase),
		LogLevel:   strings.ToLower(l.v.GetString(KeyLogLevel)),
		Journal:    !l.v.GetBool(KeyNoJournal),
	}
	if s.DataDir == "" {
		return Settings{}, errors.New("data dir is empty")
	}
	if strings.HasPrefix(s.DataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return Settings{}, fmt.Errorf("expand data dir: %w", err)
		}
		s.DataDir = filepath.Join(home, s.DataDir[2:])
	}
	abs, err := filepath.Abs(s.DataDir)
	if err != nil {
		return Settings{}, fmt.Errorf("resolve data dir: %w", err)
	}
	s.DataDir = abs

	switch s.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return Settings{}, fmt.Errorf("invalid log level %q (expected debug, info, warn or error)", s.LogLevel)
	}
	return s, nil
}

// DefaultDataDir returns the user config dir joined with "devstash", or
// ".devstash" under the home directory when that is unavailable.
func DefaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "devstash")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".devstash")
	}
	return ".devstash"
}
