package record

import "time"

// CurrentConfigVersion is the config schema version written by this build.
const CurrentConfigVersion = 1

// Log levels accepted in Config.LogLevel.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Config is the singleton user configuration stored in config.json.
type Config struct {
	Version    int                `json:"version" yaml:"version"`
	Encryption EncryptionSettings `json:"encryption" yaml:"encryption"`
	Editor     string             `json:"editor,omitempty" yaml:"editor,omitempty"`
	Terminal   *TerminalSettings  `json:"terminal,omitempty" yaml:"terminal,omitempty"`
	Git        *GitSettings       `json:"git,omitempty" yaml:"git,omitempty"`
	LogLevel   string             `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	UpdatedAt  *time.Time         `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// EncryptionSettings controls encryption at rest.
type EncryptionSettings struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// TerminalSettings configures how terminals are spawned.
type TerminalSettings struct {
	Shell string `json:"shell,omitempty" yaml:"shell,omitempty"`
	App   string `json:"app,omitempty" yaml:"app,omitempty"`
}

// GitSettings configures git integration.
type GitSettings struct {
	DefaultBranch string `json:"defaultBranch,omitempty" yaml:"defaultBranch,omitempty"`
	AutoFetch     bool   `json:"autoFetch,omitempty" yaml:"autoFetch,omitempty"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() Config {
	return Config{
		Version:    CurrentConfigVersion,
		Encryption: EncryptionSettings{Enabled: false},
		LogLevel:   LogLevelInfo,
	}
}

// ApplyDefaults fills in values older config files may lack.
func (c *Config) ApplyDefaults() {
	if c.Version == 0 {
		c.Version = CurrentConfigVersion
	}
	if c.LogLevel == "" {
		c.LogLevel = LogLevelInfo
	}
}
