package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/devstash/internal/record"
)

// configKeys lists the settable config keys.
var configKeys = []string{"editor", "logLevel", "terminal.shell", "terminal.app", "git.defaultBranch", "git.autoFetch"}

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and change the devstash configuration",
	}
	cmd.AddCommand(newConfigShowCommand(rootOpts))
	cmd.AddCommand(newConfigSetCommand(rootOpts))
	cmd.AddCommand(newConfigEncryptionCommand(rootOpts, true))
	cmd.AddCommand(newConfigEncryptionCommand(rootOpts, false))
	return cmd
}

func newConfigShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Print the configuration",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rootOpts.App(cmd)
			if err != nil {
				return err
			}
			cfg, err := app.Config.Load(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "failed to load config", err)
			}
			path, err := app.Config.Path()
			if err != nil {
				return failure("failed to resolve config path", err)
			}
			f := rootOpts.Formatter(cmd)
			f.VerboseLog("config file: %s", path)
			return f.Render(cfg, func(w io.Writer) {
				writeConfigText(w, cfg)
			})
		},
	}
}

func newConfigSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value.

Keys: ` + strings.Join(configKeys, ", ") + `

Example:
  devstash config set editor "code -n"
  devstash config set git.autoFetch true`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rootOpts.App(cmd)
			if err != nil {
				return err
			}
			cfg, err := app.Config.Load(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "failed to load config", err)
			}
			if err := setConfigValue(&cfg, args[0], args[1]); err != nil {
				return WrapExitError(ExitCommandError, "invalid config value", err)
			}
			saved, err := app.Config.Save(cmd.Context(), cfg)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to save config", err)
			}
			return rootOpts.Formatter(cmd).Render(saved, func(w io.Writer) {
				fmt.Fprintf(w, "Set %s = %s\n", args[0], args[1])
			})
		},
	}
}

func newConfigEncryptionCommand(rootOpts *RootOptions, enable bool) *cobra.Command {
	use, short := "decrypt", "Store all data in plaintext"
	if enable {
		use, short = "encrypt", "Encrypt the config and every collection with the passphrase"
	}
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rootOpts.App(cmd)
			if err != nil {
				return err
			}
			cfg, n, err := app.SetEncryption(cmd.Context(), enable)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to "+use+" data", err)
			}
			result := map[string]any{"encryption": cfg.Encryption.Enabled, "collections": n}
			return rootOpts.Formatter(cmd).Render(result, func(w io.Writer) {
				state := "disabled"
				if cfg.Encryption.Enabled {
					state = "enabled"
				}
				fmt.Fprintf(w, "Encryption %s (%d collection files rewritten)\n", state, n)
			})
		},
	}
}

func setConfigValue(cfg *record.Config, key, value string) error {
	switch key {
	case "editor":
		cfg.Editor = value
	case "logLevel":
		cfg.LogLevel = value
	case "terminal.shell", "terminal.app":
		if cfg.Terminal == nil {
			cfg.Terminal = &record.TerminalSettings{}
		}
		if key == "terminal.shell" {
			cfg.Terminal.Shell = value
		} else {
			cfg.Terminal.App = value
		}
	case "git.defaultBranch", "git.autoFetch":
		if cfg.Git == nil {
			cfg.Git = &record.GitSettings{}
		}
		if key == "git.defaultBranch" {
			cfg.Git.DefaultBranch = value
			break
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("git.autoFetch: %w", err)
		}
		cfg.Git.AutoFetch = b
	default:
		return fmt.Errorf("unknown key %q (expected one of %s)", key, strings.Join(configKeys, ", "))
	}
	return nil
}

func writeConfigText(w io.Writer, cfg record.Config) {
	fmt.Fprintf(w, "version:            %d\n", cfg.Version)
	fmt.Fprintf(w, "encryption.enabled: %t\n", cfg.Encryption.Enabled)
	fmt.Fprintf(w, "editor:             %s\n", cfg.Editor)
	fmt.Fprintf(w, "logLevel:           %s\n", cfg.LogLevel)
	if cfg.Terminal != nil {
		fmt.Fprintf(w, "terminal.shell:     %s\n", cfg.Terminal.Shell)
		fmt.Fprintf(w, "terminal.app:       %s\n", cfg.Terminal.App)
	}
	if cfg.Git != nil {
		fmt.Fprintf(w, "git.defaultBranch:  %s\n", cfg.Git.DefaultBranch)
		fmt.Fprintf(w, "git.autoFetch:      %t\n", cfg.Git.AutoFetch)
	}
	if cfg.UpdatedAt != nil {
		fmt.Fprintf(w, "updatedAt:          %s\n", cfg.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
}
