package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/devstash/internal/settings"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "text" | "json" | "yaml"

	// EnvFiles are loaded before settings are resolved.
	EnvFiles []string

	loader   *settings.Loader
	settings settings.Settings
	logger   *slog.Logger
	app      *App
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootOptions returns options that read .env and .env.local from the
// working directory.
func NewRootOptions() *RootOptions {
	return &RootOptions{
		EnvFiles: []string{".env", ".env.local"},
		loader:   settings.New(),
	}
}

// NewRootCommand creates the root command for the devstash CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(NewRootOptions())
}

// Execute runs the CLI with args and returns the process exit code. The
// app is closed even when the command fails.
//
// Errors are rendered in the selected --format. Text errors go to stderr;
// json and yaml errors go to stdout so scripts can parse them. An
// ExitError marked Quiet has already been reported and only sets the code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := NewRootOptions()
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if cerr := opts.Close(); err == nil && cerr != nil {
		err = WrapExitError(ExitFailure, "failed to close data directory", cerr)
	}
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Quiet {
		return exitErr.Code
	}
	f := opts.Formatter(cmd)
	if f.Format == "text" {
		f.Writer = stderr
	}
	_ = f.Error(errorCode(err), err.Error(), nil)
	return GetExitCode(err)
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devstash",
		Short: "devstash - project scripts, terminals and sessions",
		Long: `devstash keeps per-project scripts, terminal collections and work
sessions in a local data directory, optionally encrypted at rest.

Data directory: --data-dir or DEVSTASH_DATA_DIR.
Passphrase:     --passphrase or DEVSTASH_PASSPHRASE.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.Close()
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().String(settings.KeyDataDir, "", "data directory (default "+settings.DefaultDataDir()+")")
	cmd.PersistentFlags().String(settings.KeyPassphrase, "", "passphrase for encrypted data")
	cmd.PersistentFlags().String(settings.KeyLogLevel, "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().Bool(settings.KeyNoJournal, false, "do not record operations in the journal")

	cmd.AddCommand(NewConfigCommand(opts))
	cmd.AddCommand(NewScriptCommand(opts))
	cmd.AddCommand(NewTerminalCommand(opts))
	cmd.AddCommand(NewSessionCommand(opts))
	cmd.AddCommand(NewJournalCommand(opts))
	cmd.AddCommand(NewDebugCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// init resolves settings and installs the logger. The app itself is
// opened on first use.
func (o *RootOptions) init(cmd *cobra.Command) error {
	if err := settings.LoadEnvFiles(o.EnvFiles...); err != nil {
		return WrapExitError(ExitCommandError, "failed to load env files", err)
	}
	if err := o.loader.BindCommandFlags(cmd.Root()); err != nil {
		return WrapExitError(ExitCommandError, "failed to bind flags", err)
	}
	s, err := o.loader.Settings()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid settings", err)
	}
	o.settings = s
	o.logger = newLogger(cmd.ErrOrStderr(), s.LogLevel, o.Verbose)
	slog.SetDefault(o.logger)
	return nil
}

// App returns the application, opening it on first call.
func (o *RootOptions) App(cmd *cobra.Command) (*App, error) {
	if o.app != nil {
		return o.app, nil
	}
	app, err := OpenApp(cmd.Context(), o.settings, o.logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open data directory", err)
	}
	o.app = app
	return app, nil
}

// Close releases the app if one was opened.
func (o *RootOptions) Close() error {
	if o.app == nil {
		return nil
	}
	err := o.app.Close()
	o.app = nil
	return err
}

// Formatter returns an OutputFormatter writing to cmd's streams.
func (o *RootOptions) Formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// newLogger returns a text logger on w. --verbose forces debug.
func newLogger(w io.Writer, level string, verbose bool) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
