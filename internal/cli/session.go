package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/devstash/internal/record"
)

// NewSessionCommand creates the session command group.
func NewSessionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage work sessions",
	}
	cmd.AddCommand(newSessionListCommand(rootOpts))
	cmd.AddCommand(newSessionNewCommand(rootOpts))
	cmd.AddCommand(newSessionOpenCommand(rootOpts))
	cmd.AddCommand(newSessionRemoveCommand(rootOpts))
	return cmd
}

func newSessionListCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		root string
		all  bool
	)
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List sessions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rootOpts.App(cmd)
			if err != nil {
				return err
			}
			var items []record.Session
			if all {
				items, err = app.Sessions.ListAll(cmd.Context())
			} else {
				r, rerr := resolveRoot(root)
				if rerr != nil {
					return rerr
				}
				items, err = app.Sessions.List(cmd.Context(), r)
			}
			if err != nil {
				return failure("failed to list sessions", err)
			}
			return rootOpts.Formatter(cmd).Render(items, func(w io.Writer) {
				if len(items) == 0 {
					fmt.Fprintln(w, "No sessions")
					return
				}
				for _, s := range items {
					writeSessionLine(w, s)
				}
			})
		},
	}
	addRootFlag(cmd, &root)
	cmd.Flags().BoolVar(&all, "all", false, "list sessions of every project root")
	return cmd
}

func newSessionNewCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		root string
		s    record.Session
	)
	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create a session for a project root",
		Long: `Create a session for a project root.

Example:
  devstash session new api --branch main --scripts build,test --terminals dev`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rootOpts.App(cmd)
			if err != nil {
				return err
			}
			if s.RootPath, err = resolveRoot(root); err != nil {
				return err
			}
			s.Name = args[0]
			created, err := app.Sessions.Create(cmd.Context(), s)
			if err != nil {
				return failure("failed to create session", err)
			}
			return rootOpts.Formatter(cmd).Render(created, func(w io.Writer) {
				fmt.Fprintf(w, "Created session %s (%s)\n", created.Name, created.ID)
			})
		},
	}
	addRootFlag(cmd, &root)
	cmd.Flags().StringVar(&s.Branch, "branch", "", "git branch")
	cmd.Flags().StringSliceVar(&s.Scripts, "scripts", nil, "script names to run")
	cmd.Flags().StringVar(&s.TerminalCollection, "terminals", "", "terminal collection to open")
	return cmd
}

func newSessionOpenCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open <id>",
		Short: "Mark a session as opened and print it",
		Long: `Mark a session as opened and print it.

Launching the terminals and scripts of the session is left to the caller;
this records the open time and prints what to start.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rootOpts.App(cmd)
			if err != nil {
				return err
			}
			s, err := app.Sessions.Touch(cmd.Context(), args[0])
			if err != nil {
				return failure("failed to open session", err)
			}
			return rootOpts.Formatter(cmd).Render(s, func(w io.Writer) {
				writeSessionLine(w, s)
				fmt.Fprintf(w, "  root:      %s\n", s.RootPath)
				if s.Branch != "" {
					fmt.Fprintf(w, "  branch:    %s\n", s.Branch)
				}
				for _, name := range s.Scripts {
					fmt.Fprintf(w, "  script:    %s\n", name)
				}
				if s.TerminalCollection != "" {
					fmt.Fprintf(w, "  terminals: %s\n", s.TerminalCollection)
				}
			})
		},
	}
}

func newSessionRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		root string
		all  bool
	)
	cmd := &cobra.Command{
		Use:   "rm <id> | rm --all",
		Short: "Remove a session, or every session of a project root",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := namesOrAll(&all, "session id")(cmd, args); err != nil {
				return err
			}
			if len(args) > 1 {
				return NewExitError(ExitCommandError, "accepts one session id")
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rootOpts.App(cmd)
			if err != nil {
				return err
			}
			if all {
				r, err := resolveRoot(root)
				if err != nil {
					return err
				}
				if err := app.Sessions.DeleteRoot(cmd.Context(), r); err != nil {
					return failure("failed to remove sessions", err)
				}
				return rootOpts.Formatter(cmd).Render(map[string]string{"root": r, "removed": "all"}, func(w io.Writer) {
					fmt.Fprintf(w, "Removed all sessions of %s\n", r)
				})
			}
			if err := app.Sessions.Delete(cmd.Context(), args[0]); err != nil {
				return failure("failed to remove session", err)
			}
			return rootOpts.Formatter(cmd).Render(map[string]string{"removed": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Removed session %s\n", args[0])
			})
		},
	}
	addRootFlag(cmd, &root)
	cmd.Flags().BoolVar(&all, "all", false, "remove every session of the root")
	return cmd
}

func writeSessionLine(w io.Writer, s record.Session) {
	opened := "never"
	if s.LastOpenedAt != nil {
		opened = s.LastOpenedAt.Local().Format(time.DateTime)
	}
	fmt.Fprintf(w, "%s  %-20s %s (last opened %s)\n", s.ID, s.Name, s.RootPath, opened)
}
