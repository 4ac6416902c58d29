package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/devstash/internal/record"
)

// NewTerminalCommand creates the terminal command group.
func NewTerminalCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "terminal",
		Short: "Manage terminal collections",
	}
	cmd.AddCommand(newTerminalListCommand(rootOpts))
	cmd.AddCommand(newTerminalAddCommand(rootOpts))
	cmd.AddCommand(newTerminalRemoveCommand(rootOpts))
	return cmd
}

func newTerminalListCommand(rootOpts *RootOptions) *cobra.Command {
	var root string
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List terminal collections for a project root",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rootOpts.App(cmd)
			if err != nil {
				return err
			}
			r, err := resolveRoot(root)
			if err != nil {
				return err
			}
			items, err := app.Terminals.List(cmd.Context(), r)
			if err != nil {
				return failure("failed to list terminal collections", err)
			}
			return rootOpts.Formatter(cmd).Render(items, func(w io.Writer) {
				if len(items) == 0 {
					fmt.Fprintf(w, "No terminal collections for %s\n", r)
					return
				}
				for _, tc := range items {
					layout := tc.Layout
					if layout == "" {
						layout = record.LayoutTabs
					}
					fmt.Fprintf(w, "%s (%s)\n", tc.Name, layout)
					for _, t := range tc.Terminals {
						fmt.Fprintf(w, "  %-16s %s\n", t.Name, t.Command)
					}
				}
			})
		},
	}
	addRootFlag(cmd, &root)
	return cmd
}

func newTerminalAddCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		root   string
		layout string
		terms  []string
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a terminal collection",
		Long: `Add a terminal collection to a project root.

Each --term is NAME or NAME=COMMAND.

Example:
  devstash terminal add dev --layout split --term server="go run ./cmd/api" --term shell`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rootOpts.App(cmd)
			if err != nil {
				return err
			}
			r, err := resolveRoot(root)
			if err != nil {
				return err
			}
			tc := record.TerminalCollection{Name: args[0], Layout: layout, Terminals: []record.Terminal{}}
			for _, t := range terms {
				name, command, _ := strings.Cut(t, "=")
				tc.Terminals = append(tc.Terminals, record.Terminal{Name: name, Command: command})
			}
			created, err := app.Terminals.Create(cmd.Context(), r, tc)
			if err != nil {
				return failure("failed to add terminal collection", err)
			}
			return rootOpts.Formatter(cmd).Render(created, func(w io.Writer) {
				fmt.Fprintf(w, "Added terminal collection %q with %d terminals\n", created.Name, len(created.Terminals))
			})
		},
	}
	addRootFlag(cmd, &root)
	cmd.Flags().StringVar(&layout, "layout", "", "layout (tabs|split|windows)")
	cmd.Flags().StringArrayVar(&terms, "term", nil, "terminal NAME or NAME=COMMAND (repeatable)")
	return cmd
}

func newTerminalRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		root string
		all  bool
	)
	cmd := &cobra.Command{
		Use:   "rm <name> | rm --all",
		Short: "Remove a terminal collection",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := namesOrAll(&all, "terminal collection name")(cmd, args); err != nil {
				return err
			}
			if len(args) > 1 {
				return NewExitError(ExitCommandError, "accepts one terminal collection name")
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
			r, err := resolveRoot(root)
			if err != nil {
				return err
			}
			if all {
				if err := app.Terminals.DeleteRoot(cmd.Context(), r); err != nil {
					return failure("failed to remove terminal collections", err)
				}
				return rootOpts.Formatter(cmd).Render(map[string]string{"root": r, "removed": "all"}, func(w io.Writer) {
					fmt.Fprintf(w, "Removed all terminal collections from %s\n", r)
				})
			}
			if err := app.Terminals.Delete(cmd.Context(), r, args[0]); err != nil {
				return failure("failed to remove terminal collection", err)
			}
			return rootOpts.Formatter(cmd).Render(map[string]string{"root": r, "removed": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Removed terminal collection %q\n", args[0])
			})
		},
	}
	addRootFlag(cmd, &root)
	cmd.Flags().BoolVar(&all, "all", false, "remove every terminal collection of the root")
	return cmd
}
