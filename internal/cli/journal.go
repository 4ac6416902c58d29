package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/devstash/internal/journal"
)

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	var filter journal.Filter

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recorded store operations",
		Long: `Show recorded store operations, newest first.

Every write, delete, heal and quarantine under the data directory is
recorded unless --no-journal is set.

Examples:
  devstash journal --limit 20
  devstash journal --op heal
  devstash journal --kind scripts --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rootOpts.App(cmd)
			if err != nil {
				return err
			}
			if app.Journal == nil {
				return NewExitError(ExitCommandError, "journal is disabled")
			}
			entries, err := app.Journal.List(cmd.Context(), filter)
			if err != nil {
				return failure("failed to read journal", err)
			}
			return rootOpts.Formatter(cmd).Render(entries, func(w io.Writer) {
				if len(entries) == 0 {
					fmt.Fprintln(w, "(no events)")
					return
				}
				for _, e := range entries {
					fmt.Fprintf(w, "%s  %-14s %-12s %s", e.At.Local().Format(time.DateTime), e.Op, e.Kind, e.Path)
					if e.Detail != "" && rootOpts.Verbose {
						fmt.Fprintf(w, "  %s", e.Detail)
					}
					fmt.Fprintln(w)
				}
			})
		},
	}

	cmd.Flags().StringVar(&filter.Kind, "kind", "", "filter by record kind")
	cmd.Flags().StringVar(&filter.Op, "op", "", "filter by operation (write|delete|quarantine|heal|decrypt_failed)")
	cmd.Flags().IntVar(&filter.Limit, "limit", 50, "maximum number of events (0 for all)")
	return cmd
}
