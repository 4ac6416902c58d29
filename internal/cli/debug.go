package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/devstash/internal/filestore"
)

// NewDebugCommand creates the debug command group.
func NewDebugCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:    "debug",
		Short:  "Diagnostics",
		Hidden: true,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "metrics",
		Short: "Load every record once and print store counters",
		Long: `Load the config and every collection once, then print the store
counters in Prometheus text format.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rootOpts.App(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			roots, err := app.Scripts.Roots(ctx)
			if err != nil {
				return failure("failed to read scripts", err)
			}
			for _, r := range roots {
				if _, err := app.Scripts.List(ctx, r); err != nil {
					return failure("failed to read scripts", err)
				}
			}
			troots, err := app.Terminals.Roots(ctx)
			if err != nil {
				return failure("failed to read terminal collections", err)
			}
			for _, r := range troots {
				if _, err := app.Terminals.List(ctx, r); err != nil {
					return failure("failed to read terminal collections", err)
				}
			}
			if _, err := app.Sessions.ListAll(ctx); err != nil {
				return failure("failed to read sessions", err)
			}
			filestore.WriteMetrics(cmd.OutOrStdout())
			return nil
		},
	})
	return cmd
}
