package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <definitions-dir>",
		Short: "Load CUE rule definitions into the database",
		Long: `Validate the definitions in a directory and save them.

Saving a definition deactivates any prior active definition for the same
owner, so re-loading an edited directory swaps rules atomically per owner.
Nothing is written if any definition fails validation.

Example:
  coldtrack load ./definitions --db coldtrack.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, errs := LoadDefinitions(args[0], LoadModeCollectAll)
			for _, err := range errs {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
			}
			if len(errs) > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d definition error(s), nothing loaded", len(errs)))
			}

			st, err := openStore(rootOpts)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			for _, r := range result.Schedules {
				if err := st.SaveScheduleRule(ctx, r); err != nil {
					return WrapExitError(ExitFailure, fmt.Sprintf("saving schedule for %s", r.OwnerID), err)
				}
			}
			for _, m := range result.Monitors {
				if err := st.SaveWindowMonitor(ctx, m); err != nil {
					return WrapExitError(ExitFailure, fmt.Sprintf("saving monitor for %s", m.OwnerID), err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d schedule(s), %d monitor(s) from %d file(s)\n",
				len(result.Schedules), len(result.Monitors), result.FileCount)
			return nil
		},
	}
	return cmd
}
