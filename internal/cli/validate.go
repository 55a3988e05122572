package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <definitions-dir>",
		Short: "Validate CUE rule definitions without writing",
		Long: `Validate the schedule and monitor definitions in a directory.

All definitions are checked and every error is reported, with CUE file
positions where available. Nothing is written to the database.

Example:
  coldtrack validate ./definitions`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, errs := LoadDefinitions(args[0], LoadModeCollectAll)
			for _, err := range errs {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
			}
			if len(errs) > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d definition error(s)", len(errs)))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d schedule(s), %d monitor(s) in %d file(s)\n",
				len(result.Schedules), len(result.Monitors), result.FileCount)
			return nil
		},
	}
	return cmd
}
