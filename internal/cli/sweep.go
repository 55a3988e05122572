package cli

import (
	"time"

	"github.com/spf13/cobra"
)

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	var asOfFlag string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Mark overdue occurrences as missed",
		Long: `Transition every REQUIRED occurrence whose due interval ended before
--as-of to MISSED. Idempotent; run it from a periodic scheduler.

Example:
  coldtrack sweep --as-of 2024-01-15T00:00:00Z`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, st, err := openEngine(rootOpts)
			if err != nil {
				return err
			}
			defer st.Close()

			asOf, err := parseTimeFlag(asOfFlag, time.Now().UTC())
			if err != nil {
				return err
			}

			result, err := eng.Sweep(cmd.Context(), asOf)
			if err != nil {
				return domainExit(err)
			}
			return printResult(cmd.OutOrStdout(), rootOpts.Format, result)
		},
	}

	cmd.Flags().StringVar(&asOfFlag, "as-of", "", "sweep cutoff instant (RFC 3339, default: current time)")

	return cmd
}
