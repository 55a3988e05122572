package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewOverrideCommand creates the override command.
func NewOverrideCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		actor  string
		reason string
		atFlag string
	)

	cmd := &cobra.Command{
		Use:   "override <occurrence-id>",
		Short: "Override a missed occurrence",
		Long: `Flip a MISSED occurrence to COMPLETED with an override record.

Only MISSED occurrences can be overridden, and a justification is
mandatory. The override keeps the occurrence distinguishable from an
organic completion in reports and audits.

Example:
  coldtrack override 0190b6a2-... --actor supervisor-1 \
    --reason "sensor outage, reading taken manually"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, st, err := openEngine(rootOpts)
			if err != nil {
				return err
			}
			defer st.Close()

			at, err := parseTimeFlag(atFlag, time.Now().UTC())
			if err != nil {
				return err
			}

			if err := eng.Override(cmd.Context(), args[0], actor, reason, at); err != nil {
				return domainExit(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "occurrence %s overridden\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "user performing the override")
	cmd.Flags().StringVar(&reason, "reason", "", "justification for the override")
	cmd.Flags().StringVar(&atFlag, "at", "", "override instant (RFC 3339, default: current time)")
	cmd.MarkFlagRequired("actor")
	cmd.MarkFlagRequired("reason")

	return cmd
}
