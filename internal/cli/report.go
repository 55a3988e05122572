package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/coldtrack/coldtrack/internal/report"
)

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		owners   []string
		fromFlag string
		toFlag   string
		nowFlag  string
		trend    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Compute compliance rates for a period",
		Long: `Aggregate occurrence outcomes over [--from, --to) into completion and
on-time rates, facility-wide and grouped per owner and per target key.

Repeat --owner to restrict the report; omit it to cover every owner.
Future occurrences (due interval not yet started as of --now) are
excluded from the denominator. With --trend, emits a series of
sub-period buckets of that width instead of a single report.

Example:
  coldtrack report --from 2024-01-01T00:00:00Z --to 2024-02-01T00:00:00Z \
    --owner fridge-1/am --trend 168h`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(rootOpts)
			if err != nil {
				return err
			}
			defer st.Close()

			now, err := parseTimeFlag(nowFlag, time.Now().UTC())
			if err != nil {
				return err
			}
			from, err := parseTimeFlag(fromFlag, now.AddDate(0, 0, -30))
			if err != nil {
				return err
			}
			to, err := parseTimeFlag(toFlag, now)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if trend > 0 {
				points, err := report.Trend(ctx, st, owners, from, to, trend, now)
				if err != nil {
					return WrapExitError(ExitFailure, "computing trend", err)
				}
				return printResult(cmd.OutOrStdout(), rootOpts.Format, points)
			}

			rep, err := report.Aggregate(ctx, st, owners, report.Period{From: from, To: to}, now)
			if err != nil {
				return WrapExitError(ExitFailure, "computing report", err)
			}
			return printResult(cmd.OutOrStdout(), rootOpts.Format, rep)
		},
	}

	cmd.Flags().StringArrayVar(&owners, "owner", nil, "owner lineage to include; repeatable (default: all)")
	cmd.Flags().StringVar(&fromFlag, "from", "", "period start (RFC 3339, default: 30 days ago)")
	cmd.Flags().StringVar(&toFlag, "to", "", "period end (RFC 3339, default: now)")
	cmd.Flags().StringVar(&nowFlag, "now", "", "reference instant for due-yet cutoff (RFC 3339, default: current time)")
	cmd.Flags().DurationVar(&trend, "trend", 0, "emit a trend series with sub-periods of this width (e.g. 168h)")

	return cmd
}
