package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/coldtrack/coldtrack/internal/engine"
)

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		owner     string
		from      string
		to        string
		nowFlag   string
		backfill  int
		lookahead int
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate required occurrences for an owner",
		Long: `Expand the owner's active definition into REQUIRED occurrences.

With --from and --to, expands exactly the half-open date range [from, to).
Without them, applies the default policy window around --now: --backfill
days into the past and --lookahead days forward, with day boundaries taken
in the owner's timezone.

Idempotent: existing occurrences are never touched, so this is safe to run
from cron and to retry after partial failures.

Example:
  coldtrack generate --owner fridge-1/am --from 2024-01-01 --to 2024-02-01`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, st, err := openEngine(rootOpts)
			if err != nil {
				return err
			}
			defer st.Close()

			now, err := parseTimeFlag(nowFlag, time.Now().UTC())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			var result engine.GenerateResult
			if from != "" || to != "" {
				if from == "" || to == "" {
					return NewExitError(ExitCommandError, "--from and --to must be given together")
				}
				result, err = eng.Generate(ctx, owner, from, to)
			} else {
				result, err = eng.GenerateAround(ctx, owner, now, backfill, lookahead)
			}
			if err != nil {
				return domainExit(err)
			}
			return printResult(cmd.OutOrStdout(), rootOpts.Format, result)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner lineage to generate for")
	cmd.Flags().StringVar(&from, "from", "", "range start date (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringVar(&to, "to", "", "range end date (YYYY-MM-DD, exclusive)")
	cmd.Flags().StringVar(&nowFlag, "now", "", "anchor instant for the default window (RFC 3339, default: current time)")
	cmd.Flags().IntVar(&backfill, "backfill", engine.DefaultBackfillDays, "days to backfill when no range is given")
	cmd.Flags().IntVar(&lookahead, "lookahead", engine.DefaultLookaheadDays, "days to pre-generate when no range is given")
	cmd.MarkFlagRequired("owner")

	return cmd
}
