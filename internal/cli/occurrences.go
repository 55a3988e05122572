package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/coldtrack/coldtrack/internal/rule"
)

// NewOccurrencesCommand creates the occurrences command.
func NewOccurrencesCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		owner    string
		fromFlag string
		toFlag   string
	)

	cmd := &cobra.Command{
		Use:   "occurrences",
		Short: "List occurrences for an owner",
		Long: `List the occurrences of an owner whose due intervals overlap
[--from, --to), ordered by due start.

Example:
  coldtrack occurrences --owner fridge-1/am \
    --from 2024-01-01T00:00:00Z --to 2024-02-01T00:00:00Z`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(rootOpts)
			if err != nil {
				return err
			}
			defer st.Close()

			now := time.Now().UTC()
			from, err := parseTimeFlag(fromFlag, now.AddDate(0, 0, -30))
			if err != nil {
				return err
			}
			to, err := parseTimeFlag(toFlag, now.AddDate(0, 0, 30))
			if err != nil {
				return err
			}

			occurrences, err := st.ListOccurrences(cmd.Context(), owner, from, to)
			if err != nil {
				return WrapExitError(ExitFailure, "listing occurrences", err)
			}

			if rootOpts.Format == "json" {
				return printResult(cmd.OutOrStdout(), rootOpts.Format, occurrences)
			}
			for _, occ := range occurrences {
				printOccurrence(cmd, occ)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d occurrence(s)\n", len(occurrences))
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner lineage to list")
	cmd.Flags().StringVar(&fromFlag, "from", "", "range start (RFC 3339, default: 30 days ago)")
	cmd.Flags().StringVar(&toFlag, "to", "", "range end (RFC 3339, default: 30 days ahead)")
	cmd.MarkFlagRequired("owner")

	return cmd
}

func printOccurrence(cmd *cobra.Command, occ rule.Occurrence) {
	status := string(occ.Status)
	if occ.Overridden() {
		status += " (override)"
	}
	line := fmt.Sprintf("%s  %-10s  due %s .. %s",
		occ.TargetKey, status,
		occ.DueStart.UTC().Format(time.RFC3339),
		occ.DueEnd.UTC().Format(time.RFC3339))
	if occ.CompletedAt != nil {
		onTime := "late"
		if occ.OnTime {
			onTime = "on time"
		}
		line += fmt.Sprintf("  completed %s by %s (%s)",
			occ.CompletedAt.UTC().Format(time.RFC3339), occ.CompletedBy, onTime)
	}
	fmt.Fprintln(cmd.OutOrStdout(), line)
}
