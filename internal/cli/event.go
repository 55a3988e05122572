package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/coldtrack/coldtrack/internal/engine"
)

// NewLogReadingCommand creates the log-reading command.
func NewLogReadingCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		owner  string
		value  float64
		atFlag string
		by     string
		onTime bool
	)

	cmd := &cobra.Command{
		Use:   "log-reading",
		Short: "Reconcile a temperature reading",
		Long: `Match a logged temperature reading to the occurrence it satisfies.

The target occurrence is resolved from --at in the owner's timezone. If
generation has not produced the occurrence yet, it is created directly in
COMPLETED state. A reading for an already-completed occurrence corrects
its payload (last-write-wins) while keeping the original completion time.

Pass --on-time to assert on-time-ness for submissions captured offline and
synced later; otherwise the engine computes it from the due interval.

Example:
  coldtrack log-reading --owner fridge-1/am --value 4.2 --by nurse-7 \
    --at 2024-01-15T09:12:00-05:00`,
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

			ev := engine.ReadingEvent{
				OwnerID:    owner,
				OccurredAt: at,
				Value:      value,
				RecordedBy: by,
			}
			if cmd.Flags().Changed("on-time") {
				ev.OnTimeHint = &onTime
			}

			result, err := eng.ReconcileReading(cmd.Context(), ev)
			if err != nil {
				return domainExit(err)
			}
			return printResult(cmd.OutOrStdout(), rootOpts.Format, result)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner lineage the reading belongs to")
	cmd.Flags().Float64Var(&value, "value", 0, "temperature value")
	cmd.Flags().StringVar(&atFlag, "at", "", "instant the reading was taken (RFC 3339, default: current time)")
	cmd.Flags().StringVar(&by, "by", "", "user who recorded the reading")
	cmd.Flags().BoolVar(&onTime, "on-time", false, "assert on-time-ness instead of computing it")
	cmd.MarkFlagRequired("owner")
	cmd.MarkFlagRequired("value")
	cmd.MarkFlagRequired("by")

	return cmd
}

// NewCompleteCommand creates the complete command.
func NewCompleteCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		owner  string
		atFlag string
		by     string
		items  []string
	)

	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Reconcile a checklist submission",
		Long: `Match a submitted checklist response set to the occurrence it satisfies.

Items are given as repeated --item flags of the form ID, ID:note, or
ID:note:unchecked. Items default to acknowledged.

Example:
  coldtrack complete --owner checklist-42 --by tech-3 \
    --item probe-calibrated --item "door-seal:worn, replace soon"`,
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

			ev := engine.ChecklistEvent{
				OwnerID:     owner,
				OccurredAt:  at,
				CompletedBy: by,
				Items:       parseItems(items),
			}

			result, err := eng.ReconcileChecklist(cmd.Context(), ev)
			if err != nil {
				return domainExit(err)
			}
			return printResult(cmd.OutOrStdout(), rootOpts.Format, result)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner lineage the submission belongs to")
	cmd.Flags().StringVar(&atFlag, "at", "", "submission instant (RFC 3339, default: current time)")
	cmd.Flags().StringVar(&by, "by", "", "user who completed the checklist")
	cmd.Flags().StringArrayVar(&items, "item", nil, "checklist item, as ID[:note[:unchecked]]; repeatable")
	cmd.MarkFlagRequired("owner")
	cmd.MarkFlagRequired("by")

	return cmd
}

// parseItems splits repeated --item values into checklist items.
func parseItems(raw []string) []engine.ChecklistItem {
	items := make([]engine.ChecklistItem, 0, len(raw))
	for _, r := range raw {
		parts := strings.SplitN(r, ":", 3)
		item := engine.ChecklistItem{ItemID: parts[0], Acknowledged: true}
		if len(parts) > 1 {
			item.Note = parts[1]
		}
		if len(parts) > 2 && parts[2] == "unchecked" {
			item.Acknowledged = false
		}
		items = append(items, item)
	}
	return items
}
