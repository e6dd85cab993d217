package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"triage/internal/config"
	"triage/internal/queue"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <feedback-id>",
		Short: "Show one feedback item with its audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				item, err := store.GetByFeedbackID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("no item with feedback id %q", args[0])
				}

				out := cmd.OutOrStdout()
				rows := [][]string{
					{"Feedback ID", item.FeedbackID},
					{"Source", string(item.Source)},
					{"Status", string(item.Status)},
					{"Category", string(item.Category)},
					{"Confidence", strconv.FormatFloat(item.Confidence, 'f', 2, 64)},
					{"Revisions", strconv.Itoa(item.RevisionCount)},
					{"Retries", strconv.Itoa(item.RetryCount)},
					{"Needs review", yesNo(item.NeedsReview)},
					{"Batch", item.BatchID},
				}
				if item.FailureReason != "" {
					rows = append(rows, []string{"Failure reason", item.FailureReason})
				}
				if item.ErrorMessage != "" {
					rows = append(rows, []string{"Error", item.ErrorMessage})
				}
				if item.ReviewReason != "" {
					rows = append(rows, []string{"Review reason", item.ReviewReason})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Field", "Value"},
					rows,
					[]columnAlignment{alignLeft, alignLeft},
				))

				if extraction := item.Extraction(); len(extraction) > 0 {
					fields := make([][]string, 0, len(extraction))
					for _, key := range sortedKeys(extraction) {
						fields = append(fields, []string{key, extraction[key]})
					}
					fmt.Fprintln(out, renderTable(
						[]string{"Extracted Field", "Value"},
						fields,
						[]columnAlignment{alignLeft, alignLeft},
					))
				}
				if notes := item.CriticNotes(); len(notes) > 0 {
					fmt.Fprintf(out, "Critic notes: %s\n", strings.Join(notes, " | "))
				}

				records, err := store.ListAuditForItem(cmd.Context(), item.ID)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					fmt.Fprintln(out, "No audit records")
					return nil
				}
				auditRows := make([][]string, 0, len(records))
				for _, record := range records {
					auditRows = append(auditRows, []string{
						record.RecordedAt.Local().Format(time.DateTime),
						record.Stage,
						string(record.FromStatus),
						string(record.ToStatus),
						record.Detail,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Recorded", "Stage", "From", "To", "Detail"},
					auditRows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func sortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
