package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"triage/internal/config"
	"triage/internal/logging"
	"triage/internal/queue"
	"triage/internal/services/llm"
	"triage/internal/understanding"
	"triage/internal/workflow"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check pipeline stage readiness and queue state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				client := understanding.NewService(llm.NewClient(llmConfig(cfg)))
				manager := workflow.NewManager(cfg, store, client, logging.NewNop())

				rows := make([][]string, 0, 3)
				unready := 0
				for _, health := range manager.HealthCheck(cmd.Context()) {
					detail := health.Detail
					if detail == "" {
						detail = "ok"
					}
					rows = append(rows, []string{health.Name, yesNo(health.Ready), detail})
					if !health.Ready {
						unready++
					}
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(
					[]string{"Stage", "Ready", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft},
				))

				summary, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Queue: %s (%d items, %d pending)\n", store.Path(), summary.Total, summary.Pending)

				if unready > 0 {
					return fmt.Errorf("%d stages unready", unready)
				}
				return nil
			})
		},
	}
}
