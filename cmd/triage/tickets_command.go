package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"triage/internal/config"
	"triage/internal/queue"
)

func newTicketsCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "List generated tickets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				tickets, err := store.ListTickets(cmd.Context())
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(tickets))
				for _, tk := range tickets {
					if statusFilter != "" && string(tk.Status) != statusFilter {
						continue
					}
					rows = append(rows, []string{
						tk.TicketID,
						tk.FeedbackID,
						string(tk.Category),
						string(tk.Status),
						strconv.Itoa(tk.RevisionCount),
					})
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No tickets")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Ticket", "Feedback", "Category", "Status", "Revisions"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&statusFilter, "status", "s", "", "Filter by ticket status (accepted or rejected)")
	return cmd
}
