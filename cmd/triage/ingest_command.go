package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"triage/internal/config"
	"triage/internal/ingest"
	"triage/internal/logging"
	"triage/internal/queue"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Load feedback CSVs into the queue without processing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					return fmt.Errorf("init logger: %w", err)
				}
				result, err := ingest.New(cfg, store, logger).Run(cmd.Context(), uuid.NewString())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d items (%d duplicates, %d skipped)\n",
					result.Enqueued, result.Duplicate, result.Skipped)
				return nil
			})
		},
	}
}
