package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"triage/internal/config"
	"triage/internal/export"
	"triage/internal/logging"
	"triage/internal/queue"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write ticket, log, metric, and review-bucket CSVs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					return fmt.Errorf("init logger: %w", err)
				}
				paths, err := export.New(cfg, store, logger).Run(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, path := range paths {
					fmt.Fprintln(out, path)
				}
				return nil
			})
		},
	}
}
