package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"triage/internal/config"
	"triage/internal/export"
	"triage/internal/ingest"
	"triage/internal/logging"
	"triage/internal/queue"
	"triage/internal/services/llm"
	"triage/internal/understanding"
	"triage/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var skipIngest bool
	var skipExport bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest feedback, process the queue, and export results",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				return runBatch(cmd, cfg, store, skipIngest, skipExport)
			})
		},
	}

	cmd.Flags().BoolVar(&skipIngest, "skip-ingest", false, "Process the existing queue without loading new feedback")
	cmd.Flags().BoolVar(&skipExport, "skip-export", false, "Skip writing CSV artifacts after processing")
	return cmd
}

func runBatch(cmd *cobra.Command, cfg *config.Config, store *queue.Store, skipIngest, skipExport bool) error {
	lock := flock.New(filepath.Join(cfg.Paths.DataDir, "triage.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return errors.New("another triage run is already in progress")
	}
	defer lock.Unlock()

	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	batchID := uuid.NewString()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Batch %s\n", batchID)

	// Items left mid-stage by an interrupted run cannot be claimed again, so
	// fail them up front where `triage queue retry` can pick them up.
	if stale, err := store.FailInFlight(signalCtx, queue.ReasonCancelled, "in-flight when a previous run stopped"); err != nil {
		return fmt.Errorf("recover stale items: %w", err)
	} else if stale > 0 {
		fmt.Fprintf(out, "Marked %d stale in-flight items failed; run 'triage queue retry' to reprocess them\n", stale)
	}

	if !skipIngest {
		result, err := ingest.New(cfg, store, logger).Run(signalCtx, batchID)
		if err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
		fmt.Fprintf(out, "Ingested %d items (%d duplicates, %d skipped)\n", result.Enqueued, result.Duplicate, result.Skipped)
	}

	client := understanding.NewService(llm.NewClient(llmConfig(cfg)))
	manager := workflow.NewManager(cfg, store, client, logger)
	summary, runErr := manager.Run(signalCtx, batchID)

	fmt.Fprintln(out, renderTable(
		[]string{"Processed", "Accepted", "Rejected", "Failed", "Revisions", "Duration"},
		[][]string{{
			strconv.Itoa(summary.Processed),
			strconv.Itoa(summary.Accepted),
			strconv.Itoa(summary.Rejected),
			strconv.Itoa(summary.Failed),
			strconv.Itoa(summary.Revisions),
			summary.Duration.String(),
		}},
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
	))

	if !skipExport {
		// Export even after cancellation so partial results are inspectable.
		paths, err := export.New(cfg, store, logger).Run(context.WithoutCancel(signalCtx))
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		fmt.Fprintf(out, "Wrote %d artifacts to %s\n", len(paths), cfg.Paths.OutputDir)
	}

	return runErr
}

func llmConfig(cfg *config.Config) llm.Config {
	return llm.Config{
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		Model:             cfg.LLM.Model,
		Referer:           cfg.LLM.Referer,
		Title:             cfg.LLM.Title,
		TimeoutSeconds:    cfg.LLM.TimeoutSeconds,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
		RequestBurst:      cfg.LLM.RequestBurst,
	}
}
