// Package services defines shared utilities consumed by the pipeline stage
// handlers and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp feedback item IDs, stage names, and batch
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures as
//     transient (retried by the orchestrator with backoff) or terminal.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
