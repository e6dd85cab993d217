// Package workflow drives feedback items through the triage pipeline.
//
// The manager owns the state machine: workers claim pending items atomically
// from the queue, each claimed item runs classification, extraction, and
// review in order, and every status transition lands in the audit trail
// before the next stage starts. Transient stage failures are retried with
// exponential backoff against a per-item budget; anything else terminates
// the item as failed. Exactly one terminal status is recorded per item, even
// on cancellation.
package workflow
