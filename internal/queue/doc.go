// Package queue persists feedback items and their pipeline state in SQLite.
//
// The store is the single source of truth for the state machine: workers
// claim pending items atomically, stages write their output back through
// Update, and terminal outcomes land in the tickets, audit_records, and
// metrics tables that the export command reads.
package queue
