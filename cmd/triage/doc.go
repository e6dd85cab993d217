// Package main hosts the triage CLI entrypoint and command graph.
//
// The Cobra-based command tree covers the full batch lifecycle: ingesting
// feedback CSVs, running the classification pipeline, inspecting the queue,
// exporting results, and configuration scaffolding. It centralizes config
// resolution and structured logging setup so subcommands can focus on user
// experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
