// Package config loads, validates, and normalizes the TOML configuration that
// drives the triage pipeline.
//
// Configuration is resolved from an explicit path, ~/.config/triage/config.toml,
// or a project-local triage.toml, in that order. Defaults cover every key so an
// empty file (or no file at all) yields a runnable configuration. Paths are
// tilde-expanded and made absolute during normalization; validation rejects
// values that cannot be repaired.
//
// The resulting Config is treated as read-only once the workflow starts.
package config
