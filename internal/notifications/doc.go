// Package notifications publishes pipeline events to an ntfy topic. Without
// a configured topic every publish is a silent noop, so callers never guard
// the call sites.
package notifications
