// Package understanding owns every prompt sent to the language model and the
// interpretation of its answers: feedback classification, per-category field
// extraction, and ticket critique.
//
// Stages depend on the Client interface rather than the HTTP transport, so
// tests substitute deterministic fakes. The production Service marks failures
// with the services error markers that drive the workflow's retry decisions.
package understanding
