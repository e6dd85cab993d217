// Package llm provides the transport layer for OpenRouter-compatible chat
// completion APIs.
//
// The client speaks JSON-only completions: every request pins temperature to
// zero and asks for a json_object response, and DecodeLLMJSON tolerates the
// fenced or prose-wrapped payloads some models emit anyway. Transient
// failures (HTTP 408/429/5xx, timeouts, empty completions) are retried with
// exponential backoff, honoring Retry-After when the provider sends one. A
// shared token-bucket limiter throttles concurrent workers.
//
// Domain prompts do not live here; the understanding package owns what is
// asked and how answers are interpreted.
package llm
