// Package stage defines the contract between the workflow manager and the
// pipeline stages that move a feedback item toward a terminal outcome.
package stage

import (
	"context"

	"triage/internal/queue"
)

// Handler describes the contract the workflow manager needs from each stage.
// Prepare validates the item's inputs and stamps the in-flight status;
// Execute performs the stage's work and stamps the outbound status. Both
// mutate the item in memory only, persistence belongs to the manager.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
	HealthCheck(context.Context) Health
}
