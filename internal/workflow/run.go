package workflow

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"triage/internal/logging"
	"triage/internal/notifications"
	"triage/internal/queue"
	"triage/internal/services"
)

// Summary reports the outcome of one batch run.
type Summary struct {
	BatchID   string
	Processed int
	Accepted  int
	Rejected  int
	Failed    int
	Revisions int
	Duration  time.Duration
}

// Run processes every pending item with the configured worker pool and
// blocks until the queue drains or the context is cancelled. Metrics for the
// batch are persisted before returning.
func (m *Manager) Run(ctx context.Context, batchID string) (Summary, error) {
	start := time.Now()
	health, err := m.store.Health(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("inspect queue: %w", err)
	}

	m.logger.Info("batch started",
		logging.String(logging.FieldBatchID, batchID),
		logging.Int("pending", health.Pending),
		logging.Int("workers", m.cfg.Workflow.WorkerCount),
	)
	m.publish(ctx, notifications.EventBatchStarted, notifications.Payload{
		"batch_id": batchID,
		"count":    strconv.Itoa(health.Pending),
	})

	var (
		wg        sync.WaitGroup
		accepted  atomic.Int64
		rejected  atomic.Int64
		failed    atomic.Int64
		revisions atomic.Int64
	)

	workers := m.cfg.Workflow.WorkerCount
	if workers < 1 {
		workers = 1
	}
	runCtx := services.WithBatchID(ctx, batchID)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if runCtx.Err() != nil {
					return
				}
				item, err := m.store.ClaimNextPending(runCtx)
				if err != nil {
					m.logger.Error("failed to claim next item", logging.Error(err))
					return
				}
				if item == nil {
					return
				}
				item.BatchID = batchID

				final := m.driveItem(runCtx, item)
				revisions.Add(int64(final.RevisionCount))
				switch final.Status {
				case queue.StatusAccepted:
					accepted.Add(1)
				case queue.StatusRejected:
					rejected.Add(1)
				default:
					failed.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	summary := Summary{
		BatchID:   batchID,
		Accepted:  int(accepted.Load()),
		Rejected:  int(rejected.Load()),
		Failed:    int(failed.Load()),
		Revisions: int(revisions.Load()),
		Duration:  time.Since(start).Round(time.Millisecond),
	}
	summary.Processed = summary.Accepted + summary.Rejected + summary.Failed

	// Cancellation must still leave metrics and a closing notification
	// behind, so the bookkeeping runs on a detached context.
	tailCtx := context.WithoutCancel(runCtx)
	m.recordMetrics(tailCtx, summary)
	m.publish(tailCtx, notifications.EventBatchCompleted, notifications.Payload{
		"batch_id": batchID,
		"accepted": strconv.Itoa(summary.Accepted),
		"rejected": strconv.Itoa(summary.Rejected),
		"failed":   strconv.Itoa(summary.Failed),
		"duration": summary.Duration.String(),
	})
	m.logger.Info("batch completed",
		logging.String(logging.FieldBatchID, batchID),
		logging.Int("processed", summary.Processed),
		logging.Int("accepted", summary.Accepted),
		logging.Int("rejected", summary.Rejected),
		logging.Int("failed", summary.Failed),
		logging.Int("revisions", summary.Revisions),
		logging.Duration("duration", summary.Duration),
	)

	return summary, ctx.Err()
}

func (m *Manager) recordMetrics(ctx context.Context, summary Summary) {
	metrics := []struct {
		name  string
		value float64
	}{
		{"items_processed", float64(summary.Processed)},
		{"items_accepted", float64(summary.Accepted)},
		{"items_rejected", float64(summary.Rejected)},
		{"items_failed", float64(summary.Failed)},
		{"revision_passes", float64(summary.Revisions)},
		{"duration_seconds", summary.Duration.Seconds()},
	}
	for _, metric := range metrics {
		if err := m.store.AppendMetric(ctx, summary.BatchID, metric.name, metric.value); err != nil {
			m.logger.Error("failed to record batch metric",
				logging.String("metric", metric.name),
				logging.Error(err),
			)
		}
	}
}

func (m *Manager) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		m.logger.Warn("notification failed",
			logging.String("event", string(event)),
			logging.Error(err),
		)
	}
}
