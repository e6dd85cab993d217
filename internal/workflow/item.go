package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"triage/internal/logging"
	"triage/internal/notifications"
	"triage/internal/queue"
	"triage/internal/services"
	"triage/internal/stage"
)

// driveItem runs one claimed item through the state machine until it reaches
// a terminal status. Returns the item in its final state; persistence
// failures terminate the item as failed rather than leaving it in flight.
func (m *Manager) driveItem(ctx context.Context, item *queue.Item) *queue.Item {
	itemCtx := services.WithItemID(ctx, item.ID)
	logger := m.logger.With(
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldFeedbackID, item.FeedbackID),
	)

	// The claim already moved the item from pending; audit that transition
	// before the first stage runs.
	m.audit(itemCtx, item, "claim", queue.StatusPending, item.Status, "claimed by worker")
	if err := m.store.Update(itemCtx, item); err != nil {
		m.persistFailure(itemCtx, item, logger, err)
		return item
	}

	for !item.Status.IsTerminal() {
		if ctx.Err() != nil {
			m.finalizeCancelled(itemCtx, item, logger)
			break
		}

		handler, stageName := m.handlerFor(item.Status)
		if handler == nil {
			item.SetFailed("Unknown", "no stage configured for status "+string(item.Status))
			m.persistTerminal(itemCtx, item, stageName, item.Status, logger)
			break
		}
		stageCtx := services.WithStage(itemCtx, stageName)
		from := item.Status

		if err := handler.Prepare(stageCtx, item); err != nil {
			m.failItem(stageCtx, item, stageName, from, err, logger)
			break
		}
		if item.Status != from {
			m.audit(stageCtx, item, stageName, from, item.Status, "")
			if err := m.store.Update(stageCtx, item); err != nil {
				m.persistFailure(stageCtx, item, logger, err)
				break
			}
			from = item.Status
		}

		execErr := m.executeWithRetry(stageCtx, handler, item, stageName, logger)
		if execErr != nil {
			if errors.Is(execErr, context.Canceled) || errors.Is(execErr, context.DeadlineExceeded) {
				m.finalizeCancelled(stageCtx, item, logger)
				break
			}
			m.failItem(stageCtx, item, stageName, from, execErr, logger)
			break
		}

		m.audit(stageCtx, item, stageName, from, item.Status, item.ErrorMessage)
		if err := m.store.Update(stageCtx, item); err != nil {
			m.persistFailure(stageCtx, item, logger, err)
			break
		}
	}

	if item.Status.IsTerminal() {
		m.announceTerminal(context.WithoutCancel(itemCtx), item, logger)
	}
	return item
}

// executeWithRetry runs the stage's Execute, retrying transient failures
// with exponential backoff while the item's retry budget lasts.
func (m *Manager) executeWithRetry(ctx context.Context, handler stage.Handler, item *queue.Item, stageName string, logger *slog.Logger) error {
	for {
		err := handler.Execute(ctx, item)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		if !services.IsTransient(err) || item.RetryCount >= m.cfg.Workflow.RetryAttempts {
			return err
		}

		item.RetryCount++
		logger.Warn("transient stage failure, retrying",
			logging.String(logging.FieldStage, stageName),
			logging.String("error_kind", services.Kind(err)),
			logging.Int("retry", item.RetryCount),
			logging.Int("retry_limit", m.cfg.Workflow.RetryAttempts),
			logging.Error(err),
		)
		if updateErr := m.store.Update(ctx, item); updateErr != nil {
			return updateErr
		}
		if sleepErr := m.sleepBackoff(ctx, item.RetryCount); sleepErr != nil {
			return sleepErr
		}
	}
}

func (m *Manager) sleepBackoff(ctx context.Context, retry int) error {
	base := time.Duration(m.cfg.Workflow.RetryBackoffMS) * time.Millisecond
	maxDelay := time.Duration(m.cfg.Workflow.RetryBackoffMaxMS) * time.Millisecond
	if base <= 0 {
		return ctx.Err()
	}

	delay := base
	for i := 1; i < retry; i++ {
		if maxDelay > 0 && delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	if maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// failItem stamps a terminal failure derived from the stage error.
func (m *Manager) failItem(ctx context.Context, item *queue.Item, stageName string, from queue.Status, stageErr error, logger *slog.Logger) {
	kind := services.Kind(stageErr)
	item.SetFailed(kind, stageErr.Error())
	logger.Error("stage failed",
		logging.String(logging.FieldStage, stageName),
		logging.String("error_kind", kind),
		logging.Int("retries", item.RetryCount),
		logging.Alert("stage_failure"),
		logging.Error(stageErr),
	)
	m.persistTerminal(ctx, item, stageName, from, logger)
}

// finalizeCancelled records the one allowed terminal outcome for an item
// interrupted mid-flight. Bookkeeping runs on a detached context so shutdown
// cannot strand the item in a processing status.
func (m *Manager) finalizeCancelled(ctx context.Context, item *queue.Item, logger *slog.Logger) {
	detached := context.WithoutCancel(ctx)
	from := item.Status
	item.SetFailed(queue.ReasonCancelled, "run cancelled before item completed")
	logger.Info("item cancelled",
		logging.String("from_status", string(from)),
	)
	m.persistTerminal(detached, item, "cancellation", from, logger)
}

func (m *Manager) persistTerminal(ctx context.Context, item *queue.Item, stageName string, from queue.Status, logger *slog.Logger) {
	detached := context.WithoutCancel(ctx)
	m.audit(detached, item, stageName, from, item.Status, item.ErrorMessage)
	if err := m.store.Update(detached, item); err != nil {
		logger.Error("failed to persist terminal status", logging.Error(err))
	}
}

func (m *Manager) persistFailure(ctx context.Context, item *queue.Item, logger *slog.Logger, persistErr error) {
	from := item.Status
	item.SetFailed("Unknown", "persist item state: "+persistErr.Error())
	logger.Error("failed to persist item state", logging.Error(persistErr))
	m.persistTerminal(ctx, item, "persistence", from, logger)
}

func (m *Manager) audit(ctx context.Context, item *queue.Item, stageName string, from, to queue.Status, detail string) {
	if from == to {
		return
	}
	record := queue.AuditRecord{
		ItemID:     item.ID,
		FeedbackID: item.FeedbackID,
		Stage:      stageName,
		FromStatus: from,
		ToStatus:   to,
		Detail:     detail,
	}
	if err := m.store.AppendAudit(ctx, record); err != nil {
		m.logger.Error("failed to append audit record",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.Error(err),
		)
	}
}

func (m *Manager) announceTerminal(ctx context.Context, item *queue.Item, logger *slog.Logger) {
	logger.Info("item finished",
		logging.String("status", string(item.Status)),
		logging.String("reason", item.FailureReason),
		logging.Int("revisions", item.RevisionCount),
	)
	if item.Status == queue.StatusFailed {
		m.publish(ctx, notifications.EventItemFailed, notifications.Payload{
			"feedback_id": item.FeedbackID,
			"reason":      item.FailureReason,
		})
	}
	if item.NeedsReview {
		m.publish(ctx, notifications.EventManualReview, notifications.Payload{
			"feedback_id": item.FeedbackID,
			"reason":      item.ReviewReason,
		})
	}
}
