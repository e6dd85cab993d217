package workflow

import (
	"context"
	"log/slog"

	"triage/internal/classification"
	"triage/internal/config"
	"triage/internal/extraction"
	"triage/internal/logging"
	"triage/internal/notifications"
	"triage/internal/queue"
	"triage/internal/review"
	"triage/internal/stage"
	"triage/internal/understanding"
)

// Manager drives claimed feedback items through the pipeline state machine
// with a bounded worker pool. Every status transition is persisted and
// audited before the next stage runs.
type Manager struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	notifier notifications.Service

	classifier stage.Handler
	extractor  stage.Handler
	reviewer   stage.Handler
}

// NewManager constructs a workflow manager with production stage handlers.
func NewManager(cfg *config.Config, store *queue.Store, client understanding.Client, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, client, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier allows injecting the notifier (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, client understanding.Client, logger *slog.Logger, notifier notifications.Service) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:        cfg,
		store:      store,
		logger:     logger.With(logging.String("component", "workflow")),
		notifier:   notifier,
		classifier: classification.NewClassifier(cfg, client, logger),
		extractor:  extraction.NewExtractor(cfg, client, logger),
		reviewer:   review.NewReviewer(cfg, client, store, logger),
	}
}

// handlerFor maps a non-terminal status to the stage that owns it. The
// in-flight statuses map to the same handler as their inbound status so a
// retried item resumes where it stopped.
func (m *Manager) handlerFor(status queue.Status) (stage.Handler, string) {
	switch status {
	case queue.StatusPending, queue.StatusClassifying:
		return m.classifier, "classification"
	case queue.StatusClassified, queue.StatusExtracting:
		return m.extractor, "extraction"
	case queue.StatusExtracted, queue.StatusReviewing:
		return m.reviewer, "review"
	default:
		return nil, ""
	}
}

// HealthCheck aggregates stage readiness. The three stages share one
// transport, but each reports independently so a partial outage is visible.
func (m *Manager) HealthCheck(ctx context.Context) []stage.Health {
	return []stage.Health{
		m.classifier.HealthCheck(ctx),
		m.extractor.HealthCheck(ctx),
		m.reviewer.HealthCheck(ctx),
	}
}
