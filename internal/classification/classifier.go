// Package classification implements the first pipeline stage: sorting raw
// feedback into a ticket category with a confidence score.
package classification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"triage/internal/config"
	"triage/internal/logging"
	"triage/internal/queue"
	"triage/internal/services"
	"triage/internal/stage"
	"triage/internal/ticket"
	"triage/internal/understanding"
)

// Classifier assigns a category to claimed feedback items. Items that cannot
// be classified confidently terminate here without reaching extraction.
type Classifier struct {
	cfg    *config.Config
	client understanding.Client
	logger *slog.Logger
}

// NewClassifier constructs the classification stage handler.
func NewClassifier(cfg *config.Config, client understanding.Client, logger *slog.Logger) *Classifier {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "classification"))
	}
	return &Classifier{cfg: cfg, client: client, logger: stageLogger}
}

var _ stage.Handler = (*Classifier)(nil)

func (c *Classifier) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, c.logger)
	item.ErrorMessage = ""
	logger.Info("starting classification",
		logging.String("feedback_id", item.FeedbackID),
		logging.String("source", string(item.Source)),
	)
	return nil
}

func (c *Classifier) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, c.logger)

	// Empty feedback is decided locally; the model never sees it.
	if strings.TrimSpace(item.Text) == "" {
		c.terminateUnclassified(item, "empty feedback text")
		logger.Info("empty feedback rejected without model call",
			logging.String("feedback_id", item.FeedbackID))
		return nil
	}

	classification, err := c.client.Classify(ctx, item.Text)
	if err != nil {
		return services.Wrap(
			services.ErrClassificationUnavailable,
			"classification",
			"classify feedback",
			"Classification service unavailable; item will be retried",
			err,
		)
	}

	item.Category = classification.Category
	item.Confidence = classification.Confidence

	switch {
	case classification.Category == ticket.CategoryUnclassified:
		c.terminateUnclassified(item, firstNonEmpty(classification.Reason, "model returned unclassified"))
		logger.Info("feedback unclassified",
			logging.String("feedback_id", item.FeedbackID),
			logging.String("reason", classification.Reason),
		)
	case classification.Confidence < c.cfg.Workflow.ConfidenceThreshold:
		item.Status = queue.StatusRejected
		item.FailureReason = queue.ReasonLowConfidence
		item.ErrorMessage = fmt.Sprintf("confidence %.2f below threshold %.2f for category %s",
			classification.Confidence, c.cfg.Workflow.ConfidenceThreshold, classification.Category)
		logger.Info("classification below confidence threshold",
			logging.String("feedback_id", item.FeedbackID),
			logging.String("category", string(classification.Category)),
			logging.Float64("confidence", classification.Confidence),
		)
	default:
		item.Status = queue.StatusClassified
		logger.Info("feedback classified",
			logging.String("feedback_id", item.FeedbackID),
			logging.String("category", string(classification.Category)),
			logging.Float64("confidence", classification.Confidence),
		)
	}
	return nil
}

func (c *Classifier) terminateUnclassified(item *queue.Item, reason string) {
	item.Category = ticket.CategoryUnclassified
	item.Confidence = 0
	item.Status = queue.StatusRejected
	item.FailureReason = queue.ReasonLowConfidence
	item.ErrorMessage = reason
	if c.cfg.Workflow.RouteUnclassifiedToReview {
		item.NeedsReview = true
		item.ReviewReason = reason
	}
}

func (c *Classifier) HealthCheck(ctx context.Context) stage.Health {
	if err := c.client.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("classification", err.Error())
	}
	return stage.Healthy("classification")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
