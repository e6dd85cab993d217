// Package extraction implements the second pipeline stage: pulling the
// category's field contract out of the feedback text.
package extraction

import (
	"context"
	"log/slog"

	"triage/internal/config"
	"triage/internal/logging"
	"triage/internal/queue"
	"triage/internal/services"
	"triage/internal/stage"
	"triage/internal/ticket"
	"triage/internal/understanding"
)

// Extractor produces the structured payload a classified item's category
// demands. Revision passes re-run this stage with the reviewer's notes folded
// into the prompt.
type Extractor struct {
	cfg    *config.Config
	client understanding.Client
	logger *slog.Logger
}

// NewExtractor constructs the extraction stage handler.
func NewExtractor(cfg *config.Config, client understanding.Client, logger *slog.Logger) *Extractor {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "extraction"))
	}
	return &Extractor{cfg: cfg, client: client, logger: stageLogger}
}

var _ stage.Handler = (*Extractor)(nil)

func (e *Extractor) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, e.logger)
	if _, ok := ticket.ContractFields(item.Category); !ok {
		return services.Wrap(
			services.ErrValidation,
			"extraction",
			"validate inputs",
			"Item reached extraction without an extractable category; rerun classification",
			nil,
		)
	}
	item.Status = queue.StatusExtracting
	item.ErrorMessage = ""
	logger.Info("starting extraction",
		logging.String("feedback_id", item.FeedbackID),
		logging.String("category", string(item.Category)),
		logging.Int("revision", item.RevisionCount),
	)
	return nil
}

func (e *Extractor) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, e.logger)

	notes := item.CriticNotes()
	result, err := e.client.ExtractFields(ctx, item.Category, item.Text, notes)
	if err != nil {
		return services.Wrap(
			services.ErrMalformedExtraction,
			"extraction",
			"extract fields",
			"Extraction did not satisfy the category contract; item will be retried",
			err,
		)
	}
	if err := item.SetExtraction(result); err != nil {
		return services.Wrap(services.ErrValidation, "extraction", "store extraction", "Could not encode extraction payload", err)
	}

	item.Status = queue.StatusExtracted
	logger.Info("extraction complete",
		logging.String("feedback_id", item.FeedbackID),
		logging.Int("fields", len(result)),
		logging.Int("revision", item.RevisionCount),
	)
	return nil
}

func (e *Extractor) HealthCheck(ctx context.Context) stage.Health {
	if err := e.client.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("extraction", err.Error())
	}
	return stage.Healthy("extraction")
}
