// Package review implements the quality gate: the final pipeline stage that
// assembles a draft ticket and asks the model critic for a verdict.
package review

import (
	"context"
	"fmt"
	"log/slog"

	"triage/internal/config"
	"triage/internal/logging"
	"triage/internal/queue"
	"triage/internal/services"
	"triage/internal/stage"
	"triage/internal/ticket"
	"triage/internal/understanding"
)

// TicketSink receives finalized tickets. *queue.Store satisfies it.
type TicketSink interface {
	AppendTicket(ctx context.Context, itemID int64, tk ticket.Ticket) error
}

// Reviewer assembles a ticket from an extracted item and drives it to a
// verdict: accepted, sent back for revision, or rejected. The revision budget
// is enforced here.
type Reviewer struct {
	cfg    *config.Config
	client understanding.Client
	sink   TicketSink
	logger *slog.Logger
}

// NewReviewer constructs the review stage handler.
func NewReviewer(cfg *config.Config, client understanding.Client, sink TicketSink, logger *slog.Logger) *Reviewer {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "review"))
	}
	return &Reviewer{cfg: cfg, client: client, sink: sink, logger: stageLogger}
}

var _ stage.Handler = (*Reviewer)(nil)

func (r *Reviewer) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, r.logger)
	if item.Extraction() == nil {
		return services.Wrap(
			services.ErrValidation,
			"review",
			"validate inputs",
			"Item reached review without an extraction payload; rerun extraction",
			nil,
		)
	}
	item.Status = queue.StatusReviewing
	item.ErrorMessage = ""
	logger.Info("starting review",
		logging.String("feedback_id", item.FeedbackID),
		logging.Int("revision", item.RevisionCount),
	)
	return nil
}

func (r *Reviewer) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, r.logger)

	draft, err := r.assembleDraft(item)
	if err != nil {
		return services.Wrap(services.ErrValidation, "review", "assemble ticket", "Extraction payload violates the category contract", err)
	}

	outcome, err := r.client.Critique(ctx, draft.Summary())
	if err != nil {
		return services.Wrap(
			services.ErrReviewUnavailable,
			"review",
			"critique ticket",
			"Review service unavailable; item will be retried",
			err,
		)
	}

	switch outcome.Verdict {
	case ticket.VerdictAccept:
		return r.finalize(ctx, item, draft, ticket.StatusAccepted, logger)

	case ticket.VerdictRevise:
		if item.RevisionCount >= r.cfg.Workflow.MaxRevisions {
			item.SetFailed(queue.ReasonMaxRevisions,
				fmt.Sprintf("revision budget of %d exhausted; last note: %s", r.cfg.Workflow.MaxRevisions, outcome.Note))
			logger.Info("revision budget exhausted",
				logging.String("feedback_id", item.FeedbackID),
				logging.Int("revisions", item.RevisionCount),
			)
			return nil
		}
		item.AppendCriticNote(outcome.Note)
		item.Status = queue.StatusClassified
		logger.Info("ticket sent back for revision",
			logging.String("feedback_id", item.FeedbackID),
			logging.String("note", outcome.Note),
			logging.Int("revision", item.RevisionCount),
		)
		return nil

	case ticket.VerdictReject:
		item.FailureReason = queue.ReasonRejectedByReview
		item.ErrorMessage = outcome.Note
		draft = draft.WithRevision(outcome.Note)
		return r.finalize(ctx, item, draft, ticket.StatusRejected, logger)

	default:
		return services.Wrap(services.ErrReviewUnavailable, "review", "critique ticket",
			fmt.Sprintf("Unexpected verdict %q", outcome.Verdict), nil)
	}
}

// assembleDraft rebuilds the ticket from persisted item state so the critic
// sees the full revision history.
func (r *Reviewer) assembleDraft(item *queue.Item) (ticket.Ticket, error) {
	draft, err := ticket.Assemble(item.FeedbackID, item.Category, item.Extraction())
	if err != nil {
		return ticket.Ticket{}, err
	}
	for _, note := range item.CriticNotes() {
		draft = draft.WithRevision(note)
	}
	return draft, nil
}

func (r *Reviewer) finalize(ctx context.Context, item *queue.Item, draft ticket.Ticket, status ticket.Status, logger *slog.Logger) error {
	final, err := draft.Finalize(status)
	if err != nil {
		return services.Wrap(services.ErrValidation, "review", "finalize ticket", "Ticket already finalized", err)
	}
	if err := r.sink.AppendTicket(ctx, item.ID, final); err != nil {
		return services.Wrap(services.ErrValidation, "review", "persist ticket", "Could not persist finalized ticket", err)
	}
	item.Status = queue.Status(status)
	logger.Info("ticket finalized",
		logging.String("feedback_id", item.FeedbackID),
		logging.String("ticket_id", final.ID),
		logging.String("status", string(status)),
		logging.Int("revisions", final.RevisionCount),
	)
	return nil
}

func (r *Reviewer) HealthCheck(ctx context.Context) stage.Health {
	if err := r.client.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("review", err.Error())
	}
	return stage.Healthy("review")
}
