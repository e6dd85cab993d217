package review_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage/internal/logging"
	"triage/internal/queue"
	"triage/internal/review"
	"triage/internal/services"
	"triage/internal/testsupport"
	"triage/internal/ticket"
)

type memorySink struct {
	tickets []ticket.Ticket
	itemIDs []int64
	err     error
}

func (m *memorySink) AppendTicket(ctx context.Context, itemID int64, tk ticket.Ticket) error {
	if m.err != nil {
		return m.err
	}
	m.itemIDs = append(m.itemIDs, itemID)
	m.tickets = append(m.tickets, tk)
	return nil
}

func extractedItem(t *testing.T) *queue.Item {
	t.Helper()
	item := &queue.Item{
		ID:         42,
		FeedbackID: "R-1",
		Status:     queue.StatusExtracted,
		Category:   ticket.CategoryBug,
		Text:       "crashes when saving",
	}
	require.NoError(t, item.SetExtraction(ticket.ExtractionResult{
		"reproduction_steps": "1. edit 2. save",
		"severity_guess":     "high",
	}))
	return item
}

func newReviewer(t *testing.T, fake *testsupport.FakeUnderstanding, sink review.TicketSink, opts ...testsupport.ConfigOption) *review.Reviewer {
	t.Helper()
	return review.NewReviewer(testsupport.NewConfig(t, opts...), fake, sink, logging.NewNop())
}

func TestPrepareRequiresExtraction(t *testing.T) {
	handler := newReviewer(t, &testsupport.FakeUnderstanding{}, &memorySink{})

	bare := &queue.Item{FeedbackID: "R-0", Status: queue.StatusExtracted}
	err := handler.Prepare(t.Context(), bare)
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrValidation))

	item := extractedItem(t)
	require.NoError(t, handler.Prepare(t.Context(), item))
	assert.Equal(t, queue.StatusReviewing, item.Status)
}

func TestExecuteAcceptPersistsTicket(t *testing.T) {
	sink := &memorySink{}
	fake := &testsupport.FakeUnderstanding{
		CritiqueFunc: func(ctx context.Context, summary string) (ticket.ReviewOutcome, error) {
			assert.Contains(t, summary, "TKT-R-1")
			assert.Contains(t, summary, "reproduction_steps")
			return ticket.Accept(), nil
		},
	}
	handler := newReviewer(t, fake, sink)

	item := extractedItem(t)
	item.Status = queue.StatusReviewing
	require.NoError(t, handler.Execute(t.Context(), item))

	assert.Equal(t, queue.StatusAccepted, item.Status)
	require.Len(t, sink.tickets, 1)
	assert.Equal(t, "TKT-R-1", sink.tickets[0].ID)
	assert.Equal(t, ticket.StatusAccepted, sink.tickets[0].Status)
	assert.Equal(t, []int64{42}, sink.itemIDs)
}

func TestExecuteReviseSendsItemBackForExtraction(t *testing.T) {
	sink := &memorySink{}
	fake := &testsupport.FakeUnderstanding{
		CritiqueFunc: func(ctx context.Context, summary string) (ticket.ReviewOutcome, error) {
			return ticket.Revise("severity is not justified"), nil
		},
	}
	handler := newReviewer(t, fake, sink)

	item := extractedItem(t)
	item.Status = queue.StatusReviewing
	require.NoError(t, handler.Execute(t.Context(), item))

	assert.Equal(t, queue.StatusClassified, item.Status, "revise returns the item to extraction")
	assert.Equal(t, 1, item.RevisionCount)
	assert.Equal(t, []string{"severity is not justified"}, item.CriticNotes())
	assert.Empty(t, sink.tickets, "no ticket persisted for a revision pass")
}

func TestExecuteReviseBeyondBudgetFails(t *testing.T) {
	sink := &memorySink{}
	fake := &testsupport.FakeUnderstanding{
		CritiqueFunc: func(ctx context.Context, summary string) (ticket.ReviewOutcome, error) {
			return ticket.Revise("still vague"), nil
		},
	}
	handler := newReviewer(t, fake, sink, testsupport.WithMaxRevisions(1))

	item := extractedItem(t)
	item.Status = queue.StatusReviewing
	item.AppendCriticNote("first note")
	require.Equal(t, 1, item.RevisionCount)

	require.NoError(t, handler.Execute(t.Context(), item))
	assert.Equal(t, queue.StatusFailed, item.Status)
	assert.Equal(t, queue.ReasonMaxRevisions, item.FailureReason)
	assert.Contains(t, item.ErrorMessage, "still vague")
	assert.Empty(t, sink.tickets)
}

func TestExecuteRejectPersistsRejectedTicket(t *testing.T) {
	sink := &memorySink{}
	fake := &testsupport.FakeUnderstanding{
		CritiqueFunc: func(ctx context.Context, summary string) (ticket.ReviewOutcome, error) {
			return ticket.Reject("summary contradicts the feedback"), nil
		},
	}
	handler := newReviewer(t, fake, sink)

	item := extractedItem(t)
	item.Status = queue.StatusReviewing
	require.NoError(t, handler.Execute(t.Context(), item))

	assert.Equal(t, queue.StatusRejected, item.Status)
	assert.Equal(t, queue.ReasonRejectedByReview, item.FailureReason)
	require.Len(t, sink.tickets, 1)
	assert.Equal(t, ticket.StatusRejected, sink.tickets[0].Status)
	assert.Contains(t, sink.tickets[0].CriticNotes, "summary contradicts the feedback")
}

func TestExecuteWrapsCritiqueFailuresTransient(t *testing.T) {
	fake := &testsupport.FakeUnderstanding{
		CritiqueFunc: func(ctx context.Context, summary string) (ticket.ReviewOutcome, error) {
			return ticket.ReviewOutcome{}, errors.New("upstream 503")
		},
	}
	handler := newReviewer(t, fake, &memorySink{})

	item := extractedItem(t)
	item.Status = queue.StatusReviewing
	err := handler.Execute(t.Context(), item)
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrReviewUnavailable))
	assert.True(t, services.IsTransient(err))
	assert.Equal(t, queue.StatusReviewing, item.Status)
}
