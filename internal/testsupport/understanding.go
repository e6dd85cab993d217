package testsupport

import (
	"context"
	"errors"
	"sync/atomic"

	"triage/internal/ticket"
	"triage/internal/understanding"
)

// FakeUnderstanding is a deterministic understanding.Client for stage and
// workflow tests. Unset hooks fail loudly so tests only exercise the calls
// they expect. Call counters are atomic because workflow tests invoke the
// fake from multiple workers.
type FakeUnderstanding struct {
	ClassifyFunc    func(ctx context.Context, text string) (understanding.Classification, error)
	ExtractFunc     func(ctx context.Context, category ticket.Category, text string, criticNotes []string) (ticket.ExtractionResult, error)
	CritiqueFunc    func(ctx context.Context, ticketSummary string) (ticket.ReviewOutcome, error)
	HealthCheckFunc func(ctx context.Context) error

	ClassifyCalls atomic.Int64
	ExtractCalls  atomic.Int64
	CritiqueCalls atomic.Int64
}

var _ understanding.Client = (*FakeUnderstanding)(nil)

func (f *FakeUnderstanding) Classify(ctx context.Context, text string) (understanding.Classification, error) {
	f.ClassifyCalls.Add(1)
	if f.ClassifyFunc == nil {
		return understanding.Classification{}, errors.New("unexpected Classify call")
	}
	return f.ClassifyFunc(ctx, text)
}

func (f *FakeUnderstanding) ExtractFields(ctx context.Context, category ticket.Category, text string, criticNotes []string) (ticket.ExtractionResult, error) {
	f.ExtractCalls.Add(1)
	if f.ExtractFunc == nil {
		return nil, errors.New("unexpected ExtractFields call")
	}
	return f.ExtractFunc(ctx, category, text, criticNotes)
}

func (f *FakeUnderstanding) Critique(ctx context.Context, ticketSummary string) (ticket.ReviewOutcome, error) {
	f.CritiqueCalls.Add(1)
	if f.CritiqueFunc == nil {
		return ticket.ReviewOutcome{}, errors.New("unexpected Critique call")
	}
	return f.CritiqueFunc(ctx, ticketSummary)
}

func (f *FakeUnderstanding) HealthCheck(ctx context.Context) error {
	if f.HealthCheckFunc == nil {
		return nil
	}
	return f.HealthCheckFunc(ctx)
}
