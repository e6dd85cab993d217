package understanding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"triage/internal/services"
	"triage/internal/services/llm"
	"triage/internal/ticket"
)

// Classification is the category decision for one piece of feedback.
type Classification struct {
	Category   ticket.Category
	Confidence float64
	Reason     string
	Raw        string
}

// Client is the language-model surface the pipeline stages depend on.
// Implementations must mark transient failures with the services error
// markers so the workflow can decide what to retry.
type Client interface {
	Classify(ctx context.Context, text string) (Classification, error)
	ExtractFields(ctx context.Context, category ticket.Category, text string, criticNotes []string) (ticket.ExtractionResult, error)
	Critique(ctx context.Context, ticketSummary string) (ticket.ReviewOutcome, error)
	HealthCheck(ctx context.Context) error
}

// Service implements Client on top of the chat completion transport.
type Service struct {
	llm *llm.Client
}

// NewService wraps a transport client.
func NewService(transport *llm.Client) *Service {
	return &Service{llm: transport}
}

var _ Client = (*Service)(nil)

// Classify sorts feedback text into a category with a confidence score.
// Failures carry services.ErrClassificationUnavailable.
func (s *Service) Classify(ctx context.Context, text string) (Classification, error) {
	var empty Classification
	text = strings.TrimSpace(text)
	if text == "" {
		return empty, errors.New("classify: text required")
	}

	content, err := s.llm.CompleteJSON(ctx, ClassificationPrompt, text)
	if err != nil {
		return empty, fmt.Errorf("%w: classify: %w", services.ErrClassificationUnavailable, err)
	}

	var parsed struct {
		Category   string  `json:"category"`
		Confidence float64 `json:"confidence"`
		Reason     string  `json:"reason"`
	}
	if err := llm.DecodeLLMJSON(content, &parsed); err != nil {
		return empty, fmt.Errorf("%w: classify: parse payload: %w", services.ErrClassificationUnavailable, err)
	}

	category, ok := ticket.ParseCategory(parsed.Category)
	if !ok {
		return empty, fmt.Errorf("%w: classify: unknown category %q", services.ErrClassificationUnavailable, parsed.Category)
	}
	confidence := parsed.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return Classification{
		Category:   category,
		Confidence: confidence,
		Reason:     strings.TrimSpace(parsed.Reason),
		Raw:        content,
	}, nil
}

// ExtractFields produces the structured payload for a category's field
// contract. Prior critic notes are folded into the prompt so a revision pass
// can address them. Failures carry services.ErrMalformedExtraction.
func (s *Service) ExtractFields(ctx context.Context, category ticket.Category, text string, criticNotes []string) (ticket.ExtractionResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("extract: text required")
	}
	prompt, err := BuildExtractionPrompt(category, criticNotes)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	content, err := s.llm.CompleteJSON(ctx, prompt, text)
	if err != nil {
		return nil, fmt.Errorf("%w: extract: %w", services.ErrMalformedExtraction, err)
	}

	var result ticket.ExtractionResult
	if err := llm.DecodeLLMJSON(content, &result); err != nil {
		return nil, fmt.Errorf("%w: extract: parse payload: %w", services.ErrMalformedExtraction, err)
	}
	for field, value := range result {
		result[field] = strings.TrimSpace(value)
	}
	if err := result.ValidateContract(category); err != nil {
		return nil, fmt.Errorf("%w: extract: %w", services.ErrMalformedExtraction, err)
	}
	return result, nil
}

// Critique asks the quality gate for a verdict on an assembled ticket.
// Failures carry services.ErrReviewUnavailable.
func (s *Service) Critique(ctx context.Context, ticketSummary string) (ticket.ReviewOutcome, error) {
	var empty ticket.ReviewOutcome
	ticketSummary = strings.TrimSpace(ticketSummary)
	if ticketSummary == "" {
		return empty, errors.New("critique: ticket summary required")
	}

	content, err := s.llm.CompleteJSON(ctx, CritiquePrompt, ticketSummary)
	if err != nil {
		return empty, fmt.Errorf("%w: critique: %w", services.ErrReviewUnavailable, err)
	}

	var parsed struct {
		Verdict string `json:"verdict"`
		Note    string `json:"note"`
	}
	if err := llm.DecodeLLMJSON(content, &parsed); err != nil {
		return empty, fmt.Errorf("%w: critique: parse payload: %w", services.ErrReviewUnavailable, err)
	}

	verdict, ok := ticket.ParseVerdict(parsed.Verdict)
	if !ok {
		return empty, fmt.Errorf("%w: critique: unknown verdict %q", services.ErrReviewUnavailable, parsed.Verdict)
	}
	note := strings.TrimSpace(parsed.Note)
	if verdict != ticket.VerdictAccept && note == "" {
		return empty, fmt.Errorf("%w: critique: verdict %q requires a note", services.ErrReviewUnavailable, verdict)
	}
	return ticket.ReviewOutcome{Verdict: verdict, Note: note}, nil
}

// HealthCheck verifies the transport end to end.
func (s *Service) HealthCheck(ctx context.Context) error {
	return s.llm.HealthCheck(ctx)
}
