package understanding_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"triage/internal/services"
	"triage/internal/services/llm"
	"triage/internal/ticket"
	"triage/internal/understanding"
)

func newService(t *testing.T, handler http.HandlerFunc) *understanding.Service {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := llm.NewClient(llm.Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
	},
		llm.WithRetryMaxAttempts(1),
		llm.WithRetryBackoff(time.Millisecond, time.Millisecond),
		llm.WithSleeper(func(time.Duration) {}),
	)
	return understanding.NewService(client)
}

func respondContent(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func TestClassifyParsesCategoryAndClampsConfidence(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		respondContent(t, w, `{"category":"Bug","confidence":1.7,"reason":" crash report "}`)
	})

	got, err := svc.Classify(t.Context(), "app crashes when I tap save")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got.Category != ticket.CategoryBug {
		t.Fatalf("category = %q, want bug", got.Category)
	}
	if got.Confidence != 1 {
		t.Fatalf("confidence = %v, want clamped to 1", got.Confidence)
	}
	if got.Reason != "crash report" {
		t.Fatalf("reason = %q", got.Reason)
	}
}

func TestClassifyMarksTransportFailuresTransient(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "offline", http.StatusBadGateway)
	})

	_, err := svc.Classify(t.Context(), "some feedback")
	if !errors.Is(err, services.ErrClassificationUnavailable) {
		t.Fatalf("expected classification-unavailable marker, got %v", err)
	}
	if !services.IsTransient(err) {
		t.Fatal("classification failure must be transient")
	}
}

func TestClassifyRejectsUnknownCategory(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		respondContent(t, w, `{"category":"mystery","confidence":0.9,"reason":"?"}`)
	})

	_, err := svc.Classify(t.Context(), "some feedback")
	if !errors.Is(err, services.ErrClassificationUnavailable) {
		t.Fatalf("expected classification-unavailable marker, got %v", err)
	}
}

func TestExtractFieldsValidatesContract(t *testing.T) {
	responses := []string{
		`{"reproduction_steps":"1. open editor 2. paste text","severity_guess":"medium"}`,
		`{"reproduction_steps":"steps only"}`,
		`{"reproduction_steps":"steps","severity_guess":"high","extra":"nope"}`,
	}
	var call int
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		respondContent(t, w, responses[call])
		call++
	})

	result, err := svc.ExtractFields(t.Context(), ticket.CategoryBug, "pasting crashes the editor", nil)
	if err != nil {
		t.Fatalf("ExtractFields: %v", err)
	}
	if result["severity_guess"] != "medium" {
		t.Fatalf("severity_guess = %q", result["severity_guess"])
	}

	if _, err := svc.ExtractFields(t.Context(), ticket.CategoryBug, "text", nil); !errors.Is(err, services.ErrMalformedExtraction) {
		t.Fatalf("missing field: expected malformed-extraction marker, got %v", err)
	}
	if _, err := svc.ExtractFields(t.Context(), ticket.CategoryBug, "text", nil); !errors.Is(err, services.ErrMalformedExtraction) {
		t.Fatalf("extraneous field: expected malformed-extraction marker, got %v", err)
	}
}

func TestExtractFieldsSendsCriticNotes(t *testing.T) {
	var sawNote bool
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		for _, msg := range req.Messages {
			if msg.Role == "system" && strings.Contains(msg.Content, "name the affected browser") {
				sawNote = true
			}
		}
		respondContent(t, w, `{"summary":"checkout fails on firefox"}`)
	})

	_, err := svc.ExtractFields(t.Context(), ticket.CategoryComplaint, "checkout never finishes", []string{"name the affected browser"})
	if err != nil {
		t.Fatalf("ExtractFields: %v", err)
	}
	if !sawNote {
		t.Fatal("critic note missing from extraction prompt")
	}
}

func TestExtractFieldsRejectsUnclassified(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for a category without a contract")
	})
	if _, err := svc.ExtractFields(t.Context(), ticket.CategoryUnclassified, "text", nil); err == nil {
		t.Fatal("expected error for contract-less category")
	}
}

func TestCritiqueParsesVerdicts(t *testing.T) {
	cases := []struct {
		content string
		want    ticket.ReviewVerdict
		note    string
	}{
		{`{"verdict":"accept","note":""}`, ticket.VerdictAccept, ""},
		{`{"verdict":"revise","note":"steps are vague"}`, ticket.VerdictRevise, "steps are vague"},
		{`{"verdict":"reject","note":"not grounded in the feedback"}`, ticket.VerdictReject, "not grounded in the feedback"},
	}
	for _, tc := range cases {
		svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
			respondContent(t, w, tc.content)
		})
		outcome, err := svc.Critique(t.Context(), "Ticket TKT-1 (category: Bug, revision 0)")
		if err != nil {
			t.Fatalf("Critique(%s): %v", tc.content, err)
		}
		if outcome.Verdict != tc.want || outcome.Note != tc.note {
			t.Fatalf("Critique(%s) = %+v", tc.content, outcome)
		}
	}
}

func TestCritiqueRequiresNoteForNonAccept(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		respondContent(t, w, `{"verdict":"revise","note":"  "}`)
	})
	_, err := svc.Critique(t.Context(), "summary")
	if !errors.Is(err, services.ErrReviewUnavailable) {
		t.Fatalf("expected review-unavailable marker, got %v", err)
	}
}

func TestBuildExtractionPromptListsContractFields(t *testing.T) {
	prompt, err := understanding.BuildExtractionPrompt(ticket.CategoryFeatureRequest, nil)
	if err != nil {
		t.Fatalf("BuildExtractionPrompt: %v", err)
	}
	for _, field := range []string{"requested_capability", "user_impact"} {
		if !strings.Contains(prompt, fmt.Sprintf("%q", field)) {
			t.Fatalf("prompt missing field %s:\n%s", field, prompt)
		}
	}
}
