package ticket_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage/internal/ticket"
)

func TestParseCategoryAliases(t *testing.T) {
	cases := map[string]ticket.Category{
		"Bug":             ticket.CategoryBug,
		"bug report":      ticket.CategoryBug,
		"Feature Request": ticket.CategoryFeatureRequest,
		"feature_request": ticket.CategoryFeatureRequest,
		"PRAISE":          ticket.CategoryPraise,
		"complaint":       ticket.CategoryComplaint,
		"spam":            ticket.CategoryUnclassified,
		"unknown":         ticket.CategoryUnclassified,
	}
	for input, want := range cases {
		got, ok := ticket.ParseCategory(input)
		require.True(t, ok, "ParseCategory(%q)", input)
		assert.Equal(t, want, got, "ParseCategory(%q)", input)
	}

	_, ok := ticket.ParseCategory("gibberish")
	assert.False(t, ok)
	_, ok = ticket.ParseCategory("   ")
	assert.False(t, ok)
}

func TestContractFieldSets(t *testing.T) {
	cases := map[ticket.Category][]string{
		ticket.CategoryBug:            {"reproduction_steps", "severity_guess"},
		ticket.CategoryFeatureRequest: {"requested_capability", "user_impact"},
		ticket.CategoryPraise:         {"summary"},
		ticket.CategoryComplaint:      {"summary"},
	}
	for category, want := range cases {
		fields, ok := ticket.ContractFields(category)
		require.True(t, ok, "contract for %s", category)
		assert.Equal(t, want, fields, "contract for %s", category)
	}

	_, ok := ticket.ContractFields(ticket.CategoryUnclassified)
	assert.False(t, ok, "unclassified must have no contract")
}

func TestValidateContract(t *testing.T) {
	valid := ticket.ExtractionResult{
		"reproduction_steps": "1. open app 2. tap save",
		"severity_guess":     "high",
	}
	require.NoError(t, valid.ValidateContract(ticket.CategoryBug))

	missing := ticket.ExtractionResult{"reproduction_steps": "steps"}
	err := missing.ValidateContract(ticket.CategoryBug)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing fields")
	assert.Contains(t, err.Error(), "severity_guess")

	extra := ticket.ExtractionResult{
		"reproduction_steps": "steps",
		"severity_guess":     "low",
		"device_info":        "pixel 9",
	}
	err = extra.ValidateContract(ticket.CategoryBug)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extraneous fields")

	blank := ticket.ExtractionResult{
		"reproduction_steps": "steps",
		"severity_guess":     "   ",
	}
	err = blank.ValidateContract(ticket.CategoryBug)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blank fields")

	require.Error(t, valid.ValidateContract(ticket.CategoryUnclassified))
}

func TestAssembleProducesDraft(t *testing.T) {
	extraction := ticket.ExtractionResult{"summary": "loves the new dark mode"}
	tk, err := ticket.Assemble("R-12", ticket.CategoryPraise, extraction)
	require.NoError(t, err)

	assert.Equal(t, "TKT-R-12", tk.ID)
	assert.Equal(t, "R-12", tk.FeedbackID)
	assert.Equal(t, ticket.StatusDraft, tk.Status)
	assert.Zero(t, tk.RevisionCount)
	assert.Empty(t, tk.CriticNotes)

	// Assembling then inspecting reproduces the exact contract keys.
	want, _ := ticket.ContractFields(ticket.CategoryPraise)
	assert.Equal(t, want, tk.Extraction.Fields())
}

func TestAssembleRejectsContractViolations(t *testing.T) {
	_, err := ticket.Assemble("R-1", ticket.CategoryBug, ticket.ExtractionResult{"summary": "nope"})
	require.Error(t, err)

	_, err = ticket.Assemble("  ", ticket.CategoryPraise, ticket.ExtractionResult{"summary": "ok"})
	require.Error(t, err)
}

func TestAssembleClonesExtraction(t *testing.T) {
	extraction := ticket.ExtractionResult{"summary": "original"}
	tk, err := ticket.Assemble("R-2", ticket.CategoryComplaint, extraction)
	require.NoError(t, err)

	extraction["summary"] = "mutated"
	assert.Equal(t, "original", tk.Extraction["summary"])
}

func TestWithRevisionAppendsNotes(t *testing.T) {
	tk, err := ticket.Assemble("R-3", ticket.CategoryBug, ticket.ExtractionResult{
		"reproduction_steps": "steps",
		"severity_guess":     "medium",
	})
	require.NoError(t, err)

	revised := tk.WithRevision("missing repro steps")
	assert.Equal(t, 1, revised.RevisionCount)
	assert.Equal(t, []string{"missing repro steps"}, revised.CriticNotes)
	assert.Zero(t, tk.RevisionCount, "receiver must be unchanged")
	assert.Empty(t, tk.CriticNotes)
}

func TestFinalizeTransitionsExactlyOnce(t *testing.T) {
	tk, err := ticket.Assemble("R-4", ticket.CategoryComplaint, ticket.ExtractionResult{"summary": "slow sync"})
	require.NoError(t, err)

	accepted, err := tk.Finalize(ticket.StatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusAccepted, accepted.Status)
	assert.True(t, accepted.Status.IsTerminal())

	_, err = accepted.Finalize(ticket.StatusRejected)
	require.Error(t, err, "second terminal transition must fail")

	_, err = tk.Finalize(ticket.StatusDraft)
	require.Error(t, err, "draft is not a terminal status")
}

func TestParseVerdict(t *testing.T) {
	cases := map[string]ticket.ReviewVerdict{
		"ACCEPT":   ticket.VerdictAccept,
		"approved": ticket.VerdictAccept,
		"revise":   ticket.VerdictRevise,
		"Rejected": ticket.VerdictReject,
	}
	for input, want := range cases {
		got, ok := ticket.ParseVerdict(input)
		require.True(t, ok, "ParseVerdict(%q)", input)
		assert.Equal(t, want, got)
	}
	_, ok := ticket.ParseVerdict("maybe")
	assert.False(t, ok)
}

func TestSummaryIncludesNotesAndFields(t *testing.T) {
	tk, err := ticket.Assemble("E-9", ticket.CategoryBug, ticket.ExtractionResult{
		"reproduction_steps": "tap export twice",
		"severity_guess":     "high",
	})
	require.NoError(t, err)
	tk = tk.WithRevision("clarify device model")

	summary := tk.Summary()
	assert.Contains(t, summary, "TKT-E-9")
	assert.Contains(t, summary, "reproduction_steps")
	assert.Contains(t, summary, "clarify device model")
}
