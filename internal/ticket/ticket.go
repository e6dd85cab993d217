package ticket

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle of an assembled ticket. A ticket is created in
// draft and transitions exactly once to a terminal status.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
)

// IsTerminal reports whether no further transition may occur.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusAccepted, StatusRejected, StatusFailed:
		return true
	default:
		return false
	}
}

// Ticket is the assembled artifact produced from one feedback item. The
// feedback item itself is retained independently; FeedbackID is a reference,
// not ownership.
type Ticket struct {
	ID            string
	FeedbackID    string
	Category      Category
	Extraction    ExtractionResult
	Status        Status
	RevisionCount int
	CriticNotes   []string
	CreatedAt     time.Time
}

// Assemble merges classification and extraction output into a canonical draft
// ticket. Pure function: no external calls, no failure modes beyond
// input-contract violations, which indicate programmer error.
func Assemble(feedbackID string, category Category, extraction ExtractionResult) (Ticket, error) {
	feedbackID = strings.TrimSpace(feedbackID)
	if feedbackID == "" {
		return Ticket{}, fmt.Errorf("assemble: feedback id required")
	}
	if err := extraction.ValidateContract(category); err != nil {
		return Ticket{}, fmt.Errorf("assemble: %w", err)
	}
	return Ticket{
		ID:         "TKT-" + feedbackID,
		FeedbackID: feedbackID,
		Category:   category,
		Extraction: extraction.Clone(),
		Status:     StatusDraft,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// WithRevision returns a copy with the critic note appended and the revision
// counter bumped. The receiver is unchanged.
func (t Ticket) WithRevision(note string) Ticket {
	notes := make([]string, 0, len(t.CriticNotes)+1)
	notes = append(notes, t.CriticNotes...)
	notes = append(notes, note)
	t.CriticNotes = notes
	t.RevisionCount++
	return t
}

// Finalize stamps the terminal status onto a draft ticket. Calling it on an
// already-terminal ticket is a programmer error.
func (t Ticket) Finalize(status Status) (Ticket, error) {
	if !status.IsTerminal() {
		return Ticket{}, fmt.Errorf("finalize: %s is not a terminal status", status)
	}
	if t.Status.IsTerminal() {
		return Ticket{}, fmt.Errorf("finalize: ticket %s already terminal (%s)", t.ID, t.Status)
	}
	t.Status = status
	return t, nil
}

// Summary renders the ticket for critique by the quality gate.
func (t Ticket) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticket %s (category: %s, revision %d)\n", t.ID, t.Category.Label(), t.RevisionCount)
	for _, field := range t.Extraction.Fields() {
		fmt.Fprintf(&b, "- %s: %s\n", field, t.Extraction[field])
	}
	if len(t.CriticNotes) > 0 {
		fmt.Fprintf(&b, "Prior review notes:\n")
		for _, note := range t.CriticNotes {
			fmt.Fprintf(&b, "- %s\n", note)
		}
	}
	return b.String()
}
