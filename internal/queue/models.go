package queue

import (
	"encoding/json"
	"strings"
	"time"

	"triage/internal/ticket"
)

// Status represents the lifecycle of a queue item as it moves through the
// pipeline state machine.
type Status string

const (
	StatusPending     Status = "pending"
	StatusClassifying Status = "classifying"
	StatusClassified  Status = "classified"
	StatusExtracting  Status = "extracting"
	StatusExtracted   Status = "extracted"
	StatusReviewing   Status = "reviewing"
	StatusAccepted    Status = "accepted"
	StatusRejected    Status = "rejected"
	StatusFailed      Status = "failed"
)

// Terminal failure reasons recorded on items. Transient-kind labels
// (ClassificationUnavailable and friends) come from services.Kind.
const (
	ReasonLowConfidence    = "LowConfidenceClassification"
	ReasonMaxRevisions     = "MaxRevisionsExceeded"
	ReasonRejectedByReview = "RejectedByReview"
	ReasonCancelled        = "Cancelled"
)

// Source identifies the ingestion channel a feedback item arrived through.
type Source string

const (
	SourceReview Source = "review"
	SourceEmail  Source = "email"
)

var allStatuses = []Status{
	StatusPending,
	StatusClassifying,
	StatusClassified,
	StatusExtracting,
	StatusExtracted,
	StatusReviewing,
	StatusAccepted,
	StatusRejected,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusClassifying: {},
	StatusExtracting:  {},
	StatusReviewing:   {},
}

// Item represents a feedback item and its pipeline state persisted in SQLite.
// The feedback fields (FeedbackID, Source, Text, MetadataJSON) are immutable
// after ingestion; everything else is owned by the worker driving the item.
type Item struct {
	ID              int64
	FeedbackID      string
	Source          Source
	Text            string
	MetadataJSON    string
	Status          Status
	Category        ticket.Category
	Confidence      float64
	ExtractionJSON  string
	RevisionCount   int
	CriticNotesJSON string
	RetryCount      int
	ErrorMessage    string
	FailureReason   string
	NeedsReview     bool
	ReviewReason    string
	BatchID         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status admits no further transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusAccepted, StatusRejected, StatusFailed:
		return true
	default:
		return false
	}
}

// IsProcessing reports whether the status reflects an in-flight stage.
func (i Item) IsProcessing() bool {
	_, ok := processingStatuses[i.Status]
	return ok
}

// CriticNotes decodes the ordered review notes accumulated across revisions.
func (i Item) CriticNotes() []string {
	if strings.TrimSpace(i.CriticNotesJSON) == "" {
		return nil
	}
	var notes []string
	if err := json.Unmarshal([]byte(i.CriticNotesJSON), &notes); err != nil {
		return nil
	}
	return notes
}

// AppendCriticNote records another review note and bumps the revision count.
func (i *Item) AppendCriticNote(note string) {
	notes := append(i.CriticNotes(), note)
	encoded, err := json.Marshal(notes)
	if err != nil {
		return
	}
	i.CriticNotesJSON = string(encoded)
	i.RevisionCount++
}

// Extraction decodes the structured payload produced by the extraction stage.
func (i Item) Extraction() ticket.ExtractionResult {
	if strings.TrimSpace(i.ExtractionJSON) == "" {
		return nil
	}
	var result ticket.ExtractionResult
	if err := json.Unmarshal([]byte(i.ExtractionJSON), &result); err != nil {
		return nil
	}
	return result
}

// SetExtraction stores the structured payload for downstream stages.
func (i *Item) SetExtraction(result ticket.ExtractionResult) error {
	encoded, err := json.Marshal(result)
	if err != nil {
		return err
	}
	i.ExtractionJSON = string(encoded)
	return nil
}

// SetFailed marks the item terminally failed with a reason from the error
// taxonomy and a human-readable message.
func (i *Item) SetFailed(reason, message string) {
	i.Status = StatusFailed
	i.FailureReason = reason
	i.ErrorMessage = message
}

// HealthSummary describes aggregated queue counts per key lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Accepted   int
	Rejected   int
	Failed     int
}

// Terminal returns the number of items that reached a terminal status.
func (h HealthSummary) Terminal() int {
	return h.Accepted + h.Rejected + h.Failed
}
