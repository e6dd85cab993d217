package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"triage/internal/ticket"
)

// AuditRecord is one state transition in an item's audit trail.
type AuditRecord struct {
	ID         int64
	ItemID     int64
	FeedbackID string
	Stage      string
	FromStatus Status
	ToStatus   Status
	Detail     string
	RecordedAt time.Time
}

// Metric is one named batch-level measurement.
type Metric struct {
	ID         int64
	BatchID    string
	Name       string
	Value      float64
	RecordedAt time.Time
}

// StoredTicket is a persisted ticket row joined back to its queue item.
type StoredTicket struct {
	ID            int64
	TicketID      string
	ItemID        int64
	FeedbackID    string
	Category      ticket.Category
	Extraction    ticket.ExtractionResult
	Status        ticket.Status
	RevisionCount int
	CriticNotes   []string
	CreatedAt     time.Time
}

// AppendTicket persists a finalized ticket for a queue item.
func (s *Store) AppendTicket(ctx context.Context, itemID int64, tk ticket.Ticket) error {
	if !tk.Status.IsTerminal() {
		return fmt.Errorf("append ticket %s: status %s is not terminal", tk.ID, tk.Status)
	}
	extractionJSON, err := json.Marshal(tk.Extraction)
	if err != nil {
		return fmt.Errorf("marshal extraction: %w", err)
	}
	var notesJSON []byte
	if len(tk.CriticNotes) > 0 {
		notesJSON, err = json.Marshal(tk.CriticNotes)
		if err != nil {
			return fmt.Errorf("marshal critic notes: %w", err)
		}
	}

	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO tickets (
            ticket_id, item_id, feedback_id, category, extraction_json,
            status, revision_count, critic_notes_json, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tk.ID,
		itemID,
		tk.FeedbackID,
		string(tk.Category),
		string(extractionJSON),
		string(tk.Status),
		tk.RevisionCount,
		nullableString(string(notesJSON)),
		tk.CreatedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("append ticket: %w", err)
	}
	return nil
}

// AppendAudit records one state transition for an item.
func (s *Store) AppendAudit(ctx context.Context, record AuditRecord) error {
	recordedAt := record.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO audit_records (
            item_id, feedback_id, stage, from_status, to_status, detail, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ItemID,
		record.FeedbackID,
		record.Stage,
		string(record.FromStatus),
		string(record.ToStatus),
		nullableString(record.Detail),
		recordedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

// AppendMetric records one named measurement for a batch.
func (s *Store) AppendMetric(ctx context.Context, batchID, name string, value float64) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO metrics (batch_id, name, value, recorded_at) VALUES (?, ?, ?, ?)`,
		batchID,
		name,
		value,
		time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("append metric: %w", err)
	}
	return nil
}

// ListAuditForItem returns an item's audit trail in transition order.
func (s *Store) ListAuditForItem(ctx context.Context, itemID int64) ([]AuditRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, item_id, feedback_id, stage, from_status, to_status,
                COALESCE(detail, ''), recorded_at
         FROM audit_records WHERE item_id = ? ORDER BY id`,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer rows.Close()

	var records []AuditRecord
	for rows.Next() {
		var (
			record     AuditRecord
			fromStatus string
			toStatus   string
			recordedAt string
		)
		if err := rows.Scan(
			&record.ID, &record.ItemID, &record.FeedbackID, &record.Stage,
			&fromStatus, &toStatus, &record.Detail, &recordedAt,
		); err != nil {
			return nil, err
		}
		record.FromStatus = Status(fromStatus)
		record.ToStatus = Status(toStatus)
		record.RecordedAt = parseTimestamp(recordedAt)
		records = append(records, record)
	}
	return records, rows.Err()
}

// ListAudit returns every audit record ordered by insertion.
func (s *Store) ListAudit(ctx context.Context) ([]AuditRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, item_id, feedback_id, stage, from_status, to_status,
                COALESCE(detail, ''), recorded_at
         FROM audit_records ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer rows.Close()

	var records []AuditRecord
	for rows.Next() {
		var (
			record     AuditRecord
			fromStatus string
			toStatus   string
			recordedAt string
		)
		if err := rows.Scan(
			&record.ID, &record.ItemID, &record.FeedbackID, &record.Stage,
			&fromStatus, &toStatus, &record.Detail, &recordedAt,
		); err != nil {
			return nil, err
		}
		record.FromStatus = Status(fromStatus)
		record.ToStatus = Status(toStatus)
		record.RecordedAt = parseTimestamp(recordedAt)
		records = append(records, record)
	}
	return records, rows.Err()
}

// ListTickets returns all persisted tickets ordered by creation.
func (s *Store) ListTickets(ctx context.Context) ([]StoredTicket, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, ticket_id, item_id, feedback_id, category, extraction_json,
                status, revision_count, COALESCE(critic_notes_json, ''), created_at
         FROM tickets ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []StoredTicket
	for rows.Next() {
		var (
			row            StoredTicket
			category       string
			extractionJSON string
			status         string
			notesJSON      string
			createdAt      string
		)
		if err := rows.Scan(
			&row.ID, &row.TicketID, &row.ItemID, &row.FeedbackID, &category,
			&extractionJSON, &status, &row.RevisionCount, &notesJSON, &createdAt,
		); err != nil {
			return nil, err
		}
		row.Category = ticket.Category(category)
		row.Status = ticket.Status(status)
		row.CreatedAt = parseTimestamp(createdAt)
		if err := json.Unmarshal([]byte(extractionJSON), &row.Extraction); err != nil {
			return nil, fmt.Errorf("decode extraction for %s: %w", row.TicketID, err)
		}
		if notesJSON != "" {
			if err := json.Unmarshal([]byte(notesJSON), &row.CriticNotes); err != nil {
				return nil, fmt.Errorf("decode critic notes for %s: %w", row.TicketID, err)
			}
		}
		tickets = append(tickets, row)
	}
	return tickets, rows.Err()
}

// ListMetrics returns metrics for a batch in insertion order. An empty batch
// identifier returns all metrics.
func (s *Store) ListMetrics(ctx context.Context, batchID string) ([]Metric, error) {
	query := `SELECT id, batch_id, name, value, recorded_at FROM metrics`
	args := []any{}
	if batchID != "" {
		query += ` WHERE batch_id = ?`
		args = append(args, batchID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	defer rows.Close()

	var metrics []Metric
	for rows.Next() {
		var (
			metric     Metric
			recordedAt string
		)
		if err := rows.Scan(&metric.ID, &metric.BatchID, &metric.Name, &metric.Value, &recordedAt); err != nil {
			return nil, err
		}
		metric.RecordedAt = parseTimestamp(recordedAt)
		metrics = append(metrics, metric)
	}
	return metrics, rows.Err()
}
