package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"triage/internal/ticket"
)

const itemColumns = `id, feedback_id, source, text, metadata_json, status, category,
    confidence, extraction_json, revision_count, critic_notes_json, retry_count,
    error_message, failure_reason, needs_review, review_reason, batch_id,
    created_at, updated_at`

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id            int64
		feedbackID    string
		source        string
		text          string
		metadataJSON  sql.NullString
		status        string
		category      sql.NullString
		confidence    float64
		extraction    sql.NullString
		revisionCount int
		criticNotes   sql.NullString
		retryCount    int
		errorMessage  sql.NullString
		failureReason sql.NullString
		needsReview   int
		reviewReason  sql.NullString
		batchID       sql.NullString
		createdAt     string
		updatedAt     string
	)

	if err := scanner.Scan(
		&id, &feedbackID, &source, &text, &metadataJSON, &status, &category,
		&confidence, &extraction, &revisionCount, &criticNotes, &retryCount,
		&errorMessage, &failureReason, &needsReview, &reviewReason, &batchID,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	return &Item{
		ID:              id,
		FeedbackID:      feedbackID,
		Source:          Source(source),
		Text:            text,
		MetadataJSON:    metadataJSON.String,
		Status:          Status(status),
		Category:        ticket.Category(category.String),
		Confidence:      confidence,
		ExtractionJSON:  extraction.String,
		RevisionCount:   revisionCount,
		CriticNotesJSON: criticNotes.String,
		RetryCount:      retryCount,
		ErrorMessage:    errorMessage.String,
		FailureReason:   failureReason.String,
		NeedsReview:     needsReview != 0,
		ReviewReason:    reviewReason.String,
		BatchID:         batchID.String,
		CreatedAt:       parseTimestamp(createdAt),
		UpdatedAt:       parseTimestamp(updatedAt),
	}, nil
}

// NewItem inserts a pending feedback item. Duplicate feedback identifiers are
// skipped: the existing item is returned with inserted=false.
func (s *Store) NewItem(ctx context.Context, feedbackID string, source Source, text, metadataJSON, batchID string) (*Item, bool, error) {
	existing, err := s.GetByFeedbackID(ctx, feedbackID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO queue_items (
            feedback_id, source, text, metadata_json, status, batch_id,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		feedbackID,
		string(source),
		text,
		nullableString(metadataJSON),
		StatusPending,
		nullableString(batchID),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("last insert id: %w", err)
	}

	item, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return item, true, nil
}

// GetByID fetches a queue item by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// GetByFeedbackID returns the item ingested for a feedback identifier.
func (s *Store) GetByFeedbackID(ctx context.Context, feedbackID string) (*Item, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM queue_items WHERE feedback_id = ? LIMIT 1`,
		feedbackID,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item by feedback id: %w", err)
	}
	return item, nil
}

// Update persists changes to an existing queue item. The ingestion fields
// (feedback id, source, text, metadata) are never rewritten.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, category = ?, confidence = ?, extraction_json = ?,
             revision_count = ?, critic_notes_json = ?, retry_count = ?,
             error_message = ?, failure_reason = ?, needs_review = ?,
             review_reason = ?, batch_id = ?, updated_at = ?
         WHERE id = ?`,
		item.Status,
		nullableString(string(item.Category)),
		item.Confidence,
		nullableString(item.ExtractionJSON),
		item.RevisionCount,
		nullableString(item.CriticNotesJSON),
		item.RetryCount,
		nullableString(item.ErrorMessage),
		nullableString(item.FailureReason),
		boolToInt(item.NeedsReview),
		nullableString(item.ReviewReason),
		nullableString(item.BatchID),
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID,
	); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// ClaimNextPending atomically transitions the oldest pending item to
// classifying and returns it. Workers race on this statement; SQLite
// serializes the update so each item is claimed by exactly one worker.
// Returns nil when no pending item exists.
func (s *Store) ClaimNextPending(ctx context.Context) (*Item, error) {
	ctx = ensureContext(ctx)
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	var (
		item    *Item
		scanErr error
	)
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(
			ctx,
			`UPDATE queue_items
             SET status = ?, updated_at = ?
             WHERE id = (
                 SELECT id FROM queue_items WHERE status = ? ORDER BY created_at, id LIMIT 1
             )
             RETURNING `+itemColumns,
			StatusClassifying,
			timestamp,
			StatusPending,
		)
		item, scanErr = scanItem(row)
		if errors.Is(scanErr, sql.ErrNoRows) {
			item = nil
			return nil
		}
		return scanErr
	})
	if err != nil {
		return nil, fmt.Errorf("claim pending item: %w", err)
	}
	return item, nil
}

// ItemsByStatus returns items matching a status ordered by creation time.
func (s *Store) ItemsByStatus(ctx context.Context, status Status) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM queue_items WHERE status = ? ORDER BY created_at`, status)
	if err != nil {
		return nil, fmt.Errorf("query by status: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// List returns queue items filtered by status set (or all items when no
// status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + itemColumns + ` FROM queue_items`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Health aggregates queue item counts per lifecycle state.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM queue_items GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("queue health: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, err
		}
		summary.Total += count
		switch Status(status) {
		case StatusPending:
			summary.Pending += count
		case StatusAccepted:
			summary.Accepted += count
		case StatusRejected:
			summary.Rejected += count
		case StatusFailed:
			summary.Failed += count
		default:
			summary.Processing += count
		}
	}
	return summary, rows.Err()
}

// RetryFailed resets failed items back to pending so a later run can pick
// them up. Retry state, failure details, and partial pipeline output are
// cleared.
func (s *Store) RetryFailed(ctx context.Context) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, category = NULL, confidence = 0, extraction_json = NULL,
             revision_count = 0, critic_notes_json = NULL, retry_count = 0,
             error_message = NULL, failure_reason = NULL, needs_review = 0,
             review_reason = NULL, updated_at = ?
         WHERE status = ?`,
		StatusPending,
		timestamp,
		StatusFailed,
	)
	if err != nil {
		return 0, fmt.Errorf("retry failed items: %w", err)
	}
	return res.RowsAffected()
}

// FailInFlight marks items stranded in a processing status as failed with the
// given reason. Used when a run is interrupted before its workers finish.
func (s *Store) FailInFlight(ctx context.Context, reason, message string) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, failure_reason = ?, error_message = ?, updated_at = ?
         WHERE status IN (?, ?, ?, ?, ?)`,
		StatusFailed,
		reason,
		message,
		timestamp,
		StatusClassifying,
		StatusClassified,
		StatusExtracting,
		StatusExtracted,
		StatusReviewing,
	)
	if err != nil {
		return 0, fmt.Errorf("fail in-flight items: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all queue items. Audit records and tickets for those items
// cascade.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// ClearTerminal removes only items that reached a terminal status.
func (s *Store) ClearTerminal(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM queue_items WHERE status IN (?, ?, ?)`,
		StatusAccepted,
		StatusRejected,
		StatusFailed,
	)
	if err != nil {
		return 0, fmt.Errorf("clear terminal items: %w", err)
	}
	return res.RowsAffected()
}
