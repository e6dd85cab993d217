// Package export renders the pipeline's persisted results as CSV files for
// downstream consumers: the generated tickets, the per-item processing log,
// batch metrics, and the manual-review bucket.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"triage/internal/config"
	"triage/internal/logging"
	"triage/internal/queue"
)

const (
	TicketsFile      = "generated_tickets.csv"
	ProcessingFile   = "processing_log.csv"
	MetricsFile      = "metrics.csv"
	ReviewBucketFile = "review_bucket.csv"
)

// ticketFieldOrder is the union of every category contract, in the column
// order the tickets CSV uses. Fields a category lacks stay empty.
var ticketFieldOrder = []string{
	"summary",
	"reproduction_steps",
	"severity_guess",
	"requested_capability",
	"user_impact",
}

// Exporter writes CSV artifacts into the configured output directory.
type Exporter struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
}

// New constructs an exporter.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Exporter{cfg: cfg, store: store, logger: logger.With(logging.String("component", "export"))}
}

// Run writes all four artifacts and returns their paths.
func (e *Exporter) Run(ctx context.Context) ([]string, error) {
	if err := e.cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure output dir: %w", err)
	}

	writers := []struct {
		name string
		fn   func(context.Context, *csv.Writer) error
	}{
		{TicketsFile, e.writeTickets},
		{ProcessingFile, e.writeProcessingLog},
		{MetricsFile, e.writeMetrics},
		{ReviewBucketFile, e.writeReviewBucket},
	}

	paths := make([]string, 0, len(writers))
	for _, w := range writers {
		path := filepath.Join(e.cfg.Paths.OutputDir, w.name)
		if err := e.writeFile(ctx, path, w.fn); err != nil {
			return nil, fmt.Errorf("write %s: %w", w.name, err)
		}
		paths = append(paths, path)
	}

	e.logger.Info("export complete",
		logging.String("output_dir", e.cfg.Paths.OutputDir),
		logging.Int("files", len(paths)),
	)
	return paths, nil
}

func (e *Exporter) writeFile(ctx context.Context, path string, fn func(context.Context, *csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := fn(ctx, w); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func (e *Exporter) writeTickets(ctx context.Context, w *csv.Writer) error {
	header := append([]string{"ticket_id", "feedback_id", "category", "status", "revision_count"}, ticketFieldOrder...)
	header = append(header, "critic_notes")
	if err := w.Write(header); err != nil {
		return err
	}

	tickets, err := e.store.ListTickets(ctx)
	if err != nil {
		return err
	}
	for _, tk := range tickets {
		row := []string{
			tk.TicketID,
			tk.FeedbackID,
			string(tk.Category),
			string(tk.Status),
			strconv.Itoa(tk.RevisionCount),
		}
		for _, field := range ticketFieldOrder {
			row = append(row, tk.Extraction[field])
		}
		row = append(row, strings.Join(tk.CriticNotes, " | "))
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) writeProcessingLog(ctx context.Context, w *csv.Writer) error {
	if err := w.Write([]string{"feedback_id", "item_id", "stage", "from_status", "to_status", "detail", "recorded_at"}); err != nil {
		return err
	}

	records, err := e.store.ListAudit(ctx)
	if err != nil {
		return err
	}
	for _, record := range records {
		row := []string{
			record.FeedbackID,
			strconv.FormatInt(record.ItemID, 10),
			record.Stage,
			string(record.FromStatus),
			string(record.ToStatus),
			record.Detail,
			record.RecordedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) writeMetrics(ctx context.Context, w *csv.Writer) error {
	if err := w.Write([]string{"batch_id", "name", "value", "recorded_at"}); err != nil {
		return err
	}

	metrics, err := e.store.ListMetrics(ctx, "")
	if err != nil {
		return err
	}
	for _, metric := range metrics {
		row := []string{
			metric.BatchID,
			metric.Name,
			strconv.FormatFloat(metric.Value, 'f', -1, 64),
			metric.RecordedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// writeReviewBucket lists items flagged for a human: unclassified feedback
// routed to review plus anything else carrying the needs_review flag.
func (e *Exporter) writeReviewBucket(ctx context.Context, w *csv.Writer) error {
	if err := w.Write([]string{"feedback_id", "source", "category", "status", "reason", "text"}); err != nil {
		return err
	}

	items, err := e.store.List(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		if !item.NeedsReview {
			continue
		}
		reason := item.ReviewReason
		if reason == "" {
			reason = item.ErrorMessage
		}
		row := []string{
			item.FeedbackID,
			string(item.Source),
			string(item.Category),
			string(item.Status),
			reason,
			item.Text,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// TicketFieldOrder exposes the ticket CSV's extraction column order.
func TicketFieldOrder() []string {
	cp := make([]string, len(ticketFieldOrder))
	copy(cp, ticketFieldOrder)
	return cp
}
