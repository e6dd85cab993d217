// Package ingest loads raw feedback from the reviews and emails CSV exports
// and enqueues it for processing.
package ingest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"

	"triage/internal/config"
	"triage/internal/logging"
	"triage/internal/queue"
)

// Record is one raw feedback entry read from a CSV source.
type Record struct {
	FeedbackID string
	Source     queue.Source
	Text       string
	// Metadata holds any extra CSV columns keyed by header name.
	Metadata map[string]string
}

// Result summarizes one ingestion pass.
type Result struct {
	Enqueued  int
	Skipped   int
	Duplicate int
}

// Ingester reads feedback sources and fills the queue.
type Ingester struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
}

// New constructs an ingester.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Ingester{cfg: cfg, store: store, logger: logger.With(logging.String("component", "ingest"))}
}

// Run loads both configured sources and enqueues every record. A missing
// source file is skipped with a log line rather than failing the batch.
func (i *Ingester) Run(ctx context.Context, batchID string) (Result, error) {
	var total Result
	sources := []struct {
		path   string
		source queue.Source
		idCol  string
		txtCol string
	}{
		{i.cfg.Ingest.ReviewsFile, queue.SourceReview, "review_id", "review_text"},
		{i.cfg.Ingest.EmailsFile, queue.SourceEmail, "email_id", "body"},
	}

	for _, src := range sources {
		if strings.TrimSpace(src.path) == "" {
			continue
		}
		records, err := loadCSV(src.path, src.source, src.idCol, src.txtCol)
		if errors.Is(err, os.ErrNotExist) {
			i.logger.Info("source file absent, skipping",
				logging.String("source", string(src.source)),
				logging.String("path", src.path),
			)
			continue
		}
		if err != nil {
			return total, fmt.Errorf("load %s: %w", src.source, err)
		}

		result, err := i.enqueue(ctx, records, batchID)
		if err != nil {
			return total, err
		}
		total.Enqueued += result.Enqueued
		total.Skipped += result.Skipped
		total.Duplicate += result.Duplicate
	}

	i.logger.Info("ingestion complete",
		logging.String(logging.FieldBatchID, batchID),
		logging.Int("enqueued", total.Enqueued),
		logging.Int("skipped", total.Skipped),
		logging.Int("duplicate", total.Duplicate),
	)
	return total, nil
}

func (i *Ingester) enqueue(ctx context.Context, records []Record, batchID string) (Result, error) {
	var result Result
	for _, record := range records {
		if record.FeedbackID == "" {
			result.Skipped++
			continue
		}
		metadataJSON := ""
		if len(record.Metadata) > 0 {
			encoded, err := json.Marshal(record.Metadata)
			if err != nil {
				return result, fmt.Errorf("encode metadata for %s: %w", record.FeedbackID, err)
			}
			metadataJSON = string(encoded)
		}
		_, inserted, err := i.store.NewItem(ctx, record.FeedbackID, record.Source, record.Text, metadataJSON, batchID)
		if err != nil {
			return result, fmt.Errorf("enqueue %s: %w", record.FeedbackID, err)
		}
		if inserted {
			result.Enqueued++
		} else {
			result.Duplicate++
		}
	}
	return result, nil
}

// loadCSV reads one source file. Headers are matched after trimming and
// lowercasing, a UTF-8 BOM on the first header is tolerated, and all text is
// normalized to NFC so downstream matching sees one canonical form.
func loadCSV(path string, source queue.Source, idColumn, textColumn string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty file", path)
		}
		return nil, fmt.Errorf("%s: read header: %w", path, err)
	}

	idIdx, textIdx := -1, -1
	columns := make([]string, len(header))
	for idx, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF")))
		columns[idx] = name
		switch name {
		case idColumn:
			idIdx = idx
		case textColumn:
			textIdx = idx
		}
	}
	if idIdx < 0 || textIdx < 0 {
		return nil, fmt.Errorf("%s: missing required columns %q and %q", path, idColumn, textColumn)
	}

	var records []Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: read row: %w", path, err)
		}

		record := Record{Source: source}
		for idx, value := range row {
			if idx >= len(columns) {
				continue
			}
			value = norm.NFC.String(strings.TrimSpace(value))
			switch idx {
			case idIdx:
				record.FeedbackID = value
			case textIdx:
				record.Text = value
			default:
				if value != "" {
					if record.Metadata == nil {
						record.Metadata = make(map[string]string)
					}
					record.Metadata[columns[idx]] = value
				}
			}
		}
		records = append(records, record)
	}
	return records, nil
}
