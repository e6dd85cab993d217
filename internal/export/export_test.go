package export_test

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage/internal/export"
	"triage/internal/logging"
	"triage/internal/queue"
	"triage/internal/testsupport"
	"triage/internal/ticket"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func seedAcceptedItem(t *testing.T, store *queue.Store) *queue.Item {
	t.Helper()
	ctx := context.Background()
	item := testsupport.NewItem(t, store, "R-1", queue.SourceReview, "crashes when saving")
	item.Status = queue.StatusAccepted
	item.Category = ticket.CategoryBug
	require.NoError(t, store.Update(ctx, item))

	draft, err := ticket.Assemble("R-1", ticket.CategoryBug, ticket.ExtractionResult{
		"reproduction_steps": "1. edit 2. save",
		"severity_guess":     "high",
	})
	require.NoError(t, err)
	draft = draft.WithRevision("clarify the device")
	final, err := draft.Finalize(ticket.StatusAccepted)
	require.NoError(t, err)
	require.NoError(t, store.AppendTicket(ctx, item.ID, final))

	require.NoError(t, store.AppendAudit(ctx, queue.AuditRecord{
		ItemID:     item.ID,
		FeedbackID: item.FeedbackID,
		Stage:      "classification",
		FromStatus: queue.StatusPending,
		ToStatus:   queue.StatusClassifying,
	}))
	require.NoError(t, store.AppendMetric(ctx, "batch-1", "items_accepted", 1))
	return item
}

func TestRunWritesAllArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedAcceptedItem(t, store)

	paths, err := export.New(cfg, store, logging.NewNop()).Run(t.Context())
	require.NoError(t, err)
	require.Len(t, paths, 4)
	for _, path := range paths {
		_, statErr := os.Stat(path)
		assert.NoError(t, statErr, path)
	}
}

func TestTicketsCSVLayout(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedAcceptedItem(t, store)

	_, err := export.New(cfg, store, logging.NewNop()).Run(t.Context())
	require.NoError(t, err)

	rows := readCSV(t, filepath.Join(cfg.Paths.OutputDir, export.TicketsFile))
	require.Len(t, rows, 2)

	header := rows[0]
	assert.Equal(t, []string{"ticket_id", "feedback_id", "category", "status", "revision_count"}, header[:5])

	row := rows[1]
	byColumn := map[string]string{}
	for i, name := range header {
		byColumn[name] = row[i]
	}
	assert.Equal(t, "TKT-R-1", byColumn["ticket_id"])
	assert.Equal(t, "bug", byColumn["category"])
	assert.Equal(t, "accepted", byColumn["status"])
	assert.Equal(t, "1", byColumn["revision_count"])
	assert.Equal(t, "1. edit 2. save", byColumn["reproduction_steps"])
	assert.Equal(t, "high", byColumn["severity_guess"])
	assert.Empty(t, byColumn["requested_capability"], "fields outside the contract stay empty")
	assert.Equal(t, "clarify the device", byColumn["critic_notes"])
}

func TestTicketFieldOrderCoversEveryContract(t *testing.T) {
	known := map[string]struct{}{}
	for _, field := range export.TicketFieldOrder() {
		known[field] = struct{}{}
	}
	for _, category := range ticket.AllCategories() {
		fields, ok := ticket.ContractFields(category)
		if !ok {
			continue
		}
		for _, field := range fields {
			_, present := known[field]
			assert.True(t, present, "contract field %s of %s missing from export columns", field, category)
		}
	}
}

func TestProcessingLogAndMetrics(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedAcceptedItem(t, store)

	_, err := export.New(cfg, store, logging.NewNop()).Run(t.Context())
	require.NoError(t, err)

	log := readCSV(t, filepath.Join(cfg.Paths.OutputDir, export.ProcessingFile))
	require.Len(t, log, 2)
	assert.Equal(t, "R-1", log[1][0])
	assert.Equal(t, "classification", log[1][2])
	assert.Equal(t, "pending", log[1][3])
	assert.Equal(t, "classifying", log[1][4])

	metrics := readCSV(t, filepath.Join(cfg.Paths.OutputDir, export.MetricsFile))
	require.Len(t, metrics, 2)
	assert.Equal(t, []string{"batch_id", "name", "value", "recorded_at"}, metrics[0])
	assert.Equal(t, "batch-1", metrics[1][0])
	assert.Equal(t, "items_accepted", metrics[1][1])
	assert.Equal(t, "1", metrics[1][2])
}

func TestReviewBucketListsFlaggedItemsOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	flagged := testsupport.NewItem(t, store, "R-9", queue.SourceReview, "buy cheap watches")
	flagged.Status = queue.StatusRejected
	flagged.Category = ticket.CategoryUnclassified
	flagged.NeedsReview = true
	flagged.ReviewReason = "advertising"
	require.NoError(t, store.Update(ctx, flagged))

	clean := testsupport.NewItem(t, store, "R-10", queue.SourceReview, "fine feedback")
	clean.Status = queue.StatusAccepted
	require.NoError(t, store.Update(ctx, clean))

	_, err := export.New(cfg, store, logging.NewNop()).Run(t.Context())
	require.NoError(t, err)

	rows := readCSV(t, filepath.Join(cfg.Paths.OutputDir, export.ReviewBucketFile))
	require.Len(t, rows, 2)
	assert.Equal(t, "R-9", rows[1][0])
	assert.Equal(t, "advertising", rows[1][4])
}
