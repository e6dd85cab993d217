package main

import (
	"context"
	"strings"
	"testing"

	"triage/internal/queue"
)

func seedItem(t *testing.T, store *queue.Store, feedbackID string, status queue.Status) *queue.Item {
	t.Helper()
	item, inserted, err := store.NewItem(context.Background(), feedbackID, queue.SourceReview, "some feedback", "", "batch-test")
	if err != nil {
		t.Fatalf("NewItem: %v", err)
	}
	if !inserted {
		t.Fatalf("duplicate feedback id %s", feedbackID)
	}
	if status != queue.StatusPending {
		item.Status = status
		if err := store.Update(context.Background(), item); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	return item
}

func TestQueueStatusEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, []string{"queue", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestQueueStatusCounts(t *testing.T) {
	env := setupCLITestEnv(t)
	store := env.openStore(t)
	seedItem(t, store, "R-1", queue.StatusPending)
	seedItem(t, store, "R-2", queue.StatusAccepted)

	out, err := runCLI(t, []string{"queue", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, "pending")
	requireContains(t, out, "accepted")
}

func TestQueueListFiltersByStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	store := env.openStore(t)
	seedItem(t, store, "R-1", queue.StatusPending)
	seedItem(t, store, "R-2", queue.StatusFailed)

	out, err := runCLI(t, []string{"queue", "list", "--status", "failed"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "R-2")
	if strings.Contains(out, "R-1") {
		t.Fatalf("expected R-1 to be filtered out, got:\n%s", out)
	}
}

func TestQueueListRejectsUnknownStatus(t *testing.T) {
	env := setupCLITestEnv(t)

	_, err := runCLI(t, []string{"queue", "list", "--status", "bogus"}, env.configPath)
	if err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestQueueRetryRequeuesFailed(t *testing.T) {
	env := setupCLITestEnv(t)
	store := env.openStore(t)
	item := seedItem(t, store, "R-1", queue.StatusPending)
	item.SetFailed(queue.ReasonCancelled, "stopped")
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	out, err := runCLI(t, []string{"queue", "retry"}, env.configPath)
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	requireContains(t, out, "Requeued 1 failed items")

	refreshed, err := store.GetByFeedbackID(context.Background(), "R-1")
	if err != nil {
		t.Fatalf("GetByFeedbackID: %v", err)
	}
	if refreshed.Status != queue.StatusPending {
		t.Fatalf("expected pending after retry, got %s", refreshed.Status)
	}
}

func TestQueueClearRequiresForce(t *testing.T) {
	env := setupCLITestEnv(t)

	_, err := runCLI(t, []string{"queue", "clear"}, env.configPath)
	if err == nil {
		t.Fatal("expected error without --force")
	}

	out, err := runCLI(t, []string{"queue", "clear", "--force"}, env.configPath)
	if err != nil {
		t.Fatalf("queue clear --force: %v", err)
	}
	requireContains(t, out, "Cleared 0 queue items")
}

func TestQueueClearTerminalKeepsPending(t *testing.T) {
	env := setupCLITestEnv(t)
	store := env.openStore(t)
	seedItem(t, store, "R-1", queue.StatusPending)
	seedItem(t, store, "R-2", queue.StatusRejected)

	out, err := runCLI(t, []string{"queue", "clear", "--terminal"}, env.configPath)
	if err != nil {
		t.Fatalf("queue clear --terminal: %v", err)
	}
	requireContains(t, out, "Cleared 1 queue items")

	remaining, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(remaining) != 1 || remaining[0].FeedbackID != "R-1" {
		t.Fatalf("expected only R-1 to remain, got %d items", len(remaining))
	}
}

func TestShowPrintsItemAndAudit(t *testing.T) {
	env := setupCLITestEnv(t)
	store := env.openStore(t)
	item := seedItem(t, store, "R-1", queue.StatusAccepted)
	if err := store.AppendAudit(context.Background(), queue.AuditRecord{
		ItemID:     item.ID,
		FeedbackID: item.FeedbackID,
		Stage:      "classification",
		FromStatus: queue.StatusPending,
		ToStatus:   queue.StatusClassifying,
	}); err != nil {
		t.Fatalf("AppendAudit: %v", err)
	}

	out, err := runCLI(t, []string{"show", "R-1"}, env.configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "R-1")
	requireContains(t, out, "classification")

	_, err = runCLI(t, []string{"show", "missing"}, env.configPath)
	if err == nil {
		t.Fatal("expected error for unknown feedback id")
	}
}
