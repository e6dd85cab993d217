package notifications_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"triage/internal/notifications"
	"triage/internal/testsupport"
)

type recorded struct {
	title    string
	body     string
	tags     string
	priority string
}

func newRecordingService(t *testing.T, batch, errors bool) (notifications.Service, *[]recorded) {
	t.Helper()
	var requests []recorded
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, recorded{
			title:    r.Header.Get("Title"),
			body:     string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Batch = batch
	cfg.Notifications.Errors = errors
	return notifications.NewService(cfg), &requests
}

func TestPublishBatchCompleted(t *testing.T) {
	svc, requests := newRecordingService(t, true, false)

	err := svc.Publish(t.Context(), notifications.EventBatchCompleted, notifications.Payload{
		"batch_id": "b-1",
		"accepted": "5",
		"rejected": "2",
		"failed":   "0",
		"duration": "12s",
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(*requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*requests))
	}
	got := (*requests)[0]
	if got.title != "Triage - Batch Complete" {
		t.Errorf("title = %q", got.title)
	}
	if want := "Batch b-1 complete: 5 accepted, 2 rejected, 0 failed in 12s"; got.body != want {
		t.Errorf("body = %q, want %q", got.body, want)
	}
	if got.priority != "" {
		t.Errorf("priority = %q, want unset for clean batch", got.priority)
	}
}

func TestPublishBatchCompletedWithFailuresEscalates(t *testing.T) {
	svc, requests := newRecordingService(t, true, false)

	if err := svc.Publish(t.Context(), notifications.EventBatchCompleted, notifications.Payload{
		"batch_id": "b-2", "accepted": "1", "rejected": "0", "failed": "3", "duration": "4s",
	}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	got := (*requests)[0]
	if got.priority != "high" {
		t.Errorf("priority = %q, want high", got.priority)
	}
}

func TestDisabledEventsAreSilent(t *testing.T) {
	svc, requests := newRecordingService(t, false, false)

	if err := svc.Publish(t.Context(), notifications.EventBatchStarted, notifications.Payload{"count": "9"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := svc.Publish(t.Context(), notifications.EventItemFailed, notifications.Payload{"feedback_id": "R-1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(*requests) != 0 {
		t.Fatalf("expected no requests for disabled events, got %d", len(*requests))
	}
}

func TestUnconfiguredTopicIsNoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(cfg)
	if err := svc.Publish(t.Context(), notifications.EventTest, nil); err != nil {
		t.Fatalf("noop Publish: %v", err)
	}
}

func TestServerErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(cfg)
	if err := svc.Publish(t.Context(), notifications.EventTest, nil); err == nil {
		t.Fatal("expected error for ntfy failure")
	}
}
