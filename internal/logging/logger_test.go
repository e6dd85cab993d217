package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"triage/internal/logging"
	"triage/internal/services"
)

func newBufferedConsoleLogger(t *testing.T, buf *bytes.Buffer) *slog.Logger {
	t.Helper()
	logger, err := logging.NewForWriter(buf, "debug", "console")
	if err != nil {
		t.Fatalf("construct logger: %v", err)
	}
	return logger
}

func TestConsoleHandlerFoldsComponentIntoPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferedConsoleLogger(t, &buf)

	logging.NewComponentLogger(logger, "classifier").Info("stage started", logging.String("status", "classifying"))

	line := buf.String()
	if !strings.Contains(line, "classifier: stage started") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, "status=classifying") {
		t.Fatalf("expected attr rendering, got %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component attr should be folded into prefix: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferedConsoleLogger(t, &buf)

	logger.Info("msg", logging.String("note", "missing repro steps"))
	if !strings.Contains(buf.String(), `note="missing repro steps"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestJSONHandlerEmitsLowercaseLevels(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewForWriter(&buf, "info", "json")
	if err != nil {
		t.Fatalf("construct logger: %v", err)
	}
	logger.Warn("careful", logging.Int("count", 3))

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode json log line: %v", err)
	}
	if decoded["level"] != "warn" {
		t.Fatalf("expected lowercase level, got %v", decoded["level"])
	}
	if decoded["msg"] != "careful" {
		t.Fatalf("unexpected msg: %v", decoded["msg"])
	}
}

func TestWithContextAddsItemFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferedConsoleLogger(t, &buf)

	ctx := services.WithItemID(t.Context(), 7)
	ctx = services.WithStage(ctx, "reviewing")
	ctx = services.WithBatchID(ctx, "batch-1")

	logging.WithContext(ctx, logger).Info("checkpoint")
	line := buf.String()
	for _, fragment := range []string{"item_id=7", "stage=reviewing", "batch_id=batch-1"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("should not panic", logging.Error(nil))
}
