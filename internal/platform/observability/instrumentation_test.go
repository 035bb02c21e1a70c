package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func setupBuffer(t *testing.T, enabled bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	shutdown, err := Setup(context.Background(), Config{Enabled: enabled, Service: "tensosense"}, logger)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	t.Cleanup(func() { _ = shutdown(context.Background()) })
	buf.Reset()
	return &buf
}

func TestRecordMetricOrdersLabels(t *testing.T) {
	buf := setupBuffer(t, true)

	RecordMetric(context.Background(), "hub.broadcast", 3, map[string]string{"kind": "tension", "component": "hub"})

	out := buf.String()
	if !strings.Contains(out, "metric=hub.broadcast") {
		t.Fatalf("metric name missing: %s", out)
	}
	if strings.Index(out, "component=hub") > strings.Index(out, "kind=tension") {
		t.Fatalf("labels not sorted: %s", out)
	}
	if !strings.Contains(out, "service=tensosense") {
		t.Fatalf("service attr missing: %s", out)
	}
}

func TestSpanRecordsError(t *testing.T) {
	buf := setupBuffer(t, true)

	_, end := StartSpan(context.Background(), "transport.websocket", "handle")
	end(errors.New("upgrade failed"))

	out := buf.String()
	if !strings.Contains(out, "obs span start") || !strings.Contains(out, "upgrade failed") {
		t.Fatalf("unexpected span output: %s", out)
	}
}

func TestDisabledEmitsNothing(t *testing.T) {
	buf := setupBuffer(t, false)

	Count(context.Background(), "ignored", nil)
	_, end := StartSpan(context.Background(), "x", "y")
	end(nil)

	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %s", buf.String())
	}
	if Enabled() {
		t.Fatal("expected disabled")
	}
}
