package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// --- Logging Tests ---

func TestLogLevel(t *testing.T) {
	tests := []struct {
		env  string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"ERROR", slog.LevelError},
		{"", slog.LevelWarn},
		{"garbage", slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Setenv("LOG_LEVEL", tt.env)
		if got := LogLevel(); got != tt.want {
			t.Errorf("LOG_LEVEL=%q: got %v, want %v", tt.env, got, tt.want)
		}
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "json", slog.LevelInfo)

	WithExecutionID(WithWorkflow(logger, "tripleo.plan.list"), "exec-1").Info("started")

	out := buf.String()
	if !strings.Contains(out, `"workflow":"tripleo.plan.list"`) {
		t.Errorf("expected workflow attribute, got %s", out)
	}
	if !strings.Contains(out, `"execution_id":"exec-1"`) {
		t.Errorf("expected execution_id attribute, got %s", out)
	}
}

func TestNewLogger_TextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "text", slog.LevelWarn)

	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered, got %s", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("warn message should be written, got %s", out)
	}
}

func TestFromContext(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := WithLogger(context.Background(), logger)

	if FromContext(ctx) != logger {
		t.Error("should return logger from context")
	}
	if FromContext(context.Background()) != slog.Default() {
		t.Error("should fall back to default logger")
	}
}

// --- Metrics Tests ---

func TestMetrics_Observe(t *testing.T) {
	m := NewMetrics()

	m.ObserveExecution("tripleo.baremetal.v1.provide", "SUCCESS", 2*time.Second)
	m.ObserveExecution("tripleo.baremetal.v1.provide", "SUCCESS", time.Second)
	m.ObserveMessage("tripleo.baremetal.v1.provide")

	got := testutil.ToFloat64(m.executions.WithLabelValues("tripleo.baremetal.v1.provide", "SUCCESS"))
	if got != 2 {
		t.Errorf("expected 2 executions, got %v", got)
	}
	if testutil.ToFloat64(m.messages.WithLabelValues("tripleo.baremetal.v1.provide")) != 1 {
		t.Error("expected 1 message")
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveExecution("wf", "SUCCESS", time.Second)
	m.ObserveMessage("wf")
	if err := m.Push(context.Background(), "http://localhost"); err != nil {
		t.Errorf("nil metrics push should be a no-op, got %v", err)
	}
}

func TestMetrics_Push(t *testing.T) {
	var path, method string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		method = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	m := NewMetrics()
	m.ObserveExecution("wf", "SUCCESS", time.Second)

	if err := m.Push(context.Background(), server.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if method != http.MethodPut {
		t.Errorf("expected PUT, got %s", method)
	}
	if path != "/metrics/job/"+pushJob {
		t.Errorf("unexpected push path %s", path)
	}
}

func TestMetrics_PushDisabled(t *testing.T) {
	if err := NewMetrics().Push(context.Background(), ""); err != nil {
		t.Errorf("empty url should disable push, got %v", err)
	}
}
