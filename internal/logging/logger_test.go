package logging

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_Format(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "info", "json").Info("hello", "rows", 3)
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"rows":3`) {
		t.Errorf("json output = %q", buf.String())
	}

	buf.Reset()
	New(&buf, "info", "text").Info("hello", "rows", 3)
	if !strings.Contains(buf.String(), "msg=hello rows=3") {
		t.Errorf("text output = %q", buf.String())
	}

	buf.Reset()
	New(&buf, "warn", "text").Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info written at warn level: %q", buf.String())
	}
}

func TestWithFields_RequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(New(&buf, "info", "text"))
	t.Cleanup(func() { slog.SetDefault(prev) })

	var handlerCtx context.Context
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCtx = r.Context()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	WithFields(handlerCtx, nil, "run_id", "r1").Info("validation started")

	out := buf.String()
	if !strings.Contains(out, "request_id=") || !strings.Contains(out, "run_id=r1") {
		t.Errorf("log line missing fields: %q", out)
	}
}

func TestWithFields_Base(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, "info", "text")

	WithFields(context.Background(), base, "schema", "produtos").Info("run finished")

	out := buf.String()
	if !strings.Contains(out, "schema=produtos") {
		t.Errorf("log line missing field: %q", out)
	}
	if strings.Contains(out, "request_id=") {
		t.Errorf("request_id without a request: %q", out)
	}
}
