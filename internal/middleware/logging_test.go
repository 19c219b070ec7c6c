package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// captureLogs routes the default logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		handler   http.HandlerFunc
		wantCode  int
		wantLevel string
		wantBytes string
	}{
		{
			name:      "explicit status",
			path:      "/api/items/x",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) },
			wantCode:  http.StatusNotFound,
			wantLevel: "level=INFO",
			wantBytes: "bytes=0",
		},
		{
			name:      "implicit 200 with body",
			path:      "/api/items",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("hello")) },
			wantCode:  http.StatusOK,
			wantLevel: "level=INFO",
			wantBytes: "bytes=5",
		},
		{
			name:      "server error logged as error",
			path:      "/api/trigger/publish",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			wantCode:  http.StatusBadGateway,
			wantLevel: "level=ERROR",
		},
		{
			name:      "health probe at debug",
			path:      "/health",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) },
			wantCode:  http.StatusOK,
			wantLevel: "level=DEBUG",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := captureLogs(t)
			handler := chimw.RequestID(Logger(tt.handler))

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rr.Code != tt.wantCode {
				t.Errorf("status: got %d, want %d", rr.Code, tt.wantCode)
			}
			out := logs.String()
			if !strings.Contains(out, tt.wantLevel) {
				t.Errorf("log level: want %s in %q", tt.wantLevel, out)
			}
			if tt.wantBytes != "" && !strings.Contains(out, tt.wantBytes) {
				t.Errorf("log size: want %s in %q", tt.wantBytes, out)
			}
			if !strings.Contains(out, "request_id=") || strings.Contains(out, "request_id= ") {
				t.Errorf("request id missing from %q", out)
			}
		})
	}
}

func TestResponseWriterFirstStatusWins(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusCreated)
	rw.WriteHeader(http.StatusInternalServerError)
	rw.Write([]byte("created"))

	if rw.statusCode != http.StatusCreated {
		t.Errorf("statusCode: got %d, want 201", rw.statusCode)
	}
	if rw.bytes != len("created") {
		t.Errorf("bytes: got %d", rw.bytes)
	}
}
