package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func captureLog(t *testing.T, status int, target string) string {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	wrapped := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	req := httptest.NewRequest(http.MethodGet, target, nil)
	wrapped.ServeHTTP(httptest.NewRecorder(), req)
	return buf.String()
}

func TestLogger_RecordsRequestFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	wrapped := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recipes", nil)
	req.Header.Set("User-Agent", "TestBrowser/2.0")
	wrapped.ServeHTTP(httptest.NewRecorder(), req)

	var line struct {
		Method     string  `json:"method"`
		Path       string  `json:"path"`
		StatusCode int     `json:"status_code"`
		Bytes      int     `json:"bytes"`
		DurationMS float64 `json:"duration_ms"`
		UserAgent  string  `json:"user_agent"`
	}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, buf.String())
	}

	if line.Method != http.MethodPost {
		t.Errorf("method = %q, want POST", line.Method)
	}
	if line.Path != "/api/v1/recipes" {
		t.Errorf("path = %q", line.Path)
	}
	if line.StatusCode != http.StatusCreated {
		t.Errorf("status_code = %d, want 201", line.StatusCode)
	}
	if line.Bytes != len(`{"ok":true}`) {
		t.Errorf("bytes = %d, want the body length", line.Bytes)
	}
	if line.DurationMS < 0 {
		t.Errorf("duration_ms = %v, want non-negative", line.DurationMS)
	}
	if line.UserAgent != "TestBrowser/2.0" {
		t.Errorf("user_agent = %q", line.UserAgent)
	}
}

func TestLogger_PathExcludesQueryString(t *testing.T) {
	t.Parallel()

	out := captureLog(t, http.StatusOK, "/api/v1/recipes?search=chicken+tikka")

	if !strings.Contains(out, `"path":"/api/v1/recipes"`) {
		t.Errorf("expected bare path in log output, got: %s", out)
	}
	if strings.Contains(out, "chicken+tikka") {
		t.Error("log output contains the raw query string")
	}
}

func TestLogger_LevelTracksStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"ok", http.StatusOK, "INFO"},
		{"created", http.StatusCreated, "INFO"},
		{"bad request", http.StatusBadRequest, "WARN"},
		{"not found", http.StatusNotFound, "WARN"},
		{"unprocessable", http.StatusUnprocessableEntity, "WARN"},
		{"rate limited", http.StatusTooManyRequests, "WARN"},
		{"internal error", http.StatusInternalServerError, "ERROR"},
		{"bad gateway", http.StatusBadGateway, "ERROR"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out := captureLog(t, tt.status, "/test")
			if !strings.Contains(out, `"level":"`+tt.wantLevel+`"`) {
				t.Errorf("status %d logged as %s, want level %s", tt.status, out, tt.wantLevel)
			}
		})
	}
}

func TestStatusRecorder(t *testing.T) {
	t.Parallel()

	t.Run("captures explicit status", func(t *testing.T) {
		t.Parallel()
		rec := newStatusRecorder(httptest.NewRecorder())
		rec.WriteHeader(http.StatusNoContent)
		if rec.code != http.StatusNoContent {
			t.Errorf("code = %d, want 204", rec.code)
		}
	})

	t.Run("write without header defaults to 200", func(t *testing.T) {
		t.Parallel()
		rec := newStatusRecorder(httptest.NewRecorder())
		_, _ = rec.Write([]byte("hello"))
		if rec.code != http.StatusOK {
			t.Errorf("code = %d, want 200", rec.code)
		}
		if rec.bytes != 5 {
			t.Errorf("bytes = %d, want 5", rec.bytes)
		}
	})

	t.Run("second WriteHeader ignored", func(t *testing.T) {
		t.Parallel()
		rec := newStatusRecorder(httptest.NewRecorder())
		rec.WriteHeader(http.StatusCreated)
		rec.WriteHeader(http.StatusInternalServerError)
		if rec.code != http.StatusCreated {
			t.Errorf("code = %d, want the first status kept", rec.code)
		}
	})

	t.Run("accumulates written bytes", func(t *testing.T) {
		t.Parallel()
		rec := newStatusRecorder(httptest.NewRecorder())
		_, _ = rec.Write([]byte("hello "))
		_, _ = rec.Write([]byte("world"))
		if rec.bytes != 11 {
			t.Errorf("bytes = %d, want 11", rec.bytes)
		}
	})
}
