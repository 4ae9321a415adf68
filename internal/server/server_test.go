package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/datagate/datagate/internal/config"
	"github.com/datagate/datagate/internal/metrics"
	"github.com/datagate/datagate/internal/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHealthz(t *testing.T) {
	tests := []struct {
		name     string
		health   func(context.Context) error
		wantCode int
		wantBody string
	}{
		{"no checks", nil, http.StatusOK, `"status":"ok"`},
		{"healthy", func(context.Context) error { return nil }, http.StatusOK, `"status":"ok"`},
		{"unhealthy", func(context.Context) error { return errors.New("db down") }, http.StatusServiceUnavailable, `"error":"db down"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(Routes{Health: tt.health}, quietLogger())
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			if !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Errorf("body %q missing %q", rr.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestStatusAndMetrics(t *testing.T) {
	registry := metrics.NewRegistry()
	httpMetrics, err := metrics.NewHTTPCollector(registry)
	if err != nil {
		t.Fatalf("NewHTTPCollector: %v", err)
	}

	h := NewHandler(Routes{
		Status:     func() any { return map[string]int{"runs": 2} },
		Metrics:    metrics.Handler(registry),
		Instrument: httpMetrics.InstrumentHandler,
	}, quietLogger())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status", nil))
	var status map[string]int
	if err := json.Unmarshal(rr.Body.Bytes(), &status); err != nil || status["runs"] != 2 {
		t.Fatalf("status body %q: %v", rr.Body.String(), err)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rr.Body.String(), `datagate_http_requests_total{method="GET",path="/status",status="200"} 1`) {
		t.Errorf("expected instrumented status request in metrics")
	}
}

func TestStatusRouteOptional(t *testing.T) {
	h := NewHandler(Routes{}, quietLogger())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 without a status source, got %d", rr.Code)
	}
}

func TestServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	cfg := config.ServerConfig{ReadTimeout: time.Second, WriteTimeout: time.Second, ShutdownTimeout: time.Second}
	srv := New(cfg, quietLogger(), NewHandler(Routes{}, quietLogger()))

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("Serve returned %v", err)
	}
}

type fakeErrorLog struct {
	list     []models.IngestionError
	resolved []string
	failList bool
}

func (f *fakeErrorLog) List(_ context.Context, limit int, unresolvedOnly bool) ([]models.IngestionError, error) {
	if f.failList {
		return nil, errors.New("db down")
	}
	var out []models.IngestionError
	for _, e := range f.list {
		if unresolvedOnly && e.Resolved {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeErrorLog) CountUnresolved(context.Context) (int, error) {
	n := 0
	for _, e := range f.list {
		if !e.Resolved {
			n++
		}
	}
	return n, nil
}

func (f *fakeErrorLog) MarkResolved(_ context.Context, id string) error {
	f.resolved = append(f.resolved, id)
	return nil
}

func TestErrorRoutes(t *testing.T) {
	log := &fakeErrorLog{list: []models.IngestionError{
		{ID: "e1", Source: "techcrunch", ErrorType: "timeout"},
		{ID: "e2", Source: "arxiv-papers", ErrorType: "fetch_failed", Resolved: true},
		{ID: "e3", Source: "openai-blog", ErrorType: "no_valid_items"},
	}}
	h := NewHandler(Routes{Errors: log}, quietLogger())

	tests := []struct {
		name       string
		url        string
		wantCode   int
		wantCount  int
		unresolved int
	}{
		{"all", "/errors", http.StatusOK, 3, 2},
		{"unresolved only", "/errors?unresolved_only=true", http.StatusOK, 2, 2},
		{"limited", "/errors?limit=1", http.StatusOK, 1, 2},
		{"bad limit", "/errors?limit=zero", http.StatusBadRequest, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.url, nil))
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			var body struct {
				Count      int `json:"count"`
				Unresolved int `json:"unresolved_count"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Count != tt.wantCount || body.Unresolved != tt.unresolved {
				t.Errorf("count = %d unresolved = %d, want %d and %d", body.Count, body.Unresolved, tt.wantCount, tt.unresolved)
			}
		})
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/errors/e3/resolve", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("resolve status = %d", rr.Code)
	}
	if len(log.resolved) != 1 || log.resolved[0] != "e3" {
		t.Errorf("resolved = %v", log.resolved)
	}
}

func TestErrorRoutesListFailure(t *testing.T) {
	h := NewHandler(Routes{Errors: &fakeErrorLog{failList: true}}, quietLogger())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/errors", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
}

func TestErrorRoutesAbsent(t *testing.T) {
	h := NewHandler(Routes{}, quietLogger())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/errors", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}
