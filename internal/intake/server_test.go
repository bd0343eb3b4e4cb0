package intake_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonesrussell/crawlsched/internal/intake"
	"github.com/jonesrussell/crawlsched/internal/logger"
)

func newTestServer(t *testing.T, store *fakeWorkStore, ping intake.Pinger) *intake.Server {
	t.Helper()
	cfg := &intake.Config{}
	svc := intake.NewService(store, logger.NewNoOp())
	srv, err := intake.NewServer(cfg, logger.NewNoOp(), svc, ping)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return srv
}

func TestServer_Health_ReturnsOK(t *testing.T) {
	srv := newTestServer(t, newFakeWorkStore(), func(context.Context) error { return nil })

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestServer_Ready_PingFails_ReturnsServiceUnavailable(t *testing.T) {
	srv := newTestServer(t, newFakeWorkStore(), func(context.Context) error {
		return fmt.Errorf("database down")
	})

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestServer_ScheduleURLs_ValidBody_SchedulesAndReturnsOK(t *testing.T) {
	store := newFakeWorkStore()
	srv := newTestServer(t, store, func(context.Context) error { return nil })

	body, _ := json.Marshal([]string{"https://example.com/a", "https://example.com/b"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/crawler/schedule-urls", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if len(store.added) != 2 {
		t.Fatalf("expected 2 items scheduled, got %d", len(store.added))
	}
}

func TestServer_ScheduleURLs_InvalidURL_ReturnsValidationError(t *testing.T) {
	store := newFakeWorkStore()
	srv := newTestServer(t, store, func(context.Context) error { return nil })

	body, _ := json.Marshal([]string{"not-a-url"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/crawler/schedule-urls", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d, body = %s", rec.Code, http.StatusUnprocessableEntity, rec.Body.String())
	}
	if len(store.added) != 0 {
		t.Fatalf("expected no items scheduled, got %d", len(store.added))
	}
}

func TestServer_RequestID_GeneratedWhenAbsent(t *testing.T) {
	srv := newTestServer(t, newFakeWorkStore(), func(context.Context) error { return nil })

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID header to be set")
	}
}
