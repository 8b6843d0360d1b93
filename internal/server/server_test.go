package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/server/handler"
)

type emptyCache struct{}

func (emptyCache) GetSnapshot(context.Context, []string, bool) domain.ValueSnapshot {
	return domain.ValueSnapshot{}
}
func (emptyCache) Peek(context.Context) domain.ValueSnapshot { return domain.ValueSnapshot{} }
func (emptyCache) SnapshotAgeSeconds() int { return -1 }

func newTestServer(apiKey string) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := emptyCache{}
	handlers := Handlers{
		Health:   handler.NewHealthHandler(),
		Status:   handler.NewStatusHandler("server", time.Now(), domain.AllModes, cache, nil, logger),
		Snapshot: handler.NewSnapshotHandler(cache, nil, logger),
		Search:   handler.NewSearchHandler(nil, cache, domain.AllModes, logger),
	}
	return NewServer(Config{Port: 0, APIKey: apiKey}, handlers, nil, nil, logger).Handler()
}

func TestRoutes(t *testing.T) {
	h := newTestServer("")

	tests := []struct {
		method, path string
		want         int
	}{
		{"GET", "/api/health", 200},
		{"GET", "/api/status", 200},
		{"GET", "/api/snapshot", 200},
		{"GET", "/api/snapshot/items/1", 404},
		{"GET", "/api/candidates", 503},
		{"GET", "/api/scans/summary", 503},
		{"GET", "/metrics", 200},
		{"DELETE", "/api/status", 405},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
		}
	}
}

func TestRoutesRequireKey(t *testing.T) {
	h := newTestServer("k")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without key = %d, want 401", rec.Code)
	}

	for _, path := range []string{"/api/health", "/metrics"} {
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s without key = %d, want 200", path, rec.Code)
		}
	}
}
