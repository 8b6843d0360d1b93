package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// SnapshotCache is the price cache as seen by the API.
type SnapshotCache interface {
	GetSnapshot(ctx context.Context, ensureIDs []string, forceRefresh bool) domain.ValueSnapshot
	// Peek returns the snapshot in use without fetching.
	Peek(ctx context.Context) domain.ValueSnapshot
	SnapshotAgeSeconds() int
}

// StatusHandler reports the bot's mode, uptime and cache state.
type StatusHandler struct {
	mode      string
	startedAt time.Time
	modes     []domain.SearchMode
	cache     SnapshotCache
	processed domain.ProcessedSet
	logger    *slog.Logger
}

// NewStatusHandler creates a StatusHandler. processed may be nil.
func NewStatusHandler(mode string, startedAt time.Time, modes []domain.SearchMode, cache SnapshotCache, processed domain.ProcessedSet, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		mode:      mode,
		startedAt: startedAt,
		modes:     modes,
		cache:     cache,
		processed: processed,
		logger:    logger.With(slog.String("handler", "status")),
	}
}

// Status assembles the current BotStatus. The WebSocket hub sends it to new
// clients.
func (h *StatusHandler) Status(ctx context.Context) domain.BotStatus {
	st := domain.BotStatus{
		Mode:          h.mode,
		UptimeSeconds: int64(time.Since(h.startedAt) / time.Second),
		Snapshot:      snapshotInfo(h.cache.Peek(ctx), h.cache.SnapshotAgeSeconds()),
		TradingModes:  h.modes,
	}
	if h.processed != nil {
		n, err := h.processed.Count(ctx)
		if err != nil {
			h.logger.WarnContext(ctx, "count processed failed", slog.String("error", err.Error()))
		}
		st.Processed = n
	}
	return st
}

// GetStatus handles GET /api/status.
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Status(r.Context()))
}

func snapshotInfo(snap domain.ValueSnapshot, age int) domain.SnapshotInfo {
	return domain.SnapshotInfo{
		Items:      snap.Len(),
		AgeSeconds: age,
		FetchedAt:  snap.FetchedAt.UTC(),
	}
}
