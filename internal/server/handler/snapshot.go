package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// SnapshotHandler exposes the value snapshot.
type SnapshotHandler struct {
	cache  SnapshotCache
	audit  domain.AuditStore
	logger *slog.Logger
}

// NewSnapshotHandler creates a SnapshotHandler. audit may be nil.
func NewSnapshotHandler(cache SnapshotCache, audit domain.AuditStore, logger *slog.Logger) *SnapshotHandler {
	return &SnapshotHandler{
		cache:  cache,
		audit:  audit,
		logger: logger.With(slog.String("handler", "snapshot")),
	}
}

// GetSnapshot handles GET /api/snapshot. It never triggers a fetch.
func (h *SnapshotHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, snapshotInfo(h.cache.Peek(r.Context()), h.cache.SnapshotAgeSeconds()))
}

// Refresh handles POST /api/snapshot/refresh. A failed fetch still answers
// 200 with the snapshot that remains in use; compare fetched_at.
func (h *SnapshotHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	before := h.cache.Peek(r.Context()).FetchedAt
	snap := h.cache.GetSnapshot(r.Context(), nil, true)
	refreshed := snap.FetchedAt.After(before)

	if h.audit != nil {
		detail := map[string]any{"refreshed": refreshed, "items": snap.Len()}
		if err := h.audit.Log(r.Context(), "snapshot_refresh", detail); err != nil {
			h.logger.WarnContext(r.Context(), "audit failed", slog.String("error", err.Error()))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"refreshed": refreshed,
		"snapshot":  snapshotInfo(snap, h.cache.SnapshotAgeSeconds()),
	})
}

type itemView struct {
	AssetID      int64  `json:"asset_id"`
	Name         string `json:"name"`
	Acronym      string `json:"acronym,omitempty"`
	RAP          int64  `json:"rap"`
	Value        int64  `json:"value"`
	DefaultValue int64  `json:"default_value"`
	Demand       int64  `json:"demand"`
	Trend        int64  `json:"trend"`
	Projected    bool   `json:"projected"`
	Hyped        bool   `json:"hyped"`
	Rare         bool   `json:"rare"`
	RapOnly      bool   `json:"rap_only"`
}

// GetItem handles GET /api/snapshot/items/{assetId}.
func (h *SnapshotHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	assetID, err := strconv.ParseInt(r.PathValue("assetId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "asset id must be an integer")
		return
	}
	row, ok := h.cache.Peek(r.Context()).Row(assetID)
	if !ok {
		writeError(w, http.StatusNotFound, "item not in snapshot")
		return
	}
	writeJSON(w, http.StatusOK, itemView{
		AssetID:      assetID,
		Name:         row.Name,
		Acronym:      row.Acronym,
		RAP:          row.RAP,
		Value:        row.Value,
		DefaultValue: row.DefaultValue,
		Demand:       row.Demand,
		Trend:        row.Trend,
		Projected:    row.Projected,
		Hyped:        row.Hyped,
		Rare:         row.Rare,
		RapOnly:      !row.HasValue(),
	})
}
