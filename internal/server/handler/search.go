package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/valuation"
)

// SearchEngine runs trade searches.
type SearchEngine interface {
	Run(mode domain.SearchMode, mine, theirs []domain.InventoryItem, snap domain.ValueSnapshot) ([]domain.TradeCandidate, error)
	Best(modes []domain.SearchMode, mine, theirs []domain.InventoryItem, snap domain.ValueSnapshot) ([]domain.TradeCandidate, error)
}

// SearchHandler runs ad-hoc searches over caller-supplied inventories.
type SearchHandler struct {
	engine       SearchEngine
	cache        SnapshotCache
	defaultModes []domain.SearchMode
	logger       *slog.Logger
}

func NewSearchHandler(engine SearchEngine, cache SnapshotCache, defaultModes []domain.SearchMode, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		engine:       engine,
		cache:        cache,
		defaultModes: defaultModes,
		logger:       logger.With(slog.String("handler", "search")),
	}
}

type searchRequest struct {
	Mode   string                 `json:"mode"`
	Modes  []string               `json:"modes"`
	Mine   []domain.InventoryItem `json:"mine"`
	Theirs []domain.InventoryItem `json:"theirs"`
}

type searchResponse struct {
	Candidate   *domain.TradeCandidate `json:"candidate"`
	SnapshotAge int                    `json:"snapshot_age_seconds"`
	TookMS      int64                  `json:"took_ms"`
}

// Search handles POST /api/search. "mode" runs one strategy, "modes" picks
// the first hit in order, and neither uses the configured trading modes.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Mine) == 0 || len(req.Theirs) == 0 {
		writeError(w, http.StatusBadRequest, "mine and theirs must not be empty")
		return
	}

	modes := h.defaultModes
	if req.Mode != "" {
		req.Modes = []string{req.Mode}
	}
	if len(req.Modes) > 0 {
		modes = make([]domain.SearchMode, 0, len(req.Modes))
		for _, name := range req.Modes {
			m, ok := domain.ParseSearchMode(name)
			if !ok {
				writeError(w, http.StatusBadRequest, "unknown mode: "+name)
				return
			}
			modes = append(modes, m)
		}
	}

	start := time.Now()
	snap := h.cache.GetSnapshot(r.Context(), valuation.AssetKeys(req.Mine, req.Theirs), false)

	var (
		found []domain.TradeCandidate
		err   error
	)
	if len(modes) == 1 {
		found, err = h.engine.Run(modes[0], req.Mine, req.Theirs, snap)
	} else {
		found, err = h.engine.Best(modes, req.Mine, req.Theirs, snap)
	}
	if err != nil {
		if errors.Is(err, domain.ErrUnknownMode) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "search failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	resp := searchResponse{
		SnapshotAge: snap.AgeSeconds(time.Now()),
		TookMS:      time.Since(start).Milliseconds(),
	}
	if len(found) > 0 {
		c := found[0]
		c.SnapshotAge = resp.SnapshotAge
		resp.Candidate = &c
	}
	writeJSON(w, http.StatusOK, resp)
}
