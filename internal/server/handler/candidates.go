package handler

import (
	"net/http"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// CandidateHandler serves stored trade candidates.
type CandidateHandler struct {
	store domain.CandidateStore
}

func NewCandidateHandler(store domain.CandidateStore) *CandidateHandler {
	return &CandidateHandler{store: store}
}

// List handles GET /api/candidates.
func (h *CandidateHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListRecent(r.Context(), parseListOpts(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if list == nil {
		list = []domain.TradeCandidate{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Get handles GET /api/candidates/{id}.
func (h *CandidateHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
