package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// ScanHandler serves the scan history and the audit log.
type ScanHandler struct {
	scans domain.ScanStore
	audit domain.AuditStore
}

// NewScanHandler creates a ScanHandler. audit may be nil.
func NewScanHandler(scans domain.ScanStore, audit domain.AuditStore) *ScanHandler {
	return &ScanHandler{scans: scans, audit: audit}
}

// List handles GET /api/scans.
func (h *ScanHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.scans.ListRecent(r.Context(), parseListOpts(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if list == nil {
		list = []domain.ScanResult{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Summary handles GET /api/scans/summary, counting outcomes since the
// "since" parameter or over the last 24 hours.
func (h *ScanHandler) Summary(w http.ResponseWriter, r *http.Request) {
	since := time.Now().Add(-24 * time.Hour)
	if opts := parseListOpts(r); opts.Since != nil {
		since = *opts.Since
	}
	counts, err := h.scans.CountByOutcome(r.Context(), since)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"since":    since.UTC(),
		"outcomes": counts,
	})
}

// Audit handles GET /api/audit.
func (h *ScanHandler) Audit(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeError(w, http.StatusServiceUnavailable, "audit log disabled")
		return
	}
	entries, err := h.audit.List(r.Context(), parseListOpts(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
