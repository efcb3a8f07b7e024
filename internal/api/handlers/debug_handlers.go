package handlers

import "net/http"

// Reset handles POST /api/test/reset: debug+testmode only (spec §6.1,
// §4.6 "Debug-only"). Dropping every per-dataset table and truncating the
// catalog gives integration tests a clean slate between runs.
func (h *Handlers) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.ResetAll(r.Context()); err != nil {
		respondAppErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"reset": true})
}
