package handlers

import (
	"net/http"

	"github.com/sharkAndshark/mapflow/internal/apperr"
)

// respondAppErr is the single place mapping an apperr.Kind to an HTTP
// status (spec §7 "Error Handling Design"). Handlers pass every error
// returned by a domain package through it; request-level checks the
// handlers make themselves (bad body, not-ready dataset) write their
// status directly with respondError.
func respondAppErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.Validation:
		status = http.StatusBadRequest
	case apperr.Unauthorized:
		status = http.StatusUnauthorized
	case apperr.NotFound:
		status = http.StatusNotFound
	case apperr.Conflict:
		status = http.StatusConflict
	case apperr.TooLarge:
		status = http.StatusRequestEntityTooLarge
	case apperr.Unsupported:
		status = http.StatusBadRequest
	case apperr.Internal:
		status = http.StatusInternalServerError
	}
	respondError(w, status, apperr.Message(err))
}
