package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sharkAndshark/mapflow/internal/api/middleware"
	"github.com/sharkAndshark/mapflow/pkg/models"
)

type bootstrapRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Bootstrap handles POST /api/auth/init (spec §4.6 "Bootstrap").
func (h *Handlers) Bootstrap(w http.ResponseWriter, r *http.Request) {
	var req bootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.accounts.Bootstrap(r.Context(), req.Username, req.Password); err != nil {
		respondAppErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, models.User{Username: req.Username, Role: models.RoleAdmin})
}

// IsInitialized handles GET /api/test/is-initialized, a public probe the
// client UI uses to decide whether to show the bootstrap form.
func (h *Handlers) IsInitialized(w http.ResponseWriter, r *http.Request) {
	initialized, err := h.accounts.IsInitialized(r.Context())
	if err != nil {
		respondAppErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"initialized": initialized})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login (spec §4.6 "Login").
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondAppErr(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
	})
	respondJSON(w, http.StatusOK, models.User{Username: sess.Username, Role: models.RoleAdmin})
}

// Logout handles POST /api/auth/logout (spec §4.6 "Logout").
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		_ = h.accounts.Logout(r.Context(), cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	respondJSON(w, http.StatusOK, map[string]bool{"loggedOut": true})
}

// Check handles GET /api/auth/check (spec §4.6 "Check").
func (h *Handlers) Check(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "no session")
		return
	}
	sess, err := h.accounts.Check(r.Context(), cookie.Value)
	if err != nil {
		respondAppErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, models.User{Username: sess.Username, Role: models.RoleAdmin})
}
