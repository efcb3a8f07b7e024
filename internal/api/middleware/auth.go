package middleware

import (
	"context"
	"net/http"

	"github.com/sharkAndshark/mapflow/internal/accounts"
	"github.com/sharkAndshark/mapflow/internal/apperr"
	"github.com/sharkAndshark/mapflow/pkg/models"
)

// SessionCookieName is the HTTP-only cookie carrying the session id (spec
// §4.6 "Login").
const SessionCookieName = "mapflow_session"

type contextKey string

const sessionKey contextKey = "session"

// AuthMiddleware gates the admin-only route zone with the single session
// cookie issued by internal/accounts (spec §4.6 "Route policy"). Public
// paths — the slug tile route, bootstrap probe, login/init/logout/check —
// never pass through this middleware; router.go mounts it only on the
// admin sub-route group.
type AuthMiddleware struct {
	accounts *accounts.Accounts
}

func NewAuthMiddleware(a *accounts.Accounts) *AuthMiddleware {
	return &AuthMiddleware{accounts: a}
}

func (am *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil {
			respondUnauthorized(w)
			return
		}
		sess, err := am.accounts.Check(r.Context(), cookie.Value)
		if err != nil {
			respondUnauthorized(w)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func respondUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + apperr.Message(apperr.New(apperr.Unauthorized, "authentication required")) + `"}`))
}

// GetSession retrieves the authenticated session from request context.
// Only valid inside handlers mounted behind AuthMiddleware.
func GetSession(ctx context.Context) *models.Session {
	sess, _ := ctx.Value(sessionKey).(*models.Session)
	return sess
}
