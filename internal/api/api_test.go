package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharkAndshark/mapflow/internal/accounts"
	"github.com/sharkAndshark/mapflow/internal/api"
	"github.com/sharkAndshark/mapflow/internal/api/handlers"
	"github.com/sharkAndshark/mapflow/internal/api/middleware"
	"github.com/sharkAndshark/mapflow/internal/catalog"
	"github.com/sharkAndshark/mapflow/internal/config"
	"github.com/sharkAndshark/mapflow/internal/ingest"
	"github.com/sharkAndshark/mapflow/internal/publish"
	"github.com/sharkAndshark/mapflow/internal/spatialstore"
	"github.com/sharkAndshark/mapflow/internal/tiles"
)

func newTestRouter(t *testing.T) (http.Handler, *accounts.Accounts) {
	t.Helper()
	cfg := config.Load()
	cfg.DBPath = t.TempDir() + "/test.duckdb"
	cfg.UploadDir = t.TempDir()

	store, err := spatialstore.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cat, err := catalog.New(context.Background(), store)
	require.NoError(t, err)

	acct := accounts.New(store)
	pipeline := ingest.NewPipeline(cfg, store, cat)
	engine := tiles.NewEngine(store)
	pub := publish.NewRouter(cat, "/tiles")
	h := handlers.New(cfg, store, cat, acct, pipeline, engine, pub)

	return api.NewRouter(cfg, h, acct), acct
}

func TestHealthCheck(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRouteRejectsWithoutSession(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRouteAcceptsValidSession(t *testing.T) {
	router, acct := newTestRouter(t)
	ctx := context.Background()

	require.NoError(t, acct.Bootstrap(ctx, "admin", "Sup3r$ecret"))
	sess, err := acct.Login(ctx, "admin", "Sup3r$ecret")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: sess.ID})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestBootstrapTwiceViaHTTPFails(t *testing.T) {
	router, _ := newTestRouter(t)

	body := `{"username":"admin","password":"Sup3r$ecret"}`
	req1 := httptest.NewRequest(http.MethodPost, "/api/auth/init", strings.NewReader(body))
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, req1)
	assert.Equal(t, http.StatusOK, rec1.Code)

	req2 := httptest.NewRequest(http.MethodPost, "/api/auth/init", strings.NewReader(body))
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusConflict, rec2.Code)
}

func TestBootstrapResponseIncludesRole(t *testing.T) {
	router, _ := newTestRouter(t)

	body := `{"username":"admin","password":"Sup3r$ecret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/init", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"username":"admin","role":"admin"}`, rec.Body.String())
}

func TestLoginResponseIncludesRole(t *testing.T) {
	router, acct := newTestRouter(t)
	require.NoError(t, acct.Bootstrap(context.Background(), "admin", "Sup3r$ecret"))

	body := `{"username":"admin","password":"Sup3r$ecret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"username":"admin","role":"admin"}`, rec.Body.String())
}

func TestCheckResponseIncludesRole(t *testing.T) {
	router, acct := newTestRouter(t)
	ctx := context.Background()
	require.NoError(t, acct.Bootstrap(ctx, "admin", "Sup3r$ecret"))
	sess, err := acct.Login(ctx, "admin", "Sup3r$ecret")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/check", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: sess.ID})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"username":"admin","role":"admin"}`, rec.Body.String())
}
