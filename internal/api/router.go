package api

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sharkAndshark/mapflow/internal/accounts"
	"github.com/sharkAndshark/mapflow/internal/api/handlers"
	"github.com/sharkAndshark/mapflow/internal/api/middleware"
	"github.com/sharkAndshark/mapflow/internal/config"
)

// NewRouter builds the HTTP router and partitions it into the three zones
// of spec §4.6 "Route policy": public, admin-only, and debug-only.
func NewRouter(cfg *config.Config, h *handlers.Handlers, acct *accounts.Accounts) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)

	isWildcard := len(cfg.CORSOrigins) == 0
	origins := cfg.CORSOrigins
	if isWildcard {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: !isWildcard,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler)

	// Zone 1: public.
	r.Get("/tiles/{slug}/{z}/{x}/{y}", h.PublicTile)
	r.Post("/api/auth/init", h.Bootstrap)
	r.Post("/api/auth/login", h.Login)
	r.Post("/api/auth/logout", h.Logout)
	r.Get("/api/auth/check", h.Check)
	r.Get("/api/test/is-initialized", h.IsInitialized)

	// Zone 3: debug-only. The route is registered only when the binary is
	// built with the debug tag and the runtime test-mode flag is set; the
	// handler itself checks neither.
	if debugBuild && cfg.TestMode {
		r.Post("/api/test/reset", h.Reset)
	}

	// Zone 2: admin-only.
	r.Group(func(r chi.Router) {
		authMW := middleware.NewAuthMiddleware(acct)
		r.Use(authMW.Handler)

		r.Route("/api/files", func(r chi.Router) {
			r.Get("/", h.ListFiles)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/preview", h.Preview)
				r.Get("/tiles/{z}/{x}/{y}", h.Tile)
				r.Get("/schema", h.Schema)
				r.Get("/features/{fid}", h.Feature)
				r.Post("/publish", h.Publish)
				r.Post("/unpublish", h.Unpublish)
			})
		})
		r.Post("/api/uploads", h.Upload)
	})

	serveWebBundle(r, cfg.WebDist)
	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy", "service": "mapflow"})
}

// serveWebBundle serves the built dashboard SPA, falling back to
// index.html for client-side routes, if a dist directory is configured.
func serveWebBundle(r chi.Router, dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); err != nil {
		return
	}
	fileServer := http.FileServer(http.Dir(dir))
	r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
		path := filepath.Join(dir, strings.TrimPrefix(req.URL.Path, "/"))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			http.ServeFile(w, req, filepath.Join(dir, "index.html"))
			return
		}
		fileServer.ServeHTTP(w, req)
	})
}
