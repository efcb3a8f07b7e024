// Package handlers implements the HTTP handlers of mapflow's admin API and
// public tile surface (spec §6.1).
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sharkAndshark/mapflow/internal/accounts"
	"github.com/sharkAndshark/mapflow/internal/catalog"
	"github.com/sharkAndshark/mapflow/internal/config"
	"github.com/sharkAndshark/mapflow/internal/ingest"
	"github.com/sharkAndshark/mapflow/internal/publish"
	"github.com/sharkAndshark/mapflow/internal/spatialstore"
	"github.com/sharkAndshark/mapflow/internal/tiles"
)

// Handlers bundles every dependency the HTTP layer needs to serve the
// dataset, tile, and access-gate routes of spec §6.1.
type Handlers struct {
	cfg      *config.Config
	store    *spatialstore.Store
	catalog  *catalog.Catalog
	accounts *accounts.Accounts
	pipeline *ingest.Pipeline
	engine   *tiles.Engine
	publish  *publish.Router
}

func New(cfg *config.Config, store *spatialstore.Store, cat *catalog.Catalog, acct *accounts.Accounts, pipeline *ingest.Pipeline, engine *tiles.Engine, pub *publish.Router) *Handlers {
	return &Handlers{cfg: cfg, store: store, catalog: cat, accounts: acct, pipeline: pipeline, engine: engine, publish: pub}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
