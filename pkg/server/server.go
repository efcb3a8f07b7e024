// Package server provides the public entry point for initializing the
// mapflow server: the embedded spatial engine, the dataset catalog, the
// access gate, the ingestion pipeline, the tile engine, and the HTTP
// router that ties them together.
//
// Usage:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/sharkAndshark/mapflow/internal/accounts"
	"github.com/sharkAndshark/mapflow/internal/api"
	"github.com/sharkAndshark/mapflow/internal/api/handlers"
	"github.com/sharkAndshark/mapflow/internal/catalog"
	"github.com/sharkAndshark/mapflow/internal/config"
	"github.com/sharkAndshark/mapflow/internal/ingest"
	"github.com/sharkAndshark/mapflow/internal/publish"
	"github.com/sharkAndshark/mapflow/internal/spatialstore"
	"github.com/sharkAndshark/mapflow/internal/telemetry"
	"github.com/sharkAndshark/mapflow/internal/tiles"
)

// Server holds the initialized mapflow process.
type Server struct {
	Handler  http.Handler
	Store    *spatialstore.Store
	Port     int
	Config   *config.Config
	shutdown func(context.Context) error
}

// New loads configuration from the environment and builds a Server.
func New(ctx context.Context) (*Server, error) {
	cfg := config.Load()
	return NewWithConfig(ctx, cfg)
}

// NewWithConfig builds a Server from an explicit configuration, useful for
// tests that need a temp DB path or a different port.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdownTelemetry, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, err
	}

	store, err := spatialstore.Open(cfg)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.New(ctx, store)
	if err != nil {
		store.Close()
		return nil, err
	}

	acct := accounts.New(store)
	engine := tiles.NewEngine(store)
	pipeline := ingest.NewPipeline(cfg, store, cat)
	pipeline.Start(ctx)

	pub := publish.NewRouter(cat, "/tiles")
	h := handlers.New(cfg, store, cat, acct, pipeline, engine, pub)
	router := api.NewRouter(cfg, h, acct)

	log.Info().Int("port", cfg.Port).Msg("mapflow server initialized")

	return &Server{
		Handler: router,
		Store:   store,
		Port:    cfg.Port,
		Config:  cfg,
		shutdown: func(ctx context.Context) error {
			err := store.Close()
			if shutdownTelemetry != nil {
				if terr := shutdownTelemetry(ctx); terr != nil && err == nil {
					err = terr
				}
			}
			return err
		},
	}, nil
}

// Shutdown closes the spatial store and flushes telemetry.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdown != nil {
		return s.shutdown(ctx)
	}
	return nil
}
