// Package spatialstore is the thin contract over the embedded DuckDB engine
// and its spatial extension (spec §4.1). It owns the connection and the
// single writer lane: other components either call its typed operations or
// run their own SQL through Write (mutations) and DB (reads).
package spatialstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rs/zerolog/log"

	"github.com/sharkAndshark/mapflow/internal/apperr"
	"github.com/sharkAndshark/mapflow/internal/config"
)

// manifestFilename pins the expected spatial extension version (spec §6.3).
const manifestFilename = "manifest.json"

type manifest struct {
	Version  string `json:"version"`
	Filename string `json:"filename"`
}

// Store wraps a single DuckDB database file: catalog tables, per-dataset
// spatial tables, and the spatial extension used to read source files.
//
// DuckDB is effectively single-writer: all mutating statements run inside a
// transaction handed to writeJob closures processed one at a time by a
// dedicated goroutine (ownerLoop). Reads go straight through the shared
// *sql.DB connection pool and run concurrently.
type Store struct {
	db *sql.DB

	writeCh chan writeJob
	closeMu sync.Mutex
	closed  bool
}

type writeJob struct {
	fn   func(*sql.Tx) error
	done chan error
}

// Open creates or opens the DuckDB file at cfg.DBPath, loads the spatial
// extension, runs catalog migrations, and starts the write-owner goroutine.
func Open(cfg *config.Config) (*Store, error) {
	db, err := sql.Open("duckdb", cfg.DBPath)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "open database", err)
	}
	db.SetMaxOpenConns(8)

	s := &Store{db: db, writeCh: make(chan writeJob, 16)}
	go s.ownerLoop()

	if err := s.loadExtension(cfg); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ownerLoop() {
	for job := range s.writeCh {
		job.done <- s.runInTx(job.fn)
	}
}

func (s *Store) runInTx(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return apperr.Wrap(apperr.Internal, "begin transaction", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.Internal, "commit transaction", err)
	}
	return nil
}

// Write serializes a mutating operation through the single owner goroutine.
func (s *Store) Write(ctx context.Context, fn func(*sql.Tx) error) error {
	job := writeJob{fn: fn, done: make(chan error, 1)}
	select {
	case s.writeCh <- job:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-job.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DB exposes the shared connection pool for reads. Mutating statements must
// go through Write instead.
func (s *Store) DB() *sql.DB { return s.db }

// Close stops the write-owner goroutine and closes the database handle.
func (s *Store) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.writeCh)
	return s.db.Close()
}

// loadExtension prefers a locally bundled artifact before falling back to
// the engine's network install-then-load flow, and refuses to start on a
// version mismatch against the pinned manifest (spec §4.1, §6.3).
func (s *Store) loadExtension(cfg *config.Config) error {
	path := cfg.SpatialExtensionPath
	m, _ := readManifest(cfg.SpatialExtensionDir)

	if path == "" && cfg.SpatialExtensionDir != "" && m != nil && m.Filename != "" {
		path = filepath.Join(cfg.SpatialExtensionDir, m.Filename)
	}

	loaded := false
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := s.db.Exec(fmt.Sprintf("LOAD '%s'", path)); err == nil {
				loaded = true
				log.Info().Str("path", path).Msg("spatial extension loaded from bundled artifact")
			} else {
				log.Warn().Err(err).Str("path", path).Msg("bundled spatial extension failed to load, falling back to network install")
			}
		}
	}

	if !loaded {
		if _, err := s.db.Exec("INSTALL spatial; LOAD spatial;"); err != nil {
			return apperr.Wrap(apperr.Internal, "engine-unavailable: install spatial extension", err)
		}
		log.Info().Msg("spatial extension installed and loaded from network")
	}

	if m == nil {
		return nil
	}
	actual, err := s.extensionVersion()
	if err != nil {
		return apperr.Wrap(apperr.Internal, "engine-unavailable: read spatial extension version", err)
	}
	if actual != m.Version {
		return apperr.New(apperr.Internal, fmt.Sprintf("extension-version-mismatch: manifest pins %s, loaded %s", m.Version, actual))
	}
	return nil
}

func (s *Store) extensionVersion() (string, error) {
	var version string
	row := s.db.QueryRow("SELECT extension_version FROM duckdb_extensions() WHERE extension_name = 'spatial'")
	if err := row.Scan(&version); err != nil {
		return "", err
	}
	return version, nil
}

func readManifest(dir string) (*manifest, error) {
	if dir == "" {
		return nil, nil
	}
	data, err := os.ReadFile(filepath.Join(dir, manifestFilename))
	if err != nil {
		return nil, err
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
