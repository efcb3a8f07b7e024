package spatialstore

import (
	"context"
	"database/sql"

	"github.com/sharkAndshark/mapflow/internal/apperr"
)

// migrate idempotently ensures the four catalog tables exist (spec §4.1
// "Schema bootstrap"): files, dataset_columns, users, sessions.
func (s *Store) migrate(ctx context.Context) error {
	return s.Write(ctx, func(tx *sql.Tx) error {
		stmts := []string{
			`CREATE TABLE IF NOT EXISTS files (
				id           VARCHAR PRIMARY KEY,
				name         VARCHAR NOT NULL,
				size         BIGINT NOT NULL,
				uploaded_at  TIMESTAMP NOT NULL,
				status       VARCHAR NOT NULL,
				crs          VARCHAR,
				path         VARCHAR NOT NULL,
				error        VARCHAR,
				storage_kind VARCHAR NOT NULL,
				table_name   VARCHAR,
				row_count    BIGINT,
				min_x        DOUBLE,
				min_y        DOUBLE,
				max_x        DOUBLE,
				max_y        DOUBLE,
				archive_path VARCHAR,
				tile_format  VARCHAR,
				min_zoom     INTEGER,
				max_zoom     INTEGER,
				layer_json   VARCHAR,
				is_public    BOOLEAN NOT NULL DEFAULT false,
				public_slug  VARCHAR
			)`,
			// No partial unique index on public_slug: DuckDB does not support
			// one, which is exactly why Catalog.Publish must serialize its
			// read-then-insert check through the single writer lane (Write).
			`CREATE TABLE IF NOT EXISTS dataset_columns (
				dataset_id      VARCHAR NOT NULL,
				ordinal         INTEGER NOT NULL,
				original_name   VARCHAR NOT NULL,
				normalized_name VARCHAR NOT NULL,
				field_type      VARCHAR NOT NULL,
				PRIMARY KEY (dataset_id, ordinal)
			)`,
			`CREATE TABLE IF NOT EXISTS users (
				username      VARCHAR PRIMARY KEY,
				password_hash VARCHAR NOT NULL,
				role          VARCHAR NOT NULL,
				created_at    TIMESTAMP NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS sessions (
				id         VARCHAR PRIMARY KEY,
				username   VARCHAR NOT NULL,
				expires_at TIMESTAMP NOT NULL
			)`,
		}
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt); err != nil {
				return apperr.Wrap(apperr.Internal, "migrate catalog schema", err)
			}
		}
		return nil
	})
}
