// Package catalog is the persistent index of uploaded datasets (spec §4.2):
// identity, display metadata, lifecycle state, storage kind, publish state,
// and column schema. All of it is backed by the DuckDB catalog tables the
// spatial store adapter bootstraps.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sharkAndshark/mapflow/internal/apperr"
	"github.com/sharkAndshark/mapflow/internal/spatialstore"
	"github.com/sharkAndshark/mapflow/pkg/models"
)

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,100}$`)

// Catalog is the dataset catalog of spec §4.2.
type Catalog struct {
	store *spatialstore.Store
}

// New creates a Catalog over an opened spatial store and runs crash
// recovery (spec §4.2 "Startup recovery", invariant I3).
func New(ctx context.Context, store *spatialstore.Store) (*Catalog, error) {
	c := &Catalog{store: store}
	if err := c.recoverCrashed(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// recoverCrashed marks every dataset found in `processing` as `failed` on
// startup, enforcing I3 under crash (spec §4.2, §8 P1).
func (c *Catalog) recoverCrashed(ctx context.Context) error {
	return c.store.Write(ctx, func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`UPDATE files SET status = 'failed', error = 'server restarted during processing' WHERE status = 'processing'`,
		)
		if err != nil {
			return apperr.Wrap(apperr.Internal, "crash recovery", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			log.Warn().Int64("datasets", n).Msg("marked processing datasets failed after restart")
		}
		return nil
	})
}

// Create inserts a new dataset row in state `uploaded` (spec §4.2).
func (c *Catalog) Create(ctx context.Context, name string, size int64, kind models.StorageKind, path string) (*models.Dataset, error) {
	d := &models.Dataset{
		ID:          uuid.New().String(),
		Name:        name,
		Size:        size,
		UploadedAt:  time.Now().UTC(),
		Status:      models.StatusUploaded,
		Path:        path,
		StorageKind: kind,
	}
	if kind == models.StorageDynamic {
		d.TableName = "ds_" + sanitizeTableSuffix(d.ID)
	} else {
		d.ArchivePath = path
	}

	err := c.store.Write(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO files (id, name, size, uploaded_at, status, path, storage_kind, table_name, archive_path, is_public)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, false)`,
			d.ID, d.Name, d.Size, d.UploadedAt, d.Status, d.Path, d.StorageKind, nullableStr(d.TableName), nullableStr(d.ArchivePath),
		)
		return err
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "create dataset", err)
	}
	return d, nil
}

// Get fetches a single dataset by id.
func (c *Catalog) Get(ctx context.Context, id string) (*models.Dataset, error) {
	row := c.store.DB().QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	return scanDataset(row)
}

// GetBySlug fetches a published dataset by its public slug (spec §4.2).
func (c *Catalog) GetBySlug(ctx context.Context, slug string) (*models.Dataset, error) {
	row := c.store.DB().QueryRowContext(ctx, selectColumns+` WHERE public_slug = ? AND is_public = true`, slug)
	return scanDataset(row)
}

// List returns every dataset's public projection-backing record.
func (c *Catalog) List(ctx context.Context) ([]*models.Dataset, error) {
	rows, err := c.store.DB().QueryContext(ctx, selectColumns+` ORDER BY uploaded_at DESC`)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list datasets", err)
	}
	defer rows.Close()

	var out []*models.Dataset
	for rows.Next() {
		d, err := scanDatasetRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Transition performs a compare-and-swap lifecycle move (spec §4.2, §4.3).
// It returns whether the transition was applied; callers must stop on false.
func (c *Catalog) Transition(ctx context.Context, id string, from, to models.DatasetStatus) (bool, error) {
	var applied bool
	err := c.store.Write(ctx, func(tx *sql.Tx) error {
		res, err := tx.Exec(`UPDATE files SET status = ? WHERE id = ? AND status = ?`, to, id, from)
		if err != nil {
			return apperr.Wrap(apperr.Internal, "transition dataset state", err)
		}
		n, _ := res.RowsAffected()
		applied = n == 1
		return nil
	})
	return applied, err
}

// Fail marks a dataset failed with a human-readable error, regardless of
// its current state (spec §4.2 "any *→failed on fatal error").
func (c *Catalog) Fail(ctx context.Context, id string, cause error) error {
	return c.store.Write(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE files SET status = 'failed', error = ? WHERE id = ?`, apperr.Message(cause), id)
		return err
	})
}

// FinishDynamicImport persists the captured schema, bounding box and row
// count, and transitions processing→ready, all in one transaction (spec
// §4.3 step 7).
func (c *Catalog) FinishDynamicImport(ctx context.Context, id, crs string, bounds models.Bounds, rowCount int64, columns []models.ColumnSchema) error {
	return c.store.Write(ctx, func(tx *sql.Tx) error {
		for _, col := range columns {
			if _, err := tx.Exec(
				`INSERT INTO dataset_columns (dataset_id, ordinal, original_name, normalized_name, field_type) VALUES (?, ?, ?, ?, ?)`,
				id, col.Ordinal, col.Original, col.Normalized, col.Type,
			); err != nil {
				return apperr.Wrap(apperr.Internal, "persist column schema", err)
			}
		}

		_, err := tx.Exec(
			`UPDATE files SET crs = ?, min_x = ?, min_y = ?, max_x = ?, max_y = ?, row_count = ?, status = 'ready'
			 WHERE id = ? AND status = 'processing'`,
			nullableStr(crs), bounds[0], bounds[1], bounds[2], bounds[3], rowCount, id,
		)
		if err != nil {
			return apperr.Wrap(apperr.Internal, "finish dynamic import", err)
		}
		return nil
	})
}

// FinishArchiveImport persists tile-archive metadata and transitions
// processing→ready (spec §4.3 "Background import (tile-archive)").
func (c *Catalog) FinishArchiveImport(ctx context.Context, id string, bounds models.Bounds, minZoom, maxZoom int, format models.TileFormat, layerJSON string) error {
	return c.store.Write(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`UPDATE files SET min_x = ?, min_y = ?, max_x = ?, max_y = ?, min_zoom = ?, max_zoom = ?, tile_format = ?, layer_json = ?, status = 'ready'
			 WHERE id = ? AND status = 'processing'`,
			bounds[0], bounds[1], bounds[2], bounds[3], minZoom, maxZoom, format, nullableStr(layerJSON), id,
		)
		return err
	})
}

// GetSchema returns the ordered column schema for a dynamic dataset.
func (c *Catalog) GetSchema(ctx context.Context, datasetID string) ([]models.ColumnSchema, error) {
	rows, err := c.store.DB().QueryContext(ctx,
		`SELECT ordinal, original_name, normalized_name, field_type FROM dataset_columns WHERE dataset_id = ? ORDER BY ordinal`,
		datasetID,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "load column schema", err)
	}
	defer rows.Close()

	var out []models.ColumnSchema
	for rows.Next() {
		var col models.ColumnSchema
		col.DatasetID = datasetID
		if err := rows.Scan(&col.Ordinal, &col.Original, &col.Normalized, &col.Type); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan column schema", err)
		}
		out = append(out, col)
	}
	return out, rows.Err()
}

// Publish validates and reserves a public slug for a ready dataset,
// serialized through the single writer lane to close the duplicate-slug
// race spec §9 flags as a known small window (SPEC_FULL §10).
func (c *Catalog) Publish(ctx context.Context, id, slug string) (string, error) {
	if slug == "" {
		slug = id
	}
	if !slugPattern.MatchString(slug) {
		return "", apperr.Validationf("invalid slug %q", slug)
	}

	err := c.store.Write(ctx, func(tx *sql.Tx) error {
		var status string
		if err := tx.QueryRow(`SELECT status FROM files WHERE id = ?`, id).Scan(&status); err != nil {
			return apperr.NotFoundf("dataset %s not found", id)
		}
		if status != string(models.StatusReady) {
			return apperr.Conflictf("dataset %s is not ready", id)
		}

		var existing string
		err := tx.QueryRow(`SELECT id FROM files WHERE public_slug = ? AND is_public = true`, slug).Scan(&existing)
		if err == nil && existing != id {
			return apperr.Conflictf("slug %q already in use", slug)
		} else if err != nil && err != sql.ErrNoRows {
			return apperr.Wrap(apperr.Internal, "check slug uniqueness", err)
		}

		_, err = tx.Exec(`UPDATE files SET is_public = true, public_slug = ? WHERE id = ?`, slug, id)
		if err != nil {
			return apperr.Wrap(apperr.Internal, "publish dataset", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return slug, nil
}

// Unpublish clears the publish flag and slug.
func (c *Catalog) Unpublish(ctx context.Context, id string) error {
	return c.store.Write(ctx, func(tx *sql.Tx) error {
		res, err := tx.Exec(`UPDATE files SET is_public = false, public_slug = NULL WHERE id = ?`, id)
		if err != nil {
			return apperr.Wrap(apperr.Internal, "unpublish dataset", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.NotFoundf("dataset %s not found", id)
		}
		return nil
	})
}

// ResetAll drops every per-dataset table and truncates all catalog tables.
// Only reachable through the debug-only test-mode endpoint.
func (c *Catalog) ResetAll(ctx context.Context) error {
	datasets, err := c.List(ctx)
	if err != nil {
		return err
	}
	for _, d := range datasets {
		if d.StorageKind == models.StorageDynamic && d.TableName != "" {
			if err := c.store.DropDatasetTable(ctx, d.TableName); err != nil {
				log.Warn().Err(err).Str("table", d.TableName).Msg("failed to drop dataset table during reset")
			}
		}
	}
	return c.store.Write(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{"DELETE FROM dataset_columns", "DELETE FROM sessions", "DELETE FROM users", "DELETE FROM files"} {
			if _, err := tx.Exec(stmt); err != nil {
				return apperr.Wrap(apperr.Internal, "reset catalog", err)
			}
		}
		return nil
	})
}

const selectColumns = `SELECT id, name, size, uploaded_at, status, crs, path, error, storage_kind, table_name,
	row_count, min_x, min_y, max_x, max_y, archive_path, tile_format, min_zoom, max_zoom, layer_json, is_public, public_slug
	FROM files`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDataset(row scanner) (*models.Dataset, error) {
	d, err := scanInto(row)
	if err != nil {
		return nil, apperr.NotFoundf("dataset not found")
	}
	return d, nil
}

func scanDatasetRows(rows *sql.Rows) (*models.Dataset, error) {
	return scanInto(rows)
}

func scanInto(row scanner) (*models.Dataset, error) {
	var d models.Dataset
	var crs, errStr, tableName, archivePath, tileFormat, layerJSON, slug sql.NullString
	var minX, minY, maxX, maxY sql.NullFloat64
	var rowCount sql.NullInt64
	var minZoom, maxZoom sql.NullInt64

	err := row.Scan(
		&d.ID, &d.Name, &d.Size, &d.UploadedAt, &d.Status, &crs, &d.Path, &errStr, &d.StorageKind, &tableName,
		&rowCount, &minX, &minY, &maxX, &maxY, &archivePath, &tileFormat, &minZoom, &maxZoom, &layerJSON, &d.IsPublic, &slug,
	)
	if err != nil {
		return nil, err
	}

	d.CRS = crs.String
	d.Error = errStr.String
	d.TableName = tableName.String
	d.ArchivePath = archivePath.String
	d.TileFormat = models.TileFormat(tileFormat.String)
	d.LayerJSON = layerJSON.String
	d.PublicSlug = slug.String
	d.RowCount = rowCount.Int64
	d.MinZoom = int(minZoom.Int64)
	d.MaxZoom = int(maxZoom.Int64)
	if minX.Valid {
		d.Bounds = &models.Bounds{minX.Float64, minY.Float64, maxX.Float64, maxY.Float64}
	}
	return &d, nil
}

func nullableStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func sanitizeTableSuffix(id string) string {
	return fmt.Sprintf("%x", []byte(id))[:16]
}
