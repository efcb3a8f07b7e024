package spatialstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sharkAndshark/mapflow/internal/apperr"
	"github.com/sharkAndshark/mapflow/pkg/models"
)

// SourceColumn is one column discovered by introspecting a source file
// through ST_Read, before any normalization or type mapping is applied.
type SourceColumn struct {
	Name       string
	DuckDBType string
	IsGeometry bool
}

// IntrospectSource reads the column names and engine types of a source
// file without materializing any rows (spec §4.3 step 3, "Plan column
// schema"). It is the engine-level counterpart of a DESCRIBE.
func (s *Store) IntrospectSource(ctx context.Context, path string) ([]SourceColumn, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM ST_Read(%s) LIMIT 0", quoteLiteral(path)))
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "read source file", err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "introspect source columns", err)
	}

	cols := make([]SourceColumn, 0, len(types))
	for _, t := range types {
		dbType := strings.ToUpper(t.DatabaseTypeName())
		cols = append(cols, SourceColumn{
			Name:       t.Name(),
			DuckDBType: dbType,
			IsGeometry: dbType == "GEOMETRY",
		})
	}
	return cols, nil
}

// MVTTypeOf maps a DuckDB engine type name to the MVT-compatible declared
// type of spec §4.3 step 3.
func MVTTypeOf(duckDBType string) models.FieldType {
	switch duckDBType {
	case "GEOMETRY":
		return models.FieldGeom
	case "BIGINT", "HUGEINT", "UBIGINT":
		return models.FieldInt64
	case "INTEGER", "SMALLINT", "TINYINT", "UINTEGER", "USMALLINT", "UTINYINT":
		return models.FieldInt32
	case "DOUBLE", "FLOAT", "DECIMAL", "REAL":
		return models.FieldFloat64
	default:
		return models.FieldText
	}
}

// ReadCRSAuth attempts to recover the source file's CRS authority string
// (e.g. "EPSG:4326") via the spatial extension's layer metadata function.
// Per spec §3 this is best-effort: an absent CRS is a valid outcome, never
// a failure of ingestion.
func (s *Store) ReadCRSAuth(ctx context.Context, path string) string {
	var auth sql.NullString
	row := s.db.QueryRowContext(ctx, `
		SELECT layers[1].geometry_fields[1].crs.auth_name || ':' || layers[1].geometry_fields[1].crs.auth_code
		FROM st_read_meta(`+quoteLiteral(path)+`)`)
	if err := row.Scan(&auth); err != nil {
		return ""
	}
	if auth.Valid {
		return auth.String
	}
	return ""
}

// CreateDatasetTable materializes the per-dataset table: a stable feature
// id, the planned schema columns in ordinal order, then geometry — and
// populates it from the source file in a single ST_Read-backed statement
// (spec §4.3 steps 4-5).
func (s *Store) CreateDatasetTable(ctx context.Context, tableName, srcPath, geomColumn string, plan []models.ColumnSchema) error {
	return s.Write(ctx, func(tx *sql.Tx) error {
		seq := "seq_" + tableName
		if _, err := tx.Exec(fmt.Sprintf(`CREATE SEQUENCE %q`, seq)); err != nil {
			return apperr.Wrap(apperr.Internal, "create feature id sequence", err)
		}

		projections := make([]string, 0, len(plan)+2)
		projections = append(projections, fmt.Sprintf("nextval(%s) AS fid", quoteLiteral(seq)))
		for _, col := range plan {
			projections = append(projections, fmt.Sprintf("%s AS %s", quoteIdent(col.Original), quoteIdent(col.Normalized)))
		}
		projections = append(projections, fmt.Sprintf("%s AS geom", quoteIdent(geomColumn)))

		stmt := fmt.Sprintf(
			`CREATE TABLE %s AS SELECT %s FROM ST_Read(%s)`,
			quoteIdent(tableName), strings.Join(projections, ", "), quoteLiteral(srcPath),
		)
		if _, err := tx.Exec(stmt); err != nil {
			return apperr.Wrap(apperr.Internal, "integrity: import source rows", err)
		}
		return nil
	})
}

// DropDatasetTable removes a per-dataset table and its feature-id sequence.
// Used only by the debug-only reset endpoint.
func (s *Store) DropDatasetTable(ctx context.Context, tableName string) error {
	return s.Write(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(tableName))); err != nil {
			return apperr.Wrap(apperr.Internal, "drop dataset table", err)
		}
		if _, err := tx.Exec(fmt.Sprintf("DROP SEQUENCE IF EXISTS %s", quoteIdent("seq_"+tableName))); err != nil {
			return apperr.Wrap(apperr.Internal, "drop feature id sequence", err)
		}
		return nil
	})
}

// BoundingBoxAndCount computes the WGS-84 bounding box and row count for a
// freshly-populated dataset table in one aggregate pass (spec §4.3 step 6).
func (s *Store) BoundingBoxAndCount(ctx context.Context, tableName, srcCRS string) (models.Bounds, int64, error) {
	crs := srcCRS
	if crs == "" {
		crs = "EPSG:4326"
	}
	query := fmt.Sprintf(`
		SELECT min(ST_XMin(g)), min(ST_YMin(g)), max(ST_XMax(g)), max(ST_YMax(g)), count(*)
		FROM (SELECT ST_Transform(geom, %s, 'EPSG:4326') AS g FROM %s) t`,
		quoteLiteral(crs), quoteIdent(tableName))

	var bounds models.Bounds
	var count int64
	row := s.db.QueryRowContext(ctx, query)
	if err := row.Scan(&bounds[0], &bounds[1], &bounds[2], &bounds[3], &count); err != nil {
		return models.Bounds{}, 0, apperr.Wrap(apperr.Internal, "compute bounding box", err)
	}
	return bounds, count, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
