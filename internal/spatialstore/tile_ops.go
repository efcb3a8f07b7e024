package spatialstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/paulmach/orb"

	"github.com/sharkAndshark/mapflow/internal/apperr"
	"github.com/sharkAndshark/mapflow/pkg/models"
)

// TileRow is one feature fetched for tile generation: its stable id, its
// attribute values keyed by original (not physical) column name, and its
// geometry already transformed to WGS-84 so the caller's MVT encoder can
// project it to the target tile without touching the engine again.
type TileRow struct {
	FID   int64
	Attrs map[string]interface{}
	WKB   []byte
}

// FetchRowsInBound returns every row of a dataset table whose geometry
// intersects env (given in WGS-84), reprojected to WGS-84 for the caller.
// The intersection test is evaluated in the dataset's own source CRS so the
// engine can use its spatial index without reprojecting the whole table
// (spec §4.4 "Dynamic datasets" steps 1-3).
func (s *Store) FetchRowsInBound(ctx context.Context, tableName, srcCRS string, cols []models.ColumnSchema, env orb.Bound) ([]TileRow, error) {
	crs := srcCRS
	if crs == "" {
		crs = "EPSG:4326"
	}

	selects := make([]string, 0, len(cols)+2)
	selects = append(selects, "fid")
	for _, c := range cols {
		selects = append(selects, quoteIdent(c.Normalized))
	}
	selects = append(selects, fmt.Sprintf(
		"ST_AsWKB(ST_Transform(geom, %s, 'EPSG:4326')) AS geom_wkb", quoteLiteral(crs)))

	envelope := fmt.Sprintf("ST_Transform(ST_MakeEnvelope(%v, %v, %v, %v), 'EPSG:4326', %s)",
		env.Min.X(), env.Min.Y(), env.Max.X(), env.Max.Y(), quoteLiteral(crs))

	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE ST_Intersects(geom, %s)`,
		strings.Join(selects, ", "), quoteIdent(tableName), envelope,
	)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "fetch tile rows", err)
	}
	defer rows.Close()

	var out []TileRow
	for rows.Next() {
		scanTargets := make([]interface{}, len(cols)+2)
		var fid int64
		var wkb []byte
		scanTargets[0] = &fid
		vals := make([]interface{}, len(cols))
		for i := range cols {
			scanTargets[i+1] = &vals[i]
		}
		scanTargets[len(cols)+1] = &wkb

		if err := rows.Scan(scanTargets...); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan tile row", err)
		}

		attrs := make(map[string]interface{}, len(cols))
		for i, c := range cols {
			attrs[c.Original] = vals[i]
		}
		out = append(out, TileRow{FID: fid, Attrs: attrs, WKB: wkb})
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "iterate tile rows", err)
	}
	return out, nil
}

// FetchFeature returns the NULL-preserving attribute row for a single
// stable feature id (spec §4.5).
func (s *Store) FetchFeature(ctx context.Context, tableName string, cols []models.ColumnSchema, fid int64) (map[string]interface{}, error) {
	selects := make([]string, len(cols))
	for i, c := range cols {
		selects[i] = quoteIdent(c.Normalized)
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE fid = ?`, strings.Join(selects, ", "), quoteIdent(tableName))

	vals := make([]interface{}, len(cols))
	scanTargets := make([]interface{}, len(cols))
	for i := range cols {
		scanTargets[i] = &vals[i]
	}

	row := s.db.QueryRowContext(ctx, query, fid)
	if err := row.Scan(scanTargets...); err != nil {
		return nil, apperr.NotFoundf("feature %d not found", fid)
	}

	out := make(map[string]interface{}, len(cols))
	for i, c := range cols {
		out[c.Original] = vals[i]
	}
	return out, nil
}
