// Package tiles implements the tile generation engine of spec §4.4: MVT
// encoding for dynamic datasets and raw lookup for tile-archive datasets.
package tiles

import (
	"bytes"
	"database/sql"
	"fmt"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sharkAndshark/mapflow/internal/apperr"
	"github.com/sharkAndshark/mapflow/pkg/models"
)

// vectorTileMagic is the first bytes of a gzip-compressed protobuf vector
// tile; mbtiles archives built by tippecanoe and friends store tiles
// gzip-compressed. A bare (uncompressed) protobuf tile has no reliable
// magic number, so gzip framing is what we probe for.
var vectorTileMagic = []byte{0x1f, 0x8b}

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Archive is a read-only handle on a `.mbtiles` tile archive: a SQLite
// database with `tiles` and `metadata` tables (spec §4.3 "tile-archive").
type Archive struct {
	db *sql.DB
}

// OpenArchive opens an mbtiles file for reading.
func OpenArchive(path string) (*Archive, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "open tile archive", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, apperr.Wrap(apperr.Validation, "open tile archive", err)
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error { return a.db.Close() }

// ArchiveMetadata is the subset of mbtiles `metadata` rows and probed
// format information the catalog needs to persist (spec §4.3 step 2).
type ArchiveMetadata struct {
	Bounds    models.Bounds
	MinZoom   int
	MaxZoom   int
	Format    models.TileFormat
	LayerJSON string
}

// ReadMetadata reads bounds/zoom from the metadata table and determines
// the tile format by probing one stored tile payload's signature, since
// the `format` metadata key is frequently absent or unreliable in
// third-party-generated archives.
func (a *Archive) ReadMetadata() (ArchiveMetadata, error) {
	meta := map[string]string{}
	rows, err := a.db.Query(`SELECT name, value FROM metadata`)
	if err != nil {
		return ArchiveMetadata{}, apperr.Wrap(apperr.Validation, "read archive metadata", err)
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return ArchiveMetadata{}, apperr.Wrap(apperr.Internal, "scan archive metadata", err)
		}
		meta[k] = v
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ArchiveMetadata{}, apperr.Wrap(apperr.Internal, "iterate archive metadata", err)
	}

	out := ArchiveMetadata{MinZoom: 0, MaxZoom: 22}
	if b, ok := meta["bounds"]; ok {
		if parsed, ok := parseBounds(b); ok {
			out.Bounds = parsed
		}
	}
	if z, ok := meta["minzoom"]; ok {
		if n, err := strconv.Atoi(z); err == nil {
			out.MinZoom = n
		}
	}
	if z, ok := meta["maxzoom"]; ok {
		if n, err := strconv.Atoi(z); err == nil {
			out.MaxZoom = n
		}
	}
	if lj, ok := meta["json"]; ok {
		out.LayerJSON = lj
	}

	payload, found, err := a.probeAnyTile()
	if err != nil {
		return ArchiveMetadata{}, err
	}
	if !found {
		return ArchiveMetadata{}, apperr.New(apperr.Validation, "tile archive contains no tiles")
	}
	switch {
	case bytes.HasPrefix(payload, vectorTileMagic):
		out.Format = models.TileFormatVector
	case bytes.HasPrefix(payload, pngMagic):
		out.Format = models.TileFormatRaster
	default:
		return ArchiveMetadata{}, apperr.New(apperr.Unsupported, "unsupported tile payload")
	}
	return out, nil
}

func (a *Archive) probeAnyTile() ([]byte, bool, error) {
	var data []byte
	row := a.db.QueryRow(`SELECT tile_data FROM tiles LIMIT 1`)
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, apperr.Wrap(apperr.Internal, "probe tile payload", err)
	}
	return data, true, nil
}

// FetchTile looks up one tile by XYZ coordinates, flipping to the
// archive's native TMS row convention (spec §6.4 "XYZ convention on the
// wire; TMS translation is internal to the tile-archive path"). A missing
// tile is reported via ok=false, mapping to a 204 at the HTTP layer.
func (a *Archive) FetchTile(z, x, y int) (data []byte, format models.TileFormat, ok bool, err error) {
	tmsY := (1 << uint(z)) - 1 - y
	var payload []byte
	row := a.db.QueryRow(`SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?`, z, x, tmsY)
	if scanErr := row.Scan(&payload); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return nil, "", false, nil
		}
		return nil, "", false, apperr.Wrap(apperr.Internal, "fetch archive tile", scanErr)
	}
	switch {
	case bytes.HasPrefix(payload, vectorTileMagic):
		format = models.TileFormatVector
	case bytes.HasPrefix(payload, pngMagic):
		format = models.TileFormatRaster
	default:
		format = models.TileFormatVector
	}
	return payload, format, true, nil
}

func parseBounds(s string) (models.Bounds, bool) {
	var b models.Bounds
	n, err := fmt.Sscanf(s, "%g,%g,%g,%g", &b[0], &b[1], &b[2], &b[3])
	if err != nil || n != 4 {
		return models.Bounds{}, false
	}
	return b, true
}
