package tiles

import (
	"bytes"
	"context"

	"github.com/sharkAndshark/mapflow/internal/apperr"
	"github.com/sharkAndshark/mapflow/pkg/models"
)

// MVTContentType and RasterContentType are the two tile content types the
// engine ever emits (spec §6.4).
const (
	MVTContentType    = "application/vnd.mapbox-vector-tile"
	RasterContentType = "image/png"
)

// GenerateTile serves one tile for a ready dataset of either storage kind.
// Both the admin tile route and the public publish route call this
// unchanged, so de-duplication, validation, and content-type rules are
// identical on both paths (spec §4.7, §9 scenario 5).
//
// contentEncoding is "gzip" whenever data is a gzip-compressed payload the
// caller must advertise with a Content-Encoding header, and "" otherwise —
// dynamic tiles are always marshaled gzipped (internal/tiles/generate.go),
// and mbtiles archives store vector tiles gzip-compressed by convention;
// raster tiles are plain PNG bytes.
func (e *Engine) GenerateTile(ctx context.Context, d *models.Dataset, cols []models.ColumnSchema, z, x, y int) (data []byte, contentType, contentEncoding string, ok bool, err error) {
	if d.Status != models.StatusReady {
		return nil, "", "", false, apperr.New(apperr.Conflict, "dataset is not ready")
	}
	if err := ValidateCoordinate(z, x, y); err != nil {
		return nil, "", "", false, err
	}

	switch d.StorageKind {
	case models.StorageDynamic:
		data, err = e.GenerateDynamic(ctx, d.TableName, d.CRS, cols, z, x, y)
		if err != nil {
			return nil, "", "", false, err
		}
		// Empty result is still a 200 with a zero-length body; clients treat
		// zero-length as an empty tile (spec §4.4 step 5). A zero-length body
		// is not itself a gzip stream, so it gets no Content-Encoding.
		encoding := ""
		if len(data) > 0 {
			encoding = "gzip"
		}
		return data, MVTContentType, encoding, true, nil

	case models.StorageTileArchive:
		if z < d.MinZoom || z > d.MaxZoom {
			return nil, "", "", false, nil
		}
		archive, err := OpenArchive(d.ArchivePath)
		if err != nil {
			return nil, "", "", false, err
		}
		defer archive.Close()

		payload, format, found, err := archive.FetchTile(z, x, y)
		if err != nil {
			return nil, "", "", false, err
		}
		if !found {
			return nil, "", "", false, nil
		}
		ct := MVTContentType
		encoding := ""
		if bytes.HasPrefix(payload, vectorTileMagic) {
			encoding = "gzip"
		}
		if format == models.TileFormatRaster {
			ct = RasterContentType
		}
		return payload, ct, encoding, true, nil

	default:
		return nil, "", "", false, apperr.New(apperr.Internal, "unknown storage kind")
	}
}
