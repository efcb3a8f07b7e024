package tiles

import (
	"github.com/sharkAndshark/mapflow/pkg/models"
)

// BuildSchema assembles the public schema response of spec §4.5: for
// dynamic datasets, a single layer named after the dataset's table
// identifier, whose fields are the ordered column schema with the
// geometry column and stable feature id excluded (they already are,
// since the column schema catalog.GetSchema reads back holds only the
// non-geometry columns the ingest planner recorded).
func BuildSchema(d *models.Dataset, cols []models.ColumnSchema) models.SchemaResponse {
	if d.StorageKind == models.StorageTileArchive {
		return buildArchiveSchema(d)
	}

	fields := make([]models.Field, len(cols))
	for i, c := range cols {
		fields[i] = models.Field{Name: c.Original, Type: c.Type}
	}
	return models.SchemaResponse{
		Layers: []models.Layer{{ID: d.TableName, Fields: fields}},
	}
}

// buildArchiveSchema parses the archive's layer-description metadata blob
// (the `json` key in mbtiles metadata) when present; raster archives and
// archives without the blob return empty layers (spec §4.5).
func buildArchiveSchema(d *models.Dataset) models.SchemaResponse {
	if d.TileFormat != models.TileFormatVector || d.LayerJSON == "" {
		return models.SchemaResponse{Layers: []models.Layer{}}
	}
	layers, ok := parseTileJSONLayers(d.LayerJSON)
	if !ok {
		return models.SchemaResponse{Layers: []models.Layer{}}
	}
	return models.SchemaResponse{Layers: layers}
}
