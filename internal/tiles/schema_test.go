package tiles

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sharkAndshark/mapflow/pkg/models"
)

func TestBuildSchemaDynamic(t *testing.T) {
	d := &models.Dataset{StorageKind: models.StorageDynamic, TableName: "ds_abc123"}
	cols := []models.ColumnSchema{
		{Original: "Name", Normalized: "name", Type: models.FieldText},
		{Original: "Population", Normalized: "population", Type: models.FieldInt64},
	}

	resp := BuildSchema(d, cols)

	assert.Len(t, resp.Layers, 1)
	assert.Equal(t, "ds_abc123", resp.Layers[0].ID)
	assert.Equal(t, []models.Field{
		{Name: "Name", Type: models.FieldText},
		{Name: "Population", Type: models.FieldInt64},
	}, resp.Layers[0].Fields)
}

func TestBuildSchemaArchiveRaster(t *testing.T) {
	d := &models.Dataset{StorageKind: models.StorageTileArchive, TileFormat: models.TileFormatRaster}
	resp := BuildSchema(d, nil)
	assert.Empty(t, resp.Layers)
}

func TestBuildSchemaArchiveVectorParsesLayerJSON(t *testing.T) {
	d := &models.Dataset{
		StorageKind: models.StorageTileArchive,
		TileFormat:  models.TileFormatVector,
		LayerJSON:   `{"vector_layers":[{"id":"buildings","fields":{"height":"Number","name":"String"}}]}`,
	}
	resp := BuildSchema(d, nil)
	assert.Len(t, resp.Layers, 1)
	assert.Equal(t, "buildings", resp.Layers[0].ID)
	assert.Len(t, resp.Layers[0].Fields, 2)
}
