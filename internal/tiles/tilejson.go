package tiles

import (
	"encoding/json"

	"github.com/sharkAndshark/mapflow/pkg/models"
)

// tileJSONMeta mirrors the subset of the TileJSON `vector_layers` shape
// that mbtiles archives store in their `json` metadata key.
type tileJSONMeta struct {
	VectorLayers []struct {
		ID     string            `json:"id"`
		Fields map[string]string `json:"fields"`
	} `json:"vector_layers"`
}

// parseTileJSONLayers decodes an archive's layer-description blob into the
// schema response shape (spec §4.5 "Tile-archive vector").
func parseTileJSONLayers(blob string) ([]models.Layer, bool) {
	var meta tileJSONMeta
	if err := json.Unmarshal([]byte(blob), &meta); err != nil {
		return nil, false
	}
	layers := make([]models.Layer, 0, len(meta.VectorLayers))
	for _, vl := range meta.VectorLayers {
		fields := make([]models.Field, 0, len(vl.Fields))
		for name, typ := range vl.Fields {
			fields = append(fields, models.Field{Name: name, Type: tileJSONFieldType(typ)})
		}
		layers = append(layers, models.Layer{ID: vl.ID, Fields: fields})
	}
	return layers, true
}

func tileJSONFieldType(t string) models.FieldType {
	switch t {
	case "Number":
		return models.FieldFloat64
	case "Boolean":
		return models.FieldText
	default:
		return models.FieldText
	}
}
