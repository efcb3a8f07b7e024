package tiles

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"golang.org/x/sync/singleflight"

	"github.com/sharkAndshark/mapflow/internal/apperr"
	"github.com/sharkAndshark/mapflow/internal/spatialstore"
	"github.com/sharkAndshark/mapflow/pkg/models"
)

// layerName is the single MVT layer name emitted for a dynamic dataset.
// mapflow has no concept of multiple layers per dataset (SPEC_FULL §5).
const layerName = "default"

// Engine is the tile generation engine of spec §4.4. It holds no
// per-request state; a single Engine serves every dataset.
type Engine struct {
	store *spatialstore.Store
	group singleflight.Group
}

func NewEngine(store *spatialstore.Store) *Engine {
	return &Engine{store: store}
}

// ValidateCoordinate checks 0 ≤ z ≤ 22 and 0 ≤ x,y < 2^z (spec §4.4
// "Coordinate validation").
func ValidateCoordinate(z, x, y int) error {
	if z < 0 || z > 22 {
		return apperr.Validationf("zoom %d out of range", z)
	}
	span := 1 << uint(z)
	if x < 0 || x >= span || y < 0 || y >= span {
		return apperr.Validationf("tile %d/%d/%d out of range", z, x, y)
	}
	return nil
}

// GenerateDynamic clips and encodes an MVT for a dynamic dataset's table,
// de-duplicating concurrent requests for the same tile so a burst of
// requests only runs the query/encode path once (spec §4.4, P6).
func (e *Engine) GenerateDynamic(ctx context.Context, tableName, srcCRS string, cols []models.ColumnSchema, z, x, y int) ([]byte, error) {
	key := fmt.Sprintf("%s/%d/%d/%d", tableName, z, x, y)
	v, err, _ := e.group.Do(key, func() (interface{}, error) {
		return e.generateDynamic(ctx, tableName, srcCRS, cols, z, x, y)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (e *Engine) generateDynamic(ctx context.Context, tableName, srcCRS string, cols []models.ColumnSchema, z, x, y int) ([]byte, error) {
	tile := maptile.New(uint32(x), uint32(y), maptile.Zoom(z))
	var bound orb.Bound = tile.Bound()

	rows, err := e.store.FetchRowsInBound(ctx, tableName, srcCRS, cols, bound)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return []byte{}, nil
	}

	fc := geojson.NewFeatureCollection()
	for _, r := range rows {
		geom, err := wkb.Unmarshal(r.WKB)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "decode feature geometry", err)
		}
		feat := geojson.NewFeature(geom)
		feat.ID = r.FID
		for k, v := range r.Attrs {
			if v == nil {
				continue
			}
			feat.Properties[k] = v
		}
		fc.Append(feat)
	}

	layers := mvt.NewLayers(map[string]*geojson.FeatureCollection{layerName: fc})
	layers.ProjectToTile(tile)
	layers.Clip(mvt.MapboxGLDefaultExtentBound)
	layers.RemoveEmpty(1.0, 1.0)

	data, err := mvt.MarshalGzipped(layers)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "encode mvt tile", err)
	}
	return data, nil
}
