package tiles

import (
	"context"

	"github.com/sharkAndshark/mapflow/internal/apperr"
	"github.com/sharkAndshark/mapflow/internal/spatialstore"
	"github.com/sharkAndshark/mapflow/pkg/models"
)

// FetchFeature returns the NULL-preserving attribute row for a single
// stable feature id, ordered by the dataset's column schema ordinal (spec
// §4.5 "Feature"). Only valid for dynamic, ready datasets.
func FetchFeature(ctx context.Context, store *spatialstore.Store, d *models.Dataset, cols []models.ColumnSchema, fid int64) (*models.FeatureResponse, error) {
	if d.StorageKind != models.StorageDynamic {
		return nil, apperr.New(apperr.Validation, "feature lookup is only available for dynamic datasets")
	}
	if d.Status != models.StatusReady {
		return nil, apperr.New(apperr.Conflict, "dataset is not ready")
	}

	attrs, err := store.FetchFeature(ctx, d.TableName, cols, fid)
	if err != nil {
		return nil, err
	}

	props := make([]models.Property, len(cols))
	for i, c := range cols {
		props[i] = models.Property{Key: c.Original, Value: attrs[c.Original]}
	}
	return &models.FeatureResponse{FID: fid, Properties: props}, nil
}
