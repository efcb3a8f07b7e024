package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharkAndshark/mapflow/internal/catalog"
	"github.com/sharkAndshark/mapflow/internal/config"
	"github.com/sharkAndshark/mapflow/internal/spatialstore"
	"github.com/sharkAndshark/mapflow/pkg/models"
)

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cfg := config.Load()
	cfg.DBPath = t.TempDir() + "/test.duckdb"
	store, err := spatialstore.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cat, err := catalog.New(context.Background(), store)
	require.NoError(t, err)
	return cat
}

func TestCreateAndGet(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()

	d, err := cat.Create(ctx, "parcels.geojson", 1024, models.StorageDynamic, "/uploads/x/parcels.geojson")
	require.NoError(t, err)
	assert.Equal(t, models.StatusUploaded, d.Status)

	got, err := cat.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.Name, got.Name)
}

func TestTransitionCAS(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()

	d, err := cat.Create(ctx, "a.geojson", 10, models.StorageDynamic, "/a.geojson")
	require.NoError(t, err)

	ok, err := cat.Transition(ctx, d.ID, models.StatusUploaded, models.StatusProcessing)
	require.NoError(t, err)
	assert.True(t, ok)

	// Re-applying the same from-state must fail: the dataset is no longer uploaded.
	ok, err = cat.Transition(ctx, d.ID, models.StatusUploaded, models.StatusProcessing)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPublishRejectsInvalidSlug(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()

	d, err := cat.Create(ctx, "a.geojson", 10, models.StorageDynamic, "/a.geojson")
	require.NoError(t, err)
	ok, err := cat.Transition(ctx, d.ID, models.StatusUploaded, models.StatusProcessing)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, cat.FinishDynamicImport(ctx, d.ID, "EPSG:4326", models.Bounds{0, 0, 1, 1}, 5, nil))

	_, err = cat.Publish(ctx, d.ID, "not a valid slug!")
	assert.Error(t, err)
}

func TestPublishDuplicateSlugRejected(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()

	d1, err := cat.Create(ctx, "a.geojson", 10, models.StorageDynamic, "/a.geojson")
	require.NoError(t, err)
	ok, err := cat.Transition(ctx, d1.ID, models.StatusUploaded, models.StatusProcessing)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, cat.FinishDynamicImport(ctx, d1.ID, "EPSG:4326", models.Bounds{0, 0, 1, 1}, 5, nil))

	d2, err := cat.Create(ctx, "b.geojson", 10, models.StorageDynamic, "/b.geojson")
	require.NoError(t, err)
	ok, err = cat.Transition(ctx, d2.ID, models.StatusUploaded, models.StatusProcessing)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, cat.FinishDynamicImport(ctx, d2.ID, "EPSG:4326", models.Bounds{0, 0, 1, 1}, 5, nil))

	slug, err := cat.Publish(ctx, d1.ID, "demo-map")
	require.NoError(t, err)
	assert.Equal(t, "demo-map", slug)

	_, err = cat.Publish(ctx, d2.ID, "demo-map")
	assert.Error(t, err)
}

func TestRecoverCrashedMarksProcessingFailed(t *testing.T) {
	cfg := config.Load()
	cfg.DBPath = t.TempDir() + "/test.duckdb"
	store, err := spatialstore.Open(cfg)
	require.NoError(t, err)

	cat, err := catalog.New(context.Background(), store)
	require.NoError(t, err)
	ctx := context.Background()

	d, err := cat.Create(ctx, "a.geojson", 10, models.StorageDynamic, "/a.geojson")
	require.NoError(t, err)
	ok, err := cat.Transition(ctx, d.ID, models.StatusUploaded, models.StatusProcessing)
	require.NoError(t, err)
	require.True(t, ok)
	store.Close()

	store2, err := spatialstore.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store2.Close() })

	cat2, err := catalog.New(ctx, store2)
	require.NoError(t, err)

	got, err := cat2.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
}
