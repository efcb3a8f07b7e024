package publish_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharkAndshark/mapflow/internal/catalog"
	"github.com/sharkAndshark/mapflow/internal/config"
	"github.com/sharkAndshark/mapflow/internal/publish"
	"github.com/sharkAndshark/mapflow/internal/spatialstore"
	"github.com/sharkAndshark/mapflow/pkg/models"
)

func newTestRouter(t *testing.T) (*publish.Router, *catalog.Catalog) {
	t.Helper()
	cfg := config.Load()
	cfg.DBPath = t.TempDir() + "/test.duckdb"
	store, err := spatialstore.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cat, err := catalog.New(context.Background(), store)
	require.NoError(t, err)

	return publish.NewRouter(cat, "/tiles"), cat
}

func TestPublishBuildsURLAndDefaultsSlugToID(t *testing.T) {
	router, cat := newTestRouter(t)
	ctx := context.Background()

	d, err := cat.Create(ctx, "a.geojson", 10, models.StorageDynamic, "/a.geojson")
	require.NoError(t, err)
	ok, err := cat.Transition(ctx, d.ID, models.StatusUploaded, models.StatusProcessing)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, cat.FinishDynamicImport(ctx, d.ID, "EPSG:4326", models.Bounds{0, 0, 1, 1}, 3, nil))

	result, err := router.Publish(ctx, d.ID, "")
	require.NoError(t, err)
	assert.Equal(t, d.ID, result.Slug)
	assert.Equal(t, "/tiles/"+d.ID, result.URL)
	assert.True(t, result.IsPublic)
}

func TestUnpublishClearsSlug(t *testing.T) {
	router, cat := newTestRouter(t)
	ctx := context.Background()

	d, err := cat.Create(ctx, "a.geojson", 10, models.StorageDynamic, "/a.geojson")
	require.NoError(t, err)
	ok, err := cat.Transition(ctx, d.ID, models.StatusUploaded, models.StatusProcessing)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, cat.FinishDynamicImport(ctx, d.ID, "EPSG:4326", models.Bounds{0, 0, 1, 1}, 3, nil))

	_, err = router.Publish(ctx, d.ID, "demo")
	require.NoError(t, err)

	require.NoError(t, router.Unpublish(ctx, d.ID))

	got, err := cat.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, got.IsPublic)
	assert.Empty(t, got.PublicSlug)

	_, err = cat.GetBySlug(ctx, "demo")
	assert.Error(t, err)
}
