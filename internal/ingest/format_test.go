package ingest

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharkAndshark/mapflow/pkg/models"
)

func TestDetectFormat(t *testing.T) {
	cases := map[string]models.StorageKind{
		"parcels.zip":       models.StorageDynamic,
		"parcels.geojson":   models.StorageDynamic,
		"parcels.json":      models.StorageDynamic,
		"parcels.geojsonl":  models.StorageDynamic,
		"parcels.kml":       models.StorageDynamic,
		"track.gpx":         models.StorageDynamic,
		"regions.topojson":  models.StorageDynamic,
		"basemap.mbtiles":   models.StorageTileArchive,
		"PARCELS.GEOJSON":   models.StorageDynamic,
	}
	for name, want := range cases {
		kind, err := detectFormat(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, kind, name)
	}
}

func TestDetectFormatRejectsUnknownExtension(t *testing.T) {
	_, err := detectFormat("notes.txt")
	assert.Error(t, err)
}

func writeZip(t *testing.T, entries []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, name := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte("x"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

func TestVerifyShapefileTripletAccepted(t *testing.T) {
	path := writeZip(t, []string{"parcels.shp", "parcels.shx", "parcels.dbf", "parcels.prj"})
	assert.NoError(t, verifyShapefileTriplet(path))
}

func TestVerifyShapefileTripletRejectsMissingMember(t *testing.T) {
	path := writeZip(t, []string{"parcels.shp", "parcels.dbf"})
	assert.Error(t, verifyShapefileTriplet(path))
}
