package ingest

import (
	"archive/zip"
	"path/filepath"
	"strings"

	"github.com/sharkAndshark/mapflow/internal/apperr"
	"github.com/sharkAndshark/mapflow/pkg/models"
)

// detectFormat maps a file extension (spec §4.3 "Format detection table")
// to the storage kind the dataset will be created with. Unknown extensions
// are rejected before any bytes are written to disk.
func detectFormat(filename string) (models.StorageKind, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".zip":
		return models.StorageDynamic, nil
	case ".geojson", ".json":
		return models.StorageDynamic, nil
	case ".geojsonl", ".geojsons":
		return models.StorageDynamic, nil
	case ".kml":
		return models.StorageDynamic, nil
	case ".gpx":
		return models.StorageDynamic, nil
	case ".topojson":
		return models.StorageDynamic, nil
	case ".mbtiles":
		return models.StorageTileArchive, nil
	default:
		return "", apperr.Validationf("unsupported file extension %q", filepath.Ext(filename))
	}
}

// verifyShapefileTriplet checks that a .zip archive contains matching
// .shp, .shx and .dbf entries for the same stem (spec §4.3 step 4); .prj
// is optional.
func verifyShapefileTriplet(zipPath string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return apperr.Wrap(apperr.Validation, "open shapefile archive", err)
	}
	defer r.Close()

	stems := map[string]map[string]bool{}
	for _, f := range r.File {
		ext := strings.ToLower(filepath.Ext(f.Name))
		switch ext {
		case ".shp", ".shx", ".dbf", ".prj":
			stem := strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
			if stems[stem] == nil {
				stems[stem] = map[string]bool{}
			}
			stems[stem][ext] = true
		}
	}
	for _, exts := range stems {
		if exts[".shp"] && exts[".shx"] && exts[".dbf"] {
			return nil
		}
	}
	return apperr.New(apperr.Validation, "zip does not contain a matching .shp/.shx/.dbf shapefile triplet")
}
