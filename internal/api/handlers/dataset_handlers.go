package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sharkAndshark/mapflow/internal/apperr"
	"github.com/sharkAndshark/mapflow/internal/tiles"
	"github.com/sharkAndshark/mapflow/pkg/models"
)

// Upload handles POST /api/uploads: it pulls the first `file` part off the
// multipart body and hands it to the ingestion pipeline (spec §4.3
// "Receive phase").
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	reader, err := r.MultipartReader()
	if err != nil {
		respondError(w, http.StatusBadRequest, "expected multipart/form-data body")
		return
	}

	for {
		part, err := reader.NextPart()
		if err != nil {
			respondError(w, http.StatusBadRequest, "missing file part")
			return
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}

		d, err := h.pipeline.Receive(r.Context(), part)
		if err != nil {
			respondAppErr(w, err)
			return
		}
		respondJSON(w, http.StatusOK, d.ToProjection())
		return
	}
}

// ListFiles handles GET /api/files.
func (h *Handlers) ListFiles(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.catalog.List(r.Context())
	if err != nil {
		respondAppErr(w, err)
		return
	}
	projections := make([]models.Projection, len(datasets))
	for i, d := range datasets {
		projections[i] = d.ToProjection()
	}
	respondJSON(w, http.StatusOK, projections)
}

func (h *Handlers) datasetOr404(w http.ResponseWriter, r *http.Request) *models.Dataset {
	id := chi.URLParam(r, "id")
	d, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		respondAppErr(w, err)
		return nil
	}
	return d
}

// Preview handles GET /api/files/:id/preview (spec §4.5 — actually the
// dataset summary used by the map UI before tiles are requested).
func (h *Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	d := h.datasetOr404(w, r)
	if d == nil {
		return
	}
	if d.Status != models.StatusReady {
		respondError(w, http.StatusConflict, "dataset is not ready")
		return
	}

	preview := models.Preview{
		ID:         d.ID,
		Name:       d.Name,
		CRS:        d.CRS,
		RowCount:   d.RowCount,
		TileFormat: d.TileFormat,
	}
	if d.Bounds != nil {
		preview.Bounds = *d.Bounds
	}
	if d.StorageKind == models.StorageTileArchive {
		minZ, maxZ := d.MinZoom, d.MaxZoom
		preview.MinZoom = &minZ
		preview.MaxZoom = &maxZ
	}
	respondJSON(w, http.StatusOK, preview)
}

// Tile handles GET /api/files/:id/tiles/:z/:x/:y (admin-only tile route).
func (h *Handlers) Tile(w http.ResponseWriter, r *http.Request) {
	d := h.datasetOr404(w, r)
	if d == nil {
		return
	}
	h.serveTile(w, r, d)
}

// PublicTile handles GET /tiles/:slug/:z/:x/:y, reusing the tile engine
// verbatim (spec §4.7).
func (h *Handlers) PublicTile(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	d, err := h.catalog.GetBySlug(r.Context(), slug)
	if err != nil {
		respondAppErr(w, err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	h.serveTile(w, r, d)
}

func (h *Handlers) serveTile(w http.ResponseWriter, r *http.Request, d *models.Dataset) {
	z, x, y, err := parseTileCoords(r)
	if err != nil {
		respondAppErr(w, err)
		return
	}

	var cols []models.ColumnSchema
	if d.StorageKind == models.StorageDynamic {
		cols, err = h.catalog.GetSchema(r.Context(), d.ID)
		if err != nil {
			respondAppErr(w, err)
			return
		}
	}

	data, contentType, contentEncoding, ok, err := h.engine.GenerateTile(r.Context(), d, cols, z, x, y)
	if err != nil {
		respondAppErr(w, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", contentType)
	if contentEncoding != "" {
		w.Header().Set("Content-Encoding", contentEncoding)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func parseTileCoords(r *http.Request) (z, x, y int, err error) {
	z, err1 := strconv.Atoi(chi.URLParam(r, "z"))
	x, err2 := strconv.Atoi(chi.URLParam(r, "x"))
	y, err3 := strconv.Atoi(chi.URLParam(r, "y"))
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, 0, 0, apperr.New(apperr.Validation, "invalid tile coordinates")
	}
	return z, x, y, tiles.ValidateCoordinate(z, x, y)
}

// Schema handles GET /api/files/:id/schema (spec §4.5).
func (h *Handlers) Schema(w http.ResponseWriter, r *http.Request) {
	d := h.datasetOr404(w, r)
	if d == nil {
		return
	}
	if d.Status != models.StatusReady {
		respondError(w, http.StatusConflict, "dataset is not ready")
		return
	}
	var cols []models.ColumnSchema
	var err error
	if d.StorageKind == models.StorageDynamic {
		cols, err = h.catalog.GetSchema(r.Context(), d.ID)
		if err != nil {
			respondAppErr(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, tiles.BuildSchema(d, cols))
}

// Feature handles GET /api/files/:id/features/:fid (spec §4.5).
func (h *Handlers) Feature(w http.ResponseWriter, r *http.Request) {
	d := h.datasetOr404(w, r)
	if d == nil {
		return
	}
	fid, err := strconv.ParseInt(chi.URLParam(r, "fid"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid feature id")
		return
	}
	cols, err := h.catalog.GetSchema(r.Context(), d.ID)
	if err != nil {
		respondAppErr(w, err)
		return
	}
	feature, err := tiles.FetchFeature(r.Context(), h.store, d, cols, fid)
	if err != nil {
		respondAppErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, feature)
}

type publishRequest struct {
	Slug string `json:"slug"`
}

// Publish handles POST /api/files/:id/publish (spec §4.7).
func (h *Handlers) Publish(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req publishRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	result, err := h.publish.Publish(r.Context(), id, req.Slug)
	if err != nil {
		respondAppErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Unpublish handles POST /api/files/:id/unpublish.
func (h *Handlers) Unpublish(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.publish.Unpublish(r.Context(), id); err != nil {
		respondAppErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"unpublished": true})
}
