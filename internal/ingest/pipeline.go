// Package ingest implements the ingestion pipeline of spec §4.3: the
// request-thread receive phase (stream to disk, detect format, create the
// catalog row) and the background import workers (dynamic table creation,
// tile-archive metadata capture).
package ingest

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sharkAndshark/mapflow/internal/apperr"
	"github.com/sharkAndshark/mapflow/internal/catalog"
	"github.com/sharkAndshark/mapflow/internal/config"
	"github.com/sharkAndshark/mapflow/internal/spatialstore"
	"github.com/sharkAndshark/mapflow/internal/tiles"
	"github.com/sharkAndshark/mapflow/pkg/models"
)

// workerCount is the number of background import jobs that may run
// concurrently. Each job itself only ever has one write in flight at a
// time through the spatial store's single writer lane, so this bounds
// concurrent read-heavy work (ST_Read, archive probing), not database
// contention.
const workerCount = 4

// Pipeline owns the upload directory, the catalog, and the background
// worker pool that advances datasets from `uploaded` to `ready`/`failed`.
type Pipeline struct {
	cfg     *config.Config
	store   *spatialstore.Store
	catalog *catalog.Catalog
	jobs    chan string
}

func NewPipeline(cfg *config.Config, store *spatialstore.Store, cat *catalog.Catalog) *Pipeline {
	return &Pipeline{cfg: cfg, store: store, catalog: cat, jobs: make(chan string, 64)}
}

// Start launches the background worker pool. Call once at startup.
func (p *Pipeline) Start(ctx context.Context) {
	for i := 0; i < workerCount; i++ {
		go p.workerLoop(ctx)
	}
}

func (p *Pipeline) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-p.jobs:
			p.process(ctx, id)
		}
	}
}

// Receive implements spec §4.3's "Receive phase": it streams the first
// `file` part of a multipart request to `<upload-root>/<id>/<filename>`,
// enforcing the configured size ceiling, detects the format, creates the
// catalog row in state `uploaded`, and enqueues the background job.
func (p *Pipeline) Receive(ctx context.Context, part *multipart.Part) (*models.Dataset, error) {
	defer part.Close()

	filename := part.FileName()
	if filename == "" {
		return nil, apperr.New(apperr.Validation, "missing file name")
	}
	kind, err := detectFormat(filename)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	dir := filepath.Join(p.cfg.UploadDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "create upload directory", err)
	}
	destPath := filepath.Join(dir, filepath.Base(filename))

	size, err := streamToDisk(part, destPath, p.cfg.UploadMaxMB*1024*1024)
	if err != nil {
		return nil, err
	}

	if kind == models.StorageDynamic && strings.EqualFold(filepath.Ext(filename), ".zip") {
		if err := verifyShapefileTriplet(destPath); err != nil {
			return nil, err
		}
	}

	d, err := p.catalog.Create(ctx, filename, size, kind, destPath)
	if err != nil {
		return nil, err
	}

	select {
	case p.jobs <- d.ID:
	default:
		go func() { p.jobs <- d.ID }()
	}
	return d, nil
}

// streamToDisk copies src to a new file at destPath, aborting with a
// too-large error as soon as accumulated bytes exceed maxBytes, without
// ever buffering the whole payload in memory (spec §4.3 step 2).
func streamToDisk(src io.Reader, destPath string, maxBytes int64) (int64, error) {
	f, err := os.Create(destPath)
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, "create upload file", err)
	}
	defer f.Close()

	limited := io.LimitReader(src, maxBytes+1)
	n, err := io.Copy(f, limited)
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, "write upload to disk", err)
	}
	if n > maxBytes {
		os.Remove(destPath)
		return 0, apperr.New(apperr.TooLarge, fmt.Sprintf("upload exceeds maximum size of %d bytes", maxBytes))
	}
	return n, nil
}

// process dispatches a queued dataset id to the dynamic or tile-archive
// background import pipeline, marking the dataset failed on any error that
// escapes the specific pipeline (spec §4.3 "Failure and retry": failures
// are terminal, no retries).
func (p *Pipeline) process(ctx context.Context, id string) {
	d, err := p.catalog.Get(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("dataset", id).Msg("background import: dataset vanished")
		return
	}

	ok, err := p.catalog.Transition(ctx, id, models.StatusUploaded, models.StatusProcessing)
	if err != nil {
		log.Error().Err(err).Str("dataset", id).Msg("background import: transition to processing failed")
		return
	}
	if !ok {
		return
	}

	switch d.StorageKind {
	case models.StorageDynamic:
		err = p.importDynamic(ctx, d)
	case models.StorageTileArchive:
		err = p.importArchive(ctx, d)
	default:
		err = apperr.New(apperr.Internal, "unknown storage kind")
	}
	if err != nil {
		log.Warn().Err(err).Str("dataset", id).Msg("background import failed")
		if ferr := p.catalog.Fail(ctx, id, err); ferr != nil {
			log.Error().Err(ferr).Str("dataset", id).Msg("failed to record import failure")
		}
	}
}

// importDynamic runs spec §4.3's "Background import (dynamic)" steps 2-7.
func (p *Pipeline) importDynamic(ctx context.Context, d *models.Dataset) error {
	crs := p.store.ReadCRSAuth(ctx, d.Path)

	srcCols, err := p.store.IntrospectSource(ctx, d.Path)
	if err != nil {
		return err
	}
	plan, geomColumn := planSchema(srcCols)
	if geomColumn == "" {
		return apperr.New(apperr.Validation, "source file has no geometry column")
	}

	if err := p.store.CreateDatasetTable(ctx, d.TableName, d.Path, geomColumn, plan); err != nil {
		return err
	}

	bounds, count, err := p.store.BoundingBoxAndCount(ctx, d.TableName, crs)
	if err != nil {
		return err
	}

	return p.catalog.FinishDynamicImport(ctx, d.ID, crs, bounds, count, plan)
}

// importArchive runs spec §4.3's "Background import (tile-archive)" steps.
func (p *Pipeline) importArchive(ctx context.Context, d *models.Dataset) error {
	archive, err := tiles.OpenArchive(d.ArchivePath)
	if err != nil {
		return err
	}
	defer archive.Close()

	meta, err := archive.ReadMetadata()
	if err != nil {
		return err
	}

	return p.catalog.FinishArchiveImport(ctx, d.ID, meta.Bounds, meta.MinZoom, meta.MaxZoom, meta.Format, meta.LayerJSON)
}
