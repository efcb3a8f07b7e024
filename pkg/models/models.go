// Package models holds the domain types shared across the mapflow control
// plane: datasets, their column schema, accounts, and sessions.
package models

import "time"

// ── Dataset ──────────────────────────────────────────────────

// DatasetStatus is the lifecycle state of an uploaded dataset (spec §4.3).
type DatasetStatus string

const (
	StatusUploaded   DatasetStatus = "uploaded"
	StatusProcessing DatasetStatus = "processing"
	StatusReady      DatasetStatus = "ready"
	StatusFailed     DatasetStatus = "failed"
)

// StorageKind distinguishes a dynamically-imported table from a
// pre-rendered tile archive passed through unchanged.
type StorageKind string

const (
	StorageDynamic     StorageKind = "dynamic"
	StorageTileArchive StorageKind = "tile-archive"
)

// TileFormat describes what a tile-archive dataset serves.
type TileFormat string

const (
	TileFormatVector TileFormat = "mvt"
	TileFormatRaster TileFormat = "raster"
)

// Bounds is a WGS-84 bounding box: [minX, minY, maxX, maxY].
type Bounds [4]float64

// Dataset is one uploaded file and everything captured about it during
// ingestion. It is the row shape of the `files` catalog table.
type Dataset struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Size        int64         `json:"size"`
	UploadedAt  time.Time     `json:"uploadedAt"`
	Status      DatasetStatus `json:"status"`
	CRS         string        `json:"crs,omitempty"`
	Path        string        `json:"path"`
	Error       string        `json:"error,omitempty"`
	StorageKind StorageKind   `json:"type"`

	// Dynamic-only.
	TableName string  `json:"-"`
	RowCount  int64   `json:"rowCount,omitempty"`
	Bounds    *Bounds `json:"-"`

	// Tile-archive-only.
	ArchivePath string     `json:"-"`
	TileFormat  TileFormat `json:"tileFormat,omitempty"`
	MinZoom     int        `json:"minZoom,omitempty"`
	MaxZoom     int        `json:"maxZoom,omitempty"`
	LayerJSON   string     `json:"-"`

	IsPublic   bool   `json:"isPublic"`
	PublicSlug string `json:"publicSlug,omitempty"`
}

// Projection is the public JSON shape returned by /api/files and friends.
// It mirrors Dataset but omits the bounding box, row count and tile-archive
// details (served by the preview endpoint instead) and hides internals
// (physical table name, archive path) that must never reach a client.
type Projection struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Type       StorageKind   `json:"type"`
	Size       int64         `json:"size"`
	UploadedAt time.Time     `json:"uploadedAt"`
	Status     DatasetStatus `json:"status"`
	CRS        string        `json:"crs,omitempty"`
	Path       string        `json:"path"`
	Error      string        `json:"error,omitempty"`
	IsPublic   bool          `json:"isPublic"`
	PublicSlug string        `json:"publicSlug,omitempty"`
}

// ToProjection strips fields a client must never see.
func (d *Dataset) ToProjection() Projection {
	return Projection{
		ID:         d.ID,
		Name:       d.Name,
		Type:       d.StorageKind,
		Size:       d.Size,
		UploadedAt: d.UploadedAt,
		Status:     d.Status,
		CRS:        d.CRS,
		Path:       d.Path,
		Error:      d.Error,
		IsPublic:   d.IsPublic,
		PublicSlug: d.PublicSlug,
	}
}

// Preview is the response shape of GET /api/files/:id/preview.
type Preview struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	CRS        string     `json:"crs,omitempty"`
	Bounds     Bounds     `json:"bbox"`
	RowCount   int64      `json:"rowCount,omitempty"`
	TileFormat TileFormat `json:"tileFormat,omitempty"`
	MinZoom    *int       `json:"minZoom,omitempty"`
	MaxZoom    *int       `json:"maxZoom,omitempty"`
}

// ── Column schema ────────────────────────────────────────────

// FieldType is the MVT-compatible declared type of a captured column.
type FieldType string

const (
	FieldText    FieldType = "text"
	FieldInt32   FieldType = "int32"
	FieldInt64   FieldType = "int64"
	FieldFloat64 FieldType = "float64"
	FieldGeom    FieldType = "geometry"
)

// ColumnSchema is one captured column of a dynamic dataset (spec §3,
// "Column schema entry").
type ColumnSchema struct {
	DatasetID  string    `json:"-"`
	Ordinal    int       `json:"-"`
	Original   string    `json:"name"`
	Normalized string    `json:"-"`
	Type       FieldType `json:"type"`
}

// Field is the public {name, type} pair returned by the schema endpoint.
type Field struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// Layer groups fields under a layer id, matching MVT layer semantics.
type Layer struct {
	ID     string  `json:"id"`
	Fields []Field `json:"fields"`
}

// SchemaResponse is the body of GET /api/files/:id/schema.
type SchemaResponse struct {
	Layers []Layer `json:"layers"`
}

// Property is one {key, value} pair in a feature's attribute list, where
// value preserves JSON null explicitly (spec §4.5, P3).
type Property struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// FeatureResponse is the body of GET /api/files/:id/features/:fid.
type FeatureResponse struct {
	FID        int64      `json:"fid"`
	Properties []Property `json:"properties"`
}

// ── Accounts & sessions ──────────────────────────────────────

type Role string

const RoleAdmin Role = "admin"

// User is the single administrator record (spec §3, "User").
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"-"`
}

// Session is a server-issued, cookie-bound, persisted login session.
type Session struct {
	ID        string    `json:"-"`
	Username  string    `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

// PublishResult is the body of POST /api/files/:id/publish.
type PublishResult struct {
	URL      string `json:"url"`
	Slug     string `json:"slug"`
	IsPublic bool   `json:"isPublic"`
}
