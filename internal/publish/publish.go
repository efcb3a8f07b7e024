// Package publish implements the publish router of spec §4.7: turning a
// ready dataset into a public, slug-addressed tile endpoint. Slug
// uniqueness and the CAS precondition live in the catalog (internal/catalog),
// since closing the duplicate-slug race requires serializing the check
// through the catalog's single writer lane; this package only shapes the
// public result and the tile URL clients should use.
package publish

import (
	"context"
	"fmt"

	"github.com/sharkAndshark/mapflow/internal/catalog"
	"github.com/sharkAndshark/mapflow/pkg/models"
)

// Router publishes and unpublishes datasets and builds the public tile URL.
type Router struct {
	catalog   *catalog.Catalog
	publicURL string
}

// NewRouter constructs a Router. publicURLPrefix is prepended to a slug to
// form the public tile base (e.g. "/tiles"); it never includes a scheme or
// host, since the server doesn't know its own externally visible address.
func NewRouter(cat *catalog.Catalog, publicURLPrefix string) *Router {
	return &Router{catalog: cat, publicURL: publicURLPrefix}
}

// Publish assigns slug (or the dataset id, if slug is empty) to a ready
// dataset and returns the public result shape of spec §6.1.
func (r *Router) Publish(ctx context.Context, id, slug string) (*models.PublishResult, error) {
	assigned, err := r.catalog.Publish(ctx, id, slug)
	if err != nil {
		return nil, err
	}
	return &models.PublishResult{
		URL:      fmt.Sprintf("%s/%s", r.publicURL, assigned),
		Slug:     assigned,
		IsPublic: true,
	}, nil
}

// Unpublish clears a dataset's public slug.
func (r *Router) Unpublish(ctx context.Context, id string) error {
	return r.catalog.Unpublish(ctx, id)
}
