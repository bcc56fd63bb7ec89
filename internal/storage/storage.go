// Package storage stores product images as objects.
package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/utafrali/product-catalog/pkg/slug"
)

// Storage defines the interface for file storage operations.
type Storage interface {
	// Upload stores a file and returns the result with key and URL.
	Upload(ctx context.Context, input *UploadInput) (*UploadResult, error)

	// Delete removes a file by its key.
	Delete(ctx context.Context, key string) error

	// GetURL returns the URL clients download the object from.
	GetURL(ctx context.Context, key string) (string, error)
}

// UploadInput holds the parameters for uploading a file.
type UploadInput struct {
	Key         string
	ContentType string
	Size        int64
	Data        io.Reader
}

// UploadResult holds the result of a successful upload.
type UploadResult struct {
	Key string
	URL string
}

// ObjectKey returns a fresh key for an image of the product with sku:
// products/<sku-slug>/<uuid><ext>. The extension of filename is kept in
// lower case.
func ObjectKey(sku, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return "products/" + slug.GenerateOr(sku, "product") + "/" + uuid.NewString() + ext
}
