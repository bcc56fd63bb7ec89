package domain

import (
	"time"
)

// Product is a catalog entry. Its images, variant tags and price rows are
// stored in their own tables and loaded on demand.
type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	SKU         string    `json:"sku"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductImage links an object in image storage to a product.
type ProductImage struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	FilePath  string    `json:"file_path"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
