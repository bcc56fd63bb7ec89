package domain

import "time"

// Variant is an option type shared by all products, such as "Color".
type Variant struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// VariantOption is the id/title pair offered by the create form.
type VariantOption struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Option returns the form projection of v.
func (v Variant) Option() VariantOption {
	return VariantOption{ID: v.ID, Title: v.Title}
}

// ProductVariant is one tag value of a Variant scoped to a product, for
// example the product's "Red" of "Color". A product has at most one row per
// (variant, tag).
type ProductVariant struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"product_id"`
	VariantID    string    `json:"variant_id"`
	VariantTitle string    `json:"variant_title"`
	CreatedAt    time.Time `json:"created_at"`
}
