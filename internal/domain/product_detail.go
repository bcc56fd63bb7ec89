package domain

// ProductDetail is a product with everything it owns, as returned by the
// detail endpoint.
type ProductDetail struct {
	Product
	Images   []ProductImage    `json:"images"`
	Variants []ProductVariant  `json:"variants"`
	Prices   []VariantPriceRow `json:"prices"`
}

// ProductListItem is one entry of the product listing: the product summary
// plus its flattened price rows.
type ProductListItem struct {
	Product
	Variants []VariantPriceRow `json:"variants"`
}
