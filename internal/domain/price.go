package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxSlots is the number of product variants one price row can combine.
const MaxSlots = 3

// ProductVariantPrice is the price and stock of one combination of up to
// MaxSlots product variants. Empty slots are nil.
type ProductVariantPrice struct {
	ID                  string          `json:"id"`
	ProductID           string          `json:"product_id"`
	ProductVariantOne   *string         `json:"product_variant_one"`
	ProductVariantTwo   *string         `json:"product_variant_two"`
	ProductVariantThree *string         `json:"product_variant_three"`
	Price               decimal.Decimal `json:"price"`
	Stock               int             `json:"stock"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Slots returns the three slot references in order.
func (p *ProductVariantPrice) Slots() [MaxSlots]*string {
	return [MaxSlots]*string{p.ProductVariantOne, p.ProductVariantTwo, p.ProductVariantThree}
}

// SetSlots fills the slots from ids in order. Ids beyond MaxSlots are
// ignored and missing ones leave the slot empty.
func (p *ProductVariantPrice) SetSlots(ids []string) {
	var slots [MaxSlots]*string
	for i := 0; i < len(ids) && i < MaxSlots; i++ {
		id := ids[i]
		slots[i] = &id
	}
	p.ProductVariantOne, p.ProductVariantTwo, p.ProductVariantThree = slots[0], slots[1], slots[2]
}

// SlotKey identifies the slot combination of the row, so two rows with the
// same variants in the same slots share a key.
func (p *ProductVariantPrice) SlotKey() string {
	return SlotKey(p.Slots())
}

// SlotKey joins slot ids with "|", empty slots as "".
func SlotKey(slots [MaxSlots]*string) string {
	parts := make([]string, MaxSlots)
	for i, s := range slots {
		if s != nil {
			parts[i] = *s
		}
	}
	return strings.Join(parts, "|")
}

// VariantPrice is a price row joined with the tags of its slots.
type VariantPrice struct {
	ProductVariantPrice
	TagOne   string
	TagTwo   string
	TagThree string
}

// VariantPriceRow is the flat projection of a price row used by the listing
// and the detail endpoint.
type VariantPriceRow struct {
	ProductVariantOne   string          `json:"product_variant_one"`
	ProductVariantTwo   string          `json:"product_variant_two"`
	ProductVariantThree string          `json:"product_variant_three"`
	Price               decimal.Decimal `json:"price"`
	Stock               int             `json:"stock"`
}

// Row projects v into its flat form. Empty slots become "".
func (v VariantPrice) Row() VariantPriceRow {
	return VariantPriceRow{
		ProductVariantOne:   v.TagOne,
		ProductVariantTwo:   v.TagTwo,
		ProductVariantThree: v.TagThree,
		Price:               v.Price,
		Stock:               v.Stock,
	}
}

// Rows projects every price in order.
func Rows(prices []VariantPrice) []VariantPriceRow {
	rows := make([]VariantPriceRow, 0, len(prices))
	for _, p := range prices {
		rows = append(rows, p.Row())
	}
	return rows
}
