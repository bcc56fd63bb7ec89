package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/utafrali/product-catalog/pkg/errors"
)

// Column limits of the catalog schema.
const (
	// MaxTagLength bounds a variant tag, matching the variant_title column.
	MaxTagLength = 255
	// MaxStock is the largest stock an INTEGER column holds.
	MaxStock = math.MaxInt32
	// PriceScale is the number of decimal places a price may carry.
	PriceScale = 2
)

// MaxPrice is the largest value a NUMERIC(12,2) price column holds.
var MaxPrice = decimal.RequireFromString("9999999999.99")

// CheckPrice returns a field message when d cannot be stored as a price, or
// "" when it can.
func CheckPrice(d decimal.Decimal) string {
	switch {
	case d.IsNegative():
		return "must be greater than or equal to 0"
	case d.GreaterThan(MaxPrice):
		return "must be less than or equal to " + MaxPrice.StringFixed(PriceScale)
	case !d.Truncate(PriceScale).Equal(d):
		return fmt.Sprintf("must have at most %d decimal places", PriceScale)
	}
	return ""
}

// CheckStock returns a field message when n cannot be stored as stock, or ""
// when it can.
func CheckStock(n int) string {
	switch {
	case n < 0:
		return "must be greater than or equal to 0"
	case n > MaxStock:
		return fmt.Sprintf("must be less than or equal to %d", MaxStock)
	}
	return ""
}

// OptionGroup is one submitted {option, tags} unit: a Variant and the tag
// values the product offers for it. Price and stock are optional per-group
// overrides of the form values.
type OptionGroup struct {
	Option string           `json:"option"`
	Tags   []string         `json:"tags"`
	Price  *decimal.Decimal `json:"price,omitempty"`
	Stock  *int             `json:"stock,omitempty"`
}

// DistinctTags returns the trimmed, non-blank tags in submission order with
// repeats removed.
func (g OptionGroup) DistinctTags() []string {
	seen := make(map[string]struct{}, len(g.Tags))
	tags := make([]string, 0, len(g.Tags))
	for _, t := range g.Tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	return tags
}

// ParseOptionGroups decodes the JSON variants payload. An empty payload,
// null and [] all mean "no groups".
func ParseOptionGroups(raw string) ([]OptionGroup, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var groups []OptionGroup
	if err := json.Unmarshal([]byte(raw), &groups); err != nil {
		return nil, fmt.Errorf("decode option groups: %w", err)
	}
	return groups, nil
}

// ValidateOptionGroups checks every group and returns all problems keyed by
// field path, for example "variants[1].tags[0]".
func ValidateOptionGroups(groups []OptionGroup) apperrors.FieldErrors {
	var errs apperrors.FieldErrors
	for i, g := range groups {
		prefix := fmt.Sprintf("variants[%d]", i)

		switch {
		case strings.TrimSpace(g.Option) == "":
			errs.Add(prefix+".option", "is required")
		case uuid.Validate(strings.TrimSpace(g.Option)) != nil:
			errs.Add(prefix+".option", "must be a valid UUID")
		}

		if len(g.Tags) == 0 {
			errs.Add(prefix+".tags", "must contain at least one tag")
		}
		for j, tag := range g.Tags {
			field := fmt.Sprintf("%s.tags[%d]", prefix, j)
			tag = strings.TrimSpace(tag)
			if tag == "" {
				errs.Add(field, "must not be blank")
			} else if utf8.RuneCountInString(tag) > MaxTagLength {
				errs.Add(field, fmt.Sprintf("must be at most %d characters", MaxTagLength))
			}
		}

		if g.Price != nil {
			if msg := CheckPrice(*g.Price); msg != "" {
				errs.Add(prefix+".price", msg)
			}
		}
		if g.Stock != nil {
			if msg := CheckStock(*g.Stock); msg != "" {
				errs.Add(prefix+".stock", msg)
			}
		}
	}
	return errs
}
