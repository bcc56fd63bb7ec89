package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceRowPolicy decides how option groups turn into price rows.
type PriceRowPolicy string

const (
	// PolicyPerTag writes one row per tag with the tag in slot one.
	PolicyPerTag PriceRowPolicy = "per_tag"
	// PolicyPerGroup writes one row per group from its first three tags.
	PolicyPerGroup PriceRowPolicy = "per_group"
	// PolicySingle writes one row for the whole submission from the first
	// three tags across all groups.
	PolicySingle PriceRowPolicy = "single"
)

// ParsePriceRowPolicy validates s. An empty string selects PolicyPerTag.
func ParsePriceRowPolicy(s string) (PriceRowPolicy, error) {
	switch p := PriceRowPolicy(s); p {
	case "":
		return PolicyPerTag, nil
	case PolicyPerTag, PolicyPerGroup, PolicySingle:
		return p, nil
	default:
		return "", fmt.Errorf("unknown price row policy %q", s)
	}
}

// ResolvedGroup is an option group with the product variants its tags
// resolved to, in tag order.
type ResolvedGroup struct {
	Group    OptionGroup
	Variants []ProductVariant
}

// PriceStock carries optional form level price and stock.
type PriceStock struct {
	Price *decimal.Decimal
	Stock *int
}

// Present reports whether either value was submitted.
func (ps PriceStock) Present() bool {
	return ps.Price != nil || ps.Stock != nil
}

// PricePlan is a price row to write: the product variant ids for its slots
// and the values to store.
type PricePlan struct {
	VariantIDs []string
	Price      decimal.Decimal
	Stock      int
}

// Key returns the slot key the plan will be stored under.
func (p PricePlan) Key() string {
	var row ProductVariantPrice
	row.SetSlots(p.VariantIDs)
	return row.SlotKey()
}

// Plan builds the price rows for groups. Plans sharing a slot combination are
// collapsed, the first one wins. When no group resolved to any variant a
// single slot-less row is planned if the form carries a price or stock.
func (p PriceRowPolicy) Plan(groups []ResolvedGroup, form PriceStock) []PricePlan {
	var plans []PricePlan
	switch p {
	case PolicyPerGroup:
		for _, g := range groups {
			if len(g.Variants) == 0 {
				continue
			}
			plans = append(plans, PricePlan{
				VariantIDs: variantIDs(g.Variants, MaxSlots),
				Price:      priceOr(g.Group.Price, form.Price),
				Stock:      stockOr(g.Group.Stock, form.Stock),
			})
		}
	case PolicySingle:
		if ids := FirstVariantIDs(groups, MaxSlots); len(ids) > 0 {
			plans = append(plans, PricePlan{
				VariantIDs: ids,
				Price:      priceOr(nil, form.Price),
				Stock:      stockOr(nil, form.Stock),
			})
		}
	default:
		for _, g := range groups {
			for _, pv := range g.Variants {
				plans = append(plans, PricePlan{
					VariantIDs: []string{pv.ID},
					Price:      priceOr(g.Group.Price, form.Price),
					Stock:      stockOr(g.Group.Stock, form.Stock),
				})
			}
		}
	}

	if len(plans) == 0 {
		if FirstVariantIDs(groups, 1) == nil && form.Present() {
			return []PricePlan{{Price: priceOr(nil, form.Price), Stock: stockOr(nil, form.Stock)}}
		}
		return nil
	}
	return dedupe(plans)
}

// FirstVariantIDs returns up to n product variant ids across groups in
// submission order.
func FirstVariantIDs(groups []ResolvedGroup, n int) []string {
	var ids []string
	for _, g := range groups {
		for _, pv := range g.Variants {
			if len(ids) == n {
				return ids
			}
			ids = append(ids, pv.ID)
		}
	}
	return ids
}

func variantIDs(pvs []ProductVariant, n int) []string {
	ids := make([]string, 0, n)
	for i := 0; i < len(pvs) && i < n; i++ {
		ids = append(ids, pvs[i].ID)
	}
	return ids
}

func dedupe(plans []PricePlan) []PricePlan {
	seen := make(map[string]struct{}, len(plans))
	out := plans[:0]
	for _, p := range plans {
		k := p.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}

func priceOr(group, form *decimal.Decimal) decimal.Decimal {
	switch {
	case group != nil:
		return *group
	case form != nil:
		return *form
	default:
		return decimal.Zero
	}
}

func stockOr(group, form *int) int {
	switch {
	case group != nil:
		return *group
	case form != nil:
		return *form
	default:
		return 0
	}
}
