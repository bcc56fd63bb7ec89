package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/product-catalog/internal/cache"
	"github.com/utafrali/product-catalog/internal/domain"
	"github.com/utafrali/product-catalog/internal/repository"
	apperrors "github.com/utafrali/product-catalog/pkg/errors"
	"github.com/utafrali/product-catalog/pkg/pagination"
)

// ListProductsInput holds the listing filters. Nil and empty values disable
// a filter. The price range applies only when both bounds are set.
type ListProductsInput struct {
	Title      string
	PriceFrom  *decimal.Decimal
	PriceTo    *decimal.Decimal
	VariantTag string
	CreatedOn  *time.Time
	Page       int
}

// ProductList is one page of the product listing.
type ProductList struct {
	Items       []domain.ProductListItem
	Page        pagination.Page
	VariantTags []string
}

// ListProducts returns one fixed-size page of products matching in, each
// with its projected price rows, and the distinct variant tag set.
func (s *ProductService) ListProducts(ctx context.Context, in ListProductsInput) (*ProductList, error) {
	if in.PriceFrom != nil && in.PriceTo != nil && in.PriceFrom.GreaterThan(*in.PriceTo) {
		return nil, apperrors.Validation(map[string]string{
			"price_to": "must be greater than or equal to price_from",
		})
	}

	filter := repository.ProductFilter{
		Title:      in.Title,
		VariantTag: in.VariantTag,
	}
	if in.PriceFrom != nil && in.PriceTo != nil {
		filter.PriceFrom, filter.PriceTo = in.PriceFrom, in.PriceTo
	}
	if in.CreatedOn != nil {
		y, m, d := in.CreatedOn.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		filter.CreatedOn = &day
	}

	r := s.store.Repositories()

	total, err := r.Products.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}
	page := pagination.NewPage(in.Page, s.opts.PageSize, total)
	filter.Offset, filter.Limit = page.Offset(), page.Limit()

	items := []domain.ProductListItem{}
	if total > 0 {
		products, err := r.Products.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}

		ids := make([]string, 0, len(products))
		for _, p := range products {
			ids = append(ids, p.ID)
		}
		prices := map[string][]domain.VariantPrice{}
		if len(ids) > 0 {
			if prices, err = r.Prices.ListByProducts(ctx, ids); err != nil {
				return nil, fmt.Errorf("list prices: %w", err)
			}
		}

		for _, p := range products {
			items = append(items, domain.ProductListItem{Product: p, Variants: domain.Rows(prices[p.ID])})
		}
	}

	tags, err := s.VariantTags(ctx)
	if err != nil {
		return nil, err
	}

	return &ProductList{Items: items, Page: page, VariantTags: tags}, nil
}

// VariantTags returns the sorted distinct tag set across all products.
func (s *ProductService) VariantTags(ctx context.Context) ([]string, error) {
	tags, err := cache.GetOrLoad(ctx, s.cache, cache.KeyVariantTags, s.opts.CacheTTL, s.logger,
		func(ctx context.Context) ([]string, error) {
			return s.store.Repositories().ProductVariants.DistinctTags(ctx)
		})
	if err != nil {
		return nil, fmt.Errorf("list variant tags: %w", err)
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}
