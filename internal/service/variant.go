package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/product-catalog/internal/cache"
	"github.com/utafrali/product-catalog/internal/domain"
	"github.com/utafrali/product-catalog/internal/repository"
	apperrors "github.com/utafrali/product-catalog/pkg/errors"
)

// VariantService manages the shared option types products pick from.
type VariantService struct {
	store  repository.Store
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewVariantService creates a new variant service.
func NewVariantService(store repository.Store, c cache.Cache, ttl time.Duration, logger *slog.Logger) *VariantService {
	return &VariantService{store: store, cache: c, ttl: ttl, logger: logger}
}

// CreateVariantInput holds the parameters for creating a variant.
type CreateVariantInput struct {
	Title  string `json:"title" validate:"required,notblank,max=255"`
	Active *bool  `json:"active"`
}

// FormOptions returns the active variants offered by the product form,
// ordered by title.
func (s *VariantService) FormOptions(ctx context.Context) ([]domain.VariantOption, error) {
	opts, err := cache.GetOrLoad(ctx, s.cache, cache.KeyActiveVariants, s.ttl, s.logger,
		func(ctx context.Context) ([]domain.VariantOption, error) {
			variants, err := s.store.Repositories().Variants.List(ctx, true)
			if err != nil {
				return nil, err
			}
			opts := make([]domain.VariantOption, 0, len(variants))
			for _, v := range variants {
				opts = append(opts, v.Option())
			}
			return opts, nil
		})
	if err != nil {
		return nil, fmt.Errorf("list active variants: %w", err)
	}
	if opts == nil {
		opts = []domain.VariantOption{}
	}
	return opts, nil
}

// ListVariants returns all variants, or only the active ones.
func (s *VariantService) ListVariants(ctx context.Context, activeOnly bool) ([]domain.Variant, error) {
	variants, err := s.store.Repositories().Variants.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	return variants, nil
}

// CreateVariant adds an option type. Variants are active unless the input
// says otherwise.
func (s *VariantService) CreateVariant(ctx context.Context, in *CreateVariantInput) (*domain.Variant, error) {
	in.Title = strings.TrimSpace(in.Title)

	var errs apperrors.FieldErrors
	mergeValidation(&errs, in)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	v := &domain.Variant{
		ID:        uuid.New().String(),
		Title:     in.Title,
		Active:    in.Active == nil || *in.Active,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Repositories().Variants.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("create variant: %w", err)
	}

	cache.Invalidate(ctx, s.cache, s.logger)
	s.logger.InfoContext(ctx, "variant created",
		slog.String("variant_id", v.ID),
		slog.String("title", v.Title),
	)
	return v, nil
}
