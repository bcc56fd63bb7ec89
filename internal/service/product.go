package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/utafrali/product-catalog/internal/cache"
	"github.com/utafrali/product-catalog/internal/domain"
	"github.com/utafrali/product-catalog/internal/event"
	"github.com/utafrali/product-catalog/internal/repository"
	"github.com/utafrali/product-catalog/internal/storage"
	apperrors "github.com/utafrali/product-catalog/pkg/errors"
	"github.com/utafrali/product-catalog/pkg/validator"
)

// ProductOptions tunes the product service.
type ProductOptions struct {
	Policy   domain.PriceRowPolicy
	PageSize int
	CacheTTL time.Duration
	// Now stamps created_at and updated_at. Defaults to time.Now.
	Now func() time.Time
}

// ProductService implements the business logic for product operations.
type ProductService struct {
	store    repository.Store
	files    storage.Storage
	cache    cache.Cache
	producer *event.Producer
	opts     ProductOptions
	logger   *slog.Logger
}

// NewProductService creates a new product service.
func NewProductService(
	store repository.Store,
	files storage.Storage,
	c cache.Cache,
	producer *event.Producer,
	opts ProductOptions,
	logger *slog.Logger,
) *ProductService {
	if opts.Policy == "" {
		opts.Policy = domain.PolicyPerTag
	}
	if opts.PageSize < 1 {
		opts.PageSize = 2
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ProductService{
		store:    store,
		files:    files,
		cache:    c,
		producer: producer,
		opts:     opts,
		logger:   logger,
	}
}

// ImageUpload is one submitted image file.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        io.Reader
}

// ProductInput holds the fields of the product form.
type ProductInput struct {
	Title       string               `json:"title" validate:"required,notblank,max=255"`
	SKU         string               `json:"sku" validate:"required,notblank,max=64"`
	Description string               `json:"description" validate:"max=10000"`
	Price       *decimal.Decimal     `json:"price" validate:"-"`
	Stock       *int                 `json:"stock" validate:"-"`
	Groups      []domain.OptionGroup `json:"variants" validate:"-"`
	Images      []ImageUpload        `json:"-" validate:"-"`

	// FormErrors carries problems found while decoding the form, such as
	// a malformed variants payload or a non-numeric price.
	FormErrors apperrors.FieldErrors `json:"-" validate:"-"`
}

// UpdateProductInput holds the product form plus the price row to update.
type UpdateProductInput struct {
	ProductInput
	PriceID string `json:"product_price_id" validate:"-"`
}

// FieldErrors returns every problem with the input, keyed by field.
func (in *ProductInput) FieldErrors() apperrors.FieldErrors {
	errs := apperrors.FieldErrors{}
	errs.Merge(in.FormErrors)
	mergeValidation(&errs, in)
	if in.Price != nil {
		if msg := domain.CheckPrice(*in.Price); msg != "" {
			errs.Add("price", msg)
		}
	}
	if in.Stock != nil {
		if msg := domain.CheckStock(*in.Stock); msg != "" {
			errs.Add("stock", msg)
		}
	}
	errs.Merge(domain.ValidateOptionGroups(in.Groups))
	for i, img := range in.Images {
		if !strings.HasPrefix(img.ContentType, "image/") {
			errs.Add(fmt.Sprintf("file_path[%d]", i), "must be an image")
		}
	}
	return errs
}

// FieldErrors returns every problem with the input, keyed by field.
func (in *UpdateProductInput) FieldErrors() apperrors.FieldErrors {
	errs := in.ProductInput.FieldErrors()
	if in.PriceID != "" && uuid.Validate(in.PriceID) != nil {
		errs.Add("product_price_id", "must be a valid UUID")
	}
	return errs
}

func (in *ProductInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.SKU = strings.TrimSpace(in.SKU)
	in.Description = strings.TrimSpace(in.Description)
	for i := range in.Groups {
		in.Groups[i].Option = strings.TrimSpace(in.Groups[i].Option)
	}
}

func (in *ProductInput) priceStock() domain.PriceStock {
	return domain.PriceStock{Price: in.Price, Stock: in.Stock}
}

func mergeValidation(errs *apperrors.FieldErrors, v any) {
	err := validator.Validate(v)
	if err == nil {
		return
	}
	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		errs.Merge(verr.Fields())
		return
	}
	errs.Add("form", err.Error())
}

// CreateProduct validates the form, uploads its images and writes the
// product with its variant tags and price rows in one transaction.
func (s *ProductService) CreateProduct(ctx context.Context, in *ProductInput) (*domain.Product, error) {
	in.normalize()

	if err := s.checkSKU(ctx, in.SKU, ""); err != nil {
		return nil, err
	}
	if err := in.FieldErrors().Err(); err != nil {
		return nil, err
	}

	keys, err := s.uploadImages(ctx, in.SKU, in.Images)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now().UTC()
	product := &domain.Product{
		ID:          uuid.New().String(),
		Title:       in.Title,
		SKU:         in.SKU,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var snap event.ProductSnapshot
	err = s.store.WithTx(ctx, func(r repository.Repositories) error {
		if err := r.Products.Create(ctx, product); err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		if err := addImages(ctx, r, product.ID, keys, now); err != nil {
			return err
		}

		groups, err := resolveGroups(ctx, r, product.ID, in.Groups, now)
		if err != nil {
			return err
		}
		if err := writePrices(ctx, r, product.ID, s.opts.Policy.Plan(groups, in.priceStock()), now, false); err != nil {
			return err
		}

		snap, err = loadSnapshot(ctx, r, product)
		return err
	})
	if err != nil {
		s.discardUploads(ctx, keys)
		return nil, err
	}

	cache.Invalidate(ctx, s.cache, s.logger)
	if err := s.producer.PublishProductCreated(ctx, snap); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.created event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("sku", product.SKU),
		slog.Int("variants", len(snap.Variants)),
		slog.Int("prices", len(snap.Prices)),
	)

	return product, nil
}

// UpdateProduct rewrites a product and reconciles its variant tags with the
// submitted groups. Tags no longer submitted are deleted with their price
// rows. Everything happens in one transaction.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, in *UpdateProductInput) (*domain.Product, error) {
	in.normalize()
	in.PriceID = strings.TrimSpace(in.PriceID)

	if err := s.checkSKU(ctx, in.SKU, id); err != nil {
		return nil, err
	}
	if err := in.FieldErrors().Err(); err != nil {
		return nil, err
	}

	keys, err := s.uploadImages(ctx, in.SKU, in.Images)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now().UTC()
	var (
		product *domain.Product
		snap    event.ProductSnapshot
		pruned  int
	)
	err = s.store.WithTx(ctx, func(r repository.Repositories) error {
		var err error
		product, err = r.Products.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get product by id: %w", err)
		}

		current, err := r.ProductVariants.ListByProduct(ctx, id)
		if err != nil {
			return fmt.Errorf("list product variants: %w", err)
		}
		stale := make(map[string]struct{}, len(current))
		for _, pv := range current {
			stale[pv.ID] = struct{}{}
		}

		groups, err := resolveGroups(ctx, r, id, in.Groups, now)
		if err != nil {
			return err
		}
		for _, g := range groups {
			for _, pv := range g.Variants {
				delete(stale, pv.ID)
			}
		}

		if in.PriceID != "" {
			err = updatePriceRow(ctx, r, id, in.PriceID, domain.FirstVariantIDs(groups, domain.MaxSlots), in.priceStock())
		} else {
			err = writePrices(ctx, r, id, s.opts.Policy.Plan(groups, in.priceStock()), now, true)
		}
		if err != nil {
			return err
		}

		if pruned, err = pruneVariants(ctx, r, id, stale); err != nil {
			return err
		}

		product.Title = in.Title
		product.SKU = in.SKU
		product.Description = in.Description
		if err := r.Products.Update(ctx, product); err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		if err := addImages(ctx, r, id, keys, now); err != nil {
			return err
		}

		snap, err = loadSnapshot(ctx, r, product)
		return err
	})
	if err != nil {
		s.discardUploads(ctx, keys)
		return nil, err
	}

	cache.Invalidate(ctx, s.cache, s.logger)
	if err := s.producer.PublishProductUpdated(ctx, snap); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.updated event",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", id),
		slog.String("sku", product.SKU),
		slog.Int("variants", len(snap.Variants)),
		slog.Int("pruned_variants", pruned),
	)

	return product, nil
}

// GetProductDetail returns a product with its images, variant tags and
// projected price rows.
func (s *ProductService) GetProductDetail(ctx context.Context, id string) (*domain.ProductDetail, error) {
	r := s.store.Repositories()

	product, err := r.Products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}

	images, err := r.Images.ListByProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list product images: %w", err)
	}
	for i := range images {
		url, err := s.files.GetURL(ctx, images[i].FilePath)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to resolve image url",
				slog.String("key", images[i].FilePath),
				slog.String("error", err.Error()),
			)
			continue
		}
		images[i].URL = url
	}

	variants, err := r.ProductVariants.ListByProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list product variants: %w", err)
	}

	prices, err := r.Prices.ListByProducts(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("list prices: %w", err)
	}

	return &domain.ProductDetail{
		Product:  *product,
		Images:   images,
		Variants: variants,
		Prices:   domain.Rows(prices[id]),
	}, nil
}

func (s *ProductService) checkSKU(ctx context.Context, sku, excludeID string) error {
	if sku == "" {
		return nil
	}
	exists, err := s.store.Repositories().Products.SKUExists(ctx, sku, excludeID)
	if err != nil {
		return fmt.Errorf("check sku: %w", err)
	}
	if exists {
		return apperrors.Duplicate("product", "sku", sku)
	}
	return nil
}

// uploadImages stores every image and returns the object keys. When one
// upload fails the ones already stored are removed.
func (s *ProductService) uploadImages(ctx context.Context, sku string, images []ImageUpload) ([]string, error) {
	keys := make([]string, 0, len(images))
	for _, img := range images {
		res, err := s.files.Upload(ctx, &storage.UploadInput{
			Key:         storage.ObjectKey(sku, img.Filename),
			ContentType: img.ContentType,
			Size:        img.Size,
			Data:        img.Data,
		})
		if err != nil {
			s.discardUploads(ctx, keys)
			return nil, fmt.Errorf("upload image %s: %w", img.Filename, err)
		}
		keys = append(keys, res.Key)
	}
	return keys, nil
}

func (s *ProductService) discardUploads(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.files.Delete(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "failed to delete orphaned image",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
}

func addImages(ctx context.Context, r repository.Repositories, productID string, keys []string, now time.Time) error {
	for _, key := range keys {
		img := &domain.ProductImage{
			ID:        uuid.New().String(),
			ProductID: productID,
			FilePath:  key,
			CreatedAt: now,
		}
		if err := r.Images.Create(ctx, img); err != nil {
			return fmt.Errorf("create product image: %w", err)
		}
	}
	return nil
}

// resolveGroups checks that every group names an existing variant, then
// finds or creates the product variant of each distinct tag.
func resolveGroups(ctx context.Context, r repository.Repositories, productID string, groups []domain.OptionGroup, now time.Time) ([]domain.ResolvedGroup, error) {
	var errs apperrors.FieldErrors
	for i, g := range groups {
		if _, err := r.Variants.GetByID(ctx, g.Option); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				errs.Add(fmt.Sprintf("variants[%d].option", i), "unknown variant")
				continue
			}
			return nil, fmt.Errorf("get variant: %w", err)
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	resolved := make([]domain.ResolvedGroup, 0, len(groups))
	for _, g := range groups {
		rg := domain.ResolvedGroup{Group: g}
		for _, tag := range g.DistinctTags() {
			pv, err := r.ProductVariants.Find(ctx, productID, g.Option, tag)
			switch {
			case err == nil:
			case errors.Is(err, apperrors.ErrNotFound):
				pv = &domain.ProductVariant{
					ID:           uuid.New().String(),
					ProductID:    productID,
					VariantID:    g.Option,
					VariantTitle: tag,
					CreatedAt:    now,
				}
				if err := r.ProductVariants.Create(ctx, pv); err != nil {
					return nil, fmt.Errorf("create product variant: %w", err)
				}
			default:
				return nil, fmt.Errorf("find product variant: %w", err)
			}
			rg.Variants = append(rg.Variants, *pv)
		}
		resolved = append(resolved, rg)
	}
	return resolved, nil
}

// writePrices stores plans. With upsert a row whose slot combination already
// exists is updated instead of inserted.
func writePrices(ctx context.Context, r repository.Repositories, productID string, plans []domain.PricePlan, now time.Time, upsert bool) error {
	for _, plan := range plans {
		row := &domain.ProductVariantPrice{
			ProductID: productID,
			Price:     plan.Price,
			Stock:     plan.Stock,
		}
		row.SetSlots(plan.VariantIDs)

		if upsert {
			existing, err := r.Prices.FindBySlots(ctx, productID, row.Slots())
			switch {
			case err == nil:
				existing.Price, existing.Stock = plan.Price, plan.Stock
				if err := r.Prices.Update(ctx, existing); err != nil {
					return fmt.Errorf("update price row: %w", err)
				}
				continue
			case !errors.Is(err, apperrors.ErrNotFound):
				return fmt.Errorf("find price row: %w", err)
			}
		}

		row.ID = uuid.New().String()
		row.CreatedAt, row.UpdatedAt = now, now
		if err := r.Prices.Create(ctx, row); err != nil {
			return fmt.Errorf("create price row: %w", err)
		}
	}
	return nil
}

// updatePriceRow rewrites the row priceID of the product in place. Absent
// price or stock keep their stored values.
func updatePriceRow(ctx context.Context, r repository.Repositories, productID, priceID string, variantIDs []string, form domain.PriceStock) error {
	row, err := r.Prices.GetByID(ctx, priceID)
	if err != nil {
		return fmt.Errorf("get price row: %w", err)
	}
	if row.ProductID != productID {
		return apperrors.NotFound("price row", priceID)
	}

	row.SetSlots(variantIDs)
	if form.Price != nil {
		row.Price = *form.Price
	}
	if form.Stock != nil {
		row.Stock = *form.Stock
	}
	if err := r.Prices.Update(ctx, row); err != nil {
		return fmt.Errorf("update price row: %w", err)
	}
	return nil
}

// pruneVariants deletes the price rows referencing stale product variants,
// then the variants themselves.
func pruneVariants(ctx context.Context, r repository.Repositories, productID string, stale map[string]struct{}) (int, error) {
	if len(stale) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(stale))
	for id := range stale {
		ids = append(ids, id)
	}

	if _, err := r.Prices.DeleteByVariantIDs(ctx, productID, ids); err != nil {
		return 0, fmt.Errorf("delete stale price rows: %w", err)
	}
	n, err := r.ProductVariants.DeleteByIDs(ctx, productID, ids)
	if err != nil {
		return 0, fmt.Errorf("delete stale product variants: %w", err)
	}
	return int(n), nil
}

func loadSnapshot(ctx context.Context, r repository.Repositories, product *domain.Product) (event.ProductSnapshot, error) {
	snap := event.ProductSnapshot{Product: *product}

	var err error
	if snap.Variants, err = r.ProductVariants.ListByProduct(ctx, product.ID); err != nil {
		return snap, fmt.Errorf("list product variants: %w", err)
	}
	if snap.Images, err = r.Images.ListByProduct(ctx, product.ID); err != nil {
		return snap, fmt.Errorf("list product images: %w", err)
	}
	prices, err := r.Prices.ListByProducts(ctx, []string{product.ID})
	if err != nil {
		return snap, fmt.Errorf("list prices: %w", err)
	}
	for _, p := range prices[product.ID] {
		snap.Prices = append(snap.Prices, p.ProductVariantPrice)
	}
	return snap, nil
}
