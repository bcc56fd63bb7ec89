package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/product-catalog/internal/domain"
	"github.com/utafrali/product-catalog/internal/service"
	apperrors "github.com/utafrali/product-catalog/pkg/errors"
	"github.com/utafrali/product-catalog/pkg/httputil"
	"github.com/utafrali/product-catalog/pkg/pagination"
)

// dateLayout is the format of the date listing filter.
const dateLayout = "2006-01-02"

// ProductHandler handles HTTP requests for product endpoints.
type ProductHandler struct {
	products *service.ProductService
	variants *service.VariantService
	maxBody  int64
	logger   *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(products *service.ProductService, variants *service.VariantService, maxBody int64, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		variants: variants,
		maxBody:  maxBody,
		logger:   logger,
	}
}

// --- Response DTOs ---

type writeResult struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type createFormResponse struct {
	Variants []domain.VariantOption `json:"variants"`
}

type productListResponse struct {
	httputil.PageResponse[domain.ProductListItem]
	VariantTags []string `json:"variant_tags"`
}

// --- Handlers ---

// CreateForm handles GET /api/v1/products/create.
// It returns the active variants the product form offers.
func (h *ProductHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	opts, err := h.variants.FormOptions(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: createFormResponse{Variants: opts}})
}

// ListProducts handles GET /api/v1/products
//
// Query parameters: title, price_from, price_to, variant (alias color),
// date (YYYY-MM-DD) and page.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	errs := apperrors.FieldErrors{}

	in := service.ListProductsInput{
		Title:      strings.TrimSpace(q.Get("title")),
		VariantTag: strings.TrimSpace(q.Get("variant")),
		Page:       pagination.ParsePage(q.Get("page")),
	}
	if in.VariantTag == "" {
		in.VariantTag = strings.TrimSpace(q.Get("color"))
	}
	in.PriceFrom = parseDecimalParam(q.Get("price_from"), "price_from", &errs)
	in.PriceTo = parseDecimalParam(q.Get("price_to"), "price_to", &errs)

	if v := strings.TrimSpace(q.Get("date")); v != "" {
		day, err := time.Parse(dateLayout, v)
		if err != nil {
			errs.Add("date", "must be a date in YYYY-MM-DD format")
		} else {
			in.CreatedOn = &day
		}
	}

	if err := errs.Err(); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	list, err := h.products.ListProducts(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, productListResponse{
		PageResponse: httputil.NewPageResponse(list.Items, list.Page),
		VariantTags:  list.VariantTags,
	})
}

// GetProduct handles GET /api/v1/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	detail, err := h.products.GetProductDetail(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: detail})
}

// CreateProduct handles POST /api/v1/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	form, err := parseProductForm(w, r, h.maxBody)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	defer form.Close()

	product, err := h.products.CreateProduct(r.Context(), &form.input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{
		Data: writeResult{ID: product.ID, Message: "Product created"},
	})
}

// UpdateProduct handles POST and PUT /api/v1/products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	form, err := parseProductForm(w, r, h.maxBody)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	defer form.Close()

	product, err := h.products.UpdateProduct(r.Context(), id.String(), &service.UpdateProductInput{
		ProductInput: form.input,
		PriceID:      form.priceID,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: writeResult{ID: product.ID, Message: "Product updated"},
	})
}

func parseDecimalParam(raw, field string, errs *apperrors.FieldErrors) *decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		errs.Add(field, "must be a number")
		return nil
	}
	return &d
}
