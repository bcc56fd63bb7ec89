package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/product-catalog/internal/domain"
	"github.com/utafrali/product-catalog/internal/service"
)

func variantsJSON(t *testing.T, groups ...domain.OptionGroup) string {
	t.Helper()
	b, err := json.Marshal(groups)
	require.NoError(t, err)
	return string(b)
}

func (s *testServer) createProduct(t *testing.T, fields map[string]string, files ...filePart) string {
	t.Helper()
	rec := s.do(multipartRequest(t, http.MethodPost, "/api/v1/products", fields, files...))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res writeResult
	decodeData(t, rec, &res)
	require.NotEmpty(t, res.ID)
	return res.ID
}

func (s *testServer) detail(t *testing.T, id string) domain.ProductDetail {
	t.Helper()
	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/products/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var d domain.ProductDetail
	decodeData(t, rec, &d)
	return d
}

// ============================================================================
// CreateForm
// ============================================================================

func TestCreateForm_ListsActiveVariants(t *testing.T) {
	s := newTestServer(t, false)
	s.variant(t, "Size")
	s.variant(t, "Color")
	inactive := false
	_, err := s.variants.CreateVariant(context.Background(), &service.CreateVariantInput{Title: "Legacy", Active: &inactive})
	require.NoError(t, err)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/products/create", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=60", rec.Header().Get("Cache-Control"))

	var res createFormResponse
	decodeData(t, rec, &res)
	require.Len(t, res.Variants, 2)
	assert.Equal(t, "Color", res.Variants[0].Title)
	assert.Equal(t, "Size", res.Variants[1].Title)
}

func TestCreateForm_NoVariantsIsEmptyList(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/products/create", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"variants":[]}}`, rec.Body.String())
}

// ============================================================================
// CreateProduct
// ============================================================================

func TestCreateProduct_Multipart(t *testing.T) {
	s := newTestServer(t, false)
	color := s.variant(t, "Color")

	id := s.createProduct(t, map[string]string{
		"title":       "Cotton Tee",
		"sku":         "TS-001",
		"description": "Soft cotton",
		"price":       "19.99",
		"stock":       "5",
		"variants":    variantsJSON(t, domain.OptionGroup{Option: color, Tags: []string{"Red", "Blue"}}),
	}, filePart{name: "front.png", contentType: "image/png", body: pngBytes})

	d := s.detail(t, id)
	assert.Equal(t, "Cotton Tee", d.Title)
	assert.Equal(t, "TS-001", d.SKU)
	assert.Equal(t, "Soft cotton", d.Description)

	require.Len(t, d.Variants, 2)
	assert.Equal(t, "Red", d.Variants[0].VariantTitle)
	assert.Equal(t, "Blue", d.Variants[1].VariantTitle)

	require.Len(t, d.Prices, 2)
	assert.Equal(t, "Red", d.Prices[0].ProductVariantOne)
	assert.True(t, d.Prices[0].Price.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, 5, d.Prices[0].Stock)

	require.Len(t, d.Images, 1)
	assert.True(t, strings.HasPrefix(d.Images[0].FilePath, "products/ts-001/"))
	assert.True(t, strings.HasSuffix(d.Images[0].FilePath, ".png"))
	assert.Equal(t, "http://media.test/"+d.Images[0].FilePath, d.Images[0].URL)
}

func TestCreateProduct_URLEncoded(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(formRequest(http.MethodPost, "/api/v1/products", url.Values{
		"title": {"Plain"},
		"sku":   {"PL-1"},
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res writeResult
	decodeData(t, rec, &res)
	assert.Equal(t, "Product created", res.Message)

	d := s.detail(t, res.ID)
	assert.Empty(t, d.Variants)
	assert.Empty(t, d.Prices)
	assert.Empty(t, d.Images)
}

func TestCreateProduct_SniffsUntypedUpload(t *testing.T) {
	s := newTestServer(t, false)

	id := s.createProduct(t, map[string]string{"title": "Sniffed", "sku": "SN-1"},
		filePart{name: "photo", contentType: "application/octet-stream", body: pngBytes})

	d := s.detail(t, id)
	require.Len(t, d.Images, 1)
	assert.Len(t, s.files.Keys(), 1)
}

func TestCreateProduct_DuplicateSKU(t *testing.T) {
	s := newTestServer(t, false)
	s.createProduct(t, map[string]string{"title": "First", "sku": "DUP-1"})

	rec := s.do(multipartRequest(t, http.MethodPost, "/api/v1/products",
		map[string]string{"title": "Second", "sku": "DUP-1"},
		filePart{name: "a.png", contentType: "image/png", body: pngBytes}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "DUPLICATE_VALUE", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "sku")
	assert.Empty(t, s.files.Keys(), "no image may be stored for a rejected product")
}

func TestCreateProduct_ReportsAllFieldErrors(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(multipartRequest(t, http.MethodPost, "/api/v1/products",
		map[string]string{
			"title":    "   ",
			"price":    "abc",
			"stock":    "1.5",
			"variants": `{"option":`,
		},
		filePart{name: "notes.txt", contentType: "text/plain", body: []byte("hello")}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	for _, field := range []string{"title", "sku", "price", "stock", "variants", "file_path[0]"} {
		assert.Contains(t, env.Error.Fields, field)
	}
	assert.Equal(t, "must be a number", env.Error.Fields["price"])
}

func TestCreateProduct_ValuesBeyondColumnLimitsAreClientErrors(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(formRequest(http.MethodPost, "/api/v1/products", url.Values{
		"title": {"Tee"},
		"sku":   {strings.Repeat("S", 100)},
		"price": {"1.005"},
		"stock": {"3000000000"},
	}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, "must be at most 64 characters", env.Error.Fields["sku"])
	assert.Equal(t, "must have at most 2 decimal places", env.Error.Fields["price"])
	assert.Equal(t, "must be less than or equal to 2147483647", env.Error.Fields["stock"])
	assert.Zero(t, s.store.Writes())
}

func TestCreateProduct_InvalidGroups(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(multipartRequest(t, http.MethodPost, "/api/v1/products", map[string]string{
		"title":    "Tee",
		"sku":      "TS-9",
		"variants": `[{"option":"not-a-uuid","tags":[""]}]`,
	}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Fields, "variants[0].option")
	assert.Contains(t, env.Error.Fields, "variants[0].tags[0]")
}

func TestCreateProduct_UnsupportedMediaType(t *testing.T) {
	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(`{"title":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := s.do(req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNSUPPORTED_MEDIA_TYPE")
}

func TestCreateProduct_BodyTooLarge(t *testing.T) {
	s := newTestServer(t, false)

	big := make([]byte, 2<<20)
	rec := s.do(multipartRequest(t, http.MethodPost, "/api/v1/products",
		map[string]string{"title": "Big", "sku": "BIG-1"},
		filePart{name: "big.png", contentType: "image/png", body: big}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, s.files.Keys())
}

// ============================================================================
// UpdateProduct
// ============================================================================

func TestUpdateProduct_ReconcilesVariants(t *testing.T) {
	s := newTestServer(t, false)
	color := s.variant(t, "Color")

	id := s.createProduct(t, map[string]string{
		"title":    "Tee",
		"sku":      "TS-1",
		"price":    "10",
		"variants": variantsJSON(t, domain.OptionGroup{Option: color, Tags: []string{"Red", "Blue"}}),
	})

	rec := s.do(multipartRequest(t, http.MethodPost, "/api/v1/products/"+id, map[string]string{
		"title":    "Tee v2",
		"sku":      "TS-1",
		"price":    "12.50",
		"variants": variantsJSON(t, domain.OptionGroup{Option: color, Tags: []string{"Red", "Green"}}),
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res writeResult
	decodeData(t, rec, &res)
	assert.Equal(t, id, res.ID)
	assert.Equal(t, "Product updated", res.Message)

	d := s.detail(t, id)
	assert.Equal(t, "Tee v2", d.Title)

	tags := make([]string, 0, len(d.Variants))
	for _, v := range d.Variants {
		tags = append(tags, v.VariantTitle)
	}
	assert.ElementsMatch(t, []string{"Red", "Green"}, tags)

	require.Len(t, d.Prices, 2)
	for _, p := range d.Prices {
		assert.NotEqual(t, "Blue", p.ProductVariantOne)
		assert.True(t, p.Price.Equal(decimal.RequireFromString("12.50")))
	}
}

func TestUpdateProduct_PutWithPriceRow(t *testing.T) {
	s := newTestServer(t, false)
	color := s.variant(t, "Color")

	id := s.createProduct(t, map[string]string{
		"title":    "Tee",
		"sku":      "TS-2",
		"price":    "10",
		"stock":    "1",
		"variants": variantsJSON(t, domain.OptionGroup{Option: color, Tags: []string{"Red"}}),
	})

	prices, err := s.store.Repositories().Prices.ListByProducts(context.Background(), []string{id})
	require.NoError(t, err)
	require.Len(t, prices[id], 1)
	priceID := prices[id][0].ID

	rec := s.do(formRequest(http.MethodPut, "/api/v1/products/"+id, url.Values{
		"title":            {"Tee"},
		"sku":              {"TS-2"},
		"price":            {"15"},
		"stock":            {"7"},
		"product_price_id": {priceID},
		"variants":         {variantsJSON(t, domain.OptionGroup{Option: color, Tags: []string{"Red"}})},
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	d := s.detail(t, id)
	require.Len(t, d.Prices, 1)
	assert.True(t, d.Prices[0].Price.Equal(decimal.NewFromInt(15)))
	assert.Equal(t, 7, d.Prices[0].Stock)
}

func TestUpdateProduct_InvalidPriceID(t *testing.T) {
	s := newTestServer(t, false)
	id := s.createProduct(t, map[string]string{"title": "Tee", "sku": "TS-3"})

	rec := s.do(formRequest(http.MethodPut, "/api/v1/products/"+id, url.Values{
		"title":            {"Tee"},
		"sku":              {"TS-3"},
		"product_price_id": {"nope"},
	}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Fields, "product_price_id")
}

func TestUpdateProduct_SKUTakenByOther(t *testing.T) {
	s := newTestServer(t, false)
	s.createProduct(t, map[string]string{"title": "A", "sku": "A-1"})
	id := s.createProduct(t, map[string]string{"title": "B", "sku": "B-1"})

	rec := s.do(formRequest(http.MethodPost, "/api/v1/products/"+id, url.Values{
		"title": {"B"},
		"sku":   {"A-1"},
	}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "DUPLICATE_VALUE", env.Error.Code)
}

func TestUpdateProduct_NotFound(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(formRequest(http.MethodPost, "/api/v1/products/6f1d2c1e-8a51-4c1b-9a43-3b7c1f0b2a10", url.Values{
		"title": {"Ghost"},
		"sku":   {"GH-1"},
	}))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ============================================================================
// GetProduct
// ============================================================================

func TestGetProduct_InvalidID(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/products/not-a-uuid", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_PARAMETER", env.Error.Code)
}

func TestGetProduct_NotFound(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/products/6f1d2c1e-8a51-4c1b-9a43-3b7c1f0b2a10", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

// ============================================================================
// ListProducts
// ============================================================================

type listBody struct {
	Data []struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Variants []struct {
			ProductVariantOne string          `json:"product_variant_one"`
			Price             decimal.Decimal `json:"price"`
		} `json:"variants"`
	} `json:"data"`
	Pagination struct {
		Page       int    `json:"page"`
		TotalCount int    `json:"total_count"`
		TotalPages int    `json:"total_pages"`
		HasNext    bool   `json:"has_next"`
		Summary    string `json:"summary"`
	} `json:"pagination"`
	VariantTags []string `json:"variant_tags"`
}

func (s *testServer) list(t *testing.T, query string) listBody {
	t.Helper()
	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/products?"+query, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body listBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func seedList(t *testing.T, s *testServer) {
	t.Helper()
	color := s.variant(t, "Color")
	s.createProduct(t, map[string]string{
		"title": "Red Shirt", "sku": "L-1", "price": "10",
		"variants": variantsJSON(t, domain.OptionGroup{Option: color, Tags: []string{"Red"}}),
	})
	s.createProduct(t, map[string]string{
		"title": "Blue Shirt", "sku": "L-2", "price": "30",
		"variants": variantsJSON(t, domain.OptionGroup{Option: color, Tags: []string{"Blue"}}),
	})
	s.createProduct(t, map[string]string{
		"title": "Blue Hat", "sku": "L-3", "price": "50",
		"variants": variantsJSON(t, domain.OptionGroup{Option: color, Tags: []string{"Blue"}}),
	})
}

func TestListProducts_Paginates(t *testing.T) {
	s := newTestServer(t, false)
	seedList(t, s)

	first := s.list(t, "")
	require.Len(t, first.Data, 2)
	assert.Equal(t, "Blue Hat", first.Data[0].Title)
	assert.Equal(t, "Blue Shirt", first.Data[1].Title)
	assert.Equal(t, 1, first.Pagination.Page)
	assert.Equal(t, 3, first.Pagination.TotalCount)
	assert.Equal(t, 2, first.Pagination.TotalPages)
	assert.True(t, first.Pagination.HasNext)
	assert.Equal(t, "Showing 1 to 2 out of 3", first.Pagination.Summary)
	assert.Equal(t, []string{"Blue", "Red"}, first.VariantTags)

	second := s.list(t, "page=2")
	require.Len(t, second.Data, 1)
	assert.Equal(t, "Red Shirt", second.Data[0].Title)
	require.Len(t, second.Data[0].Variants, 1)
	assert.Equal(t, "Red", second.Data[0].Variants[0].ProductVariantOne)
	assert.False(t, second.Pagination.HasNext)
}

func TestListProducts_Filters(t *testing.T) {
	s := newTestServer(t, false)
	seedList(t, s)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"title", "title=shirt", []string{"Blue Shirt", "Red Shirt"}},
		{"variant", "variant=Red", []string{"Red Shirt"}},
		{"color alias", "color=Blue", []string{"Blue Hat", "Blue Shirt"}},
		{"price range", "price_from=20&price_to=40", []string{"Blue Shirt"}},
		{"single bound ignored", "price_from=40", []string{"Blue Hat", "Blue Shirt"}},
		{"no match", "title=sock", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := s.list(t, tt.query)
			var titles []string
			for _, item := range body.Data {
				titles = append(titles, item.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestListProducts_InvalidQuery(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/products?price_from=abc&date=16-10-2026", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "price_from")
	assert.Contains(t, env.Error.Fields, "date")
}

func TestListProducts_InvertedPriceRange(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/products?price_from=50&price_to=10", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Fields, "price_to")
}
