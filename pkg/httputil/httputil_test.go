package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/product-catalog/pkg/errors"
	"github.com/utafrali/product-catalog/pkg/logger"
	"github.com/utafrali/product-catalog/pkg/pagination"
	"github.com/utafrali/product-catalog/pkg/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *ErrorResponse {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

// --- WriteJSON ---

func TestWriteJSON_SetsContentTypeAndStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, Response{Data: map[string]string{"id": "1"}})

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"data":{"id":"1"}}`, rec.Body.String())
}

// --- WriteError ---

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/x", nil)

	WriteError(rec, req, apperrors.NotFound("product", "abc-123"), testLogger())

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)
}

func TestWriteError_WrappedDuplicateKeepsFields(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", nil)

	err := fmt.Errorf("create product: %w", apperrors.Duplicate("product", "sku", "SKU-1"))
	WriteError(rec, req, err, testLogger())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "DUPLICATE_VALUE", body.Code)
	assert.Equal(t, "already exists", body.Fields["sku"])
}

func TestWriteError_ValidatorError(t *testing.T) {
	type form struct {
		Title string `validate:"required"`
	}
	verr := validator.Validate(form{})
	require.Error(t, verr)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/variants", nil)
	WriteError(rec, req, verr, testLogger())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Equal(t, "is required", body.Fields["Title"])
}

func TestWriteError_Sentinels(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperrors.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{apperrors.ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS"},
		{apperrors.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
		{apperrors.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{apperrors.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{fmt.Errorf("something unexpected"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)

			WriteError(rec, req, tt.err, testLogger())

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestWriteError_InternalDoesNotLeakMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	WriteError(rec, req, fmt.Errorf("pq: password authentication failed"), testLogger())

	assert.NotContains(t, rec.Body.String(), "password")
}

func TestWriteError_IncludesRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx := logger.WithCorrelationID(context.Background(), "corr-123")
	req := httptest.NewRequest(http.MethodGet, "/test", nil).WithContext(ctx)

	WriteError(rec, req, apperrors.ErrNotFound, testLogger())

	assert.Equal(t, "corr-123", decodeError(t, rec).RequestID)
}

func TestWriteError_NoCorrelationID_OmitsRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	WriteError(rec, req, apperrors.ErrNotFound, testLogger())

	assert.NotContains(t, rec.Body.String(), "request_id")
}

// --- WriteValidationError ---

func TestWriteValidationError_NonValidationError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteValidationError(rec, fmt.Errorf("not a validation error"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", decodeError(t, rec).Code)
}

// --- PageResponse ---

func TestNewPageResponse_NilDataBecomesEmptySlice(t *testing.T) {
	resp := NewPageResponse[string](nil, pagination.NewPage(1, 2, 0))

	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, resp)

	var out map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	assert.Equal(t, "[]", string(out["data"]))
	assert.Contains(t, string(out["pagination"]), `"summary":"Showing 0 to 0 out of 0"`)
}

// --- DecodeJSON ---

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"Color","extra":1}`))

	var dst struct {
		Title string `json:"title"`
	}
	err := DecodeJSON(req, &dst, 1<<20)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestDecodeJSON_Valid(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"Color"}`))

	var dst struct {
		Title string `json:"title"`
	}
	require.NoError(t, DecodeJSON(req, &dst, 1<<20))
	assert.Equal(t, "Color", dst.Title)
}

// --- ParseUUID ---

func TestParseUUID_Valid(t *testing.T) {
	rec := httptest.NewRecorder()
	id, ok := ParseUUID(rec, "550E8400-E29B-41D4-A716-446655440000")
	assert.True(t, ok)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", id.String())
}

func TestParseUUID_Invalid(t *testing.T) {
	rec := httptest.NewRecorder()
	_, ok := ParseUUID(rec, "not-a-uuid")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, "INVALID_PARAMETER", body.Code)
	assert.Contains(t, body.Message, "not-a-uuid")
}

func TestParseUUID_Missing(t *testing.T) {
	rec := httptest.NewRecorder()
	_, ok := ParseUUID(rec, "")
	assert.False(t, ok)
	assert.Equal(t, "MISSING_PARAMETER", decodeError(t, rec).Code)
}
