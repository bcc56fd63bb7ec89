package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/utafrali/product-catalog/internal/service"
	"github.com/utafrali/product-catalog/pkg/httputil"
)

// maxVariantBody bounds the JSON body of POST /api/v1/variants.
const maxVariantBody = 1 << 16

// VariantHandler handles HTTP requests for variant type endpoints.
type VariantHandler struct {
	service *service.VariantService
	logger  *slog.Logger
}

// NewVariantHandler creates a new variant HTTP handler.
func NewVariantHandler(svc *service.VariantService, logger *slog.Logger) *VariantHandler {
	return &VariantHandler{service: svc, logger: logger}
}

// ListVariants handles GET /api/v1/variants
func (h *VariantHandler) ListVariants(w http.ResponseWriter, r *http.Request) {
	activeOnly := false
	if v := r.URL.Query().Get("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "active must be true or false"},
			})
			return
		}
		activeOnly = b
	}

	variants, err := h.service.ListVariants(r.Context(), activeOnly)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: variants})
}

// CreateVariant handles POST /api/v1/variants
func (h *VariantHandler) CreateVariant(w http.ResponseWriter, r *http.Request) {
	var req service.CreateVariantInput
	if err := httputil.DecodeJSON(r, &req, maxVariantBody); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	variant, err := h.service.CreateVariant(r.Context(), &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: variant})
}
