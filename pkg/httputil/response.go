package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/product-catalog/pkg/errors"
	"github.com/utafrali/product-catalog/pkg/logger"
	"github.com/utafrali/product-catalog/pkg/pagination"
	"github.com/utafrali/product-catalog/pkg/validator"
)

// Response is the standard JSON response envelope.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse represents an error in the standard response format.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// PageResponse is a paginated list envelope.
type PageResponse[T any] struct {
	Data       []T             `json:"data"`
	Pagination pagination.Page `json:"pagination"`
}

// NewPageResponse wraps data with its page window. A nil slice is encoded as [].
func NewPageResponse[T any](data []T, page pagination.Page) PageResponse[T] {
	if data == nil {
		data = []T{}
	}
	return PageResponse[T]{Data: data, Pagination: page}
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a standardized error response based on the error type and
// logs 5xx errors with the request-scoped logger when one is available.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	requestID := logger.CorrelationIDFromContext(r.Context())

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			logInternal(l, r, err)
		}
		WriteJSON(w, appErr.Status, Response{
			Error: &ErrorResponse{
				Code:      appErr.Code,
				Message:   appErr.Message,
				Fields:    appErr.Fields,
				RequestID: requestID,
			},
		})
		return
	}

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{
				Code:      "VALIDATION_ERROR",
				Message:   "request validation failed",
				Fields:    valErr.Fields(),
				RequestID: requestID,
			},
		})
		return
	}

	status := http.StatusInternalServerError
	code := "INTERNAL_ERROR"
	message := "an internal error occurred"

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status, code, message = http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, apperrors.ErrAlreadyExists):
		status, code, message = http.StatusConflict, "ALREADY_EXISTS", "resource already exists"
	case errors.Is(err, apperrors.ErrInvalidInput):
		status, code, message = http.StatusBadRequest, "INVALID_INPUT", err.Error()
	case errors.Is(err, apperrors.ErrUnauthorized):
		status, code, message = http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized"
	case errors.Is(err, apperrors.ErrForbidden):
		status, code, message = http.StatusForbidden, "FORBIDDEN", "forbidden"
	default:
		logInternal(l, r, err)
	}

	WriteJSON(w, status, Response{
		Error: &ErrorResponse{Code: code, Message: message, RequestID: requestID},
	})
}

func logInternal(l *slog.Logger, r *http.Request, err error) {
	l.ErrorContext(r.Context(), "internal error",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
}

// WriteValidationError writes a standardized validation error response.
func WriteValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "request validation failed",
				Fields:  valErr.Fields(),
			},
		})
		return
	}

	WriteJSON(w, http.StatusBadRequest, Response{
		Error: &ErrorResponse{Code: "INVALID_INPUT", Message: err.Error()},
	})
}

// DecodeJSON decodes a bounded JSON request body into dst. Unknown fields are
// rejected.
func DecodeJSON(r *http.Request, dst any, maxBytes int64) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.InvalidInput("invalid request body: " + err.Error())
	}
	return nil
}

// ParseUUID validates that the given string is a valid UUID and returns it.
// If invalid, it writes a 400 response with code INVALID_PARAMETER and
// returns false, signaling the caller to return early.
func ParseUUID(w http.ResponseWriter, param string) (uuid.UUID, bool) {
	if param == "" {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{Code: "MISSING_PARAMETER", Message: "id is required"},
		})
		return uuid.Nil, false
	}
	id, err := uuid.Parse(param)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{
				Code:    "INVALID_PARAMETER",
				Message: "invalid UUID: " + param,
			},
		})
		return uuid.Nil, false
	}
	return id, true
}
