package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrInternal      = errors.New("internal error")
	ErrConflict      = errors.New("conflict")
)

// AppError represents a structured application error with HTTP status mapping.
// Fields carries per-field messages for validation failures.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Status  int               `json:"-"`
	Err     error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// AlreadyExists creates a 409 error.
func AlreadyExists(resource, field, value string) *AppError {
	return &AppError{
		Code:    "ALREADY_EXISTS",
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Status:  http.StatusConflict,
		Err:     ErrAlreadyExists,
	}
}

// Duplicate creates a 400 error for a unique field that is already taken
// (for example a product sku). It still matches ErrAlreadyExists.
func Duplicate(resource, field, value string) *AppError {
	return &AppError{
		Code:    "DUPLICATE_VALUE",
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Fields:  map[string]string{field: "already exists"},
		Status:  http.StatusBadRequest,
		Err:     ErrAlreadyExists,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Validation creates a 400 error carrying one message per invalid field.
func Validation(fields map[string]string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: "request validation failed",
		Fields:  fields,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// FieldErrors accumulates per-field validation messages. The zero value is
// ready to use.
type FieldErrors map[string]string

// Add records msg for field unless the field already has a message.
func (f *FieldErrors) Add(field, msg string) {
	if *f == nil {
		*f = make(FieldErrors)
	}
	if _, ok := (*f)[field]; !ok {
		(*f)[field] = msg
	}
}

// Merge copies every entry of other that is not yet present.
func (f *FieldErrors) Merge(other map[string]string) {
	for k, v := range other {
		f.Add(k, v)
	}
}

// Err returns a Validation error, or nil when nothing was recorded.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return Validation(f)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
