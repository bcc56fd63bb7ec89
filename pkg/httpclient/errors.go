package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/product-catalog/pkg/errors"
	"github.com/utafrali/product-catalog/pkg/httputil"
)

// ParseResponseError consumes and closes a non-2xx response and returns the
// error it describes. A catalog error envelope becomes an *AppError that keeps
// the code, message and field errors of the remote side. Any other body is
// reported verbatim with the status code.
func ParseResponseError(resp *http.Response, target string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", target, resp.StatusCode, err)
	}

	var envelope httputil.Response
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil {
		return &apperrors.AppError{
			Code:    envelope.Error.Code,
			Message: fmt.Sprintf("%s: %s", target, envelope.Error.Message),
			Fields:  envelope.Error.Fields,
			Status:  resp.StatusCode,
			Err:     sentinelFor(resp.StatusCode, envelope.Error.Code),
		}
	}

	return fmt.Errorf("%s returned status %d: %s", target, resp.StatusCode, body)
}

func sentinelFor(status int, code string) error {
	switch {
	case code == "DUPLICATE_VALUE" || code == "ALREADY_EXISTS":
		return apperrors.ErrAlreadyExists
	case status == http.StatusNotFound:
		return apperrors.ErrNotFound
	case status == http.StatusConflict:
		return apperrors.ErrConflict
	case status == http.StatusUnauthorized:
		return apperrors.ErrUnauthorized
	case status == http.StatusForbidden:
		return apperrors.ErrForbidden
	case status >= 400 && status < 500:
		return apperrors.ErrInvalidInput
	default:
		return apperrors.ErrInternal
	}
}

// IsClientError reports whether status is a 4xx code.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
