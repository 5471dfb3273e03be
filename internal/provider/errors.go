package provider

import (
	"errors"
	"net/http"

	"github.com/passthekeys/outbound-core/internal/apperr"
)

// ClassifyHTTPError maps an HTTP status code to Retryable vs Fatal per
// §4.3: network failures, 5xx, and 429 are Retryable; other 4xx are Fatal.
func ClassifyHTTPError(statusCode int, body string) error {
	switch {
	case statusCode == http.StatusTooManyRequests || statusCode >= 500:
		return apperr.UpstreamRetryableError("provider returned "+http.StatusText(statusCode), errors.New(body))
	case statusCode >= 400:
		return apperr.UpstreamFatalError("provider returned "+http.StatusText(statusCode), errors.New(body))
	default:
		return nil
	}
}

// ClassifyTransportError wraps a network-level error (DNS, connection
// refused, timeout) as Retryable, per §4.3.
func ClassifyTransportError(err error) error {
	if err == nil {
		return nil
	}
	return apperr.UpstreamRetryableError("provider request failed", err)
}
