// Package apperr models the error taxonomy of §7: a closed set of Kinds
// that HTTP handlers map to status codes, independent of error message
// text.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the taxonomy's error classifications.
type Kind string

const (
	Validation     Kind = "validation"
	Authentication Kind = "authentication"
	Authorization  Kind = "authorization"
	NotFound       Kind = "not_found"

	// Configuration marks a server-side misconfiguration the caller cannot
	// fix (a missing secret, an unregistered provider adapter): §7 maps it
	// to 503, since retrying later, after an operator fixes the
	// deployment, may succeed.
	Configuration Kind = "configuration"

	// ConfigurationClientFixable marks a misconfiguration scoped to the
	// calling tenant that only they can fix (e.g. they never set a
	// provider API key): §7 maps it to 400, since retrying without the
	// caller changing anything will never succeed.
	ConfigurationClientFixable Kind = "configuration_client_fixable"

	UpstreamRetryable Kind = "upstream_retryable"
	UpstreamFatal     Kind = "upstream_fatal"
	Internal          Kind = "internal"
)

// Error is an apperr-classified error.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func Wrap(kind Kind, msg string, cause error) *Error { return newErr(kind, msg, cause) }
func New(kind Kind, msg string) *Error               { return newErr(kind, msg, nil) }

func ValidationError(msg string, args ...interface{}) *Error {
	return newErr(Validation, fmt.Sprintf(msg, args...), nil)
}

func AuthenticationError(msg string) *Error { return newErr(Authentication, msg, nil) }
func AuthorizationError(msg string) *Error  { return newErr(Authorization, msg, nil) }
func NotFoundError(msg string) *Error       { return newErr(NotFound, msg, nil) }
func ConfigurationError(msg string) *Error  { return newErr(Configuration, msg, nil) }

// ClientConfigurationError marks a misconfiguration only the calling
// tenant can fix, such as never having set a provider API key.
func ClientConfigurationError(msg string) *Error {
	return newErr(ConfigurationClientFixable, msg, nil)
}

func UpstreamRetryableError(msg string, cause error) *Error {
	return newErr(UpstreamRetryable, msg, cause)
}

func UpstreamFatalError(msg string, cause error) *Error {
	return newErr(UpstreamFatal, msg, cause)
}

func InternalError(msg string, cause error) *Error {
	return newErr(Internal, msg, cause)
}

// KindOf extracts the Kind of err, defaulting to Internal for unclassified
// errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// IsRetryable reports whether err should be retried by the scheduler or
// workflow executor.
func IsRetryable(err error) bool {
	return KindOf(err) == UpstreamRetryable
}

// HTTPStatus maps a Kind to the status codes of §6.
func HTTPStatus(kind Kind) int {
	switch kind {
	case Validation:
		return http.StatusBadRequest
	case Authentication:
		return http.StatusUnauthorized
	case Authorization:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Configuration:
		return http.StatusServiceUnavailable
	case ConfigurationClientFixable:
		return http.StatusBadRequest
	case UpstreamRetryable, UpstreamFatal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message of err that is safe to show a caller.
// Authentication errors never include caller-visible detail (§7).
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == Authentication {
			return "unauthorized"
		}
		if e.Kind == Internal {
			return "internal error"
		}
		return e.Message
	}
	return "internal error"
}
