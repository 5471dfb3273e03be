// Package httpx is the shared resty client builder for every outbound HTTP
// integration in this module: the Provider B/C adapters, the Workflow
// Executor's HTTP-type actions, and the AI analysis queue's Anthropic
// client. Each caller supplies its own base URL, timeout, and headers;
// retries are opt-in since several callers (the provider adapters) treat
// retry as the caller's concern rather than the transport's.
package httpx

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// Option customizes a client built by New beyond its base URL and timeout.
type Option func(*resty.Client)

// WithHeader sets a default header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *resty.Client) { c.SetHeader(key, value) }
}

// WithRetryCount enables resty's built-in retry for idempotent calls. Most
// callers in this module leave this at the New default of zero and handle
// retry themselves (§4.8.3's per-action backoff, §4.3's adapter contract).
func WithRetryCount(n int) Option {
	return func(c *resty.Client) { c.SetRetryCount(n) }
}

// New builds a resty.Client pre-configured with a base URL and timeout,
// with retries disabled unless an option turns them on.
func New(baseURL string, timeout time.Duration, opts ...Option) *resty.Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0)
	for _, opt := range opts {
		opt(client)
	}
	return client
}
