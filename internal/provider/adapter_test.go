package provider

import (
	"testing"

	"github.com/passthekeys/outbound-core/internal/apperr"
	"github.com/passthekeys/outbound-core/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	a := NewProviderAAdapter("https://example.test/webhook/a")
	r.Register(domain.ProviderA, a)

	got, ok := r.Get(domain.ProviderA)
	assert.True(t, ok)
	assert.Same(t, a, got)

	_, ok = r.Get(domain.ProviderB)
	assert.False(t, ok)
}

func TestClassifyHTTPError(t *testing.T) {
	assert.True(t, apperr.IsRetryable(ClassifyHTTPError(429, "rate limited")))
	assert.True(t, apperr.IsRetryable(ClassifyHTTPError(503, "down")))
	assert.False(t, apperr.IsRetryable(ClassifyHTTPError(400, "bad request")))
	assert.False(t, apperr.IsRetryable(ClassifyHTTPError(404, "not found")))
	assert.Nil(t, ClassifyHTTPError(200, "ok"))
}

func TestClassifyTransportError(t *testing.T) {
	assert.Nil(t, ClassifyTransportError(nil))
}
