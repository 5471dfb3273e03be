package apperr

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		kind Kind
		want int
	}{
		{"validation", Validation, http.StatusBadRequest},
		{"authentication", Authentication, http.StatusUnauthorized},
		{"authorization", Authorization, http.StatusForbidden},
		{"not found", NotFound, http.StatusNotFound},
		{"server-side configuration", Configuration, http.StatusServiceUnavailable},
		{"caller-fixable configuration", ConfigurationClientFixable, http.StatusBadRequest},
		{"upstream retryable", UpstreamRetryable, http.StatusBadGateway},
		{"upstream fatal", UpstreamFatal, http.StatusBadGateway},
		{"internal", Internal, http.StatusInternalServerError},
		{"unclassified kind defaults to internal", Kind("made_up"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.kind))
		})
	}
}

func TestConfigurationErrorVsClientConfigurationError(t *testing.T) {
	serverSide := ConfigurationError("cron secret not configured")
	clientSide := ClientConfigurationError("no api key configured for provider provider_a")

	assert.Equal(t, Configuration, KindOf(serverSide))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(KindOf(serverSide)))

	assert.Equal(t, ConfigurationClientFixable, KindOf(clientSide))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(KindOf(clientSide)))
}

func TestPublicMessageHidesAuthenticationAndInternalDetail(t *testing.T) {
	assert.Equal(t, "unauthorized", PublicMessage(AuthenticationError("bad signature for tenant t1")))
	assert.Equal(t, "internal error", PublicMessage(InternalError("db write failed", nil)))
	assert.Equal(t, "no api key configured for provider provider_a",
		PublicMessage(ClientConfigurationError("no api key configured for provider provider_a")))
}
