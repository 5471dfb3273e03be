package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/passthekeys/outbound-core/internal/apperr"
	"github.com/passthekeys/outbound-core/internal/domain"
	"github.com/passthekeys/outbound-core/internal/provider"
	"github.com/passthekeys/outbound-core/internal/webhook"
)

const maxWebhookBodyBytes = 2 << 20

// webhookTenantStore is the narrow seam WebhookHandler needs to resolve a
// per-tenant HMAC secret before Provider A/C signatures can be checked
// (§4.4): the webhook body names an agent by its provider-external id, and
// that agent's tenant owns the signing key.
type webhookTenantStore interface {
	GetAgentByExternalID(ctx context.Context, p domain.Provider, externalID string) (*domain.Agent, error)
	GetTenantByID(ctx context.Context, tenantID string) (*domain.Tenant, error)
}

// WebhookHandler exposes POST /webhook/provider-{a,b,c}.
type WebhookHandler struct {
	ingress            *webhook.Ingress
	store              webhookTenantStore
	providers          *provider.Registry
	providerBStaticKey string
}

func NewWebhookHandler(ingress *webhook.Ingress, store webhookTenantStore, providers *provider.Registry, providerBStaticKey string) *WebhookHandler {
	return &WebhookHandler{ingress: ingress, store: store, providers: providers, providerBStaticKey: providerBStaticKey}
}

func (h *WebhookHandler) HandleProviderA(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, domain.ProviderA)
}

func (h *WebhookHandler) HandleProviderB(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, domain.ProviderB)
}

func (h *WebhookHandler) HandleProviderC(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, domain.ProviderC)
}

func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request, p domain.Provider) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		writeError(w, apperr.ValidationError("failed to read webhook body: %v", err))
		return
	}

	headers := webhook.VerifyHeaders{
		Signature: r.Header.Get("x-provider-signature"),
		Timestamp: r.Header.Get("x-provider-timestamp"),
		Method:    r.Method,
		URL:       r.URL.String(),
	}

	secret, err := h.resolveSecret(r.Context(), p, raw)
	if err != nil {
		// Unable to identify the signing tenant: ack per §4.7 step 3 rather
		// than leak whether an agent id exists.
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}
	headers.TenantSecret = secret

	if err := h.ingress.Handle(r.Context(), p, raw, headers); err != nil {
		if apperr.KindOf(err) == apperr.Authentication {
			writeError(w, err)
			return
		}
		// Any other failure still acks 200 per §6: the provider must not
		// retry a delivery we have already durably attempted to process.
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// resolveSecret determines the HMAC key to verify against. Provider B uses
// a single provider-wide secret known at startup. Provider A and C sign
// under the owning tenant's per-provider key, which requires an unverified
// peek at the body to learn which agent (and therefore which tenant) sent
// it; no data from that peek is trusted or persisted until the real
// verification inside the ingress succeeds.
func (h *WebhookHandler) resolveSecret(ctx context.Context, p domain.Provider, raw []byte) (string, error) {
	if p == domain.ProviderB {
		return h.providerBStaticKey, nil
	}

	adapter, ok := h.providers.Get(p)
	if !ok {
		return "", apperr.ConfigurationError("no adapter registered for provider " + string(p))
	}
	event, err := adapter.ParseWebhook(ctx, raw, nil)
	if err != nil {
		return "", err
	}
	agent, err := h.store.GetAgentByExternalID(ctx, p, event.AgentExternalID)
	if err != nil {
		return "", err
	}
	tenant, err := h.store.GetTenantByID(ctx, agent.TenantID)
	if err != nil {
		return "", err
	}
	return tenant.ProviderKeyFor(p), nil
}
