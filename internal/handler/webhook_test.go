package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/passthekeys/outbound-core/internal/apperr"
	"github.com/passthekeys/outbound-core/internal/broadcast"
	"github.com/passthekeys/outbound-core/internal/domain"
	"github.com/passthekeys/outbound-core/internal/provider"
	"github.com/passthekeys/outbound-core/internal/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWebhookTenantStore struct {
	agent  *domain.Agent
	tenant *domain.Tenant
}

func (f *fakeWebhookTenantStore) GetAgentByExternalID(ctx context.Context, p domain.Provider, externalID string) (*domain.Agent, error) {
	if f.agent != nil && f.agent.ExternalID == externalID {
		return f.agent, nil
	}
	return nil, errors.New("agent not found")
}

func (f *fakeWebhookTenantStore) GetTenantByID(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	if f.tenant != nil && f.tenant.ID == tenantID {
		return f.tenant, nil
	}
	return nil, errors.New("tenant not found")
}

// fakeIngressStore satisfies webhook.Store. upsertErr lets a test force a
// non-authentication failure out of Ingress.Handle.
type fakeIngressStore struct {
	agent     *domain.Agent
	tenant    *domain.Tenant
	upsertErr error
	calls     map[string]*domain.Call
}

func (f *fakeIngressStore) GetTenantByID(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	return f.tenant, nil
}
func (f *fakeIngressStore) GetAgentByExternalID(ctx context.Context, p domain.Provider, externalID string) (*domain.Agent, error) {
	if f.agent != nil && f.agent.ExternalID == externalID {
		return f.agent, nil
	}
	return nil, errors.New("agent not found")
}
func (f *fakeIngressStore) GetAgent(ctx context.Context, agentID string) (*domain.Agent, error) {
	return f.agent, nil
}
func (f *fakeIngressStore) GetSubTenant(ctx context.Context, subTenantID string) (*domain.SubTenant, error) {
	return nil, errors.New("not found")
}

// UpsertCall mirrors the real store's find-or-create-by-(provider,
// external_id) semantics: the same key returns the same Call across calls,
// so tests can exercise the terminal-state-does-not-regress guard in
// webhook.applyEvent.
func (f *fakeIngressStore) UpsertCall(ctx context.Context, p domain.Provider, externalID string, mutate func(c *domain.Call)) (*domain.Call, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	if f.calls == nil {
		f.calls = map[string]*domain.Call{}
	}
	key := string(p) + ":" + externalID
	c, ok := f.calls[key]
	if !ok {
		c = &domain.Call{ID: key}
		f.calls[key] = c
	}
	mutate(c)
	return c, nil
}
func (f *fakeIngressStore) IncrementUsage(ctx context.Context, subTenantID string, cents int64) error {
	return nil
}
func (f *fakeIngressStore) ListWorkflows(ctx context.Context, tenantID, agentID string, trigger domain.WorkflowTrigger) ([]*domain.Workflow, error) {
	return nil, nil
}

// fakeWebhookAdapter returns a fixed event, or the next of a sequence of
// events (one per ParseWebhook call) when events is set, so a test can
// simulate successive webhook deliveries for the same call.
type fakeWebhookAdapter struct {
	event  *provider.NormalizedEvent
	events []*provider.NormalizedEvent
	next   int
}

func (a *fakeWebhookAdapter) Initiate(ctx context.Context, p provider.InitiateParams) (*provider.InitiateResult, error) {
	return nil, errors.New("not implemented")
}
func (a *fakeWebhookAdapter) End(ctx context.Context, key, callID string) error { return nil }
func (a *fakeWebhookAdapter) FetchCall(ctx context.Context, key, callID string) (*provider.CallSnapshot, error) {
	return nil, errors.New("not implemented")
}
func (a *fakeWebhookAdapter) ListActive(ctx context.Context, key string, agentExternalIDs []string) ([]provider.CallSnapshot, error) {
	return nil, nil
}
func (a *fakeWebhookAdapter) ParseWebhook(ctx context.Context, raw []byte, headers map[string]string) (*provider.NormalizedEvent, error) {
	if len(a.events) > 0 {
		if a.next >= len(a.events) {
			return nil, errors.New("no more events queued")
		}
		event := a.events[a.next]
		a.next++
		return event, nil
	}
	if a.event == nil {
		return nil, errors.New("unparseable payload")
	}
	return a.event, nil
}

func hexHMAC(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookHandle_ProviderBValidSignatureAcksReceived(t *testing.T) {
	agent := &domain.Agent{ID: "agent-1", TenantID: "tenant-1", Provider: domain.ProviderB, ExternalID: "ext-1"}
	tenant := &domain.Tenant{ID: "tenant-1"}
	registry := provider.NewRegistry()
	registry.Register(domain.ProviderB, &fakeWebhookAdapter{event: &provider.NormalizedEvent{
		CallID: "call-ext-1", AgentExternalID: "ext-1", Status: domain.CallStatusInProgress,
	}})

	ingress := webhook.New(&fakeIngressStore{agent: agent, tenant: tenant}, registry, broadcast.NoopSink{}, nil, nil)
	h := NewWebhookHandler(ingress, &fakeWebhookTenantStore{agent: agent, tenant: tenant}, registry, "provider-b-secret")

	body := []byte(`{"call_id":"call-ext-1"}`)
	sig := hexHMAC("provider-b-secret", body)
	r := httptest.NewRequest(http.MethodPost, "/webhook/provider-b", bytes.NewReader(body))
	r.Header.Set("x-provider-signature", sig)
	w := httptest.NewRecorder()

	h.HandleProviderB(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp["received"])
}

func TestWebhookHandle_ProviderBInvalidSignatureRejected(t *testing.T) {
	agent := &domain.Agent{ID: "agent-1", TenantID: "tenant-1", Provider: domain.ProviderB, ExternalID: "ext-1"}
	tenant := &domain.Tenant{ID: "tenant-1"}
	registry := provider.NewRegistry()
	registry.Register(domain.ProviderB, &fakeWebhookAdapter{event: &provider.NormalizedEvent{
		CallID: "call-ext-1", AgentExternalID: "ext-1",
	}})

	ingress := webhook.New(&fakeIngressStore{agent: agent, tenant: tenant}, registry, broadcast.NoopSink{}, nil, nil)
	h := NewWebhookHandler(ingress, &fakeWebhookTenantStore{agent: agent, tenant: tenant}, registry, "provider-b-secret")

	body := []byte(`{"call_id":"call-ext-1"}`)
	r := httptest.NewRequest(http.MethodPost, "/webhook/provider-b", bytes.NewReader(body))
	r.Header.Set("x-provider-signature", "not-the-right-signature")
	w := httptest.NewRecorder()

	h.HandleProviderB(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// TestWebhookHandle_NonAuthIngressFailureStillAcks verifies that a failure
// inside Ingress.Handle other than an authentication error still results in
// a 200 {"received": true} response, since the provider must not retry a
// delivery already durably attempted.
func TestWebhookHandle_NonAuthIngressFailureStillAcks(t *testing.T) {
	agent := &domain.Agent{ID: "agent-1", TenantID: "tenant-1", Provider: domain.ProviderB, ExternalID: "ext-1"}
	tenant := &domain.Tenant{ID: "tenant-1"}
	registry := provider.NewRegistry()
	registry.Register(domain.ProviderB, &fakeWebhookAdapter{event: &provider.NormalizedEvent{
		CallID: "call-ext-1", AgentExternalID: "ext-1",
	}})

	store := &fakeIngressStore{agent: agent, tenant: tenant, upsertErr: apperr.InternalError("db unavailable", errors.New("boom"))}
	ingress := webhook.New(store, registry, broadcast.NoopSink{}, nil, nil)
	h := NewWebhookHandler(ingress, &fakeWebhookTenantStore{agent: agent, tenant: tenant}, registry, "provider-b-secret")

	body := []byte(`{"call_id":"call-ext-1"}`)
	sig := hexHMAC("provider-b-secret", body)
	r := httptest.NewRequest(http.MethodPost, "/webhook/provider-b", bytes.NewReader(body))
	r.Header.Set("x-provider-signature", sig)
	w := httptest.NewRecorder()

	h.HandleProviderB(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp["received"])
}

func TestWebhookHandle_ProviderAResolvesTenantKeyFromUnverifiedPeek(t *testing.T) {
	agent := &domain.Agent{ID: "agent-1", TenantID: "tenant-1", Provider: domain.ProviderA, ExternalID: "ext-a"}
	tenant := &domain.Tenant{ID: "tenant-1", ProviderKeys: domain.ProviderKeys{ProviderA: "tenant-a-secret"}}
	registry := provider.NewRegistry()
	registry.Register(domain.ProviderA, &fakeWebhookAdapter{event: &provider.NormalizedEvent{
		CallID: "call-ext-a", AgentExternalID: "ext-a",
	}})

	ingress := webhook.New(&fakeIngressStore{agent: agent, tenant: tenant}, registry, broadcast.NoopSink{}, nil, nil)
	h := NewWebhookHandler(ingress, &fakeWebhookTenantStore{agent: agent, tenant: tenant}, registry, "unused-provider-b-secret")

	body := []byte(`{"call_id":"call-ext-a"}`)
	sig := hexHMAC("tenant-a-secret", body)
	r := httptest.NewRequest(http.MethodPost, "/webhook/provider-a", bytes.NewReader(body))
	r.Header.Set("x-provider-signature", sig)
	w := httptest.NewRecorder()

	h.HandleProviderA(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp["received"])
}

// TestWebhookHandle_TerminalCallNotRegressedByLateEvent covers §8's
// at-most-once completion property: once a (provider, external_id) call
// reaches a terminal status, a later event for the same call must not
// regress it.
func TestWebhookHandle_TerminalCallNotRegressedByLateEvent(t *testing.T) {
	agent := &domain.Agent{ID: "agent-1", TenantID: "tenant-1", Provider: domain.ProviderB, ExternalID: "ext-1"}
	tenant := &domain.Tenant{ID: "tenant-1"}
	registry := provider.NewRegistry()
	registry.Register(domain.ProviderB, &fakeWebhookAdapter{events: []*provider.NormalizedEvent{
		{CallID: "call-ext-done", AgentExternalID: "ext-1", Status: domain.CallStatusCompleted},
		{CallID: "call-ext-done", AgentExternalID: "ext-1", Status: domain.CallStatusInProgress},
	}})

	store := &fakeIngressStore{agent: agent, tenant: tenant}
	ingress := webhook.New(store, registry, broadcast.NoopSink{}, nil, nil)
	h := NewWebhookHandler(ingress, &fakeWebhookTenantStore{agent: agent, tenant: tenant}, registry, "provider-b-secret")

	body := []byte(`{"call_id":"call-ext-done"}`)
	sig := hexHMAC("provider-b-secret", body)

	r := httptest.NewRequest(http.MethodPost, "/webhook/provider-b", bytes.NewReader(body))
	r.Header.Set("x-provider-signature", sig)
	w := httptest.NewRecorder()
	h.HandleProviderB(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, domain.CallStatusCompleted, store.calls["provider_b:call-ext-done"].Status)

	// A late, out-of-order event for the same call arrives after completion.
	r2 := httptest.NewRequest(http.MethodPost, "/webhook/provider-b", bytes.NewReader(body))
	r2.Header.Set("x-provider-signature", sig)
	w2 := httptest.NewRecorder()
	h.HandleProviderB(w2, r2)
	require.Equal(t, http.StatusOK, w2.Code)

	assert.Equal(t, domain.CallStatusCompleted, store.calls["provider_b:call-ext-done"].Status)
}

func TestWebhookHandle_UnresolvableTenantStillAcks(t *testing.T) {
	registry := provider.NewRegistry()
	registry.Register(domain.ProviderA, &fakeWebhookAdapter{event: &provider.NormalizedEvent{
		CallID: "call-ext-unknown", AgentExternalID: "ext-unknown",
	}})

	ingress := webhook.New(&fakeIngressStore{}, registry, broadcast.NoopSink{}, nil, nil)
	h := NewWebhookHandler(ingress, &fakeWebhookTenantStore{}, registry, "unused")

	body := []byte(`{"call_id":"call-ext-unknown"}`)
	r := httptest.NewRequest(http.MethodPost, "/webhook/provider-a", bytes.NewReader(body))
	r.Header.Set("x-provider-signature", "irrelevant")
	w := httptest.NewRecorder()

	h.HandleProviderA(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp["received"])
}
