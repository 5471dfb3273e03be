package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/passthekeys/outbound-core/internal/clock"
	"github.com/passthekeys/outbound-core/internal/domain"
	"github.com/passthekeys/outbound-core/internal/provider"
	"github.com/passthekeys/outbound-core/internal/timezone"
	"github.com/passthekeys/outbound-core/internal/trigger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTriggerStore struct {
	tenant *domain.Tenant
	agent  *domain.Agent
}

func (f *fakeTriggerStore) GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	return f.tenant, nil
}
func (f *fakeTriggerStore) GetSubTenant(ctx context.Context, subTenantID string) (*domain.SubTenant, error) {
	return nil, errors.New("not found")
}
func (f *fakeTriggerStore) ResolveTenantByCRMLocation(ctx context.Context, source trigger.Source, locationOrPortalID string) (*domain.Tenant, error) {
	return nil, errors.New("not used by this test")
}
func (f *fakeTriggerStore) ResolveTenantByAPIKey(ctx context.Context, apiKey string) (*domain.Tenant, error) {
	if apiKey == "pdy_sk_valid" {
		return f.tenant, nil
	}
	return nil, errors.New("invalid api key")
}
func (f *fakeTriggerStore) GetAgent(ctx context.Context, agentID string) (*domain.Agent, error) {
	return f.agent, nil
}
func (f *fakeTriggerStore) GetPhoneNumberByFromNumber(ctx context.Context, tenantID, fromNumber string) (*domain.PhoneNumber, error) {
	return nil, errors.New("not found")
}
func (f *fakeTriggerStore) GetRunningExperiment(ctx context.Context, agentID string) (*domain.Experiment, error) {
	return nil, nil
}
func (f *fakeTriggerStore) CreateScheduledCall(ctx context.Context, sc *domain.ScheduledCall) error {
	return nil
}
func (f *fakeTriggerStore) CreateCall(ctx context.Context, c *domain.Call) error {
	c.ID = "call-generated"
	return nil
}
func (f *fakeTriggerStore) WriteTriggerLog(ctx context.Context, tl *domain.TriggerLog) error {
	return nil
}

type fakeInitiateAdapter struct{ callID string }

func (a *fakeInitiateAdapter) Initiate(ctx context.Context, p provider.InitiateParams) (*provider.InitiateResult, error) {
	return &provider.InitiateResult{CallID: a.callID}, nil
}
func (a *fakeInitiateAdapter) End(ctx context.Context, key, callID string) error { return nil }
func (a *fakeInitiateAdapter) FetchCall(ctx context.Context, key, callID string) (*provider.CallSnapshot, error) {
	return nil, errors.New("not implemented")
}
func (a *fakeInitiateAdapter) ListActive(ctx context.Context, key string, agentExternalIDs []string) ([]provider.CallSnapshot, error) {
	return nil, nil
}
func (a *fakeInitiateAdapter) ParseWebhook(ctx context.Context, raw []byte, headers map[string]string) (*provider.NormalizedEvent, error) {
	return nil, errors.New("not implemented")
}

func TestHandleAPI_InitiatesCallForValidPartnerKey(t *testing.T) {
	store := &fakeTriggerStore{
		tenant: &domain.Tenant{ID: "tenant-1", ProviderKeys: domain.ProviderKeys{ProviderA: "key-abc"}},
		agent:  &domain.Agent{ID: "agent-1", TenantID: "tenant-1", Provider: domain.ProviderA, ExternalID: "ext-1"},
	}
	registry := provider.NewRegistry()
	registry.Register(domain.ProviderA, &fakeInitiateAdapter{callID: "provider-call-1"})

	ingress := trigger.New(store, timezone.New(timezone.NewAreaCodeTable(), nil), registry, clock.Real{})
	h := NewTriggerHandler(ingress)

	body, _ := json.Marshal(map[string]interface{}{
		"phone_number": "4155551234",
		"agent_id":     "agent-1",
	})
	r := httptest.NewRequest(http.MethodPost, "/trigger/api", bytes.NewReader(body))
	r.Header.Set("Authorization", "Bearer pdy_sk_valid")
	w := httptest.NewRecorder()

	h.HandleAPI(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "initiated", resp["status"])
	assert.Equal(t, "call-generated", resp["call_id"])
}

func TestHandleAPI_RejectsInvalidBearerKey(t *testing.T) {
	store := &fakeTriggerStore{tenant: &domain.Tenant{ID: "tenant-1"}}
	registry := provider.NewRegistry()
	ingress := trigger.New(store, timezone.New(timezone.NewAreaCodeTable(), nil), registry, clock.Real{})
	h := NewTriggerHandler(ingress)

	body, _ := json.Marshal(map[string]interface{}{"phone_number": "4155551234"})
	r := httptest.NewRequest(http.MethodPost, "/trigger/api", bytes.NewReader(body))
	r.Header.Set("Authorization", "Bearer wrong-key")
	w := httptest.NewRecorder()

	h.HandleAPI(w, r)

	assert.NotEqual(t, http.StatusOK, w.Code)
}

func TestHandleAPI_RejectsMalformedBody(t *testing.T) {
	store := &fakeTriggerStore{}
	ingress := trigger.New(store, timezone.New(timezone.NewAreaCodeTable(), nil), provider.NewRegistry(), clock.Real{})
	h := NewTriggerHandler(ingress)

	r := httptest.NewRequest(http.MethodPost, "/trigger/api", bytes.NewReader([]byte("not json")))
	r.Header.Set("Authorization", "Bearer pdy_sk_valid")
	w := httptest.NewRecorder()

	h.HandleAPI(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
