package trigger

import (
	"context"
	"testing"
	"time"

	"github.com/passthekeys/outbound-core/internal/clock"
	"github.com/passthekeys/outbound-core/internal/domain"
	"github.com/passthekeys/outbound-core/internal/provider"
	"github.com/passthekeys/outbound-core/internal/timezone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"(415) 555-1234": "+14155551234",
		"4155551234":     "+14155551234",
		"14155551234":    "+14155551234",
		"+14155551234":   "+14155551234",
	}
	for in, want := range cases {
		got, err := NormalizePhone(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := NormalizePhone("123")
	assert.Error(t, err)
}

func TestNormalizePhone_Idempotent(t *testing.T) {
	once, err := NormalizePhone("(415) 555-1234")
	require.NoError(t, err)
	twice, err := NormalizePhone(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

type fakeStore struct {
	tenant *domain.Tenant
	agent  *domain.Agent
	calls  []*domain.Call
	scs    []*domain.ScheduledCall
	logs   []*domain.TriggerLog
}

func (f *fakeStore) GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	if f.tenant != nil && f.tenant.ID == tenantID {
		return f.tenant, nil
	}
	return nil, assertErr
}
func (f *fakeStore) GetSubTenant(ctx context.Context, subTenantID string) (*domain.SubTenant, error) {
	return nil, assertErr
}
func (f *fakeStore) ResolveTenantByCRMLocation(ctx context.Context, source Source, locationOrPortalID string) (*domain.Tenant, error) {
	return f.tenant, nil
}
func (f *fakeStore) ResolveTenantByAPIKey(ctx context.Context, apiKey string) (*domain.Tenant, error) {
	return f.tenant, nil
}
func (f *fakeStore) GetAgent(ctx context.Context, agentID string) (*domain.Agent, error) {
	if f.agent != nil && f.agent.ID == agentID {
		return f.agent, nil
	}
	return nil, assertErr
}
func (f *fakeStore) GetPhoneNumberByFromNumber(ctx context.Context, tenantID, fromNumber string) (*domain.PhoneNumber, error) {
	return nil, assertErr
}
func (f *fakeStore) GetRunningExperiment(ctx context.Context, agentID string) (*domain.Experiment, error) {
	return nil, nil
}
func (f *fakeStore) CreateScheduledCall(ctx context.Context, sc *domain.ScheduledCall) error {
	sc.ID = "sc-1"
	f.scs = append(f.scs, sc)
	return nil
}
func (f *fakeStore) CreateCall(ctx context.Context, c *domain.Call) error {
	c.ID = "call-1"
	f.calls = append(f.calls, c)
	return nil
}
func (f *fakeStore) WriteTriggerLog(ctx context.Context, tl *domain.TriggerLog) error {
	f.logs = append(f.logs, tl)
	return nil
}

var assertErr = assertError("not found")

type assertError string

func (e assertError) Error() string { return string(e) }

type stubAdapter struct{}

func (stubAdapter) Initiate(ctx context.Context, p provider.InitiateParams) (*provider.InitiateResult, error) {
	return &provider.InitiateResult{CallID: "ext-1"}, nil
}
func (stubAdapter) End(ctx context.Context, key, callID string) error { return nil }
func (stubAdapter) FetchCall(ctx context.Context, key, callID string) (*provider.CallSnapshot, error) {
	return nil, nil
}
func (stubAdapter) ListActive(ctx context.Context, key string, agentExternalIDs []string) ([]provider.CallSnapshot, error) {
	return nil, nil
}
func (stubAdapter) ParseWebhook(ctx context.Context, raw []byte, headers map[string]string) (*provider.NormalizedEvent, error) {
	return nil, nil
}

func newFixture() (*Ingress, *fakeStore) {
	tenant := &domain.Tenant{
		ID:            "t1",
		ProviderKeys:  domain.ProviderKeys{ProviderA: "AC1:token"},
		DefaultWindow: domain.CallingWindow{Enabled: false},
	}
	agent := &domain.Agent{ID: "a1", TenantID: "t1", Provider: domain.ProviderA, ExternalID: "agent-ext-1"}

	store := &fakeStore{tenant: tenant, agent: agent}
	registry := provider.NewRegistry()
	registry.Register(domain.ProviderA, stubAdapter{})

	clk := clock.NewFixed(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	tz := timezone.New(timezone.NewAreaCodeTable(), clk.Now)

	return New(store, tz, registry, clk), store
}

func TestHandle_DispatchesImmediatelyWhenWindowOpenOrDisabled(t *testing.T) {
	ing, store := newFixture()
	decision, err := ing.Handle(context.Background(), Request{
		Source:      SourceAPI,
		APIKey:      "pdy_sk_test",
		PhoneNumber: "(415) 555-1234",
		AgentID:     "a1",
	})
	require.NoError(t, err)
	assert.Equal(t, "initiated", decision.Status)
	assert.Len(t, store.calls, 1)
	assert.Len(t, store.logs, 1)
	assert.Equal(t, domain.TriggerLogInitiated, store.logs[0].Status)
}

func TestHandle_SchedulesWhenExplicitFutureTime(t *testing.T) {
	ing, store := newFixture()
	future := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)
	decision, err := ing.Handle(context.Background(), Request{
		Source:      SourceAPI,
		APIKey:      "pdy_sk_test",
		PhoneNumber: "4155551234",
		AgentID:     "a1",
		ScheduledAt: &future,
	})
	require.NoError(t, err)
	assert.Equal(t, "scheduled", decision.Status)
	assert.Len(t, store.scs, 1)
}

func TestHandle_RejectsInvalidPhone(t *testing.T) {
	ing, _ := newFixture()
	_, err := ing.Handle(context.Background(), Request{
		Source:      SourceAPI,
		PhoneNumber: "abc",
		AgentID:     "a1",
	})
	assert.Error(t, err)
}
