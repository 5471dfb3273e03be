package workflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/passthekeys/outbound-core/internal/clock"
	"github.com/passthekeys/outbound-core/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWorkflowStore struct {
	mu      sync.Mutex
	tenant  *domain.Tenant
	logs    []*domain.WorkflowExecutionLog
	written chan struct{}
}

func (f *fakeWorkflowStore) GetTenantByID(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	return f.tenant, nil
}

func (f *fakeWorkflowStore) UpdateTenantIntegrations(ctx context.Context, tenantID string, mutate func(*domain.IntegrationConfigs)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	mutate(&f.tenant.Integrations)
	return nil
}

func (f *fakeWorkflowStore) WriteExecutionLog(ctx context.Context, log *domain.WorkflowExecutionLog) error {
	f.mu.Lock()
	f.logs = append(f.logs, log)
	f.mu.Unlock()
	if f.written != nil {
		f.written <- struct{}{}
	}
	return nil
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestExecutor_CompletedWorkflow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := &fakeWorkflowStore{
		tenant:  &domain.Tenant{ID: "tenant-1"},
		written: make(chan struct{}, 1),
	}
	exec := New(store, server.URL, OAuthEndpoints{}, clock.NewFixed(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)))

	wf := &domain.Workflow{
		ID:       "wf-1",
		TenantID: "tenant-1",
		Trigger:  domain.TriggerCallEnded,
		Enabled:  true,
		Conditions: mustJSON(t, []domain.Condition{
			{Field: "call.status", Operator: domain.OpEquals, Value: "completed"},
		}),
		Actions: mustJSON(t, []domain.Action{
			{Type: domain.ActionSendSMS, Config: domain.JSONB{"body": "call {{call.id}} ended"}},
		}),
	}
	call := &domain.Call{ID: "call-1", TenantID: "tenant-1", Status: domain.CallStatusCompleted, Direction: domain.CallDirectionOutbound}

	exec.Run(context.Background(), []*domain.Workflow{wf}, call, nil)

	select {
	case <-store.written:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for execution log")
	}

	require.Len(t, store.logs, 1)
	assert.Equal(t, domain.ExecutionCompleted, store.logs[0].Status)
	assert.Equal(t, 1, store.logs[0].ActionsSucceeded)
	assert.Equal(t, 0, store.logs[0].ActionsFailed)
}

func TestExecutor_SkipsWhenConditionFails(t *testing.T) {
	store := &fakeWorkflowStore{
		tenant:  &domain.Tenant{ID: "tenant-1"},
		written: make(chan struct{}, 1),
	}
	exec := New(store, "https://unused.example.com", OAuthEndpoints{}, nil)

	wf := &domain.Workflow{
		ID:       "wf-1",
		TenantID: "tenant-1",
		Enabled:  true,
		Conditions: mustJSON(t, []domain.Condition{
			{Field: "call.status", Operator: domain.OpEquals, Value: "failed"},
		}),
		Actions: mustJSON(t, []domain.Action{
			{Type: domain.ActionWebhookHTTP, Config: domain.JSONB{"url": "https://unused.example.com/hook"}},
		}),
	}
	call := &domain.Call{ID: "call-1", TenantID: "tenant-1", Status: domain.CallStatusCompleted}

	exec.Run(context.Background(), []*domain.Workflow{wf}, call, nil)

	select {
	case <-store.written:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for execution log")
	}
	require.Len(t, store.logs, 1)
	assert.Equal(t, domain.ExecutionSkipped, store.logs[0].Status)
}

func TestAggregateStatus(t *testing.T) {
	assert.Equal(t, domain.ExecutionCompleted, aggregateStatus(2, 0, false))
	assert.Equal(t, domain.ExecutionPartialFailure, aggregateStatus(1, 1, false))
	assert.Equal(t, domain.ExecutionFailed, aggregateStatus(0, 2, false))
	assert.Equal(t, domain.ExecutionPartialFailure, aggregateStatus(2, 0, true))
}
