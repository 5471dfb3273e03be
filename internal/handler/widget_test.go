package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/passthekeys/outbound-core/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWidgetStore struct {
	agent *domain.Agent
}

func (f *fakeWidgetStore) GetAgent(ctx context.Context, agentID string) (*domain.Agent, error) {
	if f.agent != nil && f.agent.ID == agentID {
		return f.agent, nil
	}
	return nil, errors.New("not found")
}

func newWidgetRequest(agentID string) (*http.Request, *httptest.ResponseRecorder) {
	r := httptest.NewRequest(http.MethodPost, "/widget/"+agentID+"/session", nil)
	r = mux.SetURLVars(r, map[string]string{"agentId": agentID})
	return r, httptest.NewRecorder()
}

func TestHandleCreateSession_Success(t *testing.T) {
	store := &fakeWidgetStore{agent: &domain.Agent{
		ID: "agent-1", TenantID: "tenant-1", Provider: domain.ProviderA,
		Name: "Sales Bot", WidgetEnabled: true, WidgetConfig: domain.JSONB{"greeting": "hi"},
	}}
	h := NewWidgetHandler(store, "test-signing-key", time.Minute, "#000000")

	r, w := newWidgetRequest("agent-1")
	h.HandleCreateSession(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Sales Bot", body["agent_name"])
	assert.Equal(t, float64(60), body["expires_in"])

	token := body["token"].(string)
	claims := &widgetClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-signing-key"), nil
	})
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, "agent-1", claims.AgentID)
	assert.Equal(t, "tenant-1", claims.TenantID)

	widgetConfig := body["widget_config"].(map[string]interface{})
	assert.Equal(t, "hi", widgetConfig["greeting"])
	assert.Equal(t, "#000000", widgetConfig["color"])
}

func TestHandleCreateSession_WidgetDisabled(t *testing.T) {
	store := &fakeWidgetStore{agent: &domain.Agent{ID: "agent-1", WidgetEnabled: false}}
	h := NewWidgetHandler(store, "test-signing-key", time.Minute, "#000000")

	r, w := newWidgetRequest("agent-1")
	h.HandleCreateSession(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandleCreateSession_MissingSigningKey(t *testing.T) {
	store := &fakeWidgetStore{agent: &domain.Agent{ID: "agent-1", WidgetEnabled: true}}
	h := NewWidgetHandler(store, "", time.Minute, "#000000")

	r, w := newWidgetRequest("agent-1")
	h.HandleCreateSession(w, r)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleCreateSession_UnknownAgent(t *testing.T) {
	store := &fakeWidgetStore{}
	h := NewWidgetHandler(store, "test-signing-key", time.Minute, "#000000")

	r, w := newWidgetRequest("missing")
	h.HandleCreateSession(w, r)

	assert.NotEqual(t, http.StatusOK, w.Code)
}
