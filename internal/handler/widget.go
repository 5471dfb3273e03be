package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/passthekeys/outbound-core/internal/apperr"
	"github.com/passthekeys/outbound-core/internal/domain"
)

type widgetStore interface {
	GetAgent(ctx context.Context, agentID string) (*domain.Agent, error)
}

// widgetClaims identifies the agent a widget session token was minted for.
// The widget presents this token back on every subsequent request for the
// life of the session; it carries no provider secret.
type widgetClaims struct {
	AgentID  string `json:"agent_id"`
	TenantID string `json:"tenant_id"`
	Provider string `json:"provider"`
	jwt.RegisteredClaims
}

// WidgetHandler exposes POST /widget/{agentId}/session, the public entry
// point a voice widget embedded on a tenant's website uses to obtain a
// short-lived session.
type WidgetHandler struct {
	store        widgetStore
	signingKey   []byte
	ttl          time.Duration
	defaultColor string
}

func NewWidgetHandler(store widgetStore, signingKey string, ttl time.Duration, defaultColor string) *WidgetHandler {
	return &WidgetHandler{store: store, signingKey: []byte(signingKey), ttl: ttl, defaultColor: defaultColor}
}

func (h *WidgetHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	if len(h.signingKey) == 0 {
		writeError(w, apperr.ConfigurationError("widget session signing key not configured"))
		return
	}

	agentID := mux.Vars(r)["agentId"]
	agent, err := h.store.GetAgent(r.Context(), agentID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !agent.WidgetEnabled {
		writeError(w, apperr.AuthorizationError("widget is not enabled for this agent"))
		return
	}

	now := time.Now()
	claims := widgetClaims{
		AgentID:  agent.ID,
		TenantID: agent.TenantID,
		Provider: string(agent.Provider),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.ttl)),
			Subject:   agent.ID,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.signingKey)
	if err != nil {
		writeError(w, apperr.InternalError("failed to mint widget session token", err))
		return
	}

	color := h.defaultColor
	widgetConfig := map[string]interface{}{}
	for k, v := range agent.WidgetConfig {
		widgetConfig[k] = v
	}
	if c, ok := widgetConfig["color"]; ok {
		if s, ok := c.(string); ok && s != "" {
			color = s
		}
	} else {
		widgetConfig["color"] = color
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":         token,
		"expires_in":    int(h.ttl.Seconds()),
		"widget_config": widgetConfig,
		"agent_name":    agent.Name,
	})
}
