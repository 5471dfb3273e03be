package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/passthekeys/outbound-core/internal/apperr"
	"github.com/passthekeys/outbound-core/internal/domain"
	"github.com/passthekeys/outbound-core/internal/keys"
	"github.com/passthekeys/outbound-core/internal/provider"
)

// callsStore is the persistence seam CallsHandler needs, in addition to
// keys.Store (for key resolution when reaching out to a live provider).
type callsStore interface {
	keys.Store
	ResolveTenantByAPIKey(ctx context.Context, apiKey string) (*domain.Tenant, error)
	GetCallByID(ctx context.Context, id string) (*domain.Call, error)
	ListOngoingCallsByTenant(ctx context.Context, tenantID string) ([]*domain.Call, error)
	GetAgent(ctx context.Context, agentID string) (*domain.Agent, error)
}

// CallsHandler exposes the authenticated call-management endpoints of §6:
// ending an active call, listing ongoing calls, and a synthesized live
// view. Callers authenticate the same way as the generic partner trigger
// API, with a bearer partner key that resolves to exactly one tenant.
type CallsHandler struct {
	store     callsStore
	keys      *keys.Resolver
	providers *provider.Registry
}

func NewCallsHandler(store callsStore, providers *provider.Registry) *CallsHandler {
	return &CallsHandler{store: store, keys: keys.New(store), providers: providers}
}

func (h *CallsHandler) authenticate(r *http.Request) (*domain.Tenant, error) {
	apiKey := bearerToken(r)
	if apiKey == "" {
		return nil, apperr.AuthenticationError("missing bearer token")
	}
	return h.store.ResolveTenantByAPIKey(r.Context(), apiKey)
}

// HandleEnd implements POST /calls/{id}/end?provider=<a|b|c>.
func (h *CallsHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}

	callID := mux.Vars(r)["id"]
	call, err := h.store.GetCallByID(r.Context(), callID)
	if err != nil {
		writeError(w, err)
		return
	}
	if call.TenantID != tenant.ID {
		writeError(w, apperr.AuthorizationError("call does not belong to tenant"))
		return
	}

	p := domain.Provider(r.URL.Query().Get("provider"))
	if p == "" {
		p = call.Provider
	}
	adapter, ok := h.providers.Get(p)
	if !ok {
		writeError(w, apperr.ValidationError("unsupported provider %q", p))
		return
	}

	agent, err := h.store.GetAgent(r.Context(), call.AgentID)
	if err != nil {
		writeError(w, err)
		return
	}
	resolved, err := h.keys.Resolve(r.Context(), tenant.ID, agent.SubTenantID, p)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := adapter.End(r.Context(), resolved.Key, call.ExternalID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ended": true})
}

// HandleActive implements GET /calls/active.
func (h *CallsHandler) HandleActive(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}

	calls, err := h.store.ListOngoingCallsByTenant(r.Context(), tenant.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"calls": calls})
}

// HandleLive implements GET /calls/{id}/live?provider=.... It prefers the
// stored Call and only reaches out to the provider to fill in a live
// duration/cost for a call still in progress; a failed provider fetch
// silently falls back to the stored snapshot.
func (h *CallsHandler) HandleLive(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}

	callID := mux.Vars(r)["id"]
	call, err := h.store.GetCallByID(r.Context(), callID)
	if err != nil {
		writeError(w, err)
		return
	}
	if call.TenantID != tenant.ID {
		writeError(w, apperr.AuthorizationError("call does not belong to tenant"))
		return
	}

	resp := map[string]interface{}{
		"call_id":      call.ID,
		"status":       call.Status,
		"duration_sec": call.DurationSec,
		"cost_cents":   call.CostCents,
		"source":       "stored",
	}

	if !call.Status.Terminal() {
		p := domain.Provider(r.URL.Query().Get("provider"))
		if p == "" {
			p = call.Provider
		}
		if adapter, ok := h.providers.Get(p); ok {
			if agent, err := h.store.GetAgent(r.Context(), call.AgentID); err == nil {
				if resolved, err := h.keys.Resolve(r.Context(), tenant.ID, agent.SubTenantID, p); err == nil {
					if snapshot, err := adapter.FetchCall(r.Context(), resolved.Key, call.ExternalID); err == nil {
						resp["status"] = snapshot.Status
						resp["duration_sec"] = snapshot.DurationSec
						resp["cost_cents"] = snapshot.CostCents
						resp["source"] = "provider"
					}
				}
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
