package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/passthekeys/outbound-core/internal/apperr"
	"github.com/passthekeys/outbound-core/internal/trigger"
)

// maxTriggerBodyBytes bounds inbound trigger payloads to guard against a
// misbehaving CRM sending an unbounded body.
const maxTriggerBodyBytes = 1 << 20

var triggerBodyValidator = validator.New()

// triggerRequestBody is the wire shape POSTed to /trigger/{crm-a,crm-b,api}
// (§6).
type triggerRequestBody struct {
	LocationID  string            `json:"location_id"`
	PortalID    string            `json:"portal_id"`
	PhoneNumber string            `json:"phone_number" validate:"required"`
	ContactID   string            `json:"contact_id,omitempty"`
	ContactName string            `json:"contact_name,omitempty"`
	AgentID     string            `json:"agent_id,omitempty"`
	FromNumber  string            `json:"from_number,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ScheduledAt *time.Time        `json:"scheduled_at,omitempty"`
}

// TriggerHandler exposes the CRM and partner-API trigger endpoints backed
// by a single Trigger Ingress.
type TriggerHandler struct {
	ingress *trigger.Ingress
}

func NewTriggerHandler(ingress *trigger.Ingress) *TriggerHandler {
	return &TriggerHandler{ingress: ingress}
}

func (h *TriggerHandler) HandleCRMA(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, trigger.SourceCRMA)
}

func (h *TriggerHandler) HandleCRMB(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, trigger.SourceCRMB)
}

func (h *TriggerHandler) HandleAPI(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, trigger.SourceAPI)
}

func (h *TriggerHandler) handle(w http.ResponseWriter, r *http.Request, source trigger.Source) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxTriggerBodyBytes))
	if err != nil {
		writeError(w, apperr.ValidationError("failed to read request body: %v", err))
		return
	}

	var body triggerRequestBody
	if err := json.Unmarshal(raw, &body); err != nil {
		writeError(w, apperr.ValidationError("invalid request body: %v", err))
		return
	}
	if err := triggerBodyValidator.Struct(body); err != nil {
		writeError(w, apperr.ValidationError("invalid request body: %v", err))
		return
	}

	req := trigger.Request{
		Source:          source,
		PhoneNumber:     body.PhoneNumber,
		ContactID:       body.ContactID,
		ContactName:     body.ContactName,
		AgentID:         body.AgentID,
		FromNumber:      body.FromNumber,
		Metadata:        body.Metadata,
		ScheduledAt:     body.ScheduledAt,
		RawBody:         raw,
		SignatureHeader: signatureHeaderFor(source, r),
		TimestampHeader: r.Header.Get("x-crm-b-request-timestamp"),
	}

	switch source {
	case trigger.SourceCRMA, trigger.SourceCRMB:
		req.LocationOrPortalID = firstNonEmpty(body.LocationID, body.PortalID)
	case trigger.SourceAPI:
		req.APIKey = bearerToken(r)
	}

	decision, err := h.ingress.Handle(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]interface{}{
		"status": decision.Status,
		"agent":  decision.AgentID,
	}
	if decision.CallID != "" {
		resp["call_id"] = decision.CallID
	}
	if decision.ScheduledCallID != "" {
		resp["scheduled_call_id"] = decision.ScheduledCallID
	}
	if decision.LeadTimezone != "" {
		resp["lead_timezone"] = decision.LeadTimezone
	}

	writeJSON(w, http.StatusOK, resp)
}

func signatureHeaderFor(source trigger.Source, r *http.Request) string {
	switch source {
	case trigger.SourceCRMA:
		return r.Header.Get("x-crm-a-signature")
	case trigger.SourceCRMB:
		return r.Header.Get("x-crm-b-signature")
	default:
		return ""
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return ""
	}
	return token
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
