package workflow

import (
	"github.com/passthekeys/outbound-core/internal/domain"
	"github.com/passthekeys/outbound-core/internal/provider"
)

// buildPayload flattens a Call and its triggering event into the dotted
// field namespace that conditions and template interpolation read from
// (§4.8).
func buildPayload(call *domain.Call, event *provider.NormalizedEvent) map[string]interface{} {
	payload := map[string]interface{}{
		"call.id":           call.ID,
		"call.tenant_id":    call.TenantID,
		"call.agent_id":     call.AgentID,
		"call.provider":     string(call.Provider),
		"call.status":       string(call.Status),
		"call.direction":    string(call.Direction),
		"call.from_number":  call.FromNumber,
		"call.to_number":    call.ToNumber,
		"call.duration_sec": call.DurationSec,
		"call.cost_cents":   call.CostCents,
		"call.transcript":   call.Transcript,
		"call.voicemail":    call.Voicemail,
	}
	if call.Sentiment != nil {
		payload["call.sentiment"] = *call.Sentiment
	}
	if call.Score != nil {
		payload["call.score"] = *call.Score
	}
	if event != nil {
		payload["event.kind"] = string(event.Kind)
		payload["event.summary"] = event.Summary
	}
	return payload
}
