package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/passthekeys/outbound-core/internal/apperr"
	"github.com/passthekeys/outbound-core/internal/domain"
	"github.com/passthekeys/outbound-core/pkg/httpx"
)

// ProviderBAdapter implements Adapter against Provider B, a JSON REST voice
// API. Its wire format differs from Provider A's form-encoded callback shape,
// which is the point of the Adapter interface: callers never see the
// difference.
type ProviderBAdapter struct {
	baseURL     string
	callbackURL string
	http        *resty.Client
}

func NewProviderBAdapter(baseURL, callbackURL string) *ProviderBAdapter {
	// retries are the caller's concern (§4.3), not the adapter's
	client := httpx.New(baseURL, CallDeadline)
	return &ProviderBAdapter{baseURL: baseURL, callbackURL: callbackURL, http: client}
}

type providerBCreateCallReq struct {
	AgentID    string            `json:"agent_id"`
	To         string            `json:"to_number"`
	From       string            `json:"from_number"`
	WebhookURL string            `json:"webhook_url"`
	Prompt     string            `json:"prompt_override,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type providerBCreateCallResp struct {
	CallID string `json:"call_id"`
}

func (b *ProviderBAdapter) Initiate(ctx context.Context, p InitiateParams) (*InitiateResult, error) {
	var out providerBCreateCallResp
	resp, err := b.http.R().
		SetContext(ctx).
		SetAuthToken(p.Key).
		SetBody(providerBCreateCallReq{
			AgentID:    p.AgentExternalID,
			To:         p.ToNumber,
			From:       p.FromNumber,
			WebhookURL: b.callbackURL,
			Prompt:     p.PromptOverride,
			Metadata:   p.Metadata,
		}).
		SetResult(&out).
		Post("/v1/calls")
	if err != nil {
		return nil, ClassifyTransportError(err)
	}
	if resp.IsError() {
		return nil, ClassifyHTTPError(resp.StatusCode(), resp.String())
	}
	if out.CallID == "" {
		return nil, apperr.UpstreamFatalError("provider B returned no call id", fmt.Errorf("empty call_id"))
	}
	return &InitiateResult{CallID: out.CallID}, nil
}

func (b *ProviderBAdapter) End(ctx context.Context, key, callID string) error {
	resp, err := b.http.R().
		SetContext(ctx).
		SetAuthToken(key).
		Post(fmt.Sprintf("/v1/calls/%s/end", callID))
	if err != nil {
		return ClassifyTransportError(err)
	}
	if resp.IsError() {
		return ClassifyHTTPError(resp.StatusCode(), resp.String())
	}
	return nil
}

type providerBCallResp struct {
	CallID      string `json:"call_id"`
	Status      string `json:"status"`
	DurationSec int    `json:"duration_seconds"`
	CostCents   int64  `json:"cost_cents"`
}

func (b *ProviderBAdapter) FetchCall(ctx context.Context, key, callID string) (*CallSnapshot, error) {
	var out providerBCallResp
	resp, err := b.http.R().
		SetContext(ctx).
		SetAuthToken(key).
		SetResult(&out).
		Get(fmt.Sprintf("/v1/calls/%s", callID))
	if err != nil {
		return nil, ClassifyTransportError(err)
	}
	if resp.IsError() {
		return nil, ClassifyHTTPError(resp.StatusCode(), resp.String())
	}
	return &CallSnapshot{
		CallID:      out.CallID,
		Status:      mapProviderBStatus(out.Status),
		DurationSec: out.DurationSec,
		CostCents:   out.CostCents,
	}, nil
}

func (b *ProviderBAdapter) ListActive(ctx context.Context, key string, agentExternalIDs []string) ([]CallSnapshot, error) {
	var out struct {
		Calls []providerBCallResp `json:"calls"`
	}
	resp, err := b.http.R().
		SetContext(ctx).
		SetAuthToken(key).
		SetQueryParam("status", "active").
		SetResult(&out).
		Get("/v1/calls")
	if err != nil {
		return nil, ClassifyTransportError(err)
	}
	if resp.IsError() {
		return nil, ClassifyHTTPError(resp.StatusCode(), resp.String())
	}
	snaps := make([]CallSnapshot, 0, len(out.Calls))
	for _, c := range out.Calls {
		snaps = append(snaps, CallSnapshot{
			CallID:      c.CallID,
			Status:      mapProviderBStatus(c.Status),
			DurationSec: c.DurationSec,
			CostCents:   c.CostCents,
		})
	}
	return snaps, nil
}

type providerBWebhookPayload struct {
	Event       string `json:"event"`
	CallID      string `json:"call_id"`
	AgentID     string `json:"agent_id"`
	Status      string `json:"status"`
	Direction   string `json:"direction"`
	To          string `json:"to_number"`
	From        string `json:"from_number"`
	DurationSec int    `json:"duration_seconds"`
	CostCents   int64  `json:"cost_cents"`
	Transcript  string `json:"transcript"`
	Summary     string `json:"summary"`
	Voicemail   bool   `json:"voicemail_detected"`
	EndedAt     string `json:"ended_at"`
}

func (b *ProviderBAdapter) ParseWebhook(ctx context.Context, raw []byte, headers map[string]string) (*NormalizedEvent, error) {
	var p providerBWebhookPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, apperr.ValidationError(err.Error())
	}
	ev := &NormalizedEvent{
		Kind:            mapProviderBEventKind(p.Event),
		CallID:          p.CallID,
		AgentExternalID: p.AgentID,
		Status:          mapProviderBStatus(p.Status),
		Direction:       mapProviderBDirection(p.Direction),
		From:            p.From,
		To:              p.To,
		DurationSec:     p.DurationSec,
		CostCents:       p.CostCents,
		Transcript:      p.Transcript,
		Summary:         p.Summary,
		Voicemail:       p.Voicemail,
	}
	if p.EndedAt != "" {
		if t, err := time.Parse(time.RFC3339, p.EndedAt); err == nil {
			ev.EndedAt = &t
		}
	}
	return ev, nil
}

func mapProviderBEventKind(event string) EventKind {
	switch event {
	case "call.started":
		return EventStarted
	case "call.ended":
		return EventEnded
	case "call.transcript":
		return EventTranscript
	default:
		return EventUpdated
	}
}

func mapProviderBStatus(s string) domain.CallStatus {
	switch s {
	case "queued":
		return domain.CallStatusQueued
	case "in_progress", "ringing", "connected":
		return domain.CallStatusInProgress
	case "completed":
		return domain.CallStatusCompleted
	case "failed", "no_answer", "busy", "canceled":
		return domain.CallStatusFailed
	default:
		return domain.CallStatusQueued
	}
}

func mapProviderBDirection(d string) domain.CallDirection {
	if d == "inbound" {
		return domain.CallDirectionInbound
	}
	return domain.CallDirectionOutbound
}

var _ Adapter = (*ProviderBAdapter)(nil)
