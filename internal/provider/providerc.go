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

// ProviderCAdapter implements Adapter against Provider C, a JSON REST voice
// API that identifies each call by the dial_id its POST /dial returns, and
// reports cost in a fractional-dollar field instead of cents.
type ProviderCAdapter struct {
	baseURL     string
	callbackURL string
	http        *resty.Client
}

func NewProviderCAdapter(baseURL, callbackURL string) *ProviderCAdapter {
	client := httpx.New(baseURL, CallDeadline)
	return &ProviderCAdapter{baseURL: baseURL, callbackURL: callbackURL, http: client}
}

type providerCDialReq struct {
	Agent       string            `json:"agent"`
	Destination string            `json:"destination"`
	CallerID    string            `json:"caller_id"`
	Callback    string            `json:"callback"`
	Vars        map[string]string `json:"vars,omitempty"`
	Script      string            `json:"script,omitempty"`
}

type providerCDialResp struct {
	DialID string `json:"dial_id"`
}

func (c *ProviderCAdapter) Initiate(ctx context.Context, p InitiateParams) (*InitiateResult, error) {
	var out providerCDialResp
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Api-Key", p.Key).
		SetBody(providerCDialReq{
			Agent:       p.AgentExternalID,
			Destination: p.ToNumber,
			CallerID:    p.FromNumber,
			Callback:    c.callbackURL,
			Vars:        p.Metadata,
			Script:      p.PromptOverride,
		}).
		SetResult(&out).
		Post("/dial")
	if err != nil {
		return nil, ClassifyTransportError(err)
	}
	if resp.IsError() {
		return nil, ClassifyHTTPError(resp.StatusCode(), resp.String())
	}
	if out.DialID == "" {
		return nil, apperr.UpstreamFatalError("provider C returned no dial id", fmt.Errorf("empty dial_id"))
	}
	return &InitiateResult{CallID: out.DialID}, nil
}

func (c *ProviderCAdapter) End(ctx context.Context, key, callID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Api-Key", key).
		Delete(fmt.Sprintf("/dial/%s", callID))
	if err != nil {
		return ClassifyTransportError(err)
	}
	if resp.IsError() {
		return ClassifyHTTPError(resp.StatusCode(), resp.String())
	}
	return nil
}

type providerCDialStatusResp struct {
	DialID        string  `json:"dial_id"`
	State         string  `json:"state"`
	SecondsTalked int     `json:"seconds_talked"`
	CostUSD       float64 `json:"cost_usd"`
}

func (c *ProviderCAdapter) FetchCall(ctx context.Context, key, callID string) (*CallSnapshot, error) {
	var out providerCDialStatusResp
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Api-Key", key).
		SetResult(&out).
		Get(fmt.Sprintf("/dial/%s", callID))
	if err != nil {
		return nil, ClassifyTransportError(err)
	}
	if resp.IsError() {
		return nil, ClassifyHTTPError(resp.StatusCode(), resp.String())
	}
	return &CallSnapshot{
		CallID:      out.DialID,
		Status:      mapProviderCState(out.State),
		DurationSec: out.SecondsTalked,
		CostCents:   int64(out.CostUSD * 100),
	}, nil
}

func (c *ProviderCAdapter) ListActive(ctx context.Context, key string, agentExternalIDs []string) ([]CallSnapshot, error) {
	var out struct {
		Dials []providerCDialStatusResp `json:"dials"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Api-Key", key).
		SetQueryParam("state", "connected").
		SetResult(&out).
		Get("/dial")
	if err != nil {
		return nil, ClassifyTransportError(err)
	}
	if resp.IsError() {
		return nil, ClassifyHTTPError(resp.StatusCode(), resp.String())
	}
	snaps := make([]CallSnapshot, 0, len(out.Dials))
	for _, d := range out.Dials {
		snaps = append(snaps, CallSnapshot{
			CallID:      d.DialID,
			Status:      mapProviderCState(d.State),
			DurationSec: d.SecondsTalked,
			CostCents:   int64(d.CostUSD * 100),
		})
	}
	return snaps, nil
}

type providerCWebhookPayload struct {
	Type          string  `json:"type"`
	DialID        string  `json:"dial_id"`
	Agent         string  `json:"agent"`
	State         string  `json:"state"`
	Direction     string  `json:"direction"`
	Destination   string  `json:"destination"`
	CallerID      string  `json:"caller_id"`
	SecondsTalked int     `json:"seconds_talked"`
	CostUSD       float64 `json:"cost_usd"`
	Transcript    string  `json:"transcript_text"`
	Voicemail     bool    `json:"voicemail"`
	EndedAtUnix   int64   `json:"ended_at_unix"`
}

func (c *ProviderCAdapter) ParseWebhook(ctx context.Context, raw []byte, headers map[string]string) (*NormalizedEvent, error) {
	var p providerCWebhookPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, apperr.ValidationError(err.Error())
	}
	ev := &NormalizedEvent{
		Kind:            mapProviderCEventKind(p.Type),
		CallID:          p.DialID,
		AgentExternalID: p.Agent,
		Status:          mapProviderCState(p.State),
		Direction:       mapProviderCDirection(p.Direction),
		From:            p.CallerID,
		To:              p.Destination,
		DurationSec:     p.SecondsTalked,
		CostCents:       int64(p.CostUSD * 100),
		Transcript:      p.Transcript,
		Voicemail:       p.Voicemail,
	}
	if p.EndedAtUnix > 0 {
		t := time.Unix(p.EndedAtUnix, 0).UTC()
		ev.EndedAt = &t
	}
	return ev, nil
}

func mapProviderCEventKind(t string) EventKind {
	switch t {
	case "dial.started":
		return EventStarted
	case "dial.ended":
		return EventEnded
	case "dial.transcript":
		return EventTranscript
	default:
		return EventUpdated
	}
}

func mapProviderCState(s string) domain.CallStatus {
	switch s {
	case "queued", "dialing":
		return domain.CallStatusQueued
	case "connected":
		return domain.CallStatusInProgress
	case "completed":
		return domain.CallStatusCompleted
	case "failed", "no_answer", "rejected":
		return domain.CallStatusFailed
	default:
		return domain.CallStatusQueued
	}
}

func mapProviderCDirection(d string) domain.CallDirection {
	if d == "inbound" {
		return domain.CallDirectionInbound
	}
	return domain.CallDirectionOutbound
}

var _ Adapter = (*ProviderCAdapter)(nil)
