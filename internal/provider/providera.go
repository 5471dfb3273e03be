package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/passthekeys/outbound-core/internal/apperr"
	"github.com/passthekeys/outbound-core/internal/domain"
	"github.com/passthekeys/outbound-core/pkg/logger"
	"github.com/twilio/twilio-go"
	twapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// ProviderAAdapter implements Adapter against Provider A (a Twilio-compatible
// telephony API), grounded on the teacher's twilio-go client wiring in
// pkg/twilio/token_service.go.
type ProviderAAdapter struct {
	// callbackURL is the base URL Provider A posts voice-status webhooks to;
	// AgentExternalID is appended as a query parameter so ParseWebhook-side
	// routing never has to guess the agent.
	callbackURL string
	client      func(accountSID, authToken string) *twilio.RestClient
}

// NewProviderAAdapter constructs a ProviderAAdapter. callbackURL is this
// service's own public webhook endpoint for Provider A.
func NewProviderAAdapter(callbackURL string) *ProviderAAdapter {
	return &ProviderAAdapter{
		callbackURL: callbackURL,
		client: func(accountSID, authToken string) *twilio.RestClient {
			return twilio.NewRestClientWithParams(twilio.ClientParams{Username: accountSID, Password: authToken})
		},
	}
}

// keyParts splits the resolved key into the accountSID:authToken pair
// Provider A credentials are stored as (§6: provider keys are opaque
// per-tenant strings; Provider A's shape is "ACxxxx:authtoken").
func keyParts(key string) (string, string, error) {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i], key[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("malformed provider A key")
}

func (a *ProviderAAdapter) Initiate(ctx context.Context, p InitiateParams) (*InitiateResult, error) {
	sid, token, err := keyParts(p.Key)
	if err != nil {
		return nil, apperr.ValidationError(err.Error())
	}
	client := a.client(sid, token)

	params := &twapi.CreateCallParams{}
	params.SetTo(p.ToNumber)
	params.SetFrom(p.FromNumber)
	params.SetUrl(fmt.Sprintf("%s?agent=%s", a.callbackURL, p.AgentExternalID))
	params.SetStatusCallback(a.callbackURL)
	params.SetStatusCallbackEvent([]string{"initiated", "ringing", "answered", "completed"})
	params.SetTimeout(int(CallDeadline.Seconds()))

	resp, err := client.Api.CreateCall(params)
	if err != nil {
		logger.Base().Error("provider A initiate failed", zap.Error(err))
		return nil, ClassifyTransportError(err)
	}
	if resp.Sid == nil {
		return nil, fmt.Errorf("provider A returned no call sid")
	}
	return &InitiateResult{CallID: *resp.Sid}, nil
}

func (a *ProviderAAdapter) End(ctx context.Context, key, callID string) error {
	sid, token, err := keyParts(key)
	if err != nil {
		return apperr.ValidationError(err.Error())
	}
	client := a.client(sid, token)
	params := &twapi.UpdateCallParams{}
	params.SetStatus("completed")
	_, err = client.Api.UpdateCall(callID, params)
	if err != nil {
		return ClassifyTransportError(err)
	}
	return nil
}

func (a *ProviderAAdapter) FetchCall(ctx context.Context, key, callID string) (*CallSnapshot, error) {
	sid, token, err := keyParts(key)
	if err != nil {
		return nil, apperr.ValidationError(err.Error())
	}
	client := a.client(sid, token)
	resp, err := client.Api.FetchCall(callID, &twapi.FetchCallParams{})
	if err != nil {
		return nil, ClassifyTransportError(err)
	}
	snap := &CallSnapshot{CallID: callID}
	if resp.Status != nil {
		snap.Status = mapProviderAStatus(*resp.Status)
	}
	if resp.Duration != nil {
		if d, err := strconv.Atoi(*resp.Duration); err == nil {
			snap.DurationSec = d
		}
	}
	if resp.Price != nil {
		if price, err := strconv.ParseFloat(*resp.Price, 64); err == nil {
			snap.CostCents = int64(price * -100) // provider A returns price as a negative decimal dollar string
		}
	}
	return snap, nil
}

func (a *ProviderAAdapter) ListActive(ctx context.Context, key string, agentExternalIDs []string) ([]CallSnapshot, error) {
	sid, token, err := keyParts(key)
	if err != nil {
		return nil, apperr.ValidationError(err.Error())
	}
	client := a.client(sid, token)
	status := "in-progress"
	params := &twapi.ListCallParams{Status: &status}
	calls, err := client.Api.ListCall(params)
	if err != nil {
		return nil, ClassifyTransportError(err)
	}
	out := make([]CallSnapshot, 0, len(calls))
	for _, c := range calls {
		if c.Sid == nil {
			continue
		}
		snap := CallSnapshot{CallID: *c.Sid, Status: domain.CallStatusInProgress}
		out = append(out, snap)
	}
	return out, nil
}

// providerAWebhookPayload is the subset of Provider A's voice-status-callback
// form fields this adapter cares about.
type providerAWebhookPayload struct {
	CallSid       string `json:"CallSid"`
	CallStatus    string `json:"CallStatus"`
	To            string `json:"To"`
	From          string `json:"From"`
	CallDuration  string `json:"CallDuration"`
	AnsweredBy    string `json:"AnsweredBy"`
	RecordingURL  string `json:"RecordingUrl"`
	TranscriptURL string `json:"TranscriptUrl"`
}

func (a *ProviderAAdapter) ParseWebhook(ctx context.Context, raw []byte, headers map[string]string) (*NormalizedEvent, error) {
	form, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, apperr.ValidationError(err.Error())
	}
	payload := providerAWebhookPayload{
		CallSid:       form.Get("CallSid"),
		CallStatus:    form.Get("CallStatus"),
		To:            form.Get("To"),
		From:          form.Get("From"),
		CallDuration:  form.Get("CallDuration"),
		AnsweredBy:    form.Get("AnsweredBy"),
		RecordingURL:  form.Get("RecordingUrl"),
		TranscriptURL: form.Get("TranscriptUrl"),
	}
	ev := &NormalizedEvent{
		Kind:         EventUpdated,
		CallID:       payload.CallSid,
		Status:       mapProviderAStatus(payload.CallStatus),
		From:         payload.From,
		To:           payload.To,
		Voicemail:    payload.AnsweredBy == "machine_start" || payload.AnsweredBy == "machine_end_beep",
		ProviderMeta: map[string]string{"recording_url": payload.RecordingURL},
	}
	if ev.Status.Terminal() {
		ev.Kind = EventEnded
		now := time.Now().UTC()
		ev.EndedAt = &now
	}
	if d, err := strconv.Atoi(payload.CallDuration); err == nil {
		ev.DurationSec = d
	}
	return ev, nil
}

func mapProviderAStatus(s string) domain.CallStatus {
	switch s {
	case "queued", "initiated", "ringing":
		return domain.CallStatusQueued
	case "in-progress", "answered":
		return domain.CallStatusInProgress
	case "completed":
		return domain.CallStatusCompleted
	case "busy", "failed", "no-answer", "canceled":
		return domain.CallStatusFailed
	default:
		return domain.CallStatusQueued
	}
}

var _ Adapter = (*ProviderAAdapter)(nil)
