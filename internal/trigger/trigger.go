// Package trigger implements the Trigger Ingress of §4.5: the shared state
// machine behind CRM A, CRM B, and generic partner API intake.
//
//	parse -> validate schema -> resolve tenant -> verify signature ->
//	resolve agent -> resolve provider key -> decide window ->
//	(schedule | dispatch) -> write trigger log
package trigger

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"regexp"
	"strings"
	"time"

	"github.com/passthekeys/outbound-core/internal/apperr"
	"github.com/passthekeys/outbound-core/internal/clock"
	"github.com/passthekeys/outbound-core/internal/domain"
	"github.com/passthekeys/outbound-core/internal/keys"
	"github.com/passthekeys/outbound-core/internal/provider"
	"github.com/passthekeys/outbound-core/internal/signature"
	"github.com/passthekeys/outbound-core/internal/timezone"
	"github.com/passthekeys/outbound-core/pkg/logger"
	"go.uber.org/zap"
)

// Source distinguishes the four trigger origins of §4.5.
type Source string

const (
	SourceCRMA      Source = "crm_a"
	SourceCRMB      Source = "crm_b"
	SourceAPI       Source = "api"
	SourceDashboard Source = "dashboard"
)

// phoneCleanup strips everything but digits and a leading plus.
var phoneCleanup = regexp.MustCompile(`[^\d+]`)
var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

// NormalizePhone strips punctuation and assumes North America when no
// country code is present, per §4.5.
func NormalizePhone(raw string) (string, error) {
	cleaned := phoneCleanup.ReplaceAllString(strings.TrimSpace(raw), "")
	if cleaned == "" {
		return "", apperr.ValidationError("phone number is empty")
	}
	if !strings.HasPrefix(cleaned, "+") {
		switch len(cleaned) {
		case 10:
			cleaned = "+1" + cleaned
		case 11:
			if strings.HasPrefix(cleaned, "1") {
				cleaned = "+" + cleaned
			} else {
				return "", apperr.ValidationError("cannot normalize phone number " + raw)
			}
		default:
			return "", apperr.ValidationError("cannot normalize phone number " + raw)
		}
	}
	if !e164Pattern.MatchString(cleaned) {
		return "", apperr.ValidationError("phone number is not valid E.164: " + raw)
	}
	return cleaned, nil
}

// Request is the normalized shape of an inbound trigger, regardless of
// source.
type Request struct {
	Source             Source
	LocationOrPortalID string
	APIKey             string // for SourceAPI
	PhoneNumber        string
	ContactID          string
	ContactName        string
	AgentID            string
	FromNumber         string
	Metadata           map[string]string
	ScheduledAt        *time.Time

	RawBody         []byte
	SignatureHeader string
	TimestampHeader string
}

// Decision is the outcome returned to the caller.
type Decision struct {
	Status          string // "initiated" | "scheduled"
	CallID          string
	ScheduledCallID string
	LeadTimezone    string
	AgentID         string
}

// Store is the persistence seam the Ingress depends on. It composes the
// narrower keys.Store seam so a single repository implementation can serve
// both.
type Store interface {
	keys.Store

	ResolveTenantByCRMLocation(ctx context.Context, source Source, locationOrPortalID string) (*domain.Tenant, error)
	ResolveTenantByAPIKey(ctx context.Context, apiKey string) (*domain.Tenant, error)
	GetAgent(ctx context.Context, agentID string) (*domain.Agent, error)
	GetPhoneNumberByFromNumber(ctx context.Context, tenantID, fromNumber string) (*domain.PhoneNumber, error)
	GetRunningExperiment(ctx context.Context, agentID string) (*domain.Experiment, error)

	CreateScheduledCall(ctx context.Context, sc *domain.ScheduledCall) error
	CreateCall(ctx context.Context, c *domain.Call) error
	WriteTriggerLog(ctx context.Context, tl *domain.TriggerLog) error
}

// Ingress wires together the Key Resolver, Timezone Oracle, Provider
// Adapter registry, and Signature Verifier behind the §4.5 state machine.
type Ingress struct {
	store     Store
	keys      *keys.Resolver
	tz        *timezone.Oracle
	providers *provider.Registry
	clock     clock.Clock
}

func New(store Store, tz *timezone.Oracle, providers *provider.Registry, clk clock.Clock) *Ingress {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Ingress{store: store, keys: keys.New(store), tz: tz, providers: providers, clock: clk}
}

// Handle runs the full state machine for one inbound trigger.
func (in *Ingress) Handle(ctx context.Context, req Request) (*Decision, error) {
	decision, tenantID, err := in.handle(ctx, req)
	in.writeLog(ctx, req, tenantID, decision, err)
	return decision, err
}

func (in *Ingress) handle(ctx context.Context, req Request) (*Decision, string, error) {
	phone, err := NormalizePhone(req.PhoneNumber)
	if err != nil {
		return nil, "", err
	}
	req.PhoneNumber = phone

	tenant, err := in.resolveTenant(ctx, req)
	if err != nil {
		return nil, "", err
	}

	if err := in.verifySignature(req, tenant); err != nil {
		return nil, tenant.ID, err
	}

	agent, err := in.resolveAgent(ctx, tenant, req)
	if err != nil {
		return nil, tenant.ID, err
	}

	resolved, err := in.keys.Resolve(ctx, tenant.ID, nil, agent.Provider)
	if err != nil {
		return nil, tenant.ID, err
	}

	promptOverride, variantMeta := in.selectVariant(ctx, agent, req)

	metadata := map[string]string{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	for k, v := range variantMeta {
		metadata[k] = v
	}

	zone, _ := in.tz.ZoneOf(phone)

	if req.ScheduledAt != nil && req.ScheduledAt.After(in.clock.Now()) {
		sc, err := in.schedule(ctx, tenant, agent, req, zone, *req.ScheduledAt, false)
		if err != nil {
			return nil, tenant.ID, err
		}
		return &Decision{Status: "scheduled", ScheduledCallID: sc.ID, LeadTimezone: zone, AgentID: agent.ID}, tenant.ID, nil
	}

	if tenant.DefaultWindow.Enabled && !in.tz.WithinWindow(zone, tenant.DefaultWindow) {
		next := in.tz.NextValidInstant(zone, tenant.DefaultWindow)
		sc, err := in.schedule(ctx, tenant, agent, req, zone, next, true)
		if err != nil {
			return nil, tenant.ID, err
		}
		return &Decision{Status: "scheduled", ScheduledCallID: sc.ID, LeadTimezone: zone, AgentID: agent.ID}, tenant.ID, nil
	}

	adapter, ok := in.providers.Get(agent.Provider)
	if !ok {
		return nil, tenant.ID, apperr.ConfigurationError("no adapter registered for provider " + string(agent.Provider))
	}

	result, err := adapter.Initiate(ctx, provider.InitiateParams{
		Key:             resolved.Key,
		AgentExternalID: agent.ExternalID,
		ToNumber:        phone,
		FromNumber:      req.FromNumber,
		Metadata:        metadata,
		PromptOverride:  promptOverride,
	})
	if err != nil {
		return nil, tenant.ID, err
	}

	call := &domain.Call{
		TenantID:   tenant.ID,
		AgentID:    agent.ID,
		Provider:   agent.Provider,
		ExternalID: result.CallID,
		Status:     domain.CallStatusQueued,
		Direction:  domain.CallDirectionOutbound,
		FromNumber: req.FromNumber,
		ToNumber:   phone,
		Metadata:   toJSONB(metadata),
	}
	if err := in.store.CreateCall(ctx, call); err != nil {
		logger.Base().Error("trigger ingress failed to persist call", zap.Error(err))
	}

	return &Decision{Status: "initiated", CallID: call.ID, LeadTimezone: zone, AgentID: agent.ID}, tenant.ID, nil
}

func (in *Ingress) resolveTenant(ctx context.Context, req Request) (*domain.Tenant, error) {
	switch req.Source {
	case SourceCRMA, SourceCRMB:
		return in.store.ResolveTenantByCRMLocation(ctx, req.Source, req.LocationOrPortalID)
	case SourceAPI:
		return in.store.ResolveTenantByAPIKey(ctx, req.APIKey)
	default:
		return nil, apperr.ValidationError("unknown trigger source")
	}
}

func (in *Ingress) verifySignature(req Request, tenant *domain.Tenant) error {
	switch req.Source {
	case SourceCRMA:
		return signature.VerifyTriggerWebhook(tenant.Integrations.CRMA.WebhookSecret, req.RawBody, req.SignatureHeader, "", in.clock.Now())
	case SourceCRMB:
		return signature.VerifyTriggerWebhook(tenant.Integrations.CRMB.WebhookSecret, req.RawBody, req.SignatureHeader, req.TimestampHeader, in.clock.Now())
	default:
		// SourceAPI authenticates via bearer key match already performed in
		// ResolveTenantByAPIKey; no body signature applies.
		return nil
	}
}

func (in *Ingress) resolveAgent(ctx context.Context, tenant *domain.Tenant, req Request) (*domain.Agent, error) {
	if req.AgentID != "" {
		agent, err := in.store.GetAgent(ctx, req.AgentID)
		if err == nil && agent.TenantID == tenant.ID {
			return agent, nil
		}
	}

	var defaultAgentID string
	switch req.Source {
	case SourceCRMA:
		defaultAgentID = tenant.Integrations.CRMA.DefaultAgentID
	case SourceCRMB:
		defaultAgentID = tenant.Integrations.CRMB.DefaultAgentID
	}
	if defaultAgentID != "" {
		agent, err := in.store.GetAgent(ctx, defaultAgentID)
		if err == nil && agent.TenantID == tenant.ID {
			return agent, nil
		}
	}

	if req.FromNumber != "" {
		phoneNum, err := in.store.GetPhoneNumberByFromNumber(ctx, tenant.ID, req.FromNumber)
		if err == nil && phoneNum.OutboundAgentID != nil {
			agent, err := in.store.GetAgent(ctx, *phoneNum.OutboundAgentID)
			if err == nil && agent.TenantID == tenant.ID {
				return agent, nil
			}
		}
	}

	return nil, apperr.ValidationError("no agent could be resolved for this trigger")
}

func (in *Ingress) schedule(ctx context.Context, tenant *domain.Tenant, agent *domain.Agent, req Request, zone string, at time.Time, delayed bool) (*domain.ScheduledCall, error) {
	sc := &domain.ScheduledCall{
		TenantID:            tenant.ID,
		AgentID:             agent.ID,
		ToNumber:            req.PhoneNumber,
		FromNumber:          req.FromNumber,
		LeadTimezone:        strPtr(zone),
		ScheduledAt:         at,
		OriginalScheduledAt: at,
		TimezoneDelayed:     delayed,
		Status:              domain.ScheduledCallPending,
		TriggerSource:       sourceToTriggerSource(req.Source),
		CorrelationID:       req.ContactID,
		MaxRetries:          3,
		Metadata:            toJSONB(req.Metadata),
	}
	if err := in.store.CreateScheduledCall(ctx, sc); err != nil {
		return nil, apperr.InternalError("failed to persist scheduled call", err)
	}
	return sc, nil
}

// selectVariant implements Variant Selection: an identity-free hash mod 100
// chooses a variant by cumulative weight. The call id is not yet known at
// trigger time, so the hash is seeded from phone_number (+ scheduled_at
// when the caller supplied one), per §9 Design Notes, so that a scheduler retry
// of the same logical call selects the same variant.
func (in *Ingress) selectVariant(ctx context.Context, agent *domain.Agent, req Request) (promptOverride string, meta map[string]string) {
	experiment, err := in.store.GetRunningExperiment(ctx, agent.ID)
	if err != nil || experiment == nil || len(experiment.Variants) == 0 {
		return "", nil
	}

	identity := req.PhoneNumber
	if req.ScheduledAt != nil {
		identity += req.ScheduledAt.UTC().Format(time.RFC3339)
	}
	bucket := hashMod100(identity)

	cumulative := 0
	for _, v := range experiment.Variants {
		cumulative += v.Weight
		if bucket < cumulative {
			return v.PromptOverride, map[string]string{
				"experiment_id": experiment.ID,
				"variant_id":    v.ID,
			}
		}
	}
	// weights should sum to 100; fall back to the last variant if rounding
	// leaves a gap.
	last := experiment.Variants[len(experiment.Variants)-1]
	return last.PromptOverride, map[string]string{
		"experiment_id": experiment.ID,
		"variant_id":    last.ID,
	}
}

func hashMod100(identity string) int {
	sum := sha256.Sum256([]byte(identity))
	n := binary.BigEndian.Uint32(sum[:4])
	return int(n % 100)
}

func (in *Ingress) writeLog(ctx context.Context, req Request, tenantID string, decision *Decision, err error) {
	status := domain.TriggerLogInitiated
	var errMsg *string
	var resolvedAgentID *string
	var leadTZ *string

	if err != nil {
		status = domain.TriggerLogFailed
		msg := err.Error()
		errMsg = &msg
	} else if decision != nil {
		if decision.Status == "scheduled" {
			status = domain.TriggerLogScheduled
		}
		resolvedAgentID = strPtr(decision.AgentID)
		leadTZ = strPtr(decision.LeadTimezone)
	}

	tl := &domain.TriggerLog{
		TenantID:        tenantID,
		Source:          sourceToTriggerSource(req.Source),
		Status:          status,
		ResolvedAgentID: resolvedAgentID,
		LeadTimezone:    leadTZ,
		ErrorMessage:    errMsg,
		Payload:         domain.JSONB(redactedPayload(req)),
	}
	if writeErr := in.store.WriteTriggerLog(ctx, tl); writeErr != nil {
		logger.Base().Error("failed to write trigger log", zap.Error(writeErr))
	}
}

// redactedPayload strips the signature and API key before persisting.
func redactedPayload(req Request) map[string]interface{} {
	return map[string]interface{}{
		"source":       req.Source,
		"phone_number": req.PhoneNumber,
		"contact_id":   req.ContactID,
		"contact_name": req.ContactName,
		"agent_id":     req.AgentID,
		"from_number":  req.FromNumber,
	}
}

func sourceToTriggerSource(s Source) domain.TriggerSource {
	switch s {
	case SourceCRMA:
		return domain.TriggerSourceCRMA
	case SourceCRMB:
		return domain.TriggerSourceCRMB
	case SourceDashboard:
		return domain.TriggerSourceDashboard
	default:
		return domain.TriggerSourceAPI
	}
}

func toJSONB(m map[string]string) domain.JSONB {
	out := domain.JSONB{}
	for k, v := range m {
		out[k] = v
	}
	return out
}

func strPtr(s string) *string { return &s }
