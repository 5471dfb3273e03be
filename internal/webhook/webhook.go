// Package webhook implements the Provider Webhook Ingress of §4.7:
// asynchronous callback intake from the three voice providers, normalizing
// events into the canonical Call record and fanning out to downstream
// pipelines.
package webhook

import (
	"context"
	"time"

	"github.com/passthekeys/outbound-core/internal/apperr"
	"github.com/passthekeys/outbound-core/internal/broadcast"
	"github.com/passthekeys/outbound-core/internal/domain"
	"github.com/passthekeys/outbound-core/internal/provider"
	"github.com/passthekeys/outbound-core/internal/signature"
	"github.com/passthekeys/outbound-core/internal/usage"
	"github.com/passthekeys/outbound-core/pkg/logger"
	"go.uber.org/zap"
)

// MaxTranscriptChars caps a Call's transcript per §3.
const MaxTranscriptChars = 500_000

// Store is the persistence seam the Ingress depends on.
type Store interface {
	GetTenantByID(ctx context.Context, tenantID string) (*domain.Tenant, error)
	GetAgentByExternalID(ctx context.Context, provider domain.Provider, externalID string) (*domain.Agent, error)
	GetAgent(ctx context.Context, agentID string) (*domain.Agent, error)
	GetSubTenant(ctx context.Context, subTenantID string) (*domain.SubTenant, error)

	// UpsertCall finds or creates the Call keyed by (provider, external_id)
	// and applies the mutator, which must respect at-most-once terminal
	// transitions. It returns the resulting Call.
	UpsertCall(ctx context.Context, provider domain.Provider, externalID string, mutate func(c *domain.Call)) (*domain.Call, error)

	IncrementUsage(ctx context.Context, subTenantID string, cents int64) error

	ListWorkflows(ctx context.Context, tenantID, agentID string, trigger domain.WorkflowTrigger) ([]*domain.Workflow, error)
}

// WorkflowRunner is the seam back into the Workflow Executor (§4.8); kept
// as an interface here to avoid an import cycle between webhook and
// workflow.
type WorkflowRunner interface {
	Run(ctx context.Context, workflows []*domain.Workflow, call *domain.Call, event *provider.NormalizedEvent)
}

// AnalysisQueue enqueues the fire-and-forget AI analysis task (§9 Design
// Notes): it must not block webhook acknowledgment.
type AnalysisQueue interface {
	Enqueue(tenantID, callID string)
}

// Ingress wires together signature verification, the Provider Adapter
// registry, the broadcast bus, usage accounting, and workflow dispatch.
type Ingress struct {
	store     Store
	providers *provider.Registry
	sink      broadcast.EventSink
	workflows WorkflowRunner
	analysis  AnalysisQueue
}

func New(store Store, providers *provider.Registry, sink broadcast.EventSink, workflows WorkflowRunner, analysis AnalysisQueue) *Ingress {
	return &Ingress{store: store, providers: providers, sink: sink, workflows: workflows, analysis: analysis}
}

// VerifyHeaders bundles the headers a caller extracts before invoking
// Handle, since each provider signs differently (§4.4).
type VerifyHeaders struct {
	Signature    string
	Timestamp    string
	Method       string
	URL          string
	TenantSecret string // signing key populated by the caller: the tenant's key for A and C, the provider-wide key for B
}

// Handle runs steps 1-6 of §4.7 for one inbound provider webhook.
func (in *Ingress) Handle(ctx context.Context, p domain.Provider, raw []byte, headers VerifyHeaders) error {
	if err := in.verify(p, raw, headers); err != nil {
		return err
	}

	adapter, ok := in.providers.Get(p)
	if !ok {
		return apperr.ConfigurationError("no adapter registered for provider " + string(p))
	}
	event, err := adapter.ParseWebhook(ctx, raw, nil)
	if err != nil {
		return err
	}

	agent, err := in.store.GetAgentByExternalID(ctx, p, event.AgentExternalID)
	if err != nil {
		// Unknown agent: ack without processing (§4.7 step 3).
		logger.Base().Info("provider webhook for unknown agent, acking without processing",
			zap.String("provider", string(p)), zap.String("agent_external_id", event.AgentExternalID))
		return nil
	}

	call, err := in.store.UpsertCall(ctx, p, event.CallID, func(c *domain.Call) {
		applyEvent(c, agent, event)
	})
	if err != nil {
		return apperr.InternalError("failed to upsert call", err)
	}

	if !call.Status.Terminal() {
		return nil
	}

	in.sink.Publish(ctx, broadcast.Event{
		TenantID: call.TenantID,
		Kind:     "call:ended",
		Payload:  map[string]interface{}{"call_id": call.ID, "status": string(call.Status)},
	})

	if call.Status == domain.CallStatusCompleted && call.DurationSec > 0 {
		in.accumulateUsage(ctx, call)
	}

	if call.Status == domain.CallStatusCompleted && !call.Voicemail {
		in.maybeEnqueueAnalysis(ctx, call)
	}

	in.dispatchWorkflows(ctx, agent, call, event)

	return nil
}

func (in *Ingress) verify(p domain.Provider, raw []byte, h VerifyHeaders) error {
	switch p {
	case domain.ProviderA:
		return signature.VerifyProviderA(h.TenantSecret, raw, h.Signature)
	case domain.ProviderB:
		return signature.VerifyProviderB(h.TenantSecret, raw, h.Signature)
	case domain.ProviderC:
		return signature.VerifyProviderC(h.TenantSecret, h.Method, h.URL, raw, h.Timestamp, h.Signature, time.Now().UTC())
	default:
		return apperr.AuthenticationError("unknown provider")
	}
}

// applyEvent mutates the Call in place. It tolerates out-of-order arrival:
// an event is ignored if the stored status is already terminal (§5).
func applyEvent(c *domain.Call, agent *domain.Agent, event *provider.NormalizedEvent) {
	if c.ID != "" && c.Status.Terminal() {
		return
	}

	if c.ID == "" {
		c.TenantID = agent.TenantID
		c.AgentID = agent.ID
		c.Provider = agent.Provider
		c.ExternalID = event.CallID
		c.Direction = event.Direction
		c.FromNumber = event.From
		c.ToNumber = event.To
	}

	if event.Status != "" {
		c.Status = event.Status
	}
	if event.DurationSec > 0 {
		c.DurationSec = event.DurationSec
	}
	if event.CostCents > 0 {
		c.CostCents = event.CostCents
	}
	if event.Transcript != "" {
		transcript := c.Transcript + event.Transcript
		if len(transcript) > MaxTranscriptChars {
			transcript = transcript[:MaxTranscriptChars]
		}
		c.Transcript = transcript
	}
	if event.Voicemail {
		c.Voicemail = true
	}
	if event.StartedAt != nil {
		c.StartedAt = event.StartedAt
	}
	if event.EndedAt != nil {
		c.EndedAt = event.EndedAt
	}
}

func (in *Ingress) accumulateUsage(ctx context.Context, call *domain.Call) {
	subTenant, err := in.subTenantFor(ctx, call)
	if err != nil || subTenant == nil {
		return
	}
	if subTenant.BillingType != domain.BillingPerMinute {
		return
	}
	cents := usage.CentsForCall(call.DurationSec, subTenant.PerMinuteRateCents)
	if err := in.store.IncrementUsage(ctx, subTenant.ID, cents); err != nil {
		logger.Base().Error("failed to accumulate usage", zap.Error(err), zap.String("call_id", call.ID))
	}
}

func (in *Ingress) maybeEnqueueAnalysis(ctx context.Context, call *domain.Call) {
	subTenant, err := in.subTenantFor(ctx, call)
	if err != nil || subTenant == nil || !subTenant.AIAnalysisEnabled {
		return
	}
	if in.analysis != nil {
		in.analysis.Enqueue(call.TenantID, call.ID)
	}
}

func (in *Ingress) subTenantFor(ctx context.Context, call *domain.Call) (*domain.SubTenant, error) {
	// Calls are not directly linked to a SubTenant in the canonical model;
	// the Agent's SubTenantID (if any) identifies it.
	agent, err := in.store.GetAgent(ctx, call.AgentID)
	if err != nil || agent == nil || agent.SubTenantID == nil {
		return nil, err
	}
	return in.store.GetSubTenant(ctx, *agent.SubTenantID)
}

// dispatchWorkflows looks up workflows for trigger ∈ {call_ended,
// inbound_call_ended}, the latter only when direction is inbound (§4.7
// step 6). ListWorkflows resolves the agent_id-is-null-or-matches rule.
func (in *Ingress) dispatchWorkflows(ctx context.Context, agent *domain.Agent, call *domain.Call, event *provider.NormalizedEvent) {
	triggers := []domain.WorkflowTrigger{domain.TriggerCallEnded}
	if call.Direction == domain.CallDirectionInbound {
		triggers = append(triggers, domain.TriggerInboundCallEnded)
	}

	var workflows []*domain.Workflow
	for _, trigger := range triggers {
		matched, err := in.store.ListWorkflows(ctx, call.TenantID, agent.ID, trigger)
		if err != nil {
			logger.Base().Error("failed to list workflows for call", zap.Error(err), zap.String("call_id", call.ID))
			continue
		}
		workflows = append(workflows, matched...)
	}
	if len(workflows) == 0 || in.workflows == nil {
		return
	}
	in.workflows.Run(ctx, workflows, call, event)
}
