// Package provider implements the Provider Adapter of §4.3: a single
// interface normalizing call-initiation/end/fetch operations across three
// voice providers, each with its own wire format. The adapter never writes
// to the store; it only translates.
package provider

import (
	"context"
	"time"

	"github.com/passthekeys/outbound-core/internal/domain"
)

// CallDeadline is the per-call deadline every provider call is bounded by
// (§4.3).
const CallDeadline = 10 * time.Second

// InitiateParams are the inputs to Initiate.
type InitiateParams struct {
	Key             string
	AgentExternalID string
	ToNumber        string
	FromNumber      string
	Metadata        map[string]string
	PromptOverride  string // from Variant Selection, if any
}

// InitiateResult is the output of a successful Initiate call.
type InitiateResult struct {
	CallID string
}

// CallSnapshot is a point-in-time view of a call as the provider sees it.
type CallSnapshot struct {
	CallID      string
	Status      domain.CallStatus
	DurationSec int
	CostCents   int64
}

// NormalizedEvent is the canonical shape every provider webhook is parsed
// into (§4.7 step 2).
type NormalizedEvent struct {
	Kind            EventKind
	CallID          string
	AgentExternalID string
	Status          domain.CallStatus
	Direction       domain.CallDirection
	From            string
	To              string
	StartedAt       *time.Time
	EndedAt         *time.Time
	DurationSec     int
	CostCents       int64
	Transcript      string
	Summary         string
	Voicemail       bool
	ProviderMeta    map[string]string
}

// EventKind enumerates the normalized webhook event kinds.
type EventKind string

const (
	EventStarted    EventKind = "started"
	EventUpdated    EventKind = "updated"
	EventEnded      EventKind = "ended"
	EventTranscript EventKind = "transcript"
)

// Adapter is the uniform interface every provider implementation satisfies.
type Adapter interface {
	Initiate(ctx context.Context, p InitiateParams) (*InitiateResult, error)
	End(ctx context.Context, key, callID string) error
	FetchCall(ctx context.Context, key, callID string) (*CallSnapshot, error)
	ListActive(ctx context.Context, key string, agentExternalIDs []string) ([]CallSnapshot, error)
	ParseWebhook(ctx context.Context, raw []byte, headers map[string]string) (*NormalizedEvent, error)
}

// Registry looks up the Adapter for a provider.
type Registry struct {
	adapters map[domain.Provider]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[domain.Provider]Adapter)}
}

func (r *Registry) Register(p domain.Provider, a Adapter) {
	r.adapters[p] = a
}

func (r *Registry) Get(p domain.Provider) (Adapter, bool) {
	a, ok := r.adapters[p]
	return a, ok
}
