// Package broadcast implements the pluggable EventSink of §9 Design Notes:
// best-effort real-time fan-out keyed by tenant id, not durable.
package broadcast

import "context"

// Event is one broadcast message.
type Event struct {
	TenantID string
	Kind     string
	Payload  map[string]interface{}
}

// EventSink publishes events to whatever real-time transport backs the
// dashboard. Implementations must be best-effort: a publish failure is
// logged by the implementation and never propagated to the caller (§5).
type EventSink interface {
	Publish(ctx context.Context, event Event)
}

// NoopSink discards every event. Used in tests and anywhere a network sink
// is not configured.
type NoopSink struct{}

func (NoopSink) Publish(ctx context.Context, event Event) {}

var _ EventSink = NoopSink{}
