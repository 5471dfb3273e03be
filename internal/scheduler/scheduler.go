// Package scheduler implements the Scheduler of §4.6: a periodic driver
// that atomically leases due ScheduledCall rows, re-validates the calling
// window at dispatch time, runs Variant Selection, dispatches via the
// Provider Adapter, and manages bounded retries.
package scheduler

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/passthekeys/outbound-core/internal/apperr"
	"github.com/passthekeys/outbound-core/internal/clock"
	"github.com/passthekeys/outbound-core/internal/domain"
	"github.com/passthekeys/outbound-core/internal/keys"
	"github.com/passthekeys/outbound-core/internal/provider"
	"github.com/passthekeys/outbound-core/internal/timezone"
	"github.com/passthekeys/outbound-core/pkg/logger"
	"go.uber.org/zap"
)

// DefaultBatch is the number of due jobs selected per tick, sized to fit a
// 60-second driver budget.
const DefaultBatch = 50

// DispatchDeadline is the soft per-job deadline (§5).
const DispatchDeadline = 25 * time.Second

// LateWarningThreshold is how far past scheduled_at a dispatch triggers a
// warning log.
const LateWarningThreshold = 5 * time.Minute

// Store is the persistence seam the Scheduler depends on.
type Store interface {
	keys.Store

	SelectDueScheduledCalls(ctx context.Context, now time.Time, batch int) ([]*domain.ScheduledCall, error)
	// LeaseScheduledCall performs the CAS (id, status='pending') ->
	// status='in_progress'. It reports whether this worker won the lease.
	LeaseScheduledCall(ctx context.Context, id string) (bool, error)
	GetAgent(ctx context.Context, agentID string) (*domain.Agent, error)
	GetRunningExperiment(ctx context.Context, agentID string) (*domain.Experiment, error)

	MarkRescheduled(ctx context.Context, id string, newScheduledAt time.Time, timezoneDelayed bool) error
	MarkCompleted(ctx context.Context, id, externalCallID string, completedAt time.Time) error
	MarkRetry(ctx context.Context, id, errMsg string) error
	MarkFailed(ctx context.Context, id, errMsg string) error

	CreateCall(ctx context.Context, c *domain.Call) error
}

// Outcome summarizes what happened to one job in a tick, for logging and
// tests.
type Outcome struct {
	ScheduledCallID string
	Result          string // "dispatched" | "rescheduled" | "skipped_lease" | "retry" | "failed"
	Err             error
}

// Scheduler runs one tick of the §4.6 state machine.
type Scheduler struct {
	store     Store
	keys      *keys.Resolver
	tz        *timezone.Oracle
	providers *provider.Registry
	clock     clock.Clock
	batch     int
}

func New(store Store, tz *timezone.Oracle, providers *provider.Registry, clk clock.Clock) *Scheduler {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Scheduler{store: store, keys: keys.New(store), tz: tz, providers: providers, clock: clk, batch: DefaultBatch}
}

// WithBatch overrides the default batch size (mainly for tests).
func (s *Scheduler) WithBatch(n int) *Scheduler {
	s.batch = n
	return s
}

// Tick drains up to one batch of due jobs.
func (s *Scheduler) Tick(ctx context.Context) ([]Outcome, error) {
	now := s.clock.Now()
	jobs, err := s.store.SelectDueScheduledCalls(ctx, now, s.batch)
	if err != nil {
		return nil, apperr.InternalError("failed to select due scheduled calls", err)
	}

	outcomes := make([]Outcome, 0, len(jobs))
	for _, job := range jobs {
		outcomes = append(outcomes, s.processOne(ctx, job, now))
	}
	return outcomes, nil
}

func (s *Scheduler) processOne(ctx context.Context, job *domain.ScheduledCall, now time.Time) Outcome {
	won, err := s.store.LeaseScheduledCall(ctx, job.ID)
	if err != nil {
		return Outcome{ScheduledCallID: job.ID, Result: "skipped_lease", Err: err}
	}
	if !won {
		return Outcome{ScheduledCallID: job.ID, Result: "skipped_lease"}
	}

	if now.Sub(job.ScheduledAt) > LateWarningThreshold {
		logger.Base().Warn("scheduled call dispatched more than 5 minutes late",
			zap.String("scheduled_call_id", job.ID), zap.Time("scheduled_at", job.ScheduledAt))
	}

	tenant, err := s.store.GetTenant(ctx, job.TenantID)
	if err != nil {
		return s.fail(ctx, job, apperr.InternalError("failed to load tenant for scheduled call", err))
	}

	zone := ""
	if job.LeadTimezone != nil {
		zone = *job.LeadTimezone
	}
	window := tenant.DefaultWindow
	if window.Enabled && !s.tz.WithinWindow(zone, window) {
		next := s.tz.NextValidInstant(zone, window)
		if err := s.store.MarkRescheduled(ctx, job.ID, next, true); err != nil {
			return Outcome{ScheduledCallID: job.ID, Result: "rescheduled", Err: err}
		}
		return Outcome{ScheduledCallID: job.ID, Result: "rescheduled"}
	}

	agent, err := s.store.GetAgent(ctx, job.AgentID)
	if err != nil {
		return s.fail(ctx, job, apperr.InternalError("failed to load agent for scheduled call", err))
	}

	var subTenantID *string
	if job.SubTenantID != nil {
		subTenantID = job.SubTenantID
	}
	resolved, err := s.keys.Resolve(ctx, job.TenantID, subTenantID, agent.Provider)
	if err != nil {
		return s.retryOrFail(ctx, job, err)
	}

	adapter, ok := s.providers.Get(agent.Provider)
	if !ok {
		return s.fail(ctx, job, apperr.ConfigurationError("no adapter registered for provider "+string(agent.Provider)))
	}

	promptOverride := s.selectVariant(ctx, agent, job)

	dispatchCtx, cancel := context.WithTimeout(ctx, DispatchDeadline)
	defer cancel()

	result, err := adapter.Initiate(dispatchCtx, provider.InitiateParams{
		Key:             resolved.Key,
		AgentExternalID: agent.ExternalID,
		ToNumber:        job.ToNumber,
		FromNumber:      job.FromNumber,
		PromptOverride:  promptOverride,
	})
	if err != nil {
		return s.retryOrFail(ctx, job, err)
	}

	call := &domain.Call{
		TenantID:   job.TenantID,
		AgentID:    agent.ID,
		Provider:   agent.Provider,
		ExternalID: result.CallID,
		Status:     domain.CallStatusQueued,
		Direction:  domain.CallDirectionOutbound,
		FromNumber: job.FromNumber,
		ToNumber:   job.ToNumber,
	}
	if err := s.store.CreateCall(ctx, call); err != nil {
		logger.Base().Error("scheduler failed to persist call", zap.Error(err))
	}

	if err := s.store.MarkCompleted(ctx, job.ID, result.CallID, s.clock.Now()); err != nil {
		return Outcome{ScheduledCallID: job.ID, Result: "dispatched", Err: err}
	}
	return Outcome{ScheduledCallID: job.ID, Result: "dispatched"}
}

// retryOrFail implements step 6 of §4.6: retries until max_retries is hit.
func (s *Scheduler) retryOrFail(ctx context.Context, job *domain.ScheduledCall, cause error) Outcome {
	if job.RetryCount+1 >= job.MaxRetries {
		return s.fail(ctx, job, cause)
	}
	if err := s.store.MarkRetry(ctx, job.ID, cause.Error()); err != nil {
		return Outcome{ScheduledCallID: job.ID, Result: "retry", Err: err}
	}
	return Outcome{ScheduledCallID: job.ID, Result: "retry", Err: cause}
}

func (s *Scheduler) fail(ctx context.Context, job *domain.ScheduledCall, cause error) Outcome {
	if err := s.store.MarkFailed(ctx, job.ID, cause.Error()); err != nil {
		logger.Base().Error("scheduler failed to mark job failed", zap.Error(err))
	}
	return Outcome{ScheduledCallID: job.ID, Result: "failed", Err: cause}
}

func (s *Scheduler) selectVariant(ctx context.Context, agent *domain.Agent, job *domain.ScheduledCall) string {
	experiment, err := s.store.GetRunningExperiment(ctx, agent.ID)
	if err != nil || experiment == nil || len(experiment.Variants) == 0 {
		return ""
	}
	// Seeded from to_number + scheduled_at (call id is assigned only after a
	// successful initiate), per §9 Design Notes, so that retries of the same
	// logical job always land on the same variant.
	identity := job.ToNumber + job.ScheduledAt.UTC().Format(time.RFC3339)
	bucket := hashMod100(identity)
	cumulative := 0
	for _, v := range experiment.Variants {
		cumulative += v.Weight
		if bucket < cumulative {
			return v.PromptOverride
		}
	}
	return experiment.Variants[len(experiment.Variants)-1].PromptOverride
}

func hashMod100(identity string) int {
	sum := sha256.Sum256([]byte(identity))
	n := binary.BigEndian.Uint32(sum[:4])
	return int(n % 100)
}
