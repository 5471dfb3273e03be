// Package workflow implements the Workflow Executor of §4.8: per-call,
// post-webhook dispatch of condition-gated action pipelines against CRM,
// calendar, scheduling-vendor, and notification integrations.
package workflow

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/passthekeys/outbound-core/internal/clock"
	"github.com/passthekeys/outbound-core/internal/domain"
	"github.com/passthekeys/outbound-core/internal/provider"
	"github.com/passthekeys/outbound-core/pkg/httpx"
	"github.com/passthekeys/outbound-core/pkg/logger"
	"go.uber.org/zap"
)

// WorkflowDeadline is the soft per-workflow deadline (§5).
const WorkflowDeadline = 60 * time.Second

// Store is the persistence seam the Executor depends on.
type Store interface {
	TenantUpdater
	GetTenantByID(ctx context.Context, tenantID string) (*domain.Tenant, error)
	WriteExecutionLog(ctx context.Context, log *domain.WorkflowExecutionLog) error
}

// Executor runs workflows against a terminal Call. It satisfies the
// WorkflowRunner interface webhook.Ingress dispatches through, without a
// direct import dependency in either direction.
type Executor struct {
	store  Store
	http   *resty.Client
	tokens *TokenRefresher
	clock  clock.Clock
}

func New(store Store, actionBaseURL string, endpoints OAuthEndpoints, clk clock.Clock) *Executor {
	if clk == nil {
		clk = clock.Real{}
	}
	httpClient := httpx.New(actionBaseURL, ActionDeadline)
	return &Executor{
		store:  store,
		http:   httpClient,
		tokens: NewTokenRefresher(store, endpoints, clk),
		clock:  clk,
	}
}

// Run dispatches every matched workflow in its own goroutine, detached from
// the request context that triggered it: webhook acknowledgment has already
// happened by the time this runs (§5 Concurrency & Resource Model).
func (e *Executor) Run(ctx context.Context, workflows []*domain.Workflow, call *domain.Call, event *provider.NormalizedEvent) {
	tenant, err := e.store.GetTenantByID(context.Background(), call.TenantID)
	if err != nil {
		logger.Base().Error("workflow dispatch failed to load tenant", zap.Error(err), zap.String("call_id", call.ID))
		return
	}
	payload := buildPayload(call, event)
	for _, wf := range workflows {
		wf := wf
		if !wf.Enabled {
			continue
		}
		go e.runOne(wf, tenant, call, payload)
	}
}

func (e *Executor) runOne(wf *domain.Workflow, tenant *domain.Tenant, call *domain.Call, payload map[string]interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), WorkflowDeadline)
	defer cancel()

	startedAt := e.clock.Now()
	log := &domain.WorkflowExecutionLog{
		TenantID:   wf.TenantID,
		WorkflowID: wf.ID,
		CallID:     call.ID,
		StartedAt:  startedAt,
	}

	var conditions []domain.Condition
	if len(wf.Conditions) > 0 {
		if err := json.Unmarshal(wf.Conditions, &conditions); err != nil {
			logger.Base().Error("workflow has malformed conditions", zap.Error(err), zap.String("workflow_id", wf.ID))
			return
		}
	}
	if !evaluateConditions(conditions, payload) {
		log.Status = domain.ExecutionSkipped
		log.CompletedAt = e.clock.Now()
		e.writeLog(ctx, log)
		return
	}

	var actions []domain.Action
	if len(wf.Actions) > 0 {
		if err := json.Unmarshal(wf.Actions, &actions); err != nil {
			logger.Base().Error("workflow has malformed actions", zap.Error(err), zap.String("workflow_id", wf.ID))
			return
		}
	}

	results := make([]domain.ActionResult, 0, len(actions))
	succeeded, failed, skipped := 0, 0, 0
	timedOut := false

	for i, action := range actions {
		if ctx.Err() != nil {
			timedOut = true
			results = append(results, domain.ActionResult{Index: i, Type: action.Type, Status: domain.ActionSkipped})
			skipped++
			continue
		}

		actionStart := e.clock.Now()
		fatalStop, attempts, err := e.runAction(ctx, action, tenant, payload)
		actionEnd := e.clock.Now()

		result := domain.ActionResult{
			Index:       i,
			Type:        action.Type,
			StartedAt:   actionStart,
			CompletedAt: actionEnd,
			DurationMs:  actionEnd.Sub(actionStart).Milliseconds(),
			Attempts:    attempts,
		}
		if err != nil {
			result.Status = domain.ActionFailed
			result.Error = err.Error()
			failed++
		} else {
			result.Status = domain.ActionSuccess
			succeeded++
		}
		results = append(results, result)

		if fatalStop {
			for j := i + 1; j < len(actions); j++ {
				results = append(results, domain.ActionResult{Index: j, Type: actions[j].Type, Status: domain.ActionSkipped})
				skipped++
			}
			break
		}
	}

	log.Status = aggregateStatus(succeeded, failed, timedOut)
	log.ActionsSucceeded = succeeded
	log.ActionsFailed = failed
	log.ActionsSkipped = skipped
	if marshaled, err := json.Marshal(results); err == nil {
		log.Results = marshaled
	} else {
		logger.Base().Error("failed to marshal workflow action results", zap.Error(err), zap.String("workflow_id", wf.ID))
	}
	log.CompletedAt = e.clock.Now()
	e.writeLog(context.Background(), log)
}

// aggregateStatus implements §4.8 step 4, with the §5 override that a
// workflow which hit its soft deadline is always partial_failure.
func aggregateStatus(succeeded, failed int, timedOut bool) domain.WorkflowExecutionStatus {
	if timedOut {
		return domain.ExecutionPartialFailure
	}
	switch {
	case failed == 0:
		return domain.ExecutionCompleted
	case succeeded == 0:
		return domain.ExecutionFailed
	default:
		return domain.ExecutionPartialFailure
	}
}

func (e *Executor) writeLog(ctx context.Context, log *domain.WorkflowExecutionLog) {
	if err := e.store.WriteExecutionLog(ctx, log); err != nil {
		logger.Base().Error("failed to write workflow execution log", zap.Error(err), zap.String("workflow_id", log.WorkflowID))
	}
}
