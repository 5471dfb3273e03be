package repository

import (
	"context"

	"github.com/passthekeys/outbound-core/internal/apperr"
	"github.com/passthekeys/outbound-core/internal/domain"
)

// ListWorkflows satisfies webhook.Store: every Workflow for this tenant and
// trigger that either applies to every agent (agent_id IS NULL) or to this
// agent specifically. Enabled filtering is left to the Workflow Executor,
// which already skips disabled workflows in Run.
func (s *Store) ListWorkflows(ctx context.Context, tenantID, agentID string, trigger domain.WorkflowTrigger) ([]*domain.Workflow, error) {
	var workflows []*domain.Workflow
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND trigger = ? AND (agent_id IS NULL OR agent_id = ?)", tenantID, trigger, agentID).
		Find(&workflows).Error
	if err != nil {
		return nil, apperr.InternalError("failed to list workflows", err)
	}
	return workflows, nil
}

// WriteExecutionLog satisfies workflow.Store.
func (s *Store) WriteExecutionLog(ctx context.Context, log *domain.WorkflowExecutionLog) error {
	if err := s.db.WithContext(ctx).Create(log).Error; err != nil {
		return apperr.InternalError("failed to write workflow execution log", err)
	}
	return nil
}
