package repository

import (
	"context"

	"github.com/passthekeys/outbound-core/internal/apperr"
	"github.com/passthekeys/outbound-core/internal/domain"
	"gorm.io/gorm"
)

// GetAgent satisfies trigger.Store, scheduler.Store, and webhook.Store.
func (s *Store) GetAgent(ctx context.Context, agentID string) (*domain.Agent, error) {
	var agent domain.Agent
	if err := s.db.WithContext(ctx).First(&agent, "id = ?", agentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFoundError("agent not found: " + agentID)
		}
		return nil, apperr.InternalError("failed to load agent", err)
	}
	return &agent, nil
}

// GetAgentByExternalID satisfies webhook.Store.
func (s *Store) GetAgentByExternalID(ctx context.Context, provider domain.Provider, externalID string) (*domain.Agent, error) {
	var agent domain.Agent
	err := s.db.WithContext(ctx).
		Where("provider = ? AND external_id = ?", provider, externalID).
		First(&agent).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFoundError("agent not found for provider/external id")
		}
		return nil, apperr.InternalError("failed to load agent by external id", err)
	}
	return &agent, nil
}

// GetPhoneNumberByFromNumber satisfies trigger.Store.
func (s *Store) GetPhoneNumberByFromNumber(ctx context.Context, tenantID, fromNumber string) (*domain.PhoneNumber, error) {
	var phone domain.PhoneNumber
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND number = ?", tenantID, fromNumber).
		First(&phone).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFoundError("phone number not found: " + fromNumber)
		}
		return nil, apperr.InternalError("failed to load phone number", err)
	}
	return &phone, nil
}

// GetRunningExperiment satisfies trigger.Store and scheduler.Store. Per the
// invariant that at most one experiment runs per agent, LIMIT 1 is safe.
func (s *Store) GetRunningExperiment(ctx context.Context, agentID string) (*domain.Experiment, error) {
	var experiment domain.Experiment
	err := s.db.WithContext(ctx).
		Preload("Variants").
		Where("agent_id = ? AND status = ?", agentID, domain.ExperimentRunning).
		First(&experiment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, apperr.InternalError("failed to load running experiment", err)
	}
	return &experiment, nil
}
