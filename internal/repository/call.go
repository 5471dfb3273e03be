package repository

import (
	"context"

	"github.com/passthekeys/outbound-core/internal/apperr"
	"github.com/passthekeys/outbound-core/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateCall satisfies trigger.Store and scheduler.Store.
func (s *Store) CreateCall(ctx context.Context, c *domain.Call) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return apperr.InternalError("failed to create call", err)
	}
	return nil
}

// GetCallByID satisfies handler.callsStore.
func (s *Store) GetCallByID(ctx context.Context, id string) (*domain.Call, error) {
	var call domain.Call
	if err := s.db.WithContext(ctx).First(&call, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFoundError("call not found: " + id)
		}
		return nil, apperr.InternalError("failed to load call", err)
	}
	return &call, nil
}

// ListOngoingCallsByTenant satisfies handler.callsStore: every call for the
// tenant not yet in a terminal status, across every provider.
func (s *Store) ListOngoingCallsByTenant(ctx context.Context, tenantID string) ([]*domain.Call, error) {
	var calls []*domain.Call
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND status IN ?", tenantID, []domain.CallStatus{domain.CallStatusQueued, domain.CallStatusInProgress}).
		Order("created_at DESC").
		Find(&calls).Error
	if err != nil {
		return nil, apperr.InternalError("failed to list ongoing calls", err)
	}
	return calls, nil
}

// UpsertCall satisfies webhook.Store. It finds the Call keyed by
// (provider, external_id) under a row lock, applies mutate (which itself
// enforces the at-most-once terminal-status rule), and creates the row on
// first sight. The whole read-mutate-write happens inside one transaction
// so two concurrent webhook deliveries for the same call serialize instead
// of racing.
func (s *Store) UpsertCall(ctx context.Context, provider domain.Provider, externalID string, mutate func(c *domain.Call)) (*domain.Call, error) {
	var result domain.Call
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var call domain.Call
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("provider = ? AND external_id = ?", provider, externalID).
			First(&call).Error
		switch err {
		case nil:
			mutate(&call)
			if saveErr := tx.Save(&call).Error; saveErr != nil {
				return saveErr
			}
		case gorm.ErrRecordNotFound:
			call = domain.Call{}
			mutate(&call)
			if createErr := tx.Create(&call).Error; createErr != nil {
				return createErr
			}
		default:
			return err
		}
		result = call
		return nil
	})
	if err != nil {
		return nil, apperr.InternalError("failed to upsert call", err)
	}
	return &result, nil
}

// UpdateCallAnalysis satisfies analysis.Store: writes back the AI-derived
// fields (§3) once analysis completes, asynchronously to the call itself.
func (s *Store) UpdateCallAnalysis(ctx context.Context, callID string, sentiment *string, topics domain.JSONB, score *float64) error {
	result := s.db.WithContext(ctx).Model(&domain.Call{}).
		Where("id = ?", callID).
		Updates(map[string]interface{}{
			"sentiment": sentiment,
			"topics":    topics,
			"score":     score,
		})
	if result.Error != nil {
		return apperr.InternalError("failed to update call analysis", result.Error)
	}
	return nil
}
