package repository

import (
	"context"

	"github.com/passthekeys/outbound-core/internal/apperr"
	"github.com/passthekeys/outbound-core/internal/domain"
	"github.com/passthekeys/outbound-core/internal/trigger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetTenant satisfies keys.Store.
func (s *Store) GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	return s.getTenantByID(ctx, tenantID)
}

// GetTenantByID satisfies webhook.Store and workflow.Store.
func (s *Store) GetTenantByID(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	return s.getTenantByID(ctx, tenantID)
}

func (s *Store) getTenantByID(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	var tenant domain.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, "id = ?", tenantID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFoundError("tenant not found: " + tenantID)
		}
		return nil, apperr.InternalError("failed to load tenant", err)
	}
	return &tenant, nil
}

// GetSubTenant satisfies keys.Store.
func (s *Store) GetSubTenant(ctx context.Context, subTenantID string) (*domain.SubTenant, error) {
	var sub domain.SubTenant
	if err := s.db.WithContext(ctx).First(&sub, "id = ?", subTenantID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFoundError("sub tenant not found: " + subTenantID)
		}
		return nil, apperr.InternalError("failed to load sub tenant", err)
	}
	return &sub, nil
}

// ResolveTenantByCRMLocation satisfies trigger.Store: looks up the tenant
// whose CRM A/B integration is bound to this location/portal id.
func (s *Store) ResolveTenantByCRMLocation(ctx context.Context, source trigger.Source, locationOrPortalID string) (*domain.Tenant, error) {
	var field string
	switch source {
	case trigger.SourceCRMA:
		field = "integrations->'crm_a'->>'portal_or_location_id'"
	case trigger.SourceCRMB:
		field = "integrations->'crm_b'->>'portal_or_location_id'"
	default:
		return nil, apperr.ValidationError("unsupported CRM trigger source %q", source)
	}

	var tenant domain.Tenant
	err := s.db.WithContext(ctx).
		Where(field+" = ?", locationOrPortalID).
		Where("disabled = ?", false).
		First(&tenant).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFoundError("no tenant bound to CRM location " + locationOrPortalID)
		}
		return nil, apperr.InternalError("failed to resolve tenant by CRM location", err)
	}
	return &tenant, nil
}

// ResolveTenantByAPIKey satisfies trigger.Store. The generic API key is
// stored on IntegrationConfigs.GenericAPIKey.
func (s *Store) ResolveTenantByAPIKey(ctx context.Context, apiKey string) (*domain.Tenant, error) {
	if apiKey == "" {
		return nil, apperr.AuthenticationError("missing API key")
	}
	var tenant domain.Tenant
	err := s.db.WithContext(ctx).
		Where("integrations->>'generic_api_key' = ?", apiKey).
		Where("disabled = ?", false).
		First(&tenant).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.AuthenticationError("unknown API key")
		}
		return nil, apperr.InternalError("failed to resolve tenant by API key", err)
	}
	return &tenant, nil
}

// UpdateTenantIntegrations satisfies workflow.TenantUpdater: loads the
// tenant under the row lock, applies mutate to its Integrations, and
// persists the result, so concurrent OAuth refreshes for different
// integrations don't clobber each other.
func (s *Store) UpdateTenantIntegrations(ctx context.Context, tenantID string, mutate func(*domain.IntegrationConfigs)) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tenant domain.Tenant
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&tenant, "id = ?", tenantID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFoundError("tenant not found: " + tenantID)
			}
			return apperr.InternalError("failed to load tenant for integration update", err)
		}
		mutate(&tenant.Integrations)
		if err := tx.Model(&tenant).Update("integrations", tenant.Integrations).Error; err != nil {
			return apperr.InternalError("failed to persist tenant integrations", err)
		}
		return nil
	})
}

// IncrementUsage satisfies webhook.Store: atomically bumps a SubTenant's
// accumulated per-minute usage.
func (s *Store) IncrementUsage(ctx context.Context, subTenantID string, cents int64) error {
	result := s.db.WithContext(ctx).Model(&domain.SubTenant{}).
		Where("id = ?", subTenantID).
		UpdateColumn("usage_accumulated_cents", gorm.Expr("usage_accumulated_cents + ?", cents))
	if result.Error != nil {
		return apperr.InternalError("failed to increment usage", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFoundError("sub tenant not found: " + subTenantID)
	}
	return nil
}
