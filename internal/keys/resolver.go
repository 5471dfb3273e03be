// Package keys implements the Key Resolver of §4.1: given a tenant, an
// optional subtenant, and a provider, it returns the API key to use.
package keys

import (
	"context"

	"github.com/passthekeys/outbound-core/internal/apperr"
	"github.com/passthekeys/outbound-core/internal/domain"
)

// Store is the subset of persistence the resolver needs. Kept narrow so
// callers can't accidentally cache results across webhook boundaries (a key
// rotation may occur between calls).
type Store interface {
	GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error)
	GetSubTenant(ctx context.Context, subTenantID string) (*domain.SubTenant, error)
}

// Resolved is the outcome of a successful resolution.
type Resolved struct {
	Key    string
	Source domain.KeySource
}

// Resolver resolves a provider API key from the current store snapshot. It
// is pure: it holds no state of its own and must not be cached across
// requests.
type Resolver struct {
	store Store
}

func New(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve implements the order of §4.1:
//  1. SubTenant override for the provider, if clientID is given.
//  2. Tenant's key for the provider.
//  3. NotConfigured.
func (r *Resolver) Resolve(ctx context.Context, tenantID string, subTenantID *string, provider domain.Provider) (*Resolved, error) {
	if subTenantID != nil && *subTenantID != "" {
		sub, err := r.store.GetSubTenant(ctx, *subTenantID)
		if err != nil {
			return nil, apperr.InternalError("loading subtenant for key resolution", err)
		}
		if sub.TenantID != tenantID {
			return nil, apperr.AuthorizationError("subtenant does not belong to tenant")
		}
		if key := sub.ProviderKeyFor(provider); key != "" {
			return &Resolved{Key: key, Source: domain.KeySourceSubTenant}, nil
		}
	}

	tenant, err := r.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, apperr.InternalError("loading tenant for key resolution", err)
	}
	if key := tenant.ProviderKeyFor(provider); key != "" {
		return &Resolved{Key: key, Source: domain.KeySourceTenant}, nil
	}

	return nil, apperr.ClientConfigurationError("no api key configured for provider " + string(provider))
}
