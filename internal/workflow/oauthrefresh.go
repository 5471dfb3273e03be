package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/passthekeys/outbound-core/internal/clock"
	"github.com/passthekeys/outbound-core/internal/domain"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// integration names the two OAuth-based integrations the executor may need
// a fresh access token for.
type integration string

const (
	integrationCRMB     integration = "crm_b"
	integrationCalendar integration = "calendar"
)

// refreshBuffer is how far ahead of expiry a token is proactively refreshed.
const refreshBuffer = 60 * time.Second

// OAuthEndpoints configures where each integration's token endpoint lives.
type OAuthEndpoints struct {
	CRMBClientID         string
	CRMBClientSecret     string
	CRMBTokenURL         string
	CalendarClientID     string
	CalendarClientSecret string
	CalendarTokenURL     string
}

// TenantUpdater persists a refreshed token pair back onto the Tenant record
// before the caller proceeds (§4.8 Integration token refresh).
type TenantUpdater interface {
	UpdateTenantIntegrations(ctx context.Context, tenantID string, mutate func(*domain.IntegrationConfigs)) error
}

// TokenRefresher guards CRM B / calendar vendor refresh-token exchanges with
// a single-flight group so a single-use refresh token is consumed once even
// when multiple workflow actions race for the same tenant.
type TokenRefresher struct {
	store     TenantUpdater
	endpoints OAuthEndpoints
	clock     clock.Clock
	group     singleflight.Group
}

func NewTokenRefresher(store TenantUpdater, endpoints OAuthEndpoints, clk clock.Clock) *TokenRefresher {
	if clk == nil {
		clk = clock.Real{}
	}
	return &TokenRefresher{store: store, endpoints: endpoints, clock: clk}
}

// AccessToken returns a valid access token for the given integration on
// tenant, refreshing it first if it is absent or within refreshBuffer of
// expiry.
func (r *TokenRefresher) AccessToken(ctx context.Context, tenant *domain.Tenant, in integration) (string, error) {
	enabled, accessToken, refreshToken, expiresAt := r.currentToken(tenant, in)
	if !enabled {
		return "", fmt.Errorf("%s integration not enabled for tenant %s", in, tenant.ID)
	}
	if accessToken != "" && expiresAt != nil && expiresAt.After(r.clock.Now().Add(refreshBuffer)) {
		return accessToken, nil
	}
	if refreshToken == "" {
		return "", fmt.Errorf("%s integration for tenant %s has no refresh token", in, tenant.ID)
	}

	key := tenant.ID + ":" + string(in)
	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		oauthCfg, err := r.oauthConfig(in)
		if err != nil {
			return "", err
		}
		token, err := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
		if err != nil {
			return "", fmt.Errorf("refreshing %s token: %w", in, err)
		}
		if err := r.store.UpdateTenantIntegrations(ctx, tenant.ID, func(ic *domain.IntegrationConfigs) {
			r.applyRefreshedToken(ic, in, token)
		}); err != nil {
			return "", fmt.Errorf("persisting refreshed %s token: %w", in, err)
		}
		return token.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *TokenRefresher) currentToken(tenant *domain.Tenant, in integration) (enabled bool, accessToken, refreshToken string, expiresAt *time.Time) {
	switch in {
	case integrationCRMB:
		c := tenant.Integrations.CRMB
		return c.Enabled, c.AccessToken, c.RefreshToken, c.TokenExpiresAt
	case integrationCalendar:
		c := tenant.Integrations.Calendar
		return c.Enabled, c.AccessToken, c.RefreshToken, c.TokenExpiresAt
	default:
		return false, "", "", nil
	}
}

func (r *TokenRefresher) applyRefreshedToken(ic *domain.IntegrationConfigs, in integration, token *oauth2.Token) {
	expiry := token.Expiry
	switch in {
	case integrationCRMB:
		ic.CRMB.AccessToken = token.AccessToken
		if token.RefreshToken != "" {
			ic.CRMB.RefreshToken = token.RefreshToken
		}
		ic.CRMB.TokenExpiresAt = &expiry
	case integrationCalendar:
		ic.Calendar.AccessToken = token.AccessToken
		if token.RefreshToken != "" {
			ic.Calendar.RefreshToken = token.RefreshToken
		}
		ic.Calendar.TokenExpiresAt = &expiry
	}
}

func (r *TokenRefresher) oauthConfig(in integration) (*oauth2.Config, error) {
	switch in {
	case integrationCRMB:
		if r.endpoints.CRMBTokenURL == "" {
			return nil, fmt.Errorf("crm_b oauth endpoint not configured")
		}
		return &oauth2.Config{
			ClientID:     r.endpoints.CRMBClientID,
			ClientSecret: r.endpoints.CRMBClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: r.endpoints.CRMBTokenURL},
		}, nil
	case integrationCalendar:
		if r.endpoints.CalendarTokenURL == "" {
			return nil, fmt.Errorf("calendar oauth endpoint not configured")
		}
		return &oauth2.Config{
			ClientID:     r.endpoints.CalendarClientID,
			ClientSecret: r.endpoints.CalendarClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: r.endpoints.CalendarTokenURL},
		}, nil
	default:
		return nil, fmt.Errorf("unknown integration %s", in)
	}
}
