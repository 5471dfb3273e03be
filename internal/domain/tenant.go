package domain

import (
	"database/sql/driver"
	"time"
)

// ProviderKeys holds a tenant's (or subtenant's) API key for each of the
// three supported voice providers. Any slot may be empty.
type ProviderKeys struct {
	ProviderA string `json:"provider_a,omitempty"`
	ProviderB string `json:"provider_b,omitempty"`
	ProviderC string `json:"provider_c,omitempty"`
}

func (k ProviderKeys) forProvider(p Provider) string {
	switch p {
	case ProviderA:
		return k.ProviderA
	case ProviderB:
		return k.ProviderB
	case ProviderC:
		return k.ProviderC
	default:
		return ""
	}
}

// CRMIntegrationConfig models one CRM connection (CRM A or CRM B). Kept as
// an explicit struct rather than a denormalized blob per the redesign notes.
type CRMIntegrationConfig struct {
	Enabled          bool       `json:"enabled"`
	PortalOrLocation string     `json:"portal_or_location_id,omitempty"`
	WebhookSecret    string     `json:"webhook_secret,omitempty"`
	DefaultAgentID   string     `json:"default_agent_id,omitempty"`
	AccessToken      string     `json:"access_token,omitempty"`
	RefreshToken     string     `json:"refresh_token,omitempty"`
	TokenExpiresAt   *time.Time `json:"token_expires_at,omitempty"`
}

// CalendarIntegrationConfig models the calendar vendor connection.
type CalendarIntegrationConfig struct {
	Enabled        bool       `json:"enabled"`
	AccessToken    string     `json:"access_token,omitempty"`
	RefreshToken   string     `json:"refresh_token,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
	CalendarID     string     `json:"calendar_id,omitempty"`
}

// SchedulingVendorConfig models the scheduling-link vendor connection.
type SchedulingVendorConfig struct {
	Enabled bool   `json:"enabled"`
	APIKey  string `json:"api_key,omitempty"`
}

// ChatWebhookConfig models a chat-notification webhook target.
type ChatWebhookConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url,omitempty"`
}

// StripeConnectConfig is opaque billing settings; only the fields the core
// needs to reason about are modeled.
type StripeConnectConfig struct {
	ConnectedAccountID string `json:"connected_account_id,omitempty"`
	SubscriptionState  string `json:"subscription_state,omitempty"` // invariant: single active state
}

// IntegrationConfigs groups every third-party integration a Tenant may
// have configured. Each integration is an explicit field, not a
// back-reference into a shared blob (§9 Design Notes).
type IntegrationConfigs struct {
	CRMA             CRMIntegrationConfig      `json:"crm_a"`
	CRMB             CRMIntegrationConfig      `json:"crm_b"`
	Calendar         CalendarIntegrationConfig `json:"calendar"`
	SchedulingVendor SchedulingVendorConfig    `json:"scheduling_vendor"`
	ChatWebhook      ChatWebhookConfig         `json:"chat_webhook"`
	GenericAPIKey    string                    `json:"generic_api_key,omitempty"` // pdy_sk_<64hex>
}

func (i IntegrationConfigs) Value() (driver.Value, error) { return jsonValue(i) }
func (i *IntegrationConfigs) Scan(v interface{}) error    { return jsonScan(v, i) }

// Tenant is the top-level account owning every other entity.
type Tenant struct {
	ID            string              `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name          string              `json:"name" gorm:"type:varchar(255);not null"`
	ProviderKeys  ProviderKeys        `json:"provider_keys" gorm:"type:jsonb;serializer:json"`
	DefaultWindow CallingWindow       `json:"default_window" gorm:"type:jsonb;serializer:json"`
	Integrations  IntegrationConfigs  `json:"integrations" gorm:"type:jsonb;serializer:json"`
	Stripe        StripeConnectConfig `json:"stripe" gorm:"type:jsonb;serializer:json"`
	CreatedAt     time.Time           `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time           `json:"updated_at" gorm:"autoUpdateTime"`
	Disabled      bool                `json:"disabled" gorm:"default:false"`
}

// TableName sets the table name for Tenant.
func (Tenant) TableName() string { return "tenants" }

// BillingType enumerates how a SubTenant is billed.
type BillingType string

const (
	BillingSubscription BillingType = "subscription"
	BillingPerMinute    BillingType = "per_minute"
	BillingOneShot      BillingType = "one_shot"
)

// SubTenantPermissions overrides tenant defaults for one customer of a
// Tenant.
type SubTenantPermissions struct {
	CanSchedule       bool `json:"can_schedule"`
	CanUseAIAnalysis  bool `json:"can_use_ai_analysis"`
	CanOverrideWindow bool `json:"can_override_window"`
}

func (p SubTenantPermissions) Value() (driver.Value, error) { return jsonValue(p) }
func (p *SubTenantPermissions) Scan(v interface{}) error    { return jsonScan(v, p) }

// SubTenant is a Tenant's customer (called a "client" in the source).
type SubTenant struct {
	ID                    string               `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID              string               `json:"tenant_id" gorm:"type:uuid;not null;index"`
	Name                  string               `json:"name" gorm:"type:varchar(255);not null"`
	ProviderKeyOverrides  ProviderKeys         `json:"provider_key_overrides" gorm:"type:jsonb;serializer:json"`
	Permissions           SubTenantPermissions `json:"permissions" gorm:"type:jsonb;serializer:json"`
	BillingType           BillingType          `json:"billing_type" gorm:"type:varchar(32);not null;default:'subscription'"`
	PerMinuteRateCents    int                  `json:"per_minute_rate_cents" gorm:"default:0"`
	UsageAccumulatedCents int64                `json:"usage_accumulated_cents" gorm:"default:0"`
	AIAnalysisEnabled     bool                 `json:"ai_analysis_enabled" gorm:"default:false"`
	CreatedAt             time.Time            `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt             time.Time            `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for SubTenant.
func (SubTenant) TableName() string { return "sub_tenants" }

// ProviderKeyFor returns the override for a provider, if set.
func (s SubTenant) ProviderKeyFor(p Provider) string {
	return s.ProviderKeyOverrides.forProvider(p)
}

// ProviderKeyFor returns the tenant-level key for a provider, if set.
func (t Tenant) ProviderKeyFor(p Provider) string {
	return t.ProviderKeys.forProvider(p)
}
