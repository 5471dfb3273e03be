package domain

import "time"

// Agent is a voice-agent configuration bound to exactly one provider.
type Agent struct {
	ID            string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID      string    `json:"tenant_id" gorm:"type:uuid;not null;index"`
	SubTenantID   *string   `json:"sub_tenant_id,omitempty" gorm:"type:uuid;index"`
	Name          string    `json:"name" gorm:"type:varchar(255);not null"`
	Provider      Provider  `json:"provider" gorm:"type:varchar(32);not null"`
	ExternalID    string    `json:"external_id" gorm:"type:varchar(255);not null;uniqueIndex:idx_agent_provider_external"`
	DefaultPrompt string    `json:"default_prompt" gorm:"type:text"`
	Config        JSONB     `json:"config" gorm:"type:jsonb"` // opaque to the core
	WidgetEnabled bool      `json:"widget_enabled" gorm:"default:false"`
	WidgetConfig  JSONB     `json:"widget_config" gorm:"type:jsonb"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
	Disabled      bool      `json:"disabled" gorm:"default:false"`
}

// TableName sets the table name for Agent.
func (Agent) TableName() string { return "agents" }

// PhoneNumber is a tenant-owned number bound to a provider with optional
// distinct inbound/outbound agents.
type PhoneNumber struct {
	ID              string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID        string    `json:"tenant_id" gorm:"type:uuid;not null;uniqueIndex:idx_tenant_number"`
	Number          string    `json:"number" gorm:"type:varchar(32);not null;uniqueIndex:idx_tenant_number"`
	Provider        Provider  `json:"provider" gorm:"type:varchar(32);not null"`
	InboundAgentID  *string   `json:"inbound_agent_id,omitempty" gorm:"type:uuid"`
	OutboundAgentID *string   `json:"outbound_agent_id,omitempty" gorm:"type:uuid"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for PhoneNumber.
func (PhoneNumber) TableName() string { return "phone_numbers" }
