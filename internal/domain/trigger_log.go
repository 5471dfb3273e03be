package domain

import "time"

// TriggerLogStatus is the outcome of one inbound trigger.
type TriggerLogStatus string

const (
	TriggerLogInitiated TriggerLogStatus = "initiated"
	TriggerLogScheduled TriggerLogStatus = "scheduled"
	TriggerLogFailed    TriggerLogStatus = "failed"
)

// TriggerLog is an immutable per-inbound-trigger audit row.
type TriggerLog struct {
	ID              string           `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID        string           `json:"tenant_id" gorm:"type:uuid;index"`
	Source          TriggerSource    `json:"source" gorm:"type:varchar(32);not null"`
	Status          TriggerLogStatus `json:"status" gorm:"type:varchar(32);not null"`
	ResolvedAgentID *string          `json:"resolved_agent_id,omitempty" gorm:"type:uuid"`
	LeadTimezone    *string          `json:"lead_timezone,omitempty" gorm:"type:varchar(64)"`
	ErrorMessage    *string          `json:"error_message,omitempty" gorm:"type:text"`
	Payload         JSONB            `json:"payload" gorm:"type:jsonb"` // redacted inbound request
	CreatedAt       time.Time        `json:"created_at" gorm:"autoCreateTime"`
}

// TableName sets the table name for TriggerLog.
func (TriggerLog) TableName() string { return "trigger_logs" }
