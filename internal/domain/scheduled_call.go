package domain

import "time"

// ScheduledCallStatus is the lifecycle state of a ScheduledCall (§4.6).
type ScheduledCallStatus string

const (
	ScheduledCallPending    ScheduledCallStatus = "pending"
	ScheduledCallInProgress ScheduledCallStatus = "in_progress"
	ScheduledCallCompleted  ScheduledCallStatus = "completed"
	ScheduledCallFailed     ScheduledCallStatus = "failed"
	ScheduledCallCancelled  ScheduledCallStatus = "cancelled"
)

// TriggerSource identifies which ingress source created the trigger.
type TriggerSource string

const (
	TriggerSourceCRMA      TriggerSource = "crm_a"
	TriggerSourceCRMB      TriggerSource = "crm_b"
	TriggerSourceAPI       TriggerSource = "api"
	TriggerSourceDashboard TriggerSource = "dashboard"
)

// ScheduledCall is a pending outbound intent awaiting the calling window.
type ScheduledCall struct {
	ID                  string              `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID            string              `json:"tenant_id" gorm:"type:uuid;not null;index"`
	SubTenantID         *string             `json:"sub_tenant_id,omitempty" gorm:"type:uuid"`
	AgentID             string              `json:"agent_id" gorm:"type:uuid;not null"`
	ToNumber            string              `json:"to_number" gorm:"type:varchar(32);not null"`
	FromNumber          string              `json:"from_number" gorm:"type:varchar(32)"`
	LeadTimezone        *string             `json:"lead_timezone,omitempty" gorm:"type:varchar(64)"`
	ScheduledAt         time.Time           `json:"scheduled_at" gorm:"not null;index"`
	OriginalScheduledAt time.Time           `json:"original_scheduled_at"`
	TimezoneDelayed     bool                `json:"timezone_delayed" gorm:"default:false"`
	Status              ScheduledCallStatus `json:"status" gorm:"type:varchar(32);not null;default:'pending';index"`
	TriggerSource       TriggerSource       `json:"trigger_source" gorm:"type:varchar(32);not null"`
	CorrelationID       string              `json:"correlation_id" gorm:"type:varchar(255)"` // CRM contact id
	RetryCount          int                 `json:"retry_count" gorm:"default:0"`
	MaxRetries          int                 `json:"max_retries" gorm:"default:3"`
	ErrorMessage        *string             `json:"error_message,omitempty" gorm:"type:text"`
	ExternalCallID      *string             `json:"external_call_id,omitempty" gorm:"type:varchar(255)"`
	Metadata            JSONB               `json:"metadata" gorm:"type:jsonb"`
	CompletedAt         *time.Time          `json:"completed_at,omitempty"`
	CreatedAt           time.Time           `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt           time.Time           `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for ScheduledCall.
func (ScheduledCall) TableName() string { return "scheduled_calls" }
