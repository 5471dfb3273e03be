package domain

import "time"

// CallStatus is the lifecycle state of a Call.
type CallStatus string

const (
	CallStatusQueued     CallStatus = "queued"
	CallStatusInProgress CallStatus = "in_progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
)

// CallDirection is the direction of a Call.
type CallDirection string

const (
	CallDirectionInbound  CallDirection = "inbound"
	CallDirectionOutbound CallDirection = "outbound"
)

func (s CallStatus) Terminal() bool {
	return s == CallStatusCompleted || s == CallStatusFailed
}

// Call is the canonical record for one voice-provider call.
type Call struct {
	ID          string        `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID    string        `json:"tenant_id" gorm:"type:uuid;not null;index"`
	AgentID     string        `json:"agent_id" gorm:"type:uuid;not null;index"`
	Provider    Provider      `json:"provider" gorm:"type:varchar(32);not null;uniqueIndex:idx_call_provider_external"`
	ExternalID  string        `json:"external_id" gorm:"type:varchar(255);not null;uniqueIndex:idx_call_provider_external"`
	Status      CallStatus    `json:"status" gorm:"type:varchar(32);not null;default:'queued'"`
	Direction   CallDirection `json:"direction" gorm:"type:varchar(16);not null"`
	FromNumber  string        `json:"from_number" gorm:"type:varchar(32)"`
	ToNumber    string        `json:"to_number" gorm:"type:varchar(32)"`
	DurationSec int           `json:"duration_sec" gorm:"default:0"`
	CostCents   int64         `json:"cost_cents" gorm:"default:0"`
	Transcript  string        `json:"transcript" gorm:"type:text"` // capped at 500,000 chars
	Voicemail   bool          `json:"voicemail" gorm:"default:false"`
	Sentiment   *string       `json:"sentiment,omitempty" gorm:"type:varchar(64)"`
	Topics      JSONB         `json:"topics,omitempty" gorm:"type:jsonb"`
	Score       *float64      `json:"score,omitempty"`
	Metadata    JSONB         `json:"metadata" gorm:"type:jsonb"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	EndedAt     *time.Time    `json:"ended_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for Call.
func (Call) TableName() string { return "calls" }
