package domain

import "time"

// ExperimentStatus is the lifecycle state of an Experiment.
type ExperimentStatus string

const (
	ExperimentDraft     ExperimentStatus = "draft"
	ExperimentRunning   ExperimentStatus = "running"
	ExperimentPaused    ExperimentStatus = "paused"
	ExperimentCompleted ExperimentStatus = "completed"
)

// Experiment is a per-agent A/B definition. Invariant: at most one running
// experiment per agent; variant weights sum to 100.
type Experiment struct {
	ID        string           `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID  string           `json:"tenant_id" gorm:"type:uuid;not null;index"`
	AgentID   string           `json:"agent_id" gorm:"type:uuid;not null;index"`
	Name      string           `json:"name" gorm:"type:varchar(255);not null"`
	Status    ExperimentStatus `json:"status" gorm:"type:varchar(32);not null;default:'draft'"`
	Variants  []Variant        `json:"variants" gorm:"foreignKey:ExperimentID"`
	CreatedAt time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for Experiment.
func (Experiment) TableName() string { return "experiments" }

// Variant is one arm of an Experiment.
type Variant struct {
	ID             string `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ExperimentID   string `json:"experiment_id" gorm:"type:uuid;not null;index"`
	Name           string `json:"name" gorm:"type:varchar(255);not null"`
	Weight         int    `json:"weight" gorm:"not null"` // cumulative weights across variants sum to 100
	IsControl      bool   `json:"is_control" gorm:"default:false"`
	PromptOverride string `json:"prompt_override" gorm:"type:text"`
}

// TableName sets the table name for Variant.
func (Variant) TableName() string { return "variants" }
