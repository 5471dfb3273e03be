package domain

import (
	"encoding/json"
	"time"
)

// WorkflowTrigger identifies when a Workflow is eligible to run.
type WorkflowTrigger string

const (
	TriggerCallEnded        WorkflowTrigger = "call_ended"
	TriggerInboundCallEnded WorkflowTrigger = "inbound_call_ended"
)

// ConditionOperator enumerates the comparisons a Workflow condition may use.
type ConditionOperator string

const (
	OpEquals      ConditionOperator = "=="
	OpNotEquals   ConditionOperator = "!="
	OpGreater     ConditionOperator = ">"
	OpLess        ConditionOperator = "<"
	OpGreaterEq   ConditionOperator = ">="
	OpLessEq      ConditionOperator = "<="
	OpContains    ConditionOperator = "contains"
	OpNotContains ConditionOperator = "not_contains"
)

// Condition is one (field, operator, value) clause. All conditions on a
// Workflow must pass (AND semantics).
type Condition struct {
	Field    string            `json:"field"`
	Operator ConditionOperator `json:"operator"`
	Value    interface{}       `json:"value"`
}

// ActionType is drawn from a closed registry of ~40 values (§4.8.2).
type ActionType string

const (
	ActionWebhookHTTP ActionType = "webhook_http"

	ActionCRMLogCall               ActionType = "crm_log_call"
	ActionCRMUpsertContact         ActionType = "crm_upsert_contact"
	ActionCRMUpsertLead            ActionType = "crm_upsert_lead"
	ActionCRMAddTags               ActionType = "crm_add_tags"
	ActionCRMRemoveTags            ActionType = "crm_remove_tags"
	ActionCRMUpdatePipelineStage   ActionType = "crm_update_pipeline_stage"
	ActionCRMSetLeadScore          ActionType = "crm_set_lead_score"
	ActionCRMBookAppointment       ActionType = "crm_book_appointment"
	ActionCRMCancelAppointment     ActionType = "crm_cancel_appointment"
	ActionCRMRescheduleAppointment ActionType = "crm_reschedule_appointment"
	ActionCRMAddCallNote           ActionType = "crm_add_call_note"
	ActionCRMAddTask               ActionType = "crm_add_task"
	ActionCRMTriggerWorkflow       ActionType = "crm_trigger_workflow"
	ActionCRMUpdateField           ActionType = "crm_update_field"
	ActionCRMAssignOwner           ActionType = "crm_assign_owner"
	ActionCRMCreateDeal            ActionType = "crm_create_deal"
	ActionCRMUpdateDealStage       ActionType = "crm_update_deal_stage"
	ActionCRMAddToList             ActionType = "crm_add_to_list"
	ActionCRMRemoveFromList        ActionType = "crm_remove_from_list"

	ActionCalendarBookEvent       ActionType = "calendar_book_event"
	ActionCalendarCancelEvent     ActionType = "calendar_cancel_event"
	ActionCalendarRescheduleEvent ActionType = "calendar_reschedule_event"
	ActionCalendarCheckAvail      ActionType = "calendar_check_availability"
	ActionCalendarAddAttendee     ActionType = "calendar_add_attendee"

	ActionSchedulingAvailability ActionType = "scheduling_availability"
	ActionSchedulingBookingLink  ActionType = "scheduling_booking_link"
	ActionSchedulingCancel       ActionType = "scheduling_cancel"
	ActionSchedulingReschedule   ActionType = "scheduling_reschedule"

	ActionSendSMS           ActionType = "send_sms"
	ActionSendEmail         ActionType = "send_email"
	ActionSendFollowupSMS   ActionType = "send_followup_sms"
	ActionSendFollowupEmail ActionType = "send_followup_email"
	ActionChatNotify        ActionType = "chat_notify"
	ActionSlackNotify       ActionType = "slack_notify"
	ActionPagerNotify       ActionType = "pager_notify"
)

// ActionRegistry is the closed set of action types a Workflow may use.
// Types not in this set are a ValidationError at workflow save time.
var ActionRegistry = map[ActionType]bool{
	ActionWebhookHTTP: true,

	ActionCRMLogCall:               true,
	ActionCRMUpsertContact:         true,
	ActionCRMUpsertLead:            true,
	ActionCRMAddTags:               true,
	ActionCRMRemoveTags:            true,
	ActionCRMUpdatePipelineStage:   true,
	ActionCRMSetLeadScore:          true,
	ActionCRMBookAppointment:       true,
	ActionCRMCancelAppointment:     true,
	ActionCRMRescheduleAppointment: true,
	ActionCRMAddCallNote:           true,
	ActionCRMAddTask:               true,
	ActionCRMTriggerWorkflow:       true,
	ActionCRMUpdateField:           true,
	ActionCRMAssignOwner:           true,
	ActionCRMCreateDeal:            true,
	ActionCRMUpdateDealStage:       true,
	ActionCRMAddToList:             true,
	ActionCRMRemoveFromList:        true,

	ActionCalendarBookEvent:       true,
	ActionCalendarCancelEvent:     true,
	ActionCalendarRescheduleEvent: true,
	ActionCalendarCheckAvail:      true,
	ActionCalendarAddAttendee:     true,

	ActionSchedulingAvailability: true,
	ActionSchedulingBookingLink:  true,
	ActionSchedulingCancel:       true,
	ActionSchedulingReschedule:   true,

	ActionSendSMS:           true,
	ActionSendEmail:         true,
	ActionSendFollowupSMS:   true,
	ActionSendFollowupEmail: true,
	ActionChatNotify:        true,
	ActionSlackNotify:       true,
	ActionPagerNotify:       true,
}

// FatalStopActions may short-circuit the remaining action list by returning
// fatal_stop; webhook-type actions never do.
var FatalStopActions = map[ActionType]bool{
	ActionCRMUpsertContact: true,
	ActionCRMUpsertLead:    true,
}

// Action is one step of a Workflow's ordered action list.
type Action struct {
	Type   ActionType `json:"type"`
	Config JSONB      `json:"config"`
}

// Workflow is a post-call pipeline: trigger + AND-conditions + ordered
// actions.
type Workflow struct {
	ID         string          `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID   string          `json:"tenant_id" gorm:"type:uuid;not null;index"`
	AgentID    *string         `json:"agent_id,omitempty" gorm:"type:uuid;index"` // nil = applies to all agents
	Name       string          `json:"name" gorm:"type:varchar(255);not null"`
	Trigger    WorkflowTrigger `json:"trigger" gorm:"type:varchar(32);not null;index"`
	Conditions json.RawMessage `json:"conditions" gorm:"type:jsonb"` // []Condition
	Actions    json.RawMessage `json:"actions" gorm:"type:jsonb"`    // []Action, order preserved
	Enabled    bool            `json:"enabled" gorm:"default:true"`
	CreatedAt  time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for Workflow.
func (Workflow) TableName() string { return "workflows" }

// ActionOutcome is the per-action result classification.
type ActionOutcome string

const (
	ActionSuccess ActionOutcome = "success"
	ActionFailed  ActionOutcome = "failed"
	ActionSkipped ActionOutcome = "skipped"
)

// WorkflowExecutionStatus is the aggregate status of one run (§4.8.4).
type WorkflowExecutionStatus string

const (
	ExecutionCompleted      WorkflowExecutionStatus = "completed"
	ExecutionPartialFailure WorkflowExecutionStatus = "partial_failure"
	ExecutionFailed         WorkflowExecutionStatus = "failed"
	ExecutionSkipped        WorkflowExecutionStatus = "skipped"
)

// ActionResult is the per-action record written into a
// WorkflowExecutionLog.
type ActionResult struct {
	Index       int           `json:"index"`
	Type        ActionType    `json:"type"`
	Status      ActionOutcome `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	DurationMs  int64         `json:"duration_ms"`
	Attempts    int           `json:"attempts"`
	Error       string        `json:"error,omitempty"`
}

// WorkflowExecutionLog is an immutable record of one Workflow execution
// against one Call.
type WorkflowExecutionLog struct {
	ID               string                  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID         string                  `json:"tenant_id" gorm:"type:uuid;not null;index"`
	WorkflowID       string                  `json:"workflow_id" gorm:"type:uuid;not null;index"`
	CallID           string                  `json:"call_id" gorm:"type:uuid;not null;index"`
	Status           WorkflowExecutionStatus `json:"status" gorm:"type:varchar(32);not null"`
	ActionsSucceeded int                     `json:"actions_succeeded"`
	ActionsFailed    int                     `json:"actions_failed"`
	ActionsSkipped   int                     `json:"actions_skipped"`
	Results          json.RawMessage         `json:"results" gorm:"type:jsonb"` // []ActionResult
	StartedAt        time.Time               `json:"started_at"`
	CompletedAt      time.Time               `json:"completed_at"`
	CreatedAt        time.Time               `json:"created_at" gorm:"autoCreateTime"`
}

// TableName sets the table name for WorkflowExecutionLog.
func (WorkflowExecutionLog) TableName() string { return "workflow_execution_logs" }
