// Package task defines the human-review task model and its persistence
// over the namespaced key-value store.
package task

import "time"

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusRejected   Status = "rejected"
	StatusExpired    Status = "expired"
	StatusEscalated  Status = "escalated"
)

// Statuses lists every status in a fixed order, for dense counting.
var Statuses = []Status{
	StatusPending, StatusAssigned, StatusInProgress,
	StatusCompleted, StatusRejected, StatusExpired, StatusEscalated,
}

// Terminal reports whether the status permits no further mutation.
// Note escalated is NOT in the terminal set: a task escalated to the next
// chain level is still awaiting a response. See Task.Terminal for the
// exhausted-chain case.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusExpired
}

// Priority determines queue ordering.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityUrgent   Priority = "urgent"
	PriorityCritical Priority = "critical"
)

// Priorities lists every priority from lowest to highest.
var Priorities = []Priority{
	PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent, PriorityCritical,
}

// Rank returns the total-order position of a priority; critical is highest.
// Unknown values rank as normal.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityNormal:
		return 1
	case PriorityHigh:
		return 2
	case PriorityUrgent:
		return 3
	case PriorityCritical:
		return 4
	default:
		return 1
	}
}

// Decision is the reviewer's verdict on a task.
type Decision string

const (
	DecisionApprove  Decision = "approve"
	DecisionReject   Decision = "reject"
	DecisionDefer    Decision = "defer"
	DecisionEscalate Decision = "escalate"
)

// EscalationLevel is one step of an escalation chain.
type EscalationLevel struct {
	Assignees []string `json:"assignees" validate:"required,min=1"`
	TimeoutMs int64    `json:"timeout_ms" validate:"gt=0"`
	NotifyVia []string `json:"notify_via,omitempty"`
}

// BreachAction is the automatic policy applied when a task's SLA is breached.
type BreachAction string

const (
	BreachEscalate    BreachAction = "escalate"
	BreachAutoApprove BreachAction = "auto-approve"
	BreachAutoReject  BreachAction = "auto-reject"
	BreachNotify      BreachAction = "notify"
)

// SLAPolicy is the response-time budget attached to a task.
type SLAPolicy struct {
	TargetResponseMs   int64        `json:"target_response_ms,omitempty" validate:"gte=0"`
	MaxResponseMs      int64        `json:"max_response_ms,omitempty" validate:"gte=0"`
	WarningThresholdMs int64        `json:"warning_threshold_ms,omitempty" validate:"gte=0"`
	OnBreach           BreachAction `json:"on_breach,omitempty" validate:"omitempty,oneof=escalate auto-approve auto-reject notify"`
	NotifyOnBreach     []string     `json:"notify_on_breach,omitempty"`
}

// Response records how a task was resolved.
type Response struct {
	Decision       Decision  `json:"decision"`
	Comment        string    `json:"comment,omitempty"`
	RespondedBy    string    `json:"responded_by"`
	RespondedAt    time.Time `json:"responded_at"`
	ResponseTimeMs int64     `json:"response_time_ms"`
}

// Task is a human-review work item.
type Task struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Context     map[string]any `json:"context,omitempty"`

	Status   Status   `json:"status"`
	Priority Priority `json:"priority"`
	Assignee string   `json:"assignee,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Deadline  *time.Time `json:"deadline,omitempty"`   // soft, informational
	ExpiresAt *time.Time `json:"expires_at,omitempty"` // hard, triggers expiry

	EscalationChain []EscalationLevel `json:"escalation_chain,omitempty"`
	// EscalationLevel indexes EscalationChain once escalation has begun.
	EscalationLevel *int `json:"escalation_level,omitempty"`

	SLA      *SLAPolicy `json:"sla,omitempty"`
	Response *Response  `json:"response,omitempty"`

	CallbackURL string            `json:"callback_url,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Terminal reports whether the task permits no further mutation.
// A task whose escalation chain was exhausted keeps status escalated but
// carries a response, which makes it as final as completed/rejected/expired.
func (t *Task) Terminal() bool {
	if t.Status.Terminal() {
		return true
	}
	return t.Status == StatusEscalated && t.Response != nil
}

// CurrentLevel returns the active escalation level, defaulting to 0 when
// escalation has not begun.
func (t *Task) CurrentLevel() int {
	if t.EscalationLevel == nil {
		return 0
	}
	return *t.EscalationLevel
}
