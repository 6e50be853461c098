package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// CreateInput is the caller-supplied payload for creating a task.
type CreateInput struct {
	Type        string         `json:"type" validate:"required"`
	Title       string         `json:"title" validate:"required"`
	Description string         `json:"description,omitempty"`
	Context     map[string]any `json:"context,omitempty"`

	Priority Priority `json:"priority,omitempty" validate:"omitempty,oneof=low normal high urgent critical"`
	Assignee string   `json:"assignee,omitempty"`

	Deadline  *time.Time `json:"deadline,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	// TimeoutMs derives ExpiresAt at creation when no absolute time is given.
	TimeoutMs int64 `json:"timeout_ms,omitempty" validate:"gte=0"`

	EscalationChain []EscalationLevel `json:"escalation_chain,omitempty" validate:"omitempty,dive"`
	SLA             *SLAPolicy        `json:"sla,omitempty"`

	CallbackURL string            `json:"callback_url,omitempty" validate:"omitempty,url"`
	Tags        []string          `json:"tags,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// RespondInput is the caller-supplied payload for resolving a task.
type RespondInput struct {
	Decision    Decision `json:"decision" validate:"required,oneof=approve reject defer escalate"`
	Comment     string   `json:"comment,omitempty"`
	RespondedBy string   `json:"responded_by" validate:"required"`
}

// UpdatePatch is a partial update. Nil fields are left untouched;
// id, createdAt, and status are never writable through a patch.
type UpdatePatch struct {
	Title       *string           `json:"title,omitempty"`
	Description *string           `json:"description,omitempty"`
	Context     map[string]any    `json:"context,omitempty"`
	Priority    *Priority         `json:"priority,omitempty" validate:"omitempty,oneof=low normal high urgent critical"`
	Deadline    *time.Time        `json:"deadline,omitempty"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
	CallbackURL *string           `json:"callback_url,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// FeedbackInput is the caller-supplied payload for submitting feedback.
type FeedbackInput struct {
	TaskID     string            `json:"task_id" validate:"required"`
	Rating     int               `json:"rating,omitempty" validate:"gte=0,lte=5"`
	Comment    string            `json:"comment,omitempty"`
	Source     string            `json:"source,omitempty"`
	ProvidedBy string            `json:"provided_by,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

var validate = validator.New()

// Validate checks a tagged input struct and returns a single readable error.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("field %s failed rule %q", e.StructNamespace(), e.Tag()))
	}
	return fmt.Errorf("invalid input: %s", strings.Join(msgs, "; "))
}
