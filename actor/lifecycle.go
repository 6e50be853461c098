package actor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/GoCodeAlone/triage/task"
)

// CreateTask validates the input and persists a new task. Tasks with an
// assignee start assigned, otherwise pending. A relative TimeoutMs is
// resolved to an absolute ExpiresAt at creation.
func (a *Instance) CreateTask(ctx context.Context, in task.CreateInput) (*task.Task, error) {
	if err := task.Validate(in); err != nil {
		return nil, err
	}
	var t *task.Task
	var opErr error
	err := a.do(ctx, func() {
		t, opErr = a.createTask(ctx, in)
	})
	if err != nil {
		return nil, err
	}
	return t, opErr
}

func (a *Instance) createTask(ctx context.Context, in task.CreateInput) (*task.Task, error) {
	now := a.clock.Now()

	status := task.StatusPending
	if in.Assignee != "" {
		status = task.StatusAssigned
	}
	priority := in.Priority
	if priority == "" {
		priority = task.PriorityNormal
	}
	expiresAt := in.ExpiresAt
	if expiresAt == nil && in.TimeoutMs > 0 {
		at := now.Add(time.Duration(in.TimeoutMs) * time.Millisecond)
		expiresAt = &at
	}

	t := &task.Task{
		ID:              uuid.NewString(),
		Type:            in.Type,
		Title:           in.Title,
		Description:     in.Description,
		Context:         in.Context,
		Status:          status,
		Priority:        priority,
		Assignee:        in.Assignee,
		CreatedAt:       now,
		UpdatedAt:       now,
		Deadline:        in.Deadline,
		ExpiresAt:       expiresAt,
		EscalationChain: in.EscalationChain,
		SLA:             in.SLA,
		CallbackURL:     in.CallbackURL,
		Tags:            in.Tags,
		Metadata:        in.Metadata,
	}
	if err := a.store.PutTask(ctx, t); err != nil {
		return nil, err
	}
	a.broadcast("task_created", t)

	if hasDeadline(t) {
		if err := a.recompute(ctx); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// hasDeadline reports whether the task contributes a wake-up candidate.
func hasDeadline(t *task.Task) bool {
	if t.ExpiresAt != nil || len(t.EscalationChain) > 0 {
		return true
	}
	return t.SLA != nil && t.SLA.WarningThresholdMs > 0
}

// GetTask returns a task by ID, or (nil, nil) when absent.
func (a *Instance) GetTask(ctx context.Context, id string) (*task.Task, error) {
	var t *task.Task
	var opErr error
	err := a.do(ctx, func() {
		t, opErr = a.store.GetTask(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return t, opErr
}

// ListTasks returns every task in the instance.
func (a *Instance) ListTasks(ctx context.Context) ([]*task.Task, error) {
	var tasks []*task.Task
	var opErr error
	err := a.do(ctx, func() {
		tasks, opErr = a.store.ListTasks(ctx)
	})
	if err != nil {
		return nil, err
	}
	return tasks, opErr
}

// mutate loads a task and, when it exists and is not terminal, applies fn
// and persists the result. Missing and terminal tasks yield (nil, nil):
// absence is a signal, not an error, and terminal tasks are immutable.
func (a *Instance) mutate(ctx context.Context, id string, fn func(t *task.Task)) (*task.Task, error) {
	t, err := a.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil || t.Terminal() {
		return nil, nil
	}
	fn(t)
	t.UpdatedAt = a.clock.Now()
	if err := a.store.PutTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// AssignTask assigns a task and moves it to assigned. No-op on missing or
// terminal tasks.
func (a *Instance) AssignTask(ctx context.Context, id, assignee string) (*task.Task, error) {
	var t *task.Task
	var opErr error
	err := a.do(ctx, func() {
		t, opErr = a.mutate(ctx, id, func(t *task.Task) {
			t.Assignee = assignee
			t.Status = task.StatusAssigned
		})
		if opErr == nil && t != nil {
			a.broadcast("task_assigned", t)
			opErr = a.recompute(ctx)
		}
	})
	if err != nil {
		return nil, err
	}
	return t, opErr
}

// UnassignTask clears the assignee and returns the task to pending.
func (a *Instance) UnassignTask(ctx context.Context, id string) (*task.Task, error) {
	var t *task.Task
	var opErr error
	err := a.do(ctx, func() {
		t, opErr = a.mutate(ctx, id, func(t *task.Task) {
			t.Assignee = ""
			t.Status = task.StatusPending
		})
		if opErr == nil && t != nil {
			a.broadcast("task_unassigned", t)
			opErr = a.recompute(ctx)
		}
	})
	if err != nil {
		return nil, err
	}
	return t, opErr
}

// StartTask moves a task to in_progress, auto-assigning the worker when
// the task is unassigned.
func (a *Instance) StartTask(ctx context.Context, id, worker string) (*task.Task, error) {
	var t *task.Task
	var opErr error
	err := a.do(ctx, func() {
		t, opErr = a.mutate(ctx, id, func(t *task.Task) {
			if t.Assignee == "" {
				t.Assignee = worker
			}
			t.Status = task.StatusInProgress
		})
		if opErr == nil && t != nil {
			a.broadcast("task_started", t)
			opErr = a.recompute(ctx)
		}
	})
	if err != nil {
		return nil, err
	}
	return t, opErr
}

// RespondToTask records the reviewer's decision and moves the task to its
// final status: reject → rejected, escalate → escalated, anything else →
// completed. No-op on missing or terminal tasks.
func (a *Instance) RespondToTask(ctx context.Context, id string, in task.RespondInput) (*task.Task, error) {
	if err := task.Validate(in); err != nil {
		return nil, err
	}
	var t *task.Task
	var opErr error
	err := a.do(ctx, func() {
		t, opErr = a.respondByID(ctx, id, in)
	})
	if err != nil {
		return nil, err
	}
	return t, opErr
}

func (a *Instance) respondByID(ctx context.Context, id string, in task.RespondInput) (*task.Task, error) {
	t, err := a.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil || t.Terminal() {
		return nil, nil
	}
	return a.respond(ctx, t, in)
}

// respond applies a response to an already-loaded, non-terminal task.
func (a *Instance) respond(ctx context.Context, t *task.Task, in task.RespondInput) (*task.Task, error) {
	now := a.clock.Now()
	rt := now.Sub(t.CreatedAt).Milliseconds()
	if rt < 0 {
		rt = 0
	}
	t.Response = &task.Response{
		Decision:       in.Decision,
		Comment:        in.Comment,
		RespondedBy:    in.RespondedBy,
		RespondedAt:    now,
		ResponseTimeMs: rt,
	}
	switch in.Decision {
	case task.DecisionReject:
		t.Status = task.StatusRejected
	case task.DecisionEscalate:
		t.Status = task.StatusEscalated
	default: // approve, defer
		t.Status = task.StatusCompleted
	}
	t.UpdatedAt = now

	if err := a.store.PutTask(ctx, t); err != nil {
		return nil, err
	}
	a.callback(t, "task_responded")
	a.broadcast("task_responded", t)
	if err := a.recompute(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// Approve resolves a task with decision approve.
func (a *Instance) Approve(ctx context.Context, id, by, comment string) (*task.Task, error) {
	return a.RespondToTask(ctx, id, task.RespondInput{
		Decision: task.DecisionApprove, RespondedBy: by, Comment: comment,
	})
}

// Reject resolves a task with decision reject.
func (a *Instance) Reject(ctx context.Context, id, by, comment string) (*task.Task, error) {
	return a.RespondToTask(ctx, id, task.RespondInput{
		Decision: task.DecisionReject, RespondedBy: by, Comment: comment,
	})
}

// Defer resolves a task with decision defer.
func (a *Instance) Defer(ctx context.Context, id, by, comment string) (*task.Task, error) {
	return a.RespondToTask(ctx, id, task.RespondInput{
		Decision: task.DecisionDefer, RespondedBy: by, Comment: comment,
	})
}

// UpdateTask merges a partial update into a task. The patch can never touch
// id, createdAt, or status; terminal tasks are untouchable like everywhere
// else. Deadline changes re-arm the wake-up.
func (a *Instance) UpdateTask(ctx context.Context, id string, patch task.UpdatePatch) (*task.Task, error) {
	if err := task.Validate(patch); err != nil {
		return nil, err
	}
	var t *task.Task
	var opErr error
	err := a.do(ctx, func() {
		t, opErr = a.mutate(ctx, id, func(t *task.Task) {
			applyPatch(t, patch)
		})
		if opErr == nil && t != nil {
			a.broadcast("task_updated", t)
			opErr = a.recompute(ctx)
		}
	})
	if err != nil {
		return nil, err
	}
	return t, opErr
}

func applyPatch(t *task.Task, p task.UpdatePatch) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Context != nil {
		t.Context = p.Context
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Deadline != nil {
		t.Deadline = p.Deadline
	}
	if p.ExpiresAt != nil {
		t.ExpiresAt = p.ExpiresAt
	}
	if p.CallbackURL != nil {
		t.CallbackURL = *p.CallbackURL
	}
	if p.Tags != nil {
		t.Tags = p.Tags
	}
	if p.Metadata != nil {
		t.Metadata = p.Metadata
	}
}
