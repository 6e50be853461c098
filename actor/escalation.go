package actor

import (
	"context"
	"fmt"

	"github.com/GoCodeAlone/triage/task"
)

// Escalate moves a task one level up its escalation chain, reassigning it
// to the next level's first assignee and notifying the whole level. When
// the chain is absent or exhausted the task is resolved with decision
// escalate instead, which is the terminal form of the escalated status.
func (a *Instance) Escalate(ctx context.Context, id, reason string) (*task.Task, error) {
	var t *task.Task
	var opErr error
	err := a.do(ctx, func() {
		var cur *task.Task
		cur, opErr = a.store.GetTask(ctx, id)
		if opErr != nil || cur == nil || cur.Terminal() {
			return
		}
		t, opErr = a.escalateTask(ctx, cur, reason)
	})
	if err != nil {
		return nil, err
	}
	return t, opErr
}

func (a *Instance) escalateTask(ctx context.Context, t *task.Task, reason string) (*task.Task, error) {
	next := t.CurrentLevel() + 1
	if next >= len(t.EscalationChain) {
		a.logger.Info("escalation chain exhausted", "task", t.ID, "reason", reason)
		return a.respond(ctx, t, task.RespondInput{
			Decision:    task.DecisionEscalate,
			RespondedBy: "system",
			Comment:     reason,
		})
	}

	level := t.EscalationChain[next]
	t.EscalationLevel = &next
	t.Status = task.StatusEscalated
	t.Assignee = level.Assignees[0]
	t.UpdatedAt = a.clock.Now()
	if err := a.store.PutTask(ctx, t); err != nil {
		return nil, err
	}

	a.logger.Info("task escalated", "task", t.ID, "level", next, "assignee", t.Assignee, "reason", reason)
	subject := fmt.Sprintf("Task escalated: %s", t.Title)
	body := fmt.Sprintf("Task %s escalated to level %d: %s", t.ID, next, reason)
	channels := level.NotifyVia
	if len(channels) == 0 {
		channels = []string{"log"}
	}
	for _, assignee := range level.Assignees {
		for _, ch := range channels {
			a.notifier.Send(ctx, ch, assignee, subject, body)
		}
	}
	a.broadcast("task_escalated", t)
	if err := a.recompute(ctx); err != nil {
		return nil, err
	}
	return t, nil
}
