package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/GoCodeAlone/triage/task"
)

// slaBreachDue reports whether the task has exceeded its maximum response
// budget without a response.
func slaBreachDue(t *task.Task, now time.Time) bool {
	if t.SLA == nil || t.SLA.MaxResponseMs <= 0 || t.Response != nil {
		return false
	}
	return !now.Before(t.CreatedAt.Add(time.Duration(t.SLA.MaxResponseMs) * time.Millisecond))
}

// applyBreach enacts the task's onBreach policy. Only the notify policy
// delivers to the notifyOnBreach recipients; it also leaves the task open,
// so the same breach can be reported again on a later scan. The other
// policies resolve or escalate the task, which makes them naturally
// idempotent.
func (a *Instance) applyBreach(ctx context.Context, t *task.Task) error {
	action := task.BreachEscalate
	if t.SLA != nil && t.SLA.OnBreach != "" {
		action = t.SLA.OnBreach
	}
	a.logger.Warn("sla breached", "task", t.ID, "action", action)

	switch action {
	case task.BreachAutoApprove:
		_, err := a.respond(ctx, t, task.RespondInput{
			Decision: task.DecisionApprove, RespondedBy: "system", Comment: "auto-approved on SLA breach",
		})
		return err
	case task.BreachAutoReject:
		_, err := a.respond(ctx, t, task.RespondInput{
			Decision: task.DecisionReject, RespondedBy: "system", Comment: "auto-rejected on SLA breach",
		})
		return err
	case task.BreachNotify:
		subject := fmt.Sprintf("SLA breached: %s", t.Title)
		body := fmt.Sprintf("Task %s exceeded its response budget (%dms)", t.ID, t.SLA.MaxResponseMs)
		for _, recipient := range t.SLA.NotifyOnBreach {
			a.notifier.Send(ctx, "log", recipient, subject, body)
		}
		a.broadcast("sla_breached", t)
		return nil
	default:
		_, err := a.escalateTask(ctx, t, "sla breach")
		return err
	}
}

// SLAAtRisk returns open, unresponded tasks whose age is within thresholdMs
// of overrunning their SLA response target (or already past it).
func (a *Instance) SLAAtRisk(ctx context.Context, thresholdMs int64) ([]*task.Task, error) {
	var out []*task.Task
	var opErr error
	err := a.do(ctx, func() {
		out, opErr = a.slaAtRisk(ctx, thresholdMs)
	})
	if err != nil {
		return nil, err
	}
	return out, opErr
}

func (a *Instance) slaAtRisk(ctx context.Context, thresholdMs int64) ([]*task.Task, error) {
	tasks, err := a.store.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	now := a.clock.Now()
	out := []*task.Task{}
	for _, t := range tasks {
		if t.Terminal() || t.Response != nil || t.SLA == nil || t.SLA.TargetResponseMs <= 0 {
			continue
		}
		age := now.Sub(t.CreatedAt).Milliseconds()
		if age > t.SLA.TargetResponseMs-thresholdMs {
			out = append(out, t)
		}
	}
	return out, nil
}

// SLAStatus summarizes SLA health across the instance's tasks.
type SLAStatus struct {
	Total          int          `json:"total"`
	WithSLA        int          `json:"withSla"`
	AtRisk         []*task.Task `json:"atRisk"`
	Breached       int          `json:"breached"`
	MetTarget      int          `json:"metTarget"`
	ComplianceRate float64      `json:"complianceRate"`
	AvgResponseMs  int64        `json:"avgResponseMs"`
}

// SLAReport computes the SLA snapshot: open tasks past their response
// target, plus compliance over responded tasks. With no responded SLA
// tasks the compliance rate is 1.
func (a *Instance) SLAReport(ctx context.Context) (*SLAStatus, error) {
	var st *SLAStatus
	var opErr error
	err := a.do(ctx, func() {
		st, opErr = a.slaReport(ctx)
	})
	if err != nil {
		return nil, err
	}
	return st, opErr
}

func (a *Instance) slaReport(ctx context.Context) (*SLAStatus, error) {
	tasks, err := a.store.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	now := a.clock.Now()
	st := &SLAStatus{Total: len(tasks), AtRisk: []*task.Task{}}

	var responded int
	var totalResponseMs int64
	for _, t := range tasks {
		if t.SLA == nil {
			continue
		}
		st.WithSLA++
		if t.Response == nil {
			if !t.Terminal() && t.SLA.TargetResponseMs > 0 &&
				now.Sub(t.CreatedAt).Milliseconds() > t.SLA.TargetResponseMs {
				st.AtRisk = append(st.AtRisk, t)
			}
			continue
		}
		responded++
		totalResponseMs += t.Response.ResponseTimeMs
		if t.SLA.TargetResponseMs > 0 && t.Response.ResponseTimeMs > t.SLA.TargetResponseMs {
			st.Breached++
		} else {
			st.MetTarget++
		}
	}
	if responded > 0 {
		st.ComplianceRate = float64(st.MetTarget) / float64(responded)
		st.AvgResponseMs = totalResponseMs / int64(responded)
	} else {
		st.ComplianceRate = 1
	}
	return st, nil
}
