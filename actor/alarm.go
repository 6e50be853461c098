package actor

import (
	"context"
	"time"

	"github.com/GoCodeAlone/triage/task"
)

// expiryDue reports whether the task's hard expiry has passed.
func expiryDue(t *task.Task, now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// escalationDue reports whether the current escalation level's timeout has
// elapsed since the task was last touched. Level 0's timeout applies even
// before escalation begins, so a chain acts as a progressive deadline.
func escalationDue(t *task.Task, now time.Time) bool {
	if len(t.EscalationChain) == 0 {
		return false
	}
	level := t.CurrentLevel()
	if level >= len(t.EscalationChain) {
		return false
	}
	timeout := time.Duration(t.EscalationChain[level].TimeoutMs) * time.Millisecond
	return !now.Before(t.UpdatedAt.Add(timeout))
}

// recompute derives the earliest pending deadline across all open tasks and
// arms one timer for it, replacing any previous one. A single timer serves
// the whole instance; every deadline-bearing mutation calls this.
func (a *Instance) recompute(ctx context.Context) error {
	tasks, err := a.store.ListTasks(ctx)
	if err != nil {
		return err
	}
	now := a.clock.Now()
	var next time.Time
	consider := func(at time.Time) {
		if at.Before(now) {
			at = now
		}
		if next.IsZero() || at.Before(next) {
			next = at
		}
	}
	for _, t := range tasks {
		if t.Terminal() {
			continue
		}
		if t.ExpiresAt != nil {
			consider(*t.ExpiresAt)
		}
		if len(t.EscalationChain) > 0 {
			if level := t.CurrentLevel(); level < len(t.EscalationChain) {
				timeout := time.Duration(t.EscalationChain[level].TimeoutMs) * time.Millisecond
				consider(t.UpdatedAt.Add(timeout))
			}
		}
		if t.SLA != nil && t.SLA.WarningThresholdMs > 0 && t.Response == nil {
			warn := t.CreatedAt.Add(time.Duration(t.SLA.WarningThresholdMs) * time.Millisecond)
			if warn.After(now) {
				consider(warn)
			}
		}
	}
	if next.IsZero() {
		a.clearWake()
		return nil
	}
	a.armWake(next, now)
	return nil
}

// armWake schedules the wake-up at the given instant, replacing any
// existing timer. Only ever called from the dispatch goroutine.
func (a *Instance) armWake(at, now time.Time) {
	if a.armed && a.armedAt.Equal(at) {
		return
	}
	a.clearWake()
	a.armed = true
	a.armedAt = at
	a.timer = time.AfterFunc(at.Sub(now), func() {
		// Re-enter through the dispatch channel like any other caller.
		_ = a.do(context.Background(), func() {
			a.armed = false
			if err := a.scan(context.Background()); err != nil {
				a.logger.Error("wake-up scan failed", "error", err)
			}
		})
	})
	a.logger.Debug("wake-up armed", "at", at)
}

func (a *Instance) clearWake() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.armed = false
	a.armedAt = time.Time{}
}

// ArmedAt returns the instant the wake-up timer is set for, and whether one
// is armed at all.
func (a *Instance) ArmedAt(ctx context.Context) (time.Time, bool, error) {
	var at time.Time
	var armed bool
	err := a.do(ctx, func() {
		at, armed = a.armedAt, a.armed
	})
	return at, armed, err
}

// Scan runs one wake-up pass immediately, as if the timer had fired. It is
// the timer path's only body, exposed for operational use.
func (a *Instance) Scan(ctx context.Context) error {
	var opErr error
	err := a.do(ctx, func() {
		opErr = a.scan(ctx)
	})
	if err != nil {
		return err
	}
	return opErr
}

// scan walks every open task and handles whichever deadline has passed:
// hard expiry first, then escalation timeout, then SLA breach. One pass
// can act on many tasks; it always ends with a recompute so the timer
// points at the new earliest deadline.
func (a *Instance) scan(ctx context.Context) error {
	tasks, err := a.store.ListTasks(ctx)
	if err != nil {
		return err
	}
	now := a.clock.Now()
	for _, t := range tasks {
		if t.Terminal() {
			continue
		}
		switch {
		case expiryDue(t, now):
			if err := a.expireTask(ctx, t); err != nil {
				return err
			}
		case escalationDue(t, now):
			if _, err := a.escalateTask(ctx, t, "escalation timeout"); err != nil {
				return err
			}
		case slaBreachDue(t, now):
			if err := a.applyBreach(ctx, t); err != nil {
				return err
			}
		}
	}
	return a.recompute(ctx)
}

func (a *Instance) expireTask(ctx context.Context, t *task.Task) error {
	t.Status = task.StatusExpired
	t.UpdatedAt = a.clock.Now()
	if err := a.store.PutTask(ctx, t); err != nil {
		return err
	}
	a.logger.Info("task expired", "task", t.ID)
	a.callback(t, "task_expired")
	a.broadcast("task_expired", t)
	return nil
}
