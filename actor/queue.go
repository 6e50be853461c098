package actor

import (
	"context"
	"sort"

	"github.com/GoCodeAlone/triage/task"
)

// QueueFor returns the waiting work. With an assignee it is that person's
// assigned tasks; without one it is every unassigned pending task. Highest
// priority first, oldest first within a priority.
func (a *Instance) QueueFor(ctx context.Context, assignee string) ([]*task.Task, error) {
	var out []*task.Task
	var opErr error
	err := a.do(ctx, func() {
		out, opErr = a.queueView(ctx, assignee)
	})
	if err != nil {
		return nil, err
	}
	return out, opErr
}

func (a *Instance) queueView(ctx context.Context, assignee string) ([]*task.Task, error) {
	tasks, err := a.store.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*task.Task, 0, len(tasks))
	for _, t := range tasks {
		if assignee != "" {
			if t.Status == task.StatusAssigned && t.Assignee == assignee {
				out = append(out, t)
			}
		} else if t.Status == task.StatusPending {
			out = append(out, t)
		}
	}
	sortQueue(out)
	return out, nil
}

// sortQueue orders tasks by descending priority rank, then ascending
// creation time.
func sortQueue(tasks []*task.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		ri, rj := tasks[i].Priority.Rank(), tasks[j].Priority.Rank()
		if ri != rj {
			return ri > rj
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
}

// Stats aggregates the instance's tasks. Status and priority maps are
// dense over the known enums so consumers can chart them without key
// checks; the type map is open.
type Stats struct {
	Total          int                   `json:"total"`
	ByStatus       map[task.Status]int   `json:"byStatus"`
	ByPriority     map[task.Priority]int `json:"byPriority"`
	ByType         map[string]int        `json:"byType"`
	Open           int                   `json:"open"`
	AvgResponseMs  int64                 `json:"avgResponseMs"`
	ComplianceRate float64               `json:"complianceRate"`
	ExpiringSoon   int                   `json:"expiringSoon"`
}

// Stats computes the aggregate view, including the SLA compliance rate and
// the count of tasks expiring inside the configured window.
func (a *Instance) Stats(ctx context.Context) (*Stats, error) {
	var st *Stats
	var opErr error
	err := a.do(ctx, func() {
		st, opErr = a.stats(ctx)
	})
	if err != nil {
		return nil, err
	}
	return st, opErr
}

func (a *Instance) stats(ctx context.Context) (*Stats, error) {
	tasks, err := a.store.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	now := a.clock.Now()
	horizon := now.Add(a.opts.ExpiringSoonWindow)

	st := &Stats{
		Total:      len(tasks),
		ByStatus:   make(map[task.Status]int, len(task.Statuses)),
		ByPriority: make(map[task.Priority]int, len(task.Priorities)),
		ByType:     make(map[string]int),
	}
	for _, s := range task.Statuses {
		st.ByStatus[s] = 0
	}
	for _, p := range task.Priorities {
		st.ByPriority[p] = 0
	}

	var responded, slaResponded, slaMet int
	var totalResponseMs int64
	for _, t := range tasks {
		st.ByStatus[t.Status]++
		st.ByPriority[t.Priority]++
		st.ByType[t.Type]++
		if t.Response != nil {
			responded++
			totalResponseMs += t.Response.ResponseTimeMs
			if t.SLA != nil && t.SLA.TargetResponseMs > 0 {
				slaResponded++
				if t.Response.ResponseTimeMs <= t.SLA.TargetResponseMs {
					slaMet++
				}
			}
		}
		if t.Terminal() {
			continue
		}
		st.Open++
		if t.ExpiresAt != nil && t.ExpiresAt.After(now) && t.ExpiresAt.Before(horizon) {
			st.ExpiringSoon++
		}
	}
	if responded > 0 {
		st.AvgResponseMs = totalResponseMs / int64(responded)
	}
	if slaResponded > 0 {
		st.ComplianceRate = float64(slaMet) / float64(slaResponded)
	} else {
		st.ComplianceRate = 1
	}
	return st, nil
}

// ExpiringSoon returns non-terminal tasks whose hard expiry falls inside
// the configured window, soonest first.
func (a *Instance) ExpiringSoon(ctx context.Context) ([]*task.Task, error) {
	var out []*task.Task
	var opErr error
	err := a.do(ctx, func() {
		out, opErr = a.expiringSoon(ctx)
	})
	if err != nil {
		return nil, err
	}
	return out, opErr
}

func (a *Instance) expiringSoon(ctx context.Context) ([]*task.Task, error) {
	tasks, err := a.store.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	now := a.clock.Now()
	horizon := now.Add(a.opts.ExpiringSoonWindow)
	out := []*task.Task{}
	for _, t := range tasks {
		if t.Terminal() || t.ExpiresAt == nil {
			continue
		}
		if t.ExpiresAt.After(now) && t.ExpiresAt.Before(horizon) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExpiresAt.Before(*out[j].ExpiresAt)
	})
	return out, nil
}
