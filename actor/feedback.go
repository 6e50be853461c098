package actor

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/GoCodeAlone/triage/task"
)

// SubmitFeedback records reviewer feedback against a task. The task must
// exist; its lifecycle state does not matter, feedback on resolved tasks
// is the common case.
func (a *Instance) SubmitFeedback(ctx context.Context, in task.FeedbackInput) (*task.Feedback, error) {
	if err := task.Validate(in); err != nil {
		return nil, err
	}
	var fb *task.Feedback
	var opErr error
	err := a.do(ctx, func() {
		fb, opErr = a.submitFeedback(ctx, in)
	})
	if err != nil {
		return nil, err
	}
	return fb, opErr
}

func (a *Instance) submitFeedback(ctx context.Context, in task.FeedbackInput) (*task.Feedback, error) {
	t, err := a.store.GetTask(ctx, in.TaskID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("task %s not found", in.TaskID)
	}
	fb := &task.Feedback{
		ID:         uuid.NewString(),
		TaskID:     in.TaskID,
		Rating:     in.Rating,
		Comment:    in.Comment,
		Source:     in.Source,
		ProvidedBy: in.ProvidedBy,
		Metadata:   in.Metadata,
		ProvidedAt: a.clock.Now(),
	}
	if err := a.store.PutFeedback(ctx, fb); err != nil {
		return nil, err
	}
	a.broadcast("feedback_submitted", fb)
	return fb, nil
}

// GetFeedback returns one feedback entry by ID, or (nil, nil) when absent.
func (a *Instance) GetFeedback(ctx context.Context, id string) (*task.Feedback, error) {
	var fb *task.Feedback
	var opErr error
	err := a.do(ctx, func() {
		fb, opErr = a.store.GetFeedback(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return fb, opErr
}

// AllFeedback lists every feedback entry in the instance.
func (a *Instance) AllFeedback(ctx context.Context) ([]*task.Feedback, error) {
	return a.listFeedback(ctx, func(*task.Feedback) bool { return true })
}

// TaskFeedback lists all feedback recorded against one task.
func (a *Instance) TaskFeedback(ctx context.Context, taskID string) ([]*task.Feedback, error) {
	return a.listFeedback(ctx, func(fb *task.Feedback) bool { return fb.TaskID == taskID })
}

// UnprocessedFeedback lists feedback not yet consumed by a downstream
// learner.
func (a *Instance) UnprocessedFeedback(ctx context.Context) ([]*task.Feedback, error) {
	return a.listFeedback(ctx, func(fb *task.Feedback) bool { return !fb.Processed })
}

func (a *Instance) listFeedback(ctx context.Context, keep func(*task.Feedback) bool) ([]*task.Feedback, error) {
	var out []*task.Feedback
	var opErr error
	err := a.do(ctx, func() {
		var all []*task.Feedback
		all, opErr = a.store.ListFeedback(ctx)
		if opErr != nil {
			return
		}
		out = make([]*task.Feedback, 0, len(all))
		for _, fb := range all {
			if keep(fb) {
				out = append(out, fb)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return out, opErr
}

// MarkFeedbackProcessed flags a feedback entry as consumed. No-op with
// (nil, nil) when the entry is absent.
func (a *Instance) MarkFeedbackProcessed(ctx context.Context, id string) (*task.Feedback, error) {
	var fb *task.Feedback
	var opErr error
	err := a.do(ctx, func() {
		fb, opErr = a.store.GetFeedback(ctx, id)
		if opErr != nil || fb == nil {
			return
		}
		fb.Processed = true
		opErr = a.store.PutFeedback(ctx, fb)
	})
	if err != nil {
		return nil, err
	}
	return fb, opErr
}
