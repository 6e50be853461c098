package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/GoCodeAlone/triage/store"
)

// Record kinds used as key prefixes in the KV store.
const (
	kindTask     = "task"
	kindFeedback = "feedback"
)

func key(kind, id string) string { return kind + ":" + id }

// Store persists Task and Feedback records as JSON in a single namespaced
// key-value store. Every write replaces the whole record.
type Store struct {
	kv store.KV
}

// NewStore wraps a namespace-bound KV view.
func NewStore(kv store.KV) *Store { return &Store{kv: kv} }

// PutTask writes (or replaces) a task record.
func (s *Store) PutTask(ctx context.Context, t *Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", t.ID, err)
	}
	if err := s.kv.Put(ctx, key(kindTask, t.ID), data); err != nil {
		return fmt.Errorf("put task %s: %w", t.ID, err)
	}
	return nil
}

// GetTask retrieves a task by ID, returning (nil, nil) when absent.
func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	data, err := s.kv.Get(ctx, key(kindTask, id))
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	if data == nil {
		return nil, nil
	}
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("unmarshal task %s: %w", id, err)
	}
	return &t, nil
}

// ListTasks returns every task record in the namespace.
func (s *Store) ListTasks(ctx context.Context) ([]*Task, error) {
	recs, err := s.kv.List(ctx, kindTask+":")
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	tasks := make([]*Task, 0, len(recs))
	for _, r := range recs {
		var t Task
		if err := json.Unmarshal(r.Value, &t); err != nil {
			return nil, fmt.Errorf("unmarshal record %s: %w", r.Key, err)
		}
		tasks = append(tasks, &t)
	}
	return tasks, nil
}

// PutFeedback writes (or replaces) a feedback record.
func (s *Store) PutFeedback(ctx context.Context, f *Feedback) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal feedback %s: %w", f.ID, err)
	}
	if err := s.kv.Put(ctx, key(kindFeedback, f.ID), data); err != nil {
		return fmt.Errorf("put feedback %s: %w", f.ID, err)
	}
	return nil
}

// GetFeedback retrieves a feedback record by ID, returning (nil, nil) when absent.
func (s *Store) GetFeedback(ctx context.Context, id string) (*Feedback, error) {
	data, err := s.kv.Get(ctx, key(kindFeedback, id))
	if err != nil {
		return nil, fmt.Errorf("get feedback %s: %w", id, err)
	}
	if data == nil {
		return nil, nil
	}
	var f Feedback
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshal feedback %s: %w", id, err)
	}
	return &f, nil
}

// ListFeedback returns every feedback record in the namespace.
func (s *Store) ListFeedback(ctx context.Context) ([]*Feedback, error) {
	recs, err := s.kv.List(ctx, kindFeedback+":")
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	fbs := make([]*Feedback, 0, len(recs))
	for _, r := range recs {
		var f Feedback
		if err := json.Unmarshal(r.Value, &f); err != nil {
			return nil, fmt.Errorf("unmarshal record %s: %w", r.Key, err)
		}
		fbs = append(fbs, &f)
	}
	return fbs, nil
}
