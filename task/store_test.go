package task

import (
	"context"
	"testing"
	"time"

	"github.com/GoCodeAlone/triage/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(store.NewMemory().Namespace("test"))
}

func TestStore_PutGetTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	expires := now.Add(time.Hour)
	tk := &Task{
		ID:        "t1",
		Type:      "review",
		Title:     "Review deployment",
		Status:    StatusPending,
		Priority:  PriorityHigh,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: &expires,
		SLA: &SLAPolicy{
			TargetResponseMs: 1000,
			MaxResponseMs:    5000,
			OnBreach:         BreachNotify,
		},
		Tags:     []string{"deploy"},
		Metadata: map[string]string{"env": "prod"},
	}
	if err := s.PutTask(ctx, tk); err != nil {
		t.Fatalf("PutTask: %v", err)
	}

	got, err := s.GetTask(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got == nil {
		t.Fatal("GetTask returned nil for existing task")
	}
	if got.Title != tk.Title || got.Status != StatusPending || got.Priority != PriorityHigh {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(expires) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, expires)
	}
	if got.SLA == nil || got.SLA.OnBreach != BreachNotify {
		t.Errorf("SLA = %+v", got.SLA)
	}
}

func TestStore_GetTask_Absent(t *testing.T) {
	s := newTestStore(t)
	got, err := s.GetTask(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got != nil {
		t.Errorf("GetTask absent = %+v, want nil", got)
	}
}

func TestStore_ListTasks_KindIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if err := s.PutTask(ctx, &Task{ID: id, Type: "review", Title: id, Status: StatusPending, Priority: PriorityNormal}); err != nil {
			t.Fatalf("PutTask: %v", err)
		}
	}
	if err := s.PutFeedback(ctx, &Feedback{ID: "f1", TaskID: "a", ProvidedAt: time.Now()}); err != nil {
		t.Fatalf("PutFeedback: %v", err)
	}

	tasks, err := s.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Errorf("ListTasks: got %d, want 2", len(tasks))
	}

	fbs, err := s.ListFeedback(ctx)
	if err != nil {
		t.Fatalf("ListFeedback: %v", err)
	}
	if len(fbs) != 1 || fbs[0].TaskID != "a" {
		t.Errorf("ListFeedback = %+v", fbs)
	}
}

func TestTask_Terminal(t *testing.T) {
	cases := []struct {
		name string
		task Task
		want bool
	}{
		{"pending", Task{Status: StatusPending}, false},
		{"assigned", Task{Status: StatusAssigned}, false},
		{"in_progress", Task{Status: StatusInProgress}, false},
		{"completed", Task{Status: StatusCompleted}, true},
		{"rejected", Task{Status: StatusRejected}, true},
		{"expired", Task{Status: StatusExpired}, true},
		{"escalated transient", Task{Status: StatusEscalated}, false},
		{"escalated exhausted", Task{Status: StatusEscalated, Response: &Response{Decision: DecisionEscalate}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.task.Terminal(); got != tc.want {
				t.Errorf("Terminal() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPriority_Rank(t *testing.T) {
	order := []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent, PriorityCritical}
	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Errorf("Rank(%s) = %d not above Rank(%s) = %d",
				order[i], order[i].Rank(), order[i-1], order[i-1].Rank())
		}
	}
	if Priority("bogus").Rank() != PriorityNormal.Rank() {
		t.Errorf("unknown priority should rank as normal")
	}
}

func TestValidate_CreateInput(t *testing.T) {
	if err := Validate(CreateInput{Type: "review", Title: "X"}); err != nil {
		t.Errorf("minimal valid input rejected: %v", err)
	}
	if err := Validate(CreateInput{Title: "X"}); err == nil {
		t.Error("missing type accepted")
	}
	if err := Validate(CreateInput{Type: "review"}); err == nil {
		t.Error("missing title accepted")
	}
	if err := Validate(CreateInput{Type: "review", Title: "X", Priority: "sometime"}); err == nil {
		t.Error("bogus priority accepted")
	}
	if err := Validate(CreateInput{
		Type:  "review",
		Title: "X",
		EscalationChain: []EscalationLevel{
			{Assignees: nil, TimeoutMs: 1000},
		},
	}); err == nil {
		t.Error("chain level without assignees accepted")
	}
}
