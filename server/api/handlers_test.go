package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GoCodeAlone/triage/actor"
	"github.com/GoCodeAlone/triage/notify"
	"github.com/GoCodeAlone/triage/server/api"
	"github.com/GoCodeAlone/triage/store"
	"github.com/GoCodeAlone/triage/task"
)

func newTestMux(t *testing.T) (*http.ServeMux, *actor.Registry) {
	t.Helper()
	reg := actor.NewRegistry(store.NewMemory(), actor.Deps{})
	t.Cleanup(reg.Close)

	h := &api.Handlers{
		Registry: reg,
		Bus:      notify.NewBus(),
		Version:  "test",
	}
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux, reg
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	} else {
		buf.WriteString("{}")
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func decodeTask(t *testing.T, rr *httptest.ResponseRecorder) *task.Task {
	t.Helper()
	var out task.Task
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	return &out
}

func TestCreateAndGetTask(t *testing.T) {
	mux, _ := newTestMux(t)

	rr := doJSON(t, mux, http.MethodPost, "/api/queues/reviews/tasks", task.CreateInput{
		Type: "code_review", Title: "Review PR 7", Priority: task.PriorityHigh,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: %d: %s", rr.Code, rr.Body.String())
	}
	created := decodeTask(t, rr)
	if created.ID == "" || created.Status != task.StatusPending {
		t.Fatalf("created = %+v", created)
	}

	rr = doJSON(t, mux, http.MethodGet, "/api/queues/reviews/tasks/"+created.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get: %d", rr.Code)
	}
	if got := decodeTask(t, rr); got.Title != "Review PR 7" {
		t.Errorf("title = %q", got.Title)
	}
}

func TestCreateTask_ValidationError(t *testing.T) {
	mux, _ := newTestMux(t)
	rr := doJSON(t, mux, http.MethodPost, "/api/queues/reviews/tasks", map[string]string{
		"title": "missing type",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestGetTask_NotFound(t *testing.T) {
	mux, _ := newTestMux(t)
	rr := doJSON(t, mux, http.MethodGet, "/api/queues/reviews/tasks/nope", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	mux, _ := newTestMux(t)

	rr := doJSON(t, mux, http.MethodPost, "/api/queues/reviews/tasks", task.CreateInput{
		Type: "approval", Title: "Deploy to prod",
	})
	created := decodeTask(t, rr)
	base := "/api/queues/reviews/tasks/" + created.ID

	rr = doJSON(t, mux, http.MethodPost, base+"/assign", map[string]string{"assignee": "alice"})
	if rr.Code != http.StatusOK {
		t.Fatalf("assign: %d: %s", rr.Code, rr.Body.String())
	}
	if got := decodeTask(t, rr); got.Status != task.StatusAssigned {
		t.Errorf("status = %q", got.Status)
	}

	rr = doJSON(t, mux, http.MethodPost, base+"/start", map[string]string{"worker": "alice"})
	if rr.Code != http.StatusOK {
		t.Fatalf("start: %d", rr.Code)
	}

	rr = doJSON(t, mux, http.MethodPost, base+"/respond", task.RespondInput{
		Decision: task.DecisionApprove, RespondedBy: "alice", Comment: "ship it",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("respond: %d: %s", rr.Code, rr.Body.String())
	}
	got := decodeTask(t, rr)
	if got.Status != task.StatusCompleted || got.Response == nil {
		t.Fatalf("responded = %+v", got)
	}

	// A second response hits the terminal guard.
	rr = doJSON(t, mux, http.MethodPost, base+"/respond", task.RespondInput{
		Decision: task.DecisionReject, RespondedBy: "bob",
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 on resolved task, got %d", rr.Code)
	}
}

func TestRespond_MissingTask(t *testing.T) {
	mux, _ := newTestMux(t)
	rr := doJSON(t, mux, http.MethodPost, "/api/queues/reviews/tasks/nope/respond", task.RespondInput{
		Decision: task.DecisionApprove, RespondedBy: "alice",
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestQueueIsolation(t *testing.T) {
	mux, _ := newTestMux(t)

	rr := doJSON(t, mux, http.MethodPost, "/api/queues/alpha/tasks", task.CreateInput{Type: "t", Title: "x"})
	created := decodeTask(t, rr)

	rr = doJSON(t, mux, http.MethodGet, "/api/queues/beta/tasks/"+created.ID, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("cross-queue get: expected 404, got %d", rr.Code)
	}

	rr = doJSON(t, mux, http.MethodGet, "/api/queues", nil)
	var queues []string
	json.NewDecoder(rr.Body).Decode(&queues) //nolint:errcheck
	if len(queues) != 2 {
		t.Errorf("queues = %v", queues)
	}
}

func TestListTasks_StatusFilter(t *testing.T) {
	mux, _ := newTestMux(t)

	for i := 0; i < 3; i++ {
		doJSON(t, mux, http.MethodPost, "/api/queues/q/tasks", task.CreateInput{
			Type: "t", Title: fmt.Sprintf("task %d", i),
		})
	}
	rr := doJSON(t, mux, http.MethodPost, "/api/queues/q/tasks", task.CreateInput{
		Type: "t", Title: "assigned", Assignee: "alice",
	})
	if rr.Code != http.StatusCreated {
		t.Fatal(rr.Code)
	}

	rr = doJSON(t, mux, http.MethodGet, "/api/queues/q/tasks?status=pending", nil)
	var tasks []*task.Task
	if err := json.NewDecoder(rr.Body).Decode(&tasks); err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 3 {
		t.Errorf("pending = %d, want 3", len(tasks))
	}
}

func TestPendingQueueOrdering(t *testing.T) {
	mux, _ := newTestMux(t)

	doJSON(t, mux, http.MethodPost, "/api/queues/q/tasks", task.CreateInput{
		Type: "t", Title: "low", Priority: task.PriorityLow,
	})
	doJSON(t, mux, http.MethodPost, "/api/queues/q/tasks", task.CreateInput{
		Type: "t", Title: "critical", Priority: task.PriorityCritical,
	})

	rr := doJSON(t, mux, http.MethodGet, "/api/queues/q/pending", nil)
	var tasks []*task.Task
	if err := json.NewDecoder(rr.Body).Decode(&tasks); err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 || tasks[0].Title != "critical" {
		t.Fatalf("queue order wrong: %+v", tasks)
	}
}

func TestStatsAndSLA(t *testing.T) {
	mux, _ := newTestMux(t)
	doJSON(t, mux, http.MethodPost, "/api/queues/q/tasks", task.CreateInput{Type: "t", Title: "x"})

	rr := doJSON(t, mux, http.MethodGet, "/api/queues/q/stats", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("stats: %d", rr.Code)
	}
	var st actor.Stats
	if err := json.NewDecoder(rr.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.Total != 1 || st.Open != 1 {
		t.Errorf("stats = %+v", st)
	}

	rr = doJSON(t, mux, http.MethodGet, "/api/queues/q/sla", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("sla: %d", rr.Code)
	}
	var sla actor.SLAStatus
	if err := json.NewDecoder(rr.Body).Decode(&sla); err != nil {
		t.Fatal(err)
	}
	if sla.ComplianceRate != 1 {
		t.Errorf("compliance = %v", sla.ComplianceRate)
	}
}

func TestScanEndpoint(t *testing.T) {
	mux, _ := newTestMux(t)
	rr := doJSON(t, mux, http.MethodPost, "/api/queues/q/scan", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("scan: %d", rr.Code)
	}
}

func TestFeedbackOverHTTP(t *testing.T) {
	mux, _ := newTestMux(t)

	rr := doJSON(t, mux, http.MethodPost, "/api/queues/q/tasks", task.CreateInput{Type: "t", Title: "x"})
	created := decodeTask(t, rr)

	rr = doJSON(t, mux, http.MethodPost, "/api/queues/q/feedback", task.FeedbackInput{
		TaskID: created.ID, Rating: 5, Comment: "spot on",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("submit feedback: %d: %s", rr.Code, rr.Body.String())
	}
	var fb task.Feedback
	if err := json.NewDecoder(rr.Body).Decode(&fb); err != nil {
		t.Fatal(err)
	}

	rr = doJSON(t, mux, http.MethodGet, "/api/queues/q/feedback?unprocessed=true", nil)
	var fbs []*task.Feedback
	if err := json.NewDecoder(rr.Body).Decode(&fbs); err != nil {
		t.Fatal(err)
	}
	if len(fbs) != 1 {
		t.Fatalf("unprocessed = %d", len(fbs))
	}

	rr = doJSON(t, mux, http.MethodPost, "/api/queues/q/feedback/"+fb.ID+"/processed", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("mark processed: %d", rr.Code)
	}

	rr = doJSON(t, mux, http.MethodGet, "/api/queues/q/feedback?unprocessed=true", nil)
	fbs = nil
	if err := json.NewDecoder(rr.Body).Decode(&fbs); err != nil {
		t.Fatal(err)
	}
	if len(fbs) != 0 {
		t.Errorf("unprocessed after mark = %d", len(fbs))
	}
}

func TestMessagesEndpoint(t *testing.T) {
	reg := actor.NewRegistry(store.NewMemory(), actor.Deps{})
	t.Cleanup(reg.Close)
	bus := notify.NewBus()
	bus.Publish(context.Background(), &notify.Message{Recipient: "alice", Subject: "hello"})

	h := &api.Handlers{Registry: reg, Bus: bus, Version: "test"}
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	rr := doJSON(t, mux, http.MethodGet, "/api/messages?recipient=alice", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("messages: %d", rr.Code)
	}
	var msgs []*notify.Message
	if err := json.NewDecoder(rr.Body).Decode(&msgs); err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Subject != "hello" {
		t.Fatalf("msgs = %+v", msgs)
	}
}
