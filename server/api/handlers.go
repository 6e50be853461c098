package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/GoCodeAlone/triage/actor"
	"github.com/GoCodeAlone/triage/notify"
	"github.com/GoCodeAlone/triage/task"
)

// Handlers bundles all REST API handler dependencies.
type Handlers struct {
	Registry *actor.Registry
	Bus      *notify.Bus
	Logger   *slog.Logger
	Version  string
}

// RegisterRoutes registers all API routes on the given mux. Every task
// route is scoped to a queue; each queue is its own isolated instance.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/queues", h.listQueues)

	mux.HandleFunc("POST /api/queues/{queue}/tasks", h.createTask)
	mux.HandleFunc("GET /api/queues/{queue}/tasks", h.listTasks)
	mux.HandleFunc("GET /api/queues/{queue}/tasks/{id}", h.getTask)
	mux.HandleFunc("PATCH /api/queues/{queue}/tasks/{id}", h.updateTask)
	mux.HandleFunc("POST /api/queues/{queue}/tasks/{id}/assign", h.assignTask)
	mux.HandleFunc("POST /api/queues/{queue}/tasks/{id}/unassign", h.unassignTask)
	mux.HandleFunc("POST /api/queues/{queue}/tasks/{id}/start", h.startTask)
	mux.HandleFunc("POST /api/queues/{queue}/tasks/{id}/respond", h.respondToTask)
	mux.HandleFunc("POST /api/queues/{queue}/tasks/{id}/approve", h.decide(task.DecisionApprove))
	mux.HandleFunc("POST /api/queues/{queue}/tasks/{id}/reject", h.decide(task.DecisionReject))
	mux.HandleFunc("POST /api/queues/{queue}/tasks/{id}/defer", h.decide(task.DecisionDefer))
	mux.HandleFunc("POST /api/queues/{queue}/tasks/{id}/escalate", h.escalateTask)

	mux.HandleFunc("GET /api/queues/{queue}/pending", h.pendingQueue)
	mux.HandleFunc("GET /api/queues/{queue}/stats", h.stats)
	mux.HandleFunc("GET /api/queues/{queue}/sla", h.slaReport)
	mux.HandleFunc("GET /api/queues/{queue}/sla/at-risk", h.slaAtRisk)
	mux.HandleFunc("GET /api/queues/{queue}/expiring", h.expiringSoon)
	mux.HandleFunc("POST /api/queues/{queue}/scan", h.scan)

	mux.HandleFunc("POST /api/queues/{queue}/feedback", h.submitFeedback)
	mux.HandleFunc("GET /api/queues/{queue}/feedback", h.listFeedback)
	mux.HandleFunc("GET /api/queues/{queue}/feedback/{id}", h.getFeedback)
	mux.HandleFunc("POST /api/queues/{queue}/feedback/{id}/processed", h.markFeedbackProcessed)

	mux.HandleFunc("GET /api/messages", h.listMessages)

	mux.HandleFunc("GET /api/status", h.status)
	mux.HandleFunc("GET /api/version", h.version)
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handlers) instance(r *http.Request) *actor.Instance {
	return h.Registry.Get(r.PathValue("queue"))
}

// writeTaskResult maps the lifecycle operations' (nil, nil) outcome onto
// HTTP: missing task is 404, terminal task is 409, anything else 200.
func (h *Handlers) writeTaskResult(w http.ResponseWriter, r *http.Request, t *task.Task, err error) {
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if t != nil {
		writeJSON(w, http.StatusOK, t)
		return
	}
	existing, err := h.instance(r).GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeError(w, http.StatusConflict, "task already resolved")
}

// --- Queue handlers ---

func (h *Handlers) listQueues(w http.ResponseWriter, _ *http.Request) {
	queues := h.Registry.Queues()
	if queues == nil {
		queues = []string{}
	}
	writeJSON(w, http.StatusOK, queues)
}

// --- Task handlers ---

func (h *Handlers) createTask(w http.ResponseWriter, r *http.Request) {
	var in task.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	t, err := h.instance(r).CreateTask(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handlers) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.instance(r).ListTasks(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filtered := make([]*task.Task, 0, len(tasks))
		for _, t := range tasks {
			if t.Status == task.Status(status) {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}
	if tasks == nil {
		tasks = []*task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handlers) getTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.instance(r).GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if t == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) updateTask(w http.ResponseWriter, r *http.Request) {
	var patch task.UpdatePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	t, err := h.instance(r).UpdateTask(r.Context(), r.PathValue("id"), patch)
	h.writeTaskResult(w, r, t, err)
}

func (h *Handlers) assignTask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Assignee string `json:"assignee"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Assignee == "" {
		writeError(w, http.StatusBadRequest, "assignee is required")
		return
	}
	t, err := h.instance(r).AssignTask(r.Context(), r.PathValue("id"), body.Assignee)
	h.writeTaskResult(w, r, t, err)
}

func (h *Handlers) unassignTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.instance(r).UnassignTask(r.Context(), r.PathValue("id"))
	h.writeTaskResult(w, r, t, err)
}

func (h *Handlers) startTask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Worker string `json:"worker"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	t, err := h.instance(r).StartTask(r.Context(), r.PathValue("id"), body.Worker)
	h.writeTaskResult(w, r, t, err)
}

func (h *Handlers) respondToTask(w http.ResponseWriter, r *http.Request) {
	var in task.RespondInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := task.Validate(in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := h.instance(r).RespondToTask(r.Context(), r.PathValue("id"), in)
	h.writeTaskResult(w, r, t, err)
}

// decide builds a handler that resolves a task with a fixed decision.
func (h *Handlers) decide(decision task.Decision) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RespondedBy string `json:"responded_by"`
			Comment     string `json:"comment"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RespondedBy == "" {
			writeError(w, http.StatusBadRequest, "responded_by is required")
			return
		}
		t, err := h.instance(r).RespondToTask(r.Context(), r.PathValue("id"), task.RespondInput{
			Decision:    decision,
			RespondedBy: body.RespondedBy,
			Comment:     body.Comment,
		})
		h.writeTaskResult(w, r, t, err)
	}
}

func (h *Handlers) escalateTask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if body.Reason == "" {
		body.Reason = "manual escalation"
	}
	t, err := h.instance(r).Escalate(r.Context(), r.PathValue("id"), body.Reason)
	h.writeTaskResult(w, r, t, err)
}

func (h *Handlers) pendingQueue(w http.ResponseWriter, r *http.Request) {
	assignee := r.URL.Query().Get("assignee")
	tasks, err := h.instance(r).QueueFor(r.Context(), assignee)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tasks == nil {
		tasks = []*task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handlers) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.instance(r).Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handlers) slaReport(w http.ResponseWriter, r *http.Request) {
	st, err := h.instance(r).SLAReport(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handlers) slaAtRisk(w http.ResponseWriter, r *http.Request) {
	var threshold int64
	if v := r.URL.Query().Get("threshold_ms"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid threshold_ms")
			return
		}
		threshold = n
	}
	tasks, err := h.instance(r).SLAAtRisk(r.Context(), threshold)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handlers) expiringSoon(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.instance(r).ExpiringSoon(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handlers) scan(w http.ResponseWriter, r *http.Request) {
	if err := h.instance(r).Scan(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Feedback handlers ---

func (h *Handlers) submitFeedback(w http.ResponseWriter, r *http.Request) {
	var in task.FeedbackInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	fb, err := h.instance(r).SubmitFeedback(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, fb)
}

func (h *Handlers) listFeedback(w http.ResponseWriter, r *http.Request) {
	inst := h.instance(r)
	var fbs []*task.Feedback
	var err error
	switch {
	case r.URL.Query().Get("task_id") != "":
		fbs, err = inst.TaskFeedback(r.Context(), r.URL.Query().Get("task_id"))
	case r.URL.Query().Get("unprocessed") == "true":
		fbs, err = inst.UnprocessedFeedback(r.Context())
	default:
		fbs, err = inst.AllFeedback(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if fbs == nil {
		fbs = []*task.Feedback{}
	}
	writeJSON(w, http.StatusOK, fbs)
}

func (h *Handlers) getFeedback(w http.ResponseWriter, r *http.Request) {
	fb, err := h.instance(r).GetFeedback(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if fb == nil {
		writeError(w, http.StatusNotFound, "feedback not found")
		return
	}
	writeJSON(w, http.StatusOK, fb)
}

func (h *Handlers) markFeedbackProcessed(w http.ResponseWriter, r *http.Request) {
	fb, err := h.instance(r).MarkFeedbackProcessed(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if fb == nil {
		writeError(w, http.StatusNotFound, "feedback not found")
		return
	}
	writeJSON(w, http.StatusOK, fb)
}

// --- Message handlers ---

func (h *Handlers) listMessages(w http.ResponseWriter, r *http.Request) {
	recipient := r.URL.Query().Get("recipient")
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil {
			limit = n
		}
	}
	msgs := h.Bus.History(recipient, limit)
	if msgs == nil {
		msgs = []*notify.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

// --- Status / version ---

func (h *Handlers) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.Version,
	})
}

// StatusHandler returns the status handler function for external registration.
func (h *Handlers) StatusHandler() http.HandlerFunc {
	return h.status
}

func (h *Handlers) version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": h.Version,
	})
}
