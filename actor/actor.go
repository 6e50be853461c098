// Package actor implements the task-orchestration actor: a single-threaded
// instance owning one queue of human-review tasks, their escalation chains,
// SLA enforcement, and the one scheduled wake-up that drives every
// time-based transition.
//
// Every entry point, client operations and the wake-up callback alike,
// runs as a closure on the instance's dispatch goroutine, so the core
// holds no locks and operations are totally ordered by arrival.
package actor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/GoCodeAlone/triage/notify"
	"github.com/GoCodeAlone/triage/store"
	"github.com/GoCodeAlone/triage/task"
)

// ErrClosed is returned for operations on a closed instance.
var ErrClosed = errors.New("actor: instance closed")

// Clock provides the instance's view of time. Injected so time-driven
// behavior is testable; production uses the wall clock.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now().UTC() }

// Webhooks delivers best-effort callback payloads. Implementations must
// swallow delivery errors.
type Webhooks interface {
	Send(ctx context.Context, url string, payload any)
}

// Events receives task lifecycle events for real-time fan-out (SSE).
type Events interface {
	Broadcast(event string, payload any)
}

// Options tune per-instance behavior.
type Options struct {
	// ExpiringSoonWindow bounds the getExpiringSoon view and the
	// expiring-soon stat. Defaults to one hour.
	ExpiringSoonWindow time.Duration
}

func (o Options) withDefaults() Options {
	if o.ExpiringSoonWindow <= 0 {
		o.ExpiringSoonWindow = time.Hour
	}
	return o
}

// Deps are the collaborators shared by all instances.
type Deps struct {
	Logger   *slog.Logger
	Notifier notify.Notifier
	Webhooks Webhooks
	Events   Events
	Clock    Clock
	Options  Options
}

// Instance is one actor: a queue name, its storage namespace, and the
// single outstanding wake-up timer.
type Instance struct {
	queue    string
	store    *task.Store
	logger   *slog.Logger
	notifier notify.Notifier
	webhooks Webhooks
	events   Events
	clock    Clock
	opts     Options

	calls  chan func()
	closed chan struct{}
	once   sync.Once

	// Wake-up state, touched only from the dispatch goroutine.
	timer   *time.Timer
	armedAt time.Time
	armed   bool
}

// NewInstance creates and starts an actor bound to the given KV namespace.
func NewInstance(queue string, kv store.KV, deps Deps) *Instance {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = &notify.LogNotifier{Logger: logger}
	}
	clock := deps.Clock
	if clock == nil {
		clock = wallClock{}
	}

	a := &Instance{
		queue:    queue,
		store:    task.NewStore(kv),
		logger:   logger.With(slog.String("queue", queue)),
		notifier: notifier,
		webhooks: deps.Webhooks,
		events:   deps.Events,
		clock:    clock,
		opts:     deps.Options.withDefaults(),
		calls:    make(chan func()),
		closed:   make(chan struct{}),
	}
	go a.run()
	return a
}

// Queue returns the instance's queue name.
func (a *Instance) Queue() string { return a.queue }

// Close stops the dispatch loop and clears any pending wake-up.
// Operations after Close return ErrClosed.
func (a *Instance) Close() {
	a.once.Do(func() {
		_ = a.do(context.Background(), func() { a.clearWake() })
		close(a.closed)
	})
}

func (a *Instance) run() {
	for {
		select {
		case fn := <-a.calls:
			fn()
		case <-a.closed:
			return
		}
	}
}

// do runs fn on the dispatch goroutine and waits for it to finish.
// This is the serialization point for every operation.
func (a *Instance) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case a.calls <- wrapped:
	case <-a.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-a.closed:
		return ErrClosed
	}
}

// broadcast emits a lifecycle event when an event sink is wired.
func (a *Instance) broadcast(event string, payload any) {
	if a.events != nil {
		a.events.Broadcast(event, payload)
	}
}

// callback fires the task's webhook with a snapshot payload, off the
// dispatch goroutine so slow receivers cannot stall the actor.
func (a *Instance) callback(t *task.Task, event string) {
	if a.webhooks == nil || t.CallbackURL == "" {
		return
	}
	payload := map[string]any{
		"event":   event,
		"queue":   a.queue,
		"task_id": t.ID,
		"type":    t.Type,
		"title":   t.Title,
		"status":  t.Status,
	}
	if t.Response != nil {
		payload["decision"] = t.Response.Decision
		payload["responded_by"] = t.Response.RespondedBy
	}
	url := t.CallbackURL
	go a.webhooks.Send(context.Background(), url, payload)
}
