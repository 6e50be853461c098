package actor

import (
	"sync"

	"github.com/GoCodeAlone/triage/store"
)

// Registry hands out one Instance per queue name, created lazily. Each
// instance gets its own storage namespace, so queues never see each
// other's tasks.
type Registry struct {
	engine store.Engine
	deps   Deps

	mu        sync.Mutex
	instances map[string]*Instance
}

func NewRegistry(engine store.Engine, deps Deps) *Registry {
	return &Registry{
		engine:    engine,
		deps:      deps,
		instances: make(map[string]*Instance),
	}
}

// Get returns the instance for a queue, creating it on first use.
func (r *Registry) Get(queue string) *Instance {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inst, ok := r.instances[queue]; ok {
		return inst
	}
	inst := NewInstance(queue, r.engine.Namespace(queue), r.deps)
	r.instances[queue] = inst
	return inst
}

// Queues lists the queues with live instances.
func (r *Registry) Queues() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.instances))
	for q := range r.instances {
		out = append(out, q)
	}
	return out
}

// Close shuts down every instance.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inst := range r.instances {
		inst.Close()
	}
	r.instances = make(map[string]*Instance)
}
