// Package shutdown coordinates ordered cleanup when the process stops: the
// scheduler loop drains, the backend unloads, the history database closes
// and logs flush, in that order.
package shutdown

import (
	"context"
	"sort"
	"sync"

	"artloop/core"
)

type entry struct {
	name     string
	fn       core.ShutdownFunc
	priority int // lower runs earlier
}

// Registry holds cleanup functions and runs them in priority order.
//
// Priority convention here:
//   - 0-9: stop producing work (scheduler, event sinks)
//   - 10-19: release the backend (clear memory, unload)
//   - 20-29: close storage (history database)
//   - 30+: flush logs
type Registry struct {
	mu      sync.Mutex
	entries []entry
	closed  bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a cleanup step. Registration after Shutdown is a no-op.
func (r *Registry) Register(name string, priority int, fn core.ShutdownFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.entries = append(r.entries, entry{name: name, fn: fn, priority: priority})
}

// Shutdown runs every registered function in priority order, collecting
// errors instead of stopping at the first one. A second call returns nil.
func (r *Registry) Shutdown(ctx context.Context) []error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	sorted := make([]entry, len(r.entries))
	copy(sorted, r.entries)
	r.mu.Unlock()

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].priority < sorted[j].priority
	})

	var errs []error
	for _, e := range sorted {
		if err := e.fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Names lists registered steps in execution order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	sorted := make([]entry, len(r.entries))
	copy(sorted, r.entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].priority < sorted[j].priority
	})

	names := make([]string, len(sorted))
	for i, e := range sorted {
		names[i] = e.name
	}
	return names
}

// Count reports how many steps are registered.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// IsClosed reports whether Shutdown already ran.
func (r *Registry) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
