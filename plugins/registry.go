package plugins

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the enable/order state for registered plugins.
//
// Thread-safety: Enable/Disable may be called concurrently with an in-flight
// pipeline run. The pipeline reads state through Snapshot, so mutations only
// affect runs that start after the mutation; a running pipeline keeps the
// snapshot captured at its start.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	plugin  Plugin
	enabled bool
	order   int
}

// Status describes one registered plugin for display and configuration APIs.
type Status struct {
	Name    string
	Enabled bool
	Order   int
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registryEntry)}
}

// Register adds a plugin with an execution order and initial enabled state.
// Registering a duplicate name is an error.
func (r *Registry) Register(p Plugin, order int, enabled bool) error {
	if p == nil {
		return fmt.Errorf("plugins: cannot register nil plugin")
	}
	name := p.Name()
	if name == "" {
		return fmt.Errorf("plugins: plugin name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("plugins: plugin %q already registered", name)
	}
	r.entries[name] = &registryEntry{plugin: p, enabled: enabled, order: order}
	return nil
}

// Enable marks a plugin as participating in subsequent runs.
func (r *Registry) Enable(name string) error {
	return r.setEnabled(name, true)
}

// Disable removes a plugin from subsequent runs without unregistering it.
func (r *Registry) Disable(name string) error {
	return r.setEnabled(name, false)
}

func (r *Registry) setEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[name]
	if !ok {
		return fmt.Errorf("plugins: unknown plugin %q", name)
	}
	entry.enabled = enabled
	return nil
}

// Snapshot returns the enabled plugins in execution order: ascending order
// value, ties broken by name. The returned slice is owned by the caller and
// unaffected by later Enable/Disable calls.
func (r *Registry) Snapshot() []Plugin {
	r.mu.RLock()
	type ordered struct {
		plugin Plugin
		order  int
		name   string
	}
	selected := make([]ordered, 0, len(r.entries))
	for name, entry := range r.entries {
		if entry.enabled {
			selected = append(selected, ordered{entry.plugin, entry.order, name})
		}
	}
	r.mu.RUnlock()

	sort.Slice(selected, func(i, j int) bool {
		if selected[i].order != selected[j].order {
			return selected[i].order < selected[j].order
		}
		return selected[i].name < selected[j].name
	})

	result := make([]Plugin, len(selected))
	for i, s := range selected {
		result[i] = s.plugin
	}
	return result
}

// List returns the status of every registered plugin, enabled or not,
// sorted the same way Snapshot orders execution.
func (r *Registry) List() []Status {
	r.mu.RLock()
	result := make([]Status, 0, len(r.entries))
	for name, entry := range r.entries {
		result = append(result, Status{Name: name, Enabled: entry.enabled, Order: entry.order})
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].Order != result[j].Order {
			return result[i].Order < result[j].Order
		}
		return result[i].Name < result[j].Name
	})
	return result
}
