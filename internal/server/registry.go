// Package server tracks which connections have joined the chat via the
// Registry type, the single source of truth for the presence list.
package server

import "sync"

// Registry maps connection ids to display names. It remembers registration
// order so presence lists render stably, and guards all access with one
// mutex so Snapshot always returns a consistent point-in-time view.
type Registry struct {
	mu    sync.RWMutex
	names map[string]string
	order []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		names: make(map[string]string),
	}
}

// Register inserts or overwrites the display name for id. Overwriting an
// already-registered id is a rename and keeps its original position in the
// presence order. Register never fails.
func (r *Registry) Register(id, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.names[id]; !ok {
		r.order = append(r.order, id)
	}
	r.names[id] = name
}

// Unregister removes id and reports the display name it had. The second
// return value is false when id was never registered or was already
// removed, which callers treat as "this connection never joined".
func (r *Registry) Unregister(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, ok := r.names[id]
	if !ok {
		return "", false
	}

	delete(r.names, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return name, true
}

// Snapshot returns every registered display name in registration order. The
// returned slice is a copy; callers may keep it across later mutations.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]string, 0, len(r.order))
	for _, id := range r.order {
		users = append(users, r.names[id])
	}
	return users
}

// Len reports how many connections are currently registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}
