// Package registry maintains per-type listener sets for the bus.
package registry

import "sync"

type entry[H any] struct {
	id      uint64
	handler H
}

// Registry maps message types to listeners, preserving registration order
// for dispatch. Listener identity is the token returned by Add, so the same
// function value can be registered more than once.
type Registry[H any] struct {
	mu     sync.RWMutex
	types  map[string][]entry[H]
	nextID uint64
}

// New creates an empty registry.
func New[H any]() *Registry[H] {
	return &Registry[H]{types: make(map[string][]entry[H])}
}

// Add registers a listener for msgType and returns a removal function.
// The removal function reports whether the listener was still registered,
// and is safe to call more than once.
func (r *Registry[H]) Add(msgType string, h H) func() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	r.types[msgType] = append(r.types[msgType], entry[H]{id: id, handler: h})

	return func() bool {
		return r.remove(msgType, id)
	}
}

func (r *Registry[H]) remove(msgType string, id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, ok := r.types[msgType]
	if !ok {
		return false
	}

	for i, e := range entries {
		if e.id == id {
			entries = append(entries[:i], entries[i+1:]...)
			if len(entries) == 0 {
				// Last listener gone, drop the type entry entirely.
				delete(r.types, msgType)
			} else {
				r.types[msgType] = entries
			}

			return true
		}
	}

	return false
}

// RemoveAll unregisters every listener for msgType and reports whether any
// existed.
func (r *Registry[H]) RemoveAll(msgType string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.types[msgType]
	delete(r.types, msgType)

	return ok
}

// Handlers returns the listeners for msgType in registration order.
// The returned slice is a copy; dispatch over it is unaffected by
// concurrent registration changes.
func (r *Registry[H]) Handlers(msgType string) []H {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, ok := r.types[msgType]
	if !ok {
		return nil
	}

	handlers := make([]H, len(entries))
	for i, e := range entries {
		handlers[i] = e.handler
	}

	return handlers
}

// Count returns the number of listeners registered for msgType.
func (r *Registry[H]) Count(msgType string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.types[msgType])
}

// Clear removes every listener for every type.
func (r *Registry[H]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.types)
}
