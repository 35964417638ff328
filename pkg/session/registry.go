package session

import (
	"sort"
	"sync"

	"github.com/aretw0/rerun/pkg/domain"
)

// Registry is the process-wide map of session states.
// The map itself is safe for concurrent use; each SessionState is guarded by the Manager gate.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*domain.SessionState
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*domain.SessionState),
	}
}

// GetOrCreate returns the session, creating it on first contact.
func (r *Registry) GetOrCreate(id string) *domain.SessionState {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s
	}
	s = domain.NewSessionState(id)
	r.sessions[id] = s
	return s
}

// Get returns an existing session.
func (r *Registry) Get(id string) (*domain.SessionState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Delete destroys a session.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// IDs returns the known session IDs in lexical order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
