package services

import "sync"

// ContextRegistry hands out the per-user SessionContext. It stands in for
// the per-browser-session state of a UI frontend; entries live for the
// process lifetime or until Drop (logout). Access from concurrent requests
// for the same user is not coordinated beyond the map lock, consistent
// with the last-write-wins persistence model.
type ContextRegistry struct {
	mu     sync.Mutex
	byUser map[string]*SessionContext
}

// NewContextRegistry creates an empty registry.
func NewContextRegistry() *ContextRegistry {
	return &ContextRegistry{
		byUser: make(map[string]*SessionContext),
	}
}

// Get returns the context for a username, creating it on first use.
func (r *ContextRegistry) Get(username string) *SessionContext {
	r.mu.Lock()
	defer r.mu.Unlock()

	sctx, ok := r.byUser[username]
	if !ok {
		sctx = &SessionContext{}
		r.byUser[username] = sctx
	}
	return sctx
}

// Drop discards the context for a username.
func (r *ContextRegistry) Drop(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byUser, username)
}
