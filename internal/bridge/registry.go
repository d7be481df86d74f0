package bridge

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Info describes one live terminal session for the sessions API.
type Info struct {
	ID        string    `json:"id"`
	Host      string    `json:"host"`
	Username  string    `json:"username"`
	ClientIP  string    `json:"client_ip"`
	StartedAt time.Time `json:"started_at"`
}

type registryEntry struct {
	info   Info
	cancel context.CancelFunc
}

// Registry tracks live terminal sessions. Entries carry metadata and a
// cancel handle only; the shell channel itself never leaves its session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*registryEntry
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*registryEntry)}
}

// Add registers a session under a fresh id and returns it. cancel is
// invoked to force the session down from outside.
func (r *Registry) Add(info Info, cancel context.CancelFunc) string {
	info.ID = uuid.NewString()
	info.StartedAt = time.Now()
	r.mu.Lock()
	r.sessions[info.ID] = &registryEntry{info: info, cancel: cancel}
	r.mu.Unlock()
	return info.ID
}

// Remove drops a session from the registry. Safe for unknown ids.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// List returns the live sessions ordered by start time.
func (r *Registry) List() []Info {
	r.mu.RLock()
	out := make([]Info, 0, len(r.sessions))
	for _, e := range r.sessions {
		out = append(out, e.info)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close cancels one session's context and reports whether it existed. The
// session's own teardown removes the entry.
func (r *Registry) Close(id string) bool {
	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	e.cancel()
	return true
}

// CloseAll cancels every live session. Used during shutdown.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	entries := make([]*registryEntry, 0, len(r.sessions))
	for _, e := range r.sessions {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	for _, e := range entries {
		e.cancel()
	}
}
