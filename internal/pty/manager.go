package pty

import (
	"errors"
	"log"
	"sort"
	"sync"
)

// ErrSessionNotFound is returned for an id the manager does not know.
var ErrSessionNotFound = errors.New("session not found")

// Manager keeps track of live sessions in a thread-safe manner. Sessions
// themselves are single-threaded, so every access goes through Do, which
// holds that session's lock for the duration of the call.
type Manager struct {
	sessions map[string]*entry
	mu       sync.RWMutex
}

type entry struct {
	mu   sync.Mutex
	sess *Session
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*entry)}
}

// DefaultManager is the global session manager instance.
var DefaultManager = NewManager()

// Add adds a session to the manager under its ID.
func (m *Manager) Add(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = &entry{sess: s}
}

// Do runs fn with exclusive access to the session called id.
func (m *Manager) Do(id string, fn func(*Session) error) error {
	m.mu.RLock()
	e := m.sessions[id]
	m.mu.RUnlock()
	if e == nil {
		return ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.sess)
}

// Remove removes a session from the manager.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// IDs returns the ids of all managed sessions, sorted.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of managed sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll closes and forgets every session.
func (m *Manager) CloseAll(force bool) {
	for _, id := range m.IDs() {
		err := m.Do(id, func(s *Session) error {
			return s.Close(force)
		})
		if err != nil {
			log.Printf("[PTY] Warning: failed to close session %s: %v", id, err)
		}
		m.Remove(id)
	}
}
