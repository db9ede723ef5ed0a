package store

import (
	"sync"
	"time"

	"nexus-chat/internal/chat"
)

// Factory builds the controller for a session seen for the first time.
type Factory func(sessionID string) *chat.Controller

type session struct {
	ctrl     *chat.Controller
	lastSeen time.Time
}

// Sessions keeps one conversation controller per browser session.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[string]*session
	factory  Factory
	ttl      time.Duration
	now      func() time.Time
}

func NewSessions(factory Factory, ttl time.Duration) *Sessions {
	return &Sessions{
		sessions: make(map[string]*session),
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the session's controller, creating it on first use.
func (m *Sessions) Get(sessionID string) *chat.Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		s = &session{ctrl: m.factory(sessionID)}
		m.sessions[sessionID] = s
	}
	s.lastSeen = m.now()
	return s.ctrl
}

// Lookup returns the controller without creating or touching the session.
func (m *Sessions) Lookup(sessionID string) (*chat.Controller, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return s.ctrl, true
}

// Sweep drops sessions idle for longer than the TTL and returns how many
// were removed. Sessions with a request in flight are kept.
func (m *Sessions) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if m.now().Sub(s.lastSeen) > m.ttl && !s.ctrl.Busy() {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

func (m *Sessions) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
