// Package session keeps bounded per-conversation history so follow-up
// questions carry context without unbounded prompt growth.
package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DefaultMaxHistory is how many user/assistant exchanges a session
// retains when the caller does not configure a limit.
const DefaultMaxHistory = 2

type exchange struct {
	user      string
	assistant string
}

type session struct {
	mu        sync.Mutex
	exchanges []exchange
}

// Manager owns all conversation sessions. Safe for concurrent use;
// appends within one session are serialized.
type Manager struct {
	mu         sync.RWMutex
	sessions   map[string]*session
	maxHistory int
}

// NewManager creates a manager retaining maxHistory exchanges per
// session. A maxHistory of 0 uses DefaultMaxHistory.
func NewManager(maxHistory int) *Manager {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Manager{
		sessions:   make(map[string]*session),
		maxHistory: maxHistory,
	}
}

// Create starts a new empty session and returns its ID.
func (m *Manager) Create() string {
	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = &session{}
	m.mu.Unlock()
	return id
}

// get returns the session, creating it on first use so clients may
// mint their own IDs.
func (m *Manager) get(id string) *session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok = m.sessions[id]; !ok {
		s = &session{}
		m.sessions[id] = s
	}
	return s
}

// Append records one completed exchange, evicting the oldest exchanges
// beyond the retention limit.
func (m *Manager) Append(id, userMessage, assistantMessage string) {
	s := m.get(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.exchanges = append(s.exchanges, exchange{user: userMessage, assistant: assistantMessage})
	if excess := len(s.exchanges) - m.maxHistory; excess > 0 {
		s.exchanges = append([]exchange(nil), s.exchanges[excess:]...)
	}
}

// History renders the retained exchanges as alternating User/Assistant
// lines for prompt injection. Unknown or empty sessions render "".
func (m *Manager) History(id string) string {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var lines []string
	for _, ex := range s.exchanges {
		lines = append(lines, fmt.Sprintf("User: %s", ex.user))
		lines = append(lines, fmt.Sprintf("Assistant: %s", ex.assistant))
	}
	return strings.Join(lines, "\n")
}

// Clear removes a session entirely.
func (m *Manager) Clear(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
