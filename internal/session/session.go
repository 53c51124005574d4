package session

import (
	"strconv"
	"strings"
	"sync"
)

// DefaultMaxHistory is the number of exchanges kept per session
const DefaultMaxHistory = 2

// Message is one side of a stored exchange
type Message struct {
	Role    string
	Content string
}

// Manager keeps recent conversation history in memory, keyed by session id
type Manager struct {
	mu         sync.Mutex
	maxHistory int
	sessions   map[string][]Message
	counter    int
}

// NewManager creates a manager keeping maxHistory exchanges per session.
// maxHistory <= 0 selects DefaultMaxHistory.
func NewManager(maxHistory int) *Manager {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Manager{
		maxHistory: maxHistory,
		sessions:   make(map[string][]Message),
	}
}

// Create starts an empty session and returns its id
func (m *Manager) Create() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counter++
	id := "session_" + strconv.Itoa(m.counter)
	m.sessions[id] = nil
	return id
}

// AddExchange records a question and its answer, dropping the oldest
// exchanges beyond the limit. Unknown ids start a new session.
func (m *Manager) AddExchange(id, question, answer string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := append(m.sessions[id],
		Message{Role: "user", Content: question},
		Message{Role: "assistant", Content: answer},
	)
	if limit := m.maxHistory * 2; len(msgs) > limit {
		msgs = append([]Message(nil), msgs[len(msgs)-limit:]...)
	}
	m.sessions[id] = msgs
}

// History renders the stored exchanges as "User: ..." / "Assistant: ..."
// lines, or "" when there are none
func (m *Manager) History(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := m.sessions[id]
	if len(msgs) == 0 {
		return ""
	}
	lines := make([]string, len(msgs))
	for i, msg := range msgs {
		role := "User"
		if msg.Role == "assistant" {
			role = "Assistant"
		}
		lines[i] = role + ": " + msg.Content
	}
	return strings.Join(lines, "\n")
}

// Clear empties a session's history
func (m *Manager) Clear(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; ok {
		m.sessions[id] = nil
	}
}
