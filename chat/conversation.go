package chat

import (
	"sync"

	"github.com/google/uuid"

	"github.com/clinicdesk/booking-agent/booking"
)

// Manager keeps conversations in memory, keyed by id. State does not
// survive a restart; clients hold the id and start over if it is gone.
type Manager struct {
	mu            sync.Mutex
	conversations map[string]*Conversation
	historyLimit  int
}

func NewManager(historyLimit int) *Manager {
	if historyLimit <= 0 {
		historyLimit = 25
	}
	return &Manager{
		conversations: make(map[string]*Conversation),
		historyLimit:  historyLimit,
	}
}

// Get returns the conversation for id, creating it (and the id itself,
// when empty) as needed.
func (m *Manager) Get(id string) *Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	conv, ok := m.conversations[id]
	if !ok {
		conv = &Conversation{ID: id, Phase: booking.PhaseIdle}
		m.conversations[id] = conv
	}
	return conv
}

// Reset drops all state for id. Missing ids are a no-op.
func (m *Manager) Reset(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conversations, id)
}
