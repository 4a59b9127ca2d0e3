package conversation

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrConversationNotFound = errors.New("conversation not found")

// Manager tracks live conversations, one coordinator per chat screen. State
// lives only in memory; closing a conversation discards it.
type Manager struct {
	mu            sync.RWMutex
	conversations map[string]*Coordinator
	deps          Deps
}

// NewManager bootstraps an empty in-memory conversation registry.
func NewManager(deps Deps) *Manager {
	return &Manager{
		conversations: make(map[string]*Coordinator),
		deps:          deps,
	}
}

// Create provisions a new conversation and returns its identifier.
func (m *Manager) Create() (string, *Coordinator) {
	id := uuid.NewString()
	coordinator := New(m.deps)

	m.mu.Lock()
	m.conversations[id] = coordinator
	m.mu.Unlock()

	return id, coordinator
}

// Get retrieves a conversation by identifier.
func (m *Manager) Get(id string) (*Coordinator, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	coordinator, ok := m.conversations[id]
	return coordinator, ok
}

// Close tears down a conversation and removes it from the registry.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	coordinator, ok := m.conversations[id]
	delete(m.conversations, id)
	m.mu.Unlock()

	if !ok {
		return ErrConversationNotFound
	}
	coordinator.Close()
	return nil
}

// CloseAll releases every live conversation, used at shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	coordinators := make([]*Coordinator, 0, len(m.conversations))
	for id, c := range m.conversations {
		coordinators = append(coordinators, c)
		delete(m.conversations, id)
	}
	m.mu.Unlock()

	for _, c := range coordinators {
		c.Close()
	}
}
