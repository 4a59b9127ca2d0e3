package conversation

import (
	"time"

	"github.com/google/uuid"
	"github.com/medilink-lk/medibridge/backend/internal/model/chat"
)

// Store is the ordered log of messages for one conversation. It is not
// internally locked: the owning Coordinator serializes all access, which
// keeps append/remove/update pairs atomic in effect.
type Store struct {
	messages []chat.Message
	now      func() time.Time
}

// NewStore creates an empty message store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Append adds a message to the end of the log, assigning its ID and
// creation timestamp, and returns the stored copy.
func (s *Store) Append(m chat.Message) chat.Message {
	m.ID = uuid.NewString()
	m.Timestamp = s.now().Format("3:04:05 PM")
	s.messages = append(s.messages, m)
	return m
}

// RemovePendingOptions drops every unconfirmed candidate reply, i.e. all
// messages with sender=patient and isOption=true.
func (s *Store) RemovePendingOptions() {
	kept := s.messages[:0]
	for _, m := range s.messages {
		if m.Sender == chat.SenderPatient && m.IsOption {
			continue
		}
		kept = append(kept, m)
	}
	s.messages = kept
}

// UpdateByID applies patch to the message with the given ID and reports
// whether it was found. The ID itself cannot be changed.
func (s *Store) UpdateByID(id string, patch func(*chat.Message)) bool {
	for i := range s.messages {
		if s.messages[i].ID == id {
			patch(&s.messages[i])
			s.messages[i].ID = id
			return true
		}
	}
	return false
}

// Get returns the message with the given ID.
func (s *Store) Get(id string) (chat.Message, bool) {
	for _, m := range s.messages {
		if m.ID == id {
			return m, true
		}
	}
	return chat.Message{}, false
}

// Messages returns a copy of the log in insertion order.
func (s *Store) Messages() []chat.Message {
	copied := make([]chat.Message, len(s.messages))
	copy(copied, s.messages)
	return copied
}
