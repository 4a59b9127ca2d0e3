package conversation

import "github.com/medilink-lk/medibridge/backend/internal/model/chat"

// StartEditing opens an edit session for a message, seeding the draft with
// its current text. Unknown ids are ignored. Starting a new edit while one
// is active abandons the previous draft; there is no autosave.
func (c *Coordinator) StartEditing(messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	msg, ok := c.store.Get(messageID)
	if !ok {
		return
	}
	c.editingID = messageID
	c.editText = msg.Text
	c.broadcastLocked()
}

// UpdateDraft replaces the draft text. Valid only while editing.
func (c *Coordinator) UpdateDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.editingID == "" {
		return
	}
	c.editText = text
	c.broadcastLocked()
}

// SaveEdit writes the draft back into the message, marks it edited, and
// closes the edit session. No-op when nothing is being edited.
func (c *Coordinator) SaveEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.editingID == "" {
		return
	}
	draft := c.editText
	c.store.UpdateByID(c.editingID, func(m *chat.Message) {
		m.Text = draft
		m.IsEdited = true
	})
	c.editingID = ""
	c.editText = ""
	c.broadcastLocked()
}

// CancelEdit discards the draft without touching the message.
func (c *Coordinator) CancelEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.editingID == "" {
		return
	}
	c.editingID = ""
	c.editText = ""
	c.broadcastLocked()
}
