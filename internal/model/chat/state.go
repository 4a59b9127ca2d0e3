package chat

// State is a point-in-time snapshot of one conversation, shaped for the
// mobile client. Messages are in insertion order.
type State struct {
	Messages          []Message `json:"messages"`
	Loading           bool      `json:"loading"`
	AudioLoading      bool      `json:"audioLoading"`
	Recording         bool      `json:"recording"`
	Transcribing      bool      `json:"transcribing"`
	SpeakingMessageID string    `json:"speakingMessageId,omitempty"`
	EditingMessageID  string    `json:"editingMessageId,omitempty"`
	EditText          string    `json:"editText,omitempty"`
	Error             string    `json:"error,omitempty"`
}
