package chat

// Sender identifies which side of the consultation produced a message.
type Sender string

const (
	SenderDoctor  Sender = "doctor"
	SenderPatient Sender = "patient"
)

// HoverData carries the result of a word lookup attached to a message.
type HoverData struct {
	Term    string `json:"term"`
	English string `json:"english"`
	ImgURL  string `json:"imgUrl,omitempty"`
}

// Message is one entry in a conversation. The ID never changes after
// creation; Timestamp is formatted once and immutable thereafter.
type Message struct {
	ID              string     `json:"id"`
	Text            string     `json:"text"`
	Sender          Sender     `json:"sender"`
	IsOption        bool       `json:"isOption,omitempty"`
	IsEdited        bool       `json:"isEdited,omitempty"`
	IsTranscription bool       `json:"isTranscription,omitempty"`
	Timestamp       string     `json:"timestamp"`
	HoverData       *HoverData `json:"hoverData,omitempty"`
}
