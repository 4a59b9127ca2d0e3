// Package conversation implements the session state coordinator behind one
// doctor/patient chat: the message store plus the recording, generation,
// playback and edit sessions that mutate it.
package conversation

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/medilink-lk/medibridge/backend/internal/model/chat"
	"github.com/medilink-lk/medibridge/backend/internal/ports"
)

var (
	ErrGenerationInFlight     = errors.New("response generation already in flight")
	ErrNoActiveRecording      = errors.New("no active recording")
	ErrRecorderUnavailable    = errors.New("no microphone recorder configured")
	ErrTranscriberUnavailable = errors.New("no transcriber configured")
	ErrMessageNotFound        = errors.New("message not found")
	ErrClosed                 = errors.New("conversation closed")
)

// User-facing messages stay in Sinhala; internal errors stay in English.
const (
	msgRecordingStartFailed = "පටිගත කිරීම ආරම්භ කිරීමට නොහැකි විය"
	msgMicPermissionDenied  = "මයික්‍රොෆෝනය භාවිතයට අවසරය ලබා දී නොමැත"
	msgTranscriptionFailed  = "සවන් දීමේ දෝෂයක් ඇතිවිය. කරුණාකර නැවත උත්සාහ කරන්න"
	msgSpeechFailed         = "කථිත පණිවිඩය ජනනය කිරීමේ දෝෂයක් ඇතිවිය"
	msgSendFailed           = "පණිවිඩය යැවීමේදී දෝෂයක් ඇතිවිය. කරුණාකර නැවත උත්සාහ කරන්න"
)

// Deps are the collaborators a coordinator drives. Recorder and Player may
// be nil when the deployment has no local audio devices; the corresponding
// operations then fail with ErrRecorderUnavailable or skip playback.
type Deps struct {
	Generator   ports.OptionGenerator
	Transcriber ports.Transcriber
	Synthesizer ports.SpeechSynthesizer
	Recorder    ports.Recorder
	Player      ports.Player
	Translator  ports.Translator
	Images      ports.ImageFinder
}

// Coordinator owns the state of one conversation. A single mutex stands in
// for the UI event loop of the original client: every completion callback
// re-acquires it and applies its result against the latest state, never a
// stale snapshot.
type Coordinator struct {
	mu    sync.Mutex
	store *Store
	deps  Deps

	loading      bool
	audioLoading bool
	transcribing bool
	capture      ports.Capture
	playback     ports.Playback
	speakingID   string
	speakSeq     uint64
	editingID    string
	editText     string
	lastError    string
	closed       bool

	subs    map[int]chan chat.State
	nextSub int
}

// New creates a coordinator with an empty message store.
func New(deps Deps) *Coordinator {
	return &Coordinator{
		store: NewStore(),
		deps:  deps,
		subs:  make(map[int]chan chat.State),
	}
}

// SendDoctorMessage finalizes a typed doctor message and generates patient
// reply options for it. Empty input is a no-op. At most one generation may
// be in flight; overlapping sends are a caller error.
func (c *Coordinator) SendDoctorMessage(ctx context.Context, text string) error {
	return c.submitDoctorMessage(ctx, text, false)
}

func (c *Coordinator) submitDoctorMessage(ctx context.Context, text string, transcribed bool) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.loading {
		c.mu.Unlock()
		return ErrGenerationInFlight
	}
	// Stale candidate replies are cleared in the same logical step as the
	// new doctor turn.
	c.store.RemovePendingOptions()
	c.store.Append(chat.Message{
		Text:            text,
		Sender:          chat.SenderDoctor,
		IsTranscription: transcribed,
	})
	c.loading = true
	c.lastError = ""
	c.broadcastLocked()
	c.mu.Unlock()

	options, err := c.deps.Generator.PatientOptions(ctx, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		c.lastError = msgSendFailed
		c.broadcastLocked()
		return err
	}
	for _, opt := range options {
		c.store.Append(chat.Message{
			Text:     opt,
			Sender:   chat.SenderPatient,
			IsOption: true,
		})
	}
	c.broadcastLocked()
	return nil
}

// SelectPatientResponse confirms one candidate reply: pending options are
// removed, the chosen text becomes a regular patient message, and playback
// for it starts automatically so the doctor hears the answer.
func (c *Coordinator) SelectPatientResponse(ctx context.Context, text string) (chat.Message, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return chat.Message{}, ErrClosed
	}
	c.store.RemovePendingOptions()
	msg := c.store.Append(chat.Message{Text: text, Sender: chat.SenderPatient})
	c.broadcastLocked()
	c.mu.Unlock()

	if err := c.Speak(ctx, msg.ID, text); err != nil {
		log.Printf("[playback] auto speak for selected reply %s failed: %v", msg.ID, err)
	}
	return msg, nil
}

// LookupTerm translates a word from a message and attaches an illustrative
// image. Failures are logged and dropped: lookup is an enrichment, the word
// simply stays unannotated and can be retried.
func (c *Coordinator) LookupTerm(ctx context.Context, messageID, term string) {
	if c.deps.Translator == nil || c.deps.Images == nil {
		log.Printf("[lookup] lookup service not configured, dropping %q", term)
		return
	}

	english, err := c.deps.Translator.Translate(ctx, term)
	if err != nil {
		log.Printf("[lookup] translation for %q failed: %v", term, err)
		return
	}

	imgURL, err := c.deps.Images.FindImage(ctx, english)
	if err != nil {
		log.Printf("[lookup] image for %q failed: %v", english, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.store.UpdateByID(messageID, func(m *chat.Message) {
		m.HoverData = &chat.HoverData{Term: term, English: english, ImgURL: imgURL}
	}) {
		c.broadcastLocked()
	}
}

// Snapshot returns the current conversation state.
func (c *Coordinator) Snapshot() chat.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers a listener for state updates. The current state is
// delivered immediately; the returned func cancels the subscription. Slow
// listeners miss intermediate snapshots rather than blocking sessions.
func (c *Coordinator) Subscribe() (<-chan chat.State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan chat.State, 16)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.snapshotLocked()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// Close tears the conversation down, releasing the microphone and any
// playing audio. Scoped acquisition: no path may leak a live resource.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	capture, playback := c.capture, c.playback
	c.capture, c.playback = nil, nil
	c.speakingID = ""
	c.speakSeq++
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()

	if capture != nil {
		capture.Discard()
	}
	if playback != nil {
		playback.Stop()
	}
}

func (c *Coordinator) snapshotLocked() chat.State {
	return chat.State{
		Messages:          c.store.Messages(),
		Loading:           c.loading,
		AudioLoading:      c.audioLoading,
		Recording:         c.capture != nil,
		Transcribing:      c.transcribing,
		SpeakingMessageID: c.speakingID,
		EditingMessageID:  c.editingID,
		EditText:          c.editText,
		Error:             c.lastError,
	}
}

func (c *Coordinator) broadcastLocked() {
	state := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case ch <- state:
		default:
		}
	}
}
