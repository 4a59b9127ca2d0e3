package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/medilink-lk/medibridge/backend/internal/model/chat"
	"github.com/medilink-lk/medibridge/backend/internal/ports"
)

// eventLog records resource acquisition/release order across fakes.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	copied := make([]string, len(l.events))
	copy(copied, l.events)
	return copied
}

type fakeGenerator struct {
	mu      sync.Mutex
	calls   []string
	options []string
	err     error
	block   chan struct{}
}

func (g *fakeGenerator) PatientOptions(_ context.Context, question string) ([]string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, question)
	block := g.block
	g.mu.Unlock()

	if block != nil {
		<-block
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.options, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type fakeSynthesizer struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (s *fakeSynthesizer) Synthesize(_ context.Context, text string) ([]byte, error) {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return []byte("mp3-" + text), nil
}

func (s *fakeSynthesizer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.texts)
}

type fakePlayback struct {
	log   *eventLog
	label string
	done  chan struct{}
	once  sync.Once
}

func (p *fakePlayback) Done() <-chan struct{} { return p.done }

func (p *fakePlayback) Stop() {
	p.once.Do(func() {
		p.log.add("stop:" + p.label)
		close(p.done)
	})
}

// finish simulates natural playback completion.
func (p *fakePlayback) finish() {
	p.once.Do(func() { close(p.done) })
}

type fakePlayer struct {
	log       *eventLog
	mu        sync.Mutex
	playbacks []*fakePlayback
	err       error
}

func (p *fakePlayer) Play(_ context.Context, _ []byte) (ports.Playback, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	label := fmt.Sprintf("clip%d", len(p.playbacks)+1)
	playback := &fakePlayback{log: p.log, label: label, done: make(chan struct{})}
	p.playbacks = append(p.playbacks, playback)
	p.log.add("play:" + label)
	return playback, nil
}

func (p *fakePlayer) playback(i int) *fakePlayback {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playbacks[i]
}

type fakeCapture struct {
	mu        sync.Mutex
	audio     []byte
	stopErr   error
	discarded bool
}

func (c *fakeCapture) Stop() ([]byte, error) { return c.audio, c.stopErr }
func (c *fakeCapture) Format() string        { return "wav" }

func (c *fakeCapture) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discarded = true
}

func (c *fakeCapture) wasDiscarded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discarded
}

type fakeRecorder struct {
	mu      sync.Mutex
	capture *fakeCapture
	err     error
	starts  int
}

func (r *fakeRecorder) Start(_ context.Context) (ports.Capture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
	if r.err != nil {
		return nil, r.err
	}
	return r.capture, nil
}

func (r *fakeRecorder) startCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts
}

type fakeTranscriber struct {
	mu     sync.Mutex
	audios [][]byte
	text   string
	err    error
}

func (t *fakeTranscriber) Transcribe(_ context.Context, audio []byte, _ string) (string, error) {
	t.mu.Lock()
	t.audios = append(t.audios, audio)
	t.mu.Unlock()
	if t.err != nil {
		return "", t.err
	}
	return t.text, nil
}

func (t *fakeTranscriber) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.audios)
}

type fakeTranslator struct {
	english string
	err     error
}

func (t *fakeTranslator) Translate(_ context.Context, _ string) (string, error) {
	return t.english, t.err
}

type fakeImageFinder struct {
	url string
	err error
}

func (f *fakeImageFinder) FindImage(_ context.Context, _ string) (string, error) {
	return f.url, f.err
}

var sinhalaOptions = []string{
	"මට හොඳින් දැනෙනවා.",
	"ටිකක් අමාරුයි.",
	"මට නින්ද යන්නේ නැහැ.",
}

type testFixture struct {
	generator   *fakeGenerator
	synthesizer *fakeSynthesizer
	player      *fakePlayer
	recorder    *fakeRecorder
	transcriber *fakeTranscriber
	translator  *fakeTranslator
	images      *fakeImageFinder
	log         *eventLog
}

func newFixture() *testFixture {
	log := &eventLog{}
	return &testFixture{
		generator:   &fakeGenerator{options: sinhalaOptions},
		synthesizer: &fakeSynthesizer{},
		player:      &fakePlayer{log: log},
		recorder:    &fakeRecorder{capture: &fakeCapture{audio: []byte("pcm")}},
		transcriber: &fakeTranscriber{text: "ඔබට කොහොමද?"},
		translator:  &fakeTranslator{english: "fever"},
		images:      &fakeImageFinder{url: "https://example.org/fever.jpg"},
		log:         log,
	}
}

func (f *testFixture) coordinator() *Coordinator {
	return New(Deps{
		Generator:   f.generator,
		Transcriber: f.transcriber,
		Synthesizer: f.synthesizer,
		Recorder:    f.recorder,
		Player:      f.player,
		Translator:  f.translator,
		Images:      f.images,
	})
}

func TestSendDoctorMessageAppendsQuestionAndThreeOptions(t *testing.T) {
	f := newFixture()
	c := f.coordinator()
	defer c.Close()

	states, cancel := c.Subscribe()
	defer cancel()

	require.NoError(t, c.SendDoctorMessage(context.Background(), "ඔබට කොහොමද?"))

	state := c.Snapshot()
	require.Len(t, state.Messages, 4)
	require.Equal(t, chat.SenderDoctor, state.Messages[0].Sender)
	require.Equal(t, "ඔබට කොහොමද?", state.Messages[0].Text)
	require.False(t, state.Messages[0].IsTranscription)
	for i, opt := range state.Messages[1:] {
		require.Equal(t, chat.SenderPatient, opt.Sender, "option %d", i)
		require.True(t, opt.IsOption, "option %d", i)
		require.Equal(t, sinhalaOptions[i], opt.Text)
	}
	require.False(t, state.Loading)

	sawLoading := false
	for {
		select {
		case s := <-states:
			if s.Loading {
				sawLoading = true
			}
		default:
			require.True(t, sawLoading, "expected a broadcast state with loading=true")
			return
		}
	}
}

func TestSendDoctorMessageClearsStalePendingOptions(t *testing.T) {
	f := newFixture()
	c := f.coordinator()
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.SendDoctorMessage(ctx, "ප්‍රශ්නය එක"))
	require.NoError(t, c.SendDoctorMessage(ctx, "ප්‍රශ්නය දෙක"))

	messages := c.Snapshot().Messages
	require.Len(t, messages, 5)
	require.Equal(t, "ප්‍රශ්නය එක", messages[0].Text)
	require.Equal(t, "ප්‍රශ්නය දෙක", messages[1].Text)
	optionCount := 0
	for _, m := range messages {
		if m.IsOption {
			optionCount++
		}
	}
	require.Equal(t, 3, optionCount)
}

func TestSendDoctorMessageEmptyInputIsNoop(t *testing.T) {
	f := newFixture()
	c := f.coordinator()
	defer c.Close()

	require.NoError(t, c.SendDoctorMessage(context.Background(), "   "))
	require.Empty(t, c.Snapshot().Messages)
	require.Zero(t, f.generator.callCount())
}

func TestSendDoctorMessageRejectsOverlappingGeneration(t *testing.T) {
	f := newFixture()
	f.generator.block = make(chan struct{})
	c := f.coordinator()
	defer c.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.SendDoctorMessage(context.Background(), "පළමු ප්‍රශ්නය")
	}()

	require.Eventually(t, func() bool {
		return c.Snapshot().Loading
	}, time.Second, 5*time.Millisecond)

	err := c.SendDoctorMessage(context.Background(), "දෙවන ප්‍රශ්නය")
	require.ErrorIs(t, err, ErrGenerationInFlight)

	close(f.generator.block)
	require.NoError(t, <-errCh)
	require.Equal(t, 1, f.generator.callCount())
}

func TestSelectPatientResponseConfirmsOptionAndSpeaks(t *testing.T) {
	f := newFixture()
	c := f.coordinator()
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.SendDoctorMessage(ctx, "ඔබට කොහොමද?"))

	chosen := sinhalaOptions[1]
	msg, err := c.SelectPatientResponse(ctx, chosen)
	require.NoError(t, err)

	state := c.Snapshot()
	require.Len(t, state.Messages, 2)
	last := state.Messages[1]
	require.Equal(t, chosen, last.Text)
	require.Equal(t, chat.SenderPatient, last.Sender)
	require.False(t, last.IsOption)

	require.Equal(t, 1, f.synthesizer.callCount())
	require.Equal(t, msg.ID, state.SpeakingMessageID)
}

func TestSpeakSameMessageTogglesStop(t *testing.T) {
	f := newFixture()
	c := f.coordinator()
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Speak(ctx, "m1", "ස්තුතියි"))
	require.Equal(t, "m1", c.Snapshot().SpeakingMessageID)

	require.NoError(t, c.Speak(ctx, "m1", "ස්තුතියි"))

	state := c.Snapshot()
	require.Empty(t, state.SpeakingMessageID)
	require.Equal(t, 1, f.synthesizer.callCount(), "toggling must not re-synthesize")
	require.Equal(t, []string{"play:clip1", "stop:clip1"}, f.log.list())
}

func TestSpeakReplacesActivePlayback(t *testing.T) {
	f := newFixture()
	c := f.coordinator()
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Speak(ctx, "a", "පළමු වැකිය"))
	require.NoError(t, c.Speak(ctx, "b", "දෙවන වැකිය"))

	require.Equal(t, "b", c.Snapshot().SpeakingMessageID)
	require.Equal(t, []string{"play:clip1", "stop:clip1", "play:clip2"}, f.log.list())
}

func TestSpeakNaturalCompletionClearsState(t *testing.T) {
	f := newFixture()
	c := f.coordinator()
	defer c.Close()

	require.NoError(t, c.Speak(context.Background(), "m1", "ස්තුතියි"))
	f.player.playback(0).finish()

	require.Eventually(t, func() bool {
		return c.Snapshot().SpeakingMessageID == ""
	}, time.Second, 5*time.Millisecond)
}

func TestSpeakSynthesisFailureSurfacesError(t *testing.T) {
	f := newFixture()
	f.synthesizer.err = errors.New("tts down")
	c := f.coordinator()
	defer c.Close()

	err := c.Speak(context.Background(), "m1", "ස්තුතියි")
	require.Error(t, err)

	state := c.Snapshot()
	require.Empty(t, state.SpeakingMessageID)
	require.False(t, state.AudioLoading)
	require.Equal(t, msgSpeechFailed, state.Error)
}

func TestEditLifecycle(t *testing.T) {
	f := newFixture()
	c := f.coordinator()
	defer c.Close()

	require.NoError(t, c.SendDoctorMessage(context.Background(), "ඔබට කොහොමද?"))
	target := c.Snapshot().Messages[0]

	c.StartEditing(target.ID)
	state := c.Snapshot()
	require.Equal(t, target.ID, state.EditingMessageID)
	require.Equal(t, target.Text, state.EditText)

	c.UpdateDraft("ඔබට දැන් කොහොමද?")
	c.SaveEdit()

	state = c.Snapshot()
	require.Empty(t, state.EditingMessageID)
	require.Empty(t, state.EditText)
	require.Equal(t, "ඔබට දැන් කොහොමද?", state.Messages[0].Text)
	require.True(t, state.Messages[0].IsEdited)
	require.Equal(t, target.ID, state.Messages[0].ID)
}

func TestStartEditingUnknownIDIsNoop(t *testing.T) {
	f := newFixture()
	c := f.coordinator()
	defer c.Close()

	c.StartEditing("missing")
	require.Empty(t, c.Snapshot().EditingMessageID)
}

func TestStartEditingReplacesActiveDraft(t *testing.T) {
	f := newFixture()
	c := f.coordinator()
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.SendDoctorMessage(ctx, "පළමු ප්‍රශ්නය"))
	messages := c.Snapshot().Messages

	c.StartEditing(messages[0].ID)
	c.UpdateDraft("අතහැර දැමෙන කෙටුම්පත")
	c.StartEditing(messages[1].ID)

	state := c.Snapshot()
	require.Equal(t, messages[1].ID, state.EditingMessageID)
	require.Equal(t, messages[1].Text, state.EditText)
	require.Equal(t, "පළමු ප්‍රශ්නය", state.Messages[0].Text, "abandoned draft must not be saved")
}

func TestCancelEditKeepsMessage(t *testing.T) {
	f := newFixture()
	c := f.coordinator()
	defer c.Close()

	require.NoError(t, c.SendDoctorMessage(context.Background(), "ඔබට කොහොමද?"))
	target := c.Snapshot().Messages[0]

	c.StartEditing(target.ID)
	c.UpdateDraft("වෙනස් කළ පෙළ")
	c.CancelEdit()

	state := c.Snapshot()
	require.Empty(t, state.EditingMessageID)
	require.Equal(t, target.Text, state.Messages[0].Text)
	require.False(t, state.Messages[0].IsEdited)
}

func TestRecordingFlowTranscribesAndGenerates(t *testing.T) {
	f := newFixture()
	c := f.coordinator()
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.StartRecording(ctx))
	require.True(t, c.Snapshot().Recording)

	// Starting again while recording is a guarded no-op.
	require.NoError(t, c.StartRecording(ctx))
	require.Equal(t, 1, f.recorder.startCount())

	require.NoError(t, c.StopRecording(ctx))

	state := c.Snapshot()
	require.False(t, state.Recording)
	require.False(t, state.Transcribing)
	require.Equal(t, 1, f.transcriber.callCount())
	require.Len(t, state.Messages, 4)
	require.Equal(t, "ඔබට කොහොමද?", state.Messages[0].Text)
	require.True(t, state.Messages[0].IsTranscription)
	require.Equal(t, chat.SenderDoctor, state.Messages[0].Sender)
}

func TestStopRecordingEmptyAudioFails(t *testing.T) {
	f := newFixture()
	f.recorder.capture = &fakeCapture{audio: nil}
	c := f.coordinator()
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.StartRecording(ctx))

	err := c.StopRecording(ctx)
	require.ErrorIs(t, err, ports.ErrEmptyRecording)

	state := c.Snapshot()
	require.Empty(t, state.Messages)
	require.Equal(t, msgTranscriptionFailed, state.Error)
	require.Zero(t, f.transcriber.callCount())
}

func TestCancelRecordingDiscardsAudio(t *testing.T) {
	f := newFixture()
	c := f.coordinator()
	defer c.Close()

	require.NoError(t, c.StartRecording(context.Background()))
	c.CancelRecording()

	require.False(t, c.Snapshot().Recording)
	require.True(t, f.recorder.capture.wasDiscarded())
	require.Zero(t, f.transcriber.callCount())
}

func TestStopRecordingWithoutActiveRecording(t *testing.T) {
	f := newFixture()
	c := f.coordinator()
	defer c.Close()

	err := c.StopRecording(context.Background())
	require.ErrorIs(t, err, ErrNoActiveRecording)
}

func TestStartRecordingPermissionDenied(t *testing.T) {
	f := newFixture()
	f.recorder.err = fmt.Errorf("device busy: %w", ports.ErrPermissionDenied)
	c := f.coordinator()
	defer c.Close()

	err := c.StartRecording(context.Background())
	require.ErrorIs(t, err, ports.ErrPermissionDenied)
	require.Equal(t, msgMicPermissionDenied, c.Snapshot().Error)
	require.False(t, c.Snapshot().Recording)
}

func TestTranscriptionFailureAppendsNothing(t *testing.T) {
	f := newFixture()
	f.transcriber.err = errors.New("stt down")
	c := f.coordinator()
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.StartRecording(ctx))
	require.Error(t, c.StopRecording(ctx))

	state := c.Snapshot()
	require.Empty(t, state.Messages)
	require.False(t, state.Transcribing)
	require.Equal(t, msgTranscriptionFailed, state.Error)
	require.Zero(t, f.generator.callCount())
}

func TestSubmitAudioFeedsDoctorMessagePath(t *testing.T) {
	f := newFixture()
	c := f.coordinator()
	defer c.Close()

	require.NoError(t, c.SubmitAudio(context.Background(), []byte("m4a-bytes"), "m4a"))

	state := c.Snapshot()
	require.Len(t, state.Messages, 4)
	require.True(t, state.Messages[0].IsTranscription)
	require.Equal(t, 1, f.transcriber.callCount())
}

func TestSubmitAudioRejectsEmptyPayload(t *testing.T) {
	f := newFixture()
	c := f.coordinator()
	defer c.Close()

	err := c.SubmitAudio(context.Background(), nil, "m4a")
	require.ErrorIs(t, err, ports.ErrEmptyRecording)
}

func TestTranscriptLatinFragmentsAreFiltered(t *testing.T) {
	f := newFixture()
	f.transcriber.text = "ඔබට hello කොහොමද?"
	c := f.coordinator()
	defer c.Close()

	require.NoError(t, c.SubmitAudio(context.Background(), []byte("wav-bytes"), "wav"))

	state := c.Snapshot()
	require.Equal(t, "ඔබට  කොහොමද?", state.Messages[0].Text)
}

func TestTranscriptWithNoSinhalaFails(t *testing.T) {
	f := newFixture()
	f.transcriber.text = "hello there"
	c := f.coordinator()
	defer c.Close()

	require.Error(t, c.SubmitAudio(context.Background(), []byte("wav-bytes"), "wav"))

	state := c.Snapshot()
	require.Empty(t, state.Messages)
	require.Equal(t, msgTranscriptionFailed, state.Error)
}

func TestSubmitAudioWithoutTranscriber(t *testing.T) {
	c := New(Deps{})
	defer c.Close()

	err := c.SubmitAudio(context.Background(), []byte("wav-bytes"), "wav")
	require.ErrorIs(t, err, ErrTranscriberUnavailable)

	state := c.Snapshot()
	require.False(t, state.Transcribing)
	require.Equal(t, msgTranscriptionFailed, state.Error)
	require.Empty(t, state.Messages)
}

func TestStopRecordingWithoutTranscriber(t *testing.T) {
	f := newFixture()
	c := New(Deps{Recorder: f.recorder})
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.StartRecording(ctx))

	err := c.StopRecording(ctx)
	require.ErrorIs(t, err, ErrTranscriberUnavailable)
	require.False(t, c.Snapshot().Recording)
}

func TestLookupWithoutLookupServiceIsSilent(t *testing.T) {
	c := New(Deps{})
	defer c.Close()

	c.LookupTerm(context.Background(), "some-id", "උණ")

	state := c.Snapshot()
	require.Empty(t, state.Error)
	require.Empty(t, state.Messages)
}

func TestLookupAttachesHoverData(t *testing.T) {
	f := newFixture()
	c := f.coordinator()
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.SendDoctorMessage(ctx, "ඔබට උණ තිබේද?"))
	target := c.Snapshot().Messages[0]

	c.LookupTerm(ctx, target.ID, "උණ")

	got, ok := findMessage(c.Snapshot().Messages, target.ID)
	require.True(t, ok)
	require.NotNil(t, got.HoverData)
	require.Equal(t, "උණ", got.HoverData.Term)
	require.Equal(t, "fever", got.HoverData.English)
	require.Equal(t, "https://example.org/fever.jpg", got.HoverData.ImgURL)
}

func TestLookupFailureIsSilent(t *testing.T) {
	f := newFixture()
	f.translator.err = errors.New("translate down")
	c := f.coordinator()
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.SendDoctorMessage(ctx, "ඔබට උණ තිබේද?"))
	target := c.Snapshot().Messages[0]

	c.LookupTerm(ctx, target.ID, "උණ")

	state := c.Snapshot()
	got, ok := findMessage(state.Messages, target.ID)
	require.True(t, ok)
	require.Nil(t, got.HoverData)
	require.Empty(t, state.Error, "lookup failures never surface to the user")
}

func TestCloseReleasesHeldResources(t *testing.T) {
	f := newFixture()
	c := f.coordinator()

	ctx := context.Background()
	require.NoError(t, c.StartRecording(ctx))
	require.NoError(t, c.Speak(ctx, "m1", "ස්තුතියි"))

	c.Close()

	require.True(t, f.recorder.capture.wasDiscarded())
	require.Contains(t, f.log.list(), "stop:clip1")
	require.ErrorIs(t, c.SendDoctorMessage(ctx, "ඔබට කොහොමද?"), ErrClosed)
}

func findMessage(messages []chat.Message, id string) (chat.Message, bool) {
	for _, m := range messages {
		if m.ID == id {
			return m, true
		}
	}
	return chat.Message{}, false
}
