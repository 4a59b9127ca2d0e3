package conversation

import (
	"context"
	"errors"
	"strings"

	"github.com/medilink-lk/medibridge/backend/internal/ports"
	"github.com/medilink-lk/medibridge/backend/internal/sinhala"
)

// StartRecording begins a microphone capture. Starting while already
// recording is a no-op; the single capture slot is guarded by state, not a
// queue.
func (c *Coordinator) StartRecording(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.deps.Recorder == nil {
		c.mu.Unlock()
		return ErrRecorderUnavailable
	}
	if c.capture != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	capture, err := c.deps.Recorder.Start(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if errors.Is(err, ports.ErrPermissionDenied) {
			c.lastError = msgMicPermissionDenied
		} else {
			c.lastError = msgRecordingStartFailed
		}
		c.broadcastLocked()
		return err
	}
	if c.closed || c.capture != nil {
		// Closed or raced with another start while acquiring; the slot is
		// taken, so this capture must not leak.
		go capture.Discard()
		if c.closed {
			return ErrClosed
		}
		return nil
	}
	c.capture = capture
	c.lastError = ""
	c.broadcastLocked()
	return nil
}

// StopRecording finalizes the capture, transcribes the audio, and submits
// the transcript as a doctor message. Failure at any point aborts to idle
// with a localized message and no message appended.
func (c *Coordinator) StopRecording(ctx context.Context) error {
	c.mu.Lock()
	capture := c.capture
	if capture == nil {
		c.mu.Unlock()
		return ErrNoActiveRecording
	}
	c.capture = nil
	c.transcribing = true
	c.lastError = ""
	c.broadcastLocked()
	c.mu.Unlock()

	audio, err := capture.Stop()
	if err == nil && len(audio) == 0 {
		err = ports.ErrEmptyRecording
	}
	if err != nil {
		c.failTranscription()
		return err
	}

	return c.transcribeAndSubmit(ctx, audio, capture.Format())
}

// CancelRecording abandons an in-progress capture without transcribing.
func (c *Coordinator) CancelRecording() {
	c.mu.Lock()
	capture := c.capture
	c.capture = nil
	c.lastError = ""
	if capture != nil {
		c.broadcastLocked()
	}
	c.mu.Unlock()

	if capture != nil {
		capture.Discard()
	}
}

// SubmitAudio transcribes client-recorded audio and submits the transcript
// as a doctor message. This is the path mobile clients use; the local
// microphone never enters the picture.
func (c *Coordinator) SubmitAudio(ctx context.Context, audio []byte, format string) error {
	if len(audio) == 0 {
		return ports.ErrEmptyRecording
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.transcribing = true
	c.lastError = ""
	c.broadcastLocked()
	c.mu.Unlock()

	return c.transcribeAndSubmit(ctx, audio, format)
}

func (c *Coordinator) transcribeAndSubmit(ctx context.Context, audio []byte, format string) error {
	if c.deps.Transcriber == nil {
		c.failTranscription()
		return ErrTranscriberUnavailable
	}

	transcript, err := c.deps.Transcriber.Transcribe(ctx, audio, format)
	if err == nil {
		// The recognizer occasionally mixes Latin fragments into its
		// output; keep only Sinhala script and punctuation.
		transcript = sinhala.Filter(transcript)
		if strings.TrimSpace(transcript) == "" {
			err = errors.New("no transcript received")
		}
	}
	if err != nil {
		c.failTranscription()
		return err
	}

	c.mu.Lock()
	c.transcribing = false
	c.mu.Unlock()

	return c.submitDoctorMessage(ctx, transcript, true)
}

func (c *Coordinator) failTranscription() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcribing = false
	c.lastError = msgTranscriptionFailed
	c.broadcastLocked()
}
