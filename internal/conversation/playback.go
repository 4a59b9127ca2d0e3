package conversation

import (
	"context"
	"log"
	"strings"

	"github.com/medilink-lk/medibridge/backend/internal/ports"
)

// Speak synthesizes text and plays it, keyed by the message it belongs to.
// Invoking Speak for the message that is already speaking stops it instead
// of restarting. Any previously held audio resource is stopped and released
// before new audio is acquired, so at most one clip is ever live. Playback
// uses the text snapshot passed in, even if the message is edited meanwhile.
func (c *Coordinator) Speak(ctx context.Context, messageID, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.deps.Synthesizer == nil || c.deps.Player == nil {
		c.mu.Unlock()
		return nil
	}

	if c.speakingID == messageID && c.playback != nil {
		playback := c.playback
		c.playback = nil
		c.speakingID = ""
		c.speakSeq++
		c.broadcastLocked()
		c.mu.Unlock()
		playback.Stop()
		return nil
	}

	previous := c.playback
	c.playback = nil
	c.speakingID = ""
	c.speakSeq++
	seq := c.speakSeq
	c.audioLoading = true
	c.lastError = ""
	c.broadcastLocked()
	c.mu.Unlock()

	if previous != nil {
		previous.Stop()
	}

	audio, err := c.deps.Synthesizer.Synthesize(ctx, text)
	if err != nil {
		c.failSpeak(seq, err)
		return err
	}

	playback, err := c.deps.Player.Play(ctx, audio)
	if err != nil {
		c.failSpeak(seq, err)
		return err
	}

	c.mu.Lock()
	if c.closed || c.speakSeq != seq {
		// A newer speak or a stop superseded this one while loading.
		c.mu.Unlock()
		playback.Stop()
		if c.closed {
			return ErrClosed
		}
		return nil
	}
	c.playback = playback
	c.speakingID = messageID
	c.audioLoading = false
	c.broadcastLocked()
	c.mu.Unlock()

	go c.watchPlayback(seq, playback)
	return nil
}

// SpeakMessage plays a stored message by id, using its current text as the
// playback snapshot.
func (c *Coordinator) SpeakMessage(ctx context.Context, messageID string) error {
	c.mu.Lock()
	msg, ok := c.store.Get(messageID)
	c.mu.Unlock()
	if !ok {
		return ErrMessageNotFound
	}
	return c.Speak(ctx, messageID, msg.Text)
}

// StopSpeaking halts the active playback, if any.
func (c *Coordinator) StopSpeaking() {
	c.mu.Lock()
	playback := c.playback
	c.playback = nil
	c.speakingID = ""
	c.speakSeq++
	c.audioLoading = false
	if playback != nil {
		c.broadcastLocked()
	}
	c.mu.Unlock()

	if playback != nil {
		playback.Stop()
	}
}

func (c *Coordinator) failSpeak(seq uint64, err error) {
	log.Printf("[playback] speech generation failed: %v", err)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.speakSeq != seq {
		return
	}
	c.audioLoading = false
	c.speakingID = ""
	c.lastError = msgSpeechFailed
	c.broadcastLocked()
}

// watchPlayback clears speaking state when a clip finishes on its own.
func (c *Coordinator) watchPlayback(seq uint64, playback ports.Playback) {
	<-playback.Done()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.speakSeq != seq || c.playback != playback {
		return
	}
	c.playback = nil
	c.speakingID = ""
	c.broadcastLocked()
}
