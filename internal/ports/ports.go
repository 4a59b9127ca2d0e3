package ports

import (
	"context"
	"errors"
)

var (
	// ErrPermissionDenied reports that microphone access was refused.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrEmptyRecording reports that a finished capture produced no audio.
	ErrEmptyRecording = errors.New("recording produced no audio")
)

// Transcriber converts a recorded audio artifact into Sinhala text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, format string) (string, error)
}

// OptionGenerator produces exactly three candidate patient replies for a
// doctor's question. Implementations substitute fixed fallback options on
// upstream failure, so a non-nil error means the call itself was abandoned
// (cancellation), not that fewer options are available.
type OptionGenerator interface {
	PatientOptions(ctx context.Context, doctorQuestion string) ([]string, error)
}

// SpeechSynthesizer turns Sinhala text into encoded audio (MP3).
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Translator translates a single Sinhala word into English.
type Translator interface {
	Translate(ctx context.Context, word string) (string, error)
}

// ImageFinder resolves an illustrative image URL for an English term.
// An empty URL with nil error means no image was found.
type ImageFinder interface {
	FindImage(ctx context.Context, englishTerm string) (string, error)
}

// Capture is one live microphone recording.
type Capture interface {
	// Stop finalizes the capture and returns the encoded audio artifact.
	Stop() ([]byte, error)
	// Format names the container of the artifact Stop returns, e.g. "wav".
	Format() string
	// Discard abandons the capture and releases the microphone.
	Discard()
}

// Recorder acquires the microphone and starts capture sessions.
type Recorder interface {
	Start(ctx context.Context) (Capture, error)
}

// Playback is one loaded audio clip being played.
type Playback interface {
	// Done is closed when playback finishes or is stopped.
	Done() <-chan struct{}
	// Stop halts playback and releases the underlying audio resource.
	Stop()
}

// Player loads synthesized audio and plays it.
type Player interface {
	Play(ctx context.Context, audio []byte) (Playback, error)
}
