// Package speech is the HTTP client for the speech backend: multipart
// transcription uploads and MP3 synthesis downloads.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/medilink-lk/medibridge/backend/internal/config"
	"github.com/medilink-lk/medibridge/backend/internal/sinhala"
)

var ErrEmptyAudio = errors.New("empty audio response from speech backend")

// Client implements ports.Transcriber and ports.SpeechSynthesizer against
// the speech backend's REST contract.
type Client struct {
	baseURL          string
	phonetic         bool
	transcribeClient *http.Client
	synthesizeClient *http.Client
}

// NewClient builds a speech client from configuration.
func NewClient(cfg config.SpeechConfig) *Client {
	transcribeTimeout := cfg.TranscribeTimeout
	if transcribeTimeout <= 0 {
		transcribeTimeout = 20 * time.Second
	}
	synthesizeTimeout := cfg.SynthesizeTimeout
	if synthesizeTimeout <= 0 {
		synthesizeTimeout = 15 * time.Second
	}

	return &Client{
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		phonetic:         cfg.PhoneticTTS,
		transcribeClient: &http.Client{Timeout: transcribeTimeout},
		synthesizeClient: &http.Client{Timeout: synthesizeTimeout},
	}
}

type transcribeResponse struct {
	Transcript  string `json:"transcript"`
	Error       string `json:"error,omitempty"`
	UserMessage string `json:"user_message,omitempty"`
}

// Transcribe uploads an audio artifact and returns the recognized Sinhala
// text.
func (c *Client) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	if format == "" {
		format = "wav"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio", "recording."+format)
	if err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write audio payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.transcribeClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	var payload transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode transcription response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if payload.Error != "" {
			return "", fmt.Errorf("transcription failed: %s", payload.Error)
		}
		return "", fmt.Errorf("transcription failed: status %d", resp.StatusCode)
	}
	return payload.Transcript, nil
}

// Synthesize converts Sinhala text into MP3 audio. In phonetic mode the
// text is transliterated first so a non-Sinhala upstream voice can read it.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if c.phonetic {
		text = sinhala.Transliterate(text)
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/speak", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.synthesizeClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("synthesis failed: status %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesized audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}
	return audio, nil
}
