package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every service setting.
type Config struct {
	Server    ServerConfig
	Gemini    GeminiConfig
	Speech    SpeechConfig
	Translate TranslateConfig
	Lookup    LookupConfig
	Audio     AudioConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	gemini, err := loadGeminiConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	audio, err := loadAudioConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		Gemini:    gemini,
		Speech:    speech,
		Translate: loadTranslateConfig(),
		Lookup:    loadLookupConfig(),
		Audio:     audio,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// GeminiConfig describes the response-generation model.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Enabled reports whether generation credentials are present.
func (c GeminiConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadGeminiConfig() (GeminiConfig, error) {
	timeout, err := parseOptionalIntEnv("GEMINI_TIMEOUT")
	if err != nil {
		return GeminiConfig{}, err
	}
	timeoutSeconds := 15
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	return GeminiConfig{
		APIKey:  strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		Model:   getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		BaseURL: getEnvOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
		Timeout: time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// SpeechConfig describes the speech backend (transcription + synthesis).
type SpeechConfig struct {
	BaseURL string
	// PhoneticTTS transliterates Sinhala text before synthesis, for
	// upstream voices without native Sinhala support.
	PhoneticTTS       bool
	TranscribeTimeout time.Duration
	SynthesizeTimeout time.Duration
}

// Enabled reports whether a speech backend is configured.
func (c SpeechConfig) Enabled() bool {
	return c.BaseURL != ""
}

func loadSpeechConfig() (SpeechConfig, error) {
	phonetic, err := parseBoolEnv("SPEECH_PHONETIC_TTS", false)
	if err != nil {
		return SpeechConfig{}, err
	}

	transcribe, err := parseOptionalIntEnv("SPEECH_TRANSCRIBE_TIMEOUT")
	if err != nil {
		return SpeechConfig{}, err
	}
	transcribeSeconds := 20
	if transcribe != nil {
		transcribeSeconds = *transcribe
	}

	synthesize, err := parseOptionalIntEnv("SPEECH_SYNTHESIZE_TIMEOUT")
	if err != nil {
		return SpeechConfig{}, err
	}
	synthesizeSeconds := 15
	if synthesize != nil {
		synthesizeSeconds = *synthesize
	}

	return SpeechConfig{
		BaseURL:           strings.TrimSpace(os.Getenv("SPEECH_BASE_URL")),
		PhoneticTTS:       phonetic,
		TranscribeTimeout: time.Duration(transcribeSeconds) * time.Second,
		SynthesizeTimeout: time.Duration(synthesizeSeconds) * time.Second,
	}, nil
}

// TranslateConfig describes the word-translation collaborator.
type TranslateConfig struct {
	APIKey  string
	BaseURL string
}

// Enabled reports whether translation credentials are present.
func (c TranslateConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadTranslateConfig() TranslateConfig {
	return TranslateConfig{
		APIKey:  strings.TrimSpace(os.Getenv("TRANSLATE_API_KEY")),
		BaseURL: getEnvOrDefault("TRANSLATE_BASE_URL", "https://translation.googleapis.com/language/translate/v2"),
	}
}

// LookupConfig describes the image-lookup collaborator.
type LookupConfig struct {
	BaseURL      string
	ThumbnailPix int
}

func loadLookupConfig() LookupConfig {
	return LookupConfig{
		BaseURL:      getEnvOrDefault("LOOKUP_BASE_URL", "https://en.wikipedia.org/w/api.php"),
		ThumbnailPix: 300,
	}
}

// AudioConfig describes the optional local audio devices used in kiosk
// deployments. Mobile clients record and play on-device instead.
type AudioConfig struct {
	Enabled     bool
	FFmpegCmd   string
	FFplayCmd   string
	InputFormat string
	InputDevice string
}

func loadAudioConfig() (AudioConfig, error) {
	enabled, err := parseBoolEnv("AUDIO_ENABLED", false)
	if err != nil {
		return AudioConfig{}, err
	}

	return AudioConfig{
		Enabled:     enabled,
		FFmpegCmd:   getEnvOrDefault("AUDIO_FFMPEG_CMD", "ffmpeg"),
		FFplayCmd:   getEnvOrDefault("AUDIO_FFPLAY_CMD", "ffplay"),
		InputFormat: getEnvOrDefault("AUDIO_INPUT_FORMAT", "pulse"),
		InputDevice: getEnvOrDefault("AUDIO_INPUT_DEVICE", "default"),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
