// Package speech exposes raw transcription and synthesis passthrough
// endpoints, for clients that manage conversation state themselves.
package speech

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/medilink-lk/medibridge/backend/pkg/utils"
)

// SpeechClient abstracts the speech backend for testing.
type SpeechClient interface {
	Transcribe(ctx context.Context, audio []byte, format string) (string, error)
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Handler serves the speech passthrough API.
type Handler struct {
	client SpeechClient
}

// New creates the speech handler.
func New(client SpeechClient) *Handler {
	return &Handler{client: client}
}

// RegisterRoutes mounts speech routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/speech", func(r chi.Router) {
		r.Post("/transcribe", h.handleTranscribe)
		r.Post("/synthesize", h.handleSynthesize)
		r.Get("/health", h.handleHealth)
	})
}

func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read audio file")
		return
	}
	if len(audio) == 0 {
		utils.RespondError(w, http.StatusBadRequest, "audio file is empty")
		return
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
	transcript, err := h.client.Transcribe(r.Context(), audio, format)
	if err != nil {
		utils.RespondError(w, http.StatusBadGateway, "transcription failed: "+err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"transcript": transcript})
}

func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	audio, err := h.client.Synthesize(r.Context(), payload.Text)
	if err != nil {
		utils.RespondError(w, http.StatusBadGateway, "synthesis failed: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	w.Write(audio)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
