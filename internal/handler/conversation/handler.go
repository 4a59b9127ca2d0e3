// Package conversation exposes the session coordinator over HTTP for the
// mobile client.
package conversation

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	conversationsvc "github.com/medilink-lk/medibridge/backend/internal/conversation"
	"github.com/medilink-lk/medibridge/backend/internal/ports"
	"github.com/medilink-lk/medibridge/backend/internal/sinhala"
	"github.com/medilink-lk/medibridge/backend/pkg/utils"
)

const (
	msgUseSinhalaOnly = "කරුණාකර සිංහල අකුරු, ඉලක්කම් හෝ විරාම සංකේත පමණක් භාවිතා කරන්න"
	msgEmptyRecording = "පටිගත කිරීමේ හඬ පටයක් හමු නොවීය"
)

// Handler serves the conversation API.
type Handler struct {
	manager *conversationsvc.Manager
}

// New creates the conversation handler.
func New(manager *conversationsvc.Manager) *Handler {
	return &Handler{manager: manager}
}

// RegisterRoutes mounts conversation routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/conversations", h.handleCreate)
	r.Route("/conversations/{conversationID}", func(r chi.Router) {
		r.Get("/", h.handleState)
		r.Delete("/", h.handleClose)
		r.Post("/messages", h.handleSendMessage)
		r.Post("/select", h.handleSelect)
		r.Post("/transcriptions", h.handleSubmitAudio)
		r.Post("/recording/start", h.handleRecordingStart)
		r.Post("/recording/stop", h.handleRecordingStop)
		r.Post("/recording/cancel", h.handleRecordingCancel)
		r.Post("/speak", h.handleSpeak)
		r.Post("/edit/start", h.handleEditStart)
		r.Post("/edit/draft", h.handleEditDraft)
		r.Post("/edit/save", h.handleEditSave)
		r.Post("/edit/cancel", h.handleEditCancel)
		r.Post("/lookup", h.handleLookup)
	})
}

func (h *Handler) coordinator(w http.ResponseWriter, r *http.Request) *conversationsvc.Coordinator {
	id := chi.URLParam(r, "conversationID")
	coordinator, ok := h.manager.Get(id)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "conversation not found")
		return nil
	}
	return coordinator
}

func (h *Handler) handleCreate(w http.ResponseWriter, _ *http.Request) {
	id, coordinator := h.manager.Create()
	utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"id":    id,
		"state": coordinator.Snapshot(),
	})
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	coordinator := h.coordinator(w, r)
	if coordinator == nil {
		return
	}
	utils.RespondJSON(w, http.StatusOK, coordinator.Snapshot())
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	if err := h.manager.Close(id); err != nil {
		utils.RespondError(w, http.StatusNotFound, "conversation not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	coordinator := h.coordinator(w, r)
	if coordinator == nil {
		return
	}

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
	if !sinhala.IsValidInput(payload.Text) {
		utils.RespondUserError(w, http.StatusBadRequest, "text must be Sinhala script", msgUseSinhalaOnly)
		return
	}

	if err := coordinator.SendDoctorMessage(r.Context(), payload.Text); err != nil {
		h.respondCoordinatorError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, coordinator.Snapshot())
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	coordinator := h.coordinator(w, r)
	if coordinator == nil {
		return
	}

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

	if _, err := coordinator.SelectPatientResponse(r.Context(), payload.Text); err != nil {
		h.respondCoordinatorError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, coordinator.Snapshot())
}

func (h *Handler) handleSubmitAudio(w http.ResponseWriter, r *http.Request) {
	coordinator := h.coordinator(w, r)
	if coordinator == nil {
		return
	}

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

	if err := coordinator.SubmitAudio(r.Context(), audio, inferAudioFormat(header.Filename)); err != nil {
		h.respondCoordinatorError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, coordinator.Snapshot())
}

func (h *Handler) handleRecordingStart(w http.ResponseWriter, r *http.Request) {
	coordinator := h.coordinator(w, r)
	if coordinator == nil {
		return
	}
	if err := coordinator.StartRecording(r.Context()); err != nil {
		h.respondCoordinatorError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, coordinator.Snapshot())
}

func (h *Handler) handleRecordingStop(w http.ResponseWriter, r *http.Request) {
	coordinator := h.coordinator(w, r)
	if coordinator == nil {
		return
	}
	if err := coordinator.StopRecording(r.Context()); err != nil {
		h.respondCoordinatorError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, coordinator.Snapshot())
}

func (h *Handler) handleRecordingCancel(w http.ResponseWriter, r *http.Request) {
	coordinator := h.coordinator(w, r)
	if coordinator == nil {
		return
	}
	coordinator.CancelRecording()
	utils.RespondJSON(w, http.StatusOK, coordinator.Snapshot())
}

func (h *Handler) handleSpeak(w http.ResponseWriter, r *http.Request) {
	coordinator := h.coordinator(w, r)
	if coordinator == nil {
		return
	}

	var payload struct {
		MessageID string `json:"messageId"`
		Text      string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.MessageID == "" {
		utils.RespondError(w, http.StatusBadRequest, "messageId is required")
		return
	}

	var err error
	if payload.Text != "" {
		err = coordinator.Speak(r.Context(), payload.MessageID, payload.Text)
	} else {
		err = coordinator.SpeakMessage(r.Context(), payload.MessageID)
	}
	if err != nil {
		h.respondCoordinatorError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, coordinator.Snapshot())
}

func (h *Handler) handleEditStart(w http.ResponseWriter, r *http.Request) {
	coordinator := h.coordinator(w, r)
	if coordinator == nil {
		return
	}

	var payload struct {
		MessageID string `json:"messageId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	coordinator.StartEditing(payload.MessageID)
	utils.RespondJSON(w, http.StatusOK, coordinator.Snapshot())
}

func (h *Handler) handleEditDraft(w http.ResponseWriter, r *http.Request) {
	coordinator := h.coordinator(w, r)
	if coordinator == nil {
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	coordinator.UpdateDraft(payload.Text)
	utils.RespondJSON(w, http.StatusOK, coordinator.Snapshot())
}

func (h *Handler) handleEditSave(w http.ResponseWriter, r *http.Request) {
	coordinator := h.coordinator(w, r)
	if coordinator == nil {
		return
	}
	coordinator.SaveEdit()
	utils.RespondJSON(w, http.StatusOK, coordinator.Snapshot())
}

func (h *Handler) handleEditCancel(w http.ResponseWriter, r *http.Request) {
	coordinator := h.coordinator(w, r)
	if coordinator == nil {
		return
	}
	coordinator.CancelEdit()
	utils.RespondJSON(w, http.StatusOK, coordinator.Snapshot())
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	coordinator := h.coordinator(w, r)
	if coordinator == nil {
		return
	}

	var payload struct {
		MessageID string `json:"messageId"`
		Term      string `json:"term"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.MessageID == "" || strings.TrimSpace(payload.Term) == "" {
		utils.RespondError(w, http.StatusBadRequest, "messageId and term are required")
		return
	}

	// Lookup failures are silent: the word stays unannotated and can be
	// pressed again.
	coordinator.LookupTerm(r.Context(), payload.MessageID, payload.Term)
	utils.RespondJSON(w, http.StatusOK, coordinator.Snapshot())
}

func (h *Handler) respondCoordinatorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, conversationsvc.ErrGenerationInFlight):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, conversationsvc.ErrNoActiveRecording):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, conversationsvc.ErrMessageNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, conversationsvc.ErrRecorderUnavailable):
		utils.RespondError(w, http.StatusNotImplemented, err.Error())
	case errors.Is(err, conversationsvc.ErrTranscriberUnavailable):
		utils.RespondError(w, http.StatusNotImplemented, err.Error())
	case errors.Is(err, conversationsvc.ErrClosed):
		utils.RespondError(w, http.StatusGone, err.Error())
	case errors.Is(err, ports.ErrPermissionDenied):
		utils.RespondUserError(w, http.StatusForbidden, err.Error(), "මයික්‍රොෆෝනය භාවිතයට අවසරය ලබා දී නොමැත")
	case errors.Is(err, ports.ErrEmptyRecording):
		utils.RespondUserError(w, http.StatusBadRequest, err.Error(), msgEmptyRecording)
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}

func inferAudioFormat(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	switch ext {
	case "wav", "m4a", "mp3", "flac", "ogg":
		return ext
	default:
		return "wav"
	}
}
