// Package stream pushes live conversation state to clients over SSE or
// WebSocket, so the chat screen re-renders as sessions progress.
package stream

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	conversationsvc "github.com/medilink-lk/medibridge/backend/internal/conversation"
	"github.com/medilink-lk/medibridge/backend/pkg/utils"
)

// Handler serves conversation state streams.
type Handler struct {
	manager  *conversationsvc.Manager
	upgrader websocket.Upgrader
}

// New creates the stream handler.
func New(manager *conversationsvc.Manager) *Handler {
	return &Handler{
		manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// RegisterRoutes mounts stream routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/conversations/{conversationID}/stream", h.handleSSE)
	r.Get("/conversations/{conversationID}/ws", h.handleWebSocket)
}

func (h *Handler) handleSSE(w http.ResponseWriter, r *http.Request) {
	coordinator, ok := h.manager.Get(chi.URLParam(r, "conversationID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "conversation not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	states, cancel := coordinator.Subscribe()
	defer cancel()

	utils.SetupSSEHeaders(w)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case state, open := <-states:
			if !open {
				// Conversation closed; tell the client before ending.
				utils.SendSSEEvent(w, flusher, "closed", map[string]string{"status": "closed"})
				return
			}
			utils.SendSSEEvent(w, flusher, "state", state)
		}
	}
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	coordinator, ok := h.manager.Get(chi.URLParam(r, "conversationID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "conversation not found")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[stream] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	states, cancel := coordinator.Subscribe()
	defer cancel()

	// Drain client frames so pings and close messages are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case state, open := <-states:
			if !open {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "conversation closed"))
				return
			}
			if err := conn.WriteJSON(state); err != nil {
				return
			}
		}
	}
}
