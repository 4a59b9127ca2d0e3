package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	conversationHandler "github.com/medilink-lk/medibridge/backend/internal/handler/conversation"
	speechHandler "github.com/medilink-lk/medibridge/backend/internal/handler/speech"
	streamHandler "github.com/medilink-lk/medibridge/backend/internal/handler/stream"
	middlewarePkg "github.com/medilink-lk/medibridge/backend/internal/middleware"

	conversationsvc "github.com/medilink-lk/medibridge/backend/internal/conversation"
	"github.com/medilink-lk/medibridge/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services. speechClient may be nil
// when no speech backend is configured; the passthrough endpoints then
// report unavailability.
func NewRouter(manager *conversationsvc.Manager, speechClient speechHandler.SpeechClient) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	convHandler := conversationHandler.New(manager)
	stateStream := streamHandler.New(manager)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		convHandler.RegisterRoutes(api)
		stateStream.RegisterRoutes(api)

		if speechClient != nil {
			speechHandler.New(speechClient).RegisterRoutes(api)
		} else {
			api.Post("/speech/transcribe", speechUnavailable)
			api.Post("/speech/synthesize", speechUnavailable)
		}
	})

	return r
}

func speechUnavailable(w http.ResponseWriter, _ *http.Request) {
	utils.RespondError(w, http.StatusServiceUnavailable, "speech backend not configured")
}
