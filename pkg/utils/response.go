package utils

import (
	"encoding/json"
	"log"
	"net/http"
)

// RespondJSON writes a JSON response with the given status.
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// RespondError writes a JSON error envelope.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}

// RespondUserError writes a JSON error envelope carrying a localized
// message the client shows verbatim.
func RespondUserError(w http.ResponseWriter, status int, message, userMessage string) {
	RespondJSON(w, status, map[string]string{
		"error":        message,
		"user_message": userMessage,
	})
}
