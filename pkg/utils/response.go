package utils

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/vkazakov/chatline/internal/api"
)

// RespondJSON writes a JSON response body.
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// RespondError writes the structured error envelope the client decodes:
// {"error": {"code": ..., "message": ..., "details": ...}}.
func RespondError(w http.ResponseWriter, status int, code api.Code, message string, details any) {
	body := map[string]any{
		"code":    code,
		"message": message,
	}
	if details != nil {
		body["details"] = details
	}
	RespondJSON(w, status, map[string]any{"error": body})
}

// RespondOK writes the {"ok": true} body used by mutation endpoints that
// return no entity.
func RespondOK(w http.ResponseWriter, status int) {
	RespondJSON(w, status, map[string]bool{"ok": true})
}
