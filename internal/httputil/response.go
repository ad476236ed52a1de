package httputil

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/ab2005/whatsapp-mcp/internal/errors"
)

// Response is the envelope every API endpoint returns. Data is set on
// success, Error on failure, never both.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// WriteJSON writes a success envelope with the given payload.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Success: true, Data: data})
}

// WriteError writes a failure envelope. AppError values map to their
// HTTP status and user message; anything else becomes a generic 500.
// Internal error detail stays in the logs, never in the body.
func WriteError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := apperrors.GetUserMessage(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Success: false, Error: message})
}
