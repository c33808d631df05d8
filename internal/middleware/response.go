package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dsearch/dsearchd/internal/apierr"
)

// envelope is the shape every JSON response takes, per the external
// interface contract: {success, message?, data?} on success, {success,
// message, error} on failure.
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// WriteError writes err as a JSON error envelope with the HTTP status its
// Kind maps to, setting Retry-After for rate-limit errors.
func WriteError(w http.ResponseWriter, err *apierr.Error) {
	if err.Kind == apierr.KindRateLimited && err.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(err.RetryAfter))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status())
	_ = json.NewEncoder(w).Encode(envelope{
		Success: false,
		Message: err.Message,
		Error:   string(err.Kind),
	})
}

// WriteJSON writes data as a successful JSON envelope with the given HTTP
// status and an optional message.
func WriteJSON(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}
