// Package httpx holds the JSON response helpers shared by the handlers.
package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

type ErrorEnvelope struct {
	Error     ErrorBody `json:"error"`
	Stage     string    `json:"stage,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// WriteError writes the error envelope. A non-empty stage is used as the
// code and repeated at the top level for clients that only look there.
func WriteError(w http.ResponseWriter, r *http.Request, status int, stage, message string, details any) {
	code := stage
	if code == "" {
		code = http.StatusText(status)
	}

	WriteJSON(w, status, ErrorEnvelope{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
		Stage:     stage,
		RequestID: middleware.GetReqID(r.Context()),
	})
}
