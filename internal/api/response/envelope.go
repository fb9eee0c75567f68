package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope is the standard API response wrapper. Failed responses carry a
// human readable Message and, for machine handling, an optional Error code.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// RateLimited is the body of a 429 response.
type RateLimited struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// JSON writes v as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Success writes a successful JSON response.
func Success(w http.ResponseWriter, status int, data any) {
	JSON(w, status, Envelope{Success: true, Data: data})
}

// Err writes an error JSON response.
func Err(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Success: false, Message: message})
}

// ErrWithDetails writes an error JSON response with a code and additional details.
func ErrWithDetails(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, Envelope{
		Success: false,
		Error:   code,
		Message: message,
		Details: details,
	})
}

// TooManyRequests writes the 429 body.
func TooManyRequests(w http.ResponseWriter, retryAfter int) {
	JSON(w, http.StatusTooManyRequests, RateLimited{
		Success:    false,
		Error:      "rate_limit_exceeded",
		Message:    "Too many requests. Please try again later.",
		RetryAfter: retryAfter,
	})
}

// Common messages.
const (
	MsgAuthRequired  = "Authentication required"
	MsgAdminRequired = "Admin access required"
	MsgAccessDenied  = "Access denied"
	MsgInternal      = "An unexpected error occurred"
)
