// Package httpx provides HTTP response utilities shared by all handlers.
package httpx

import (
	"encoding/json"
	"net/http"
	"time"
)

// Envelope is the uniform success response shape.
type Envelope struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ErrorBody is the uniform error response shape.
type ErrorBody struct {
	Status    string      `json:"status"`
	Error     ErrorDetail `json:"error"`
	Timestamp string      `json:"timestamp"`
}

// ErrorDetail carries the error name and a user-safe message.
type ErrorDetail struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// JSON sends a raw JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// OK wraps data in the success envelope.
func OK(w http.ResponseWriter, status int, message string, data any) {
	if message == "" {
		message = "Operation completed successfully"
	}
	JSON(w, status, Envelope{
		Status:    "success",
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Fail sends an error envelope.
func Fail(w http.ResponseWriter, status int, name, message string) {
	JSON(w, status, ErrorBody{
		Status:    "error",
		Error:     ErrorDetail{Name: name, Message: message},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// DecodeJSON decodes a JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
