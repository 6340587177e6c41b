package web

import (
	"encoding/json"
	"net/http"
)

// APIError is the JSON error envelope shared by every failing endpoint.
type APIError struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes the error envelope.
func Error(w http.ResponseWriter, status int, msg, detail string) {
	JSON(w, status, APIError{Error: msg, Detail: detail})
}
