// Package httputil writes JSON responses and error envelopes.
package httputil

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the error envelope of every non-2xx response.
type ErrorResponse struct {
	Error       string            `json:"error"`
	Description string            `json:"error_description,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the error envelope. Server-side failures never leak a
// description.
func WriteError(w http.ResponseWriter, status int, resp ErrorResponse) {
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		resp.Description = ""
		resp.Fields = nil
	}
	WriteJSON(w, status, resp)
}
