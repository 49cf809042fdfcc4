// Package handlers provides the HTTP surface of the engine: the MCP mount,
// health and ping, and the alert evaluation endpoint for the monitoring
// layer.
package handlers

import (
	"encoding/json"
	"net/http"
)

// errorBody is the JSON shape of every non-MCP error response. The code is
// machine-readable; the message is for humans.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response with the given status and code.
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	return WriteJSON(w, statusCode, errorBody{
		Error:   errorCode,
		Message: message,
	})
}

// WriteJSON writes data as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}
