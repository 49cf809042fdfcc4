// Package tools implements the model-facing MCP tools: query_database,
// generate_chart, and summarize_data. Every tool routes its arguments
// through the validation pipeline before any service sees them.
package tools

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/glimpsehq/glimpse-engine/pkg/models"
)

// ErrorResponse represents a structured error in tool results. Returned as a
// successful tool result so the error details stay visible to the model
// rather than being swallowed by the MCP client.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error. Use
// this for actionable errors the model can see and fix (invalid parameters,
// rejected intents). System failures should still return Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context
// for the model.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// validationFailureDetails is the Details payload for a rejected intent: the
// failing stage plus every finding, so the model can repair and retry.
type validationFailureDetails struct {
	Stage    models.ValidationStage   `json:"stage"`
	Errors   []models.ValidationError `json:"errors"`
	Warnings []string                 `json:"warnings,omitempty"`
}

// newValidationFailureResult converts a failed pipeline result into a
// structured error result. The top-level code is the first finding's code.
func newValidationFailureResult[T any](vr *models.ValidationResult[T]) *mcp.CallToolResult {
	code := "validation_failed"
	message := "intent rejected by the validation pipeline"
	if len(vr.Errors) > 0 {
		code = string(vr.Errors[0].Code)
		message = vr.Errors[0].Message
	}
	return NewErrorResultWithDetails(code, message, validationFailureDetails{
		Stage:    vr.Stage,
		Errors:   vr.Errors,
		Warnings: vr.Warnings,
	})
}
