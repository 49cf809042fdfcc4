package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/auth"
	"github.com/glimpsehq/glimpse-engine/pkg/orchestrator"
)

// AskHandler exposes the orchestrator loop over HTTP for callers that do not
// speak MCP. The tenant comes from the Bearer token; the model only ever
// reaches data through the engine's own tools.
type AskHandler struct {
	orch   orchestrator.Orchestrator
	logger *zap.Logger
}

// NewAskHandler creates a new ask handler.
func NewAskHandler(orch orchestrator.Orchestrator, logger *zap.Logger) *AskHandler {
	return &AskHandler{
		orch:   orch,
		logger: logger,
	}
}

// AskRequest is the body of an ask call.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse carries the model's final answer.
type AskResponse struct {
	Answer string `json:"answer"`
}

// RegisterRoutes registers the ask endpoint behind auth.
func (h *AskHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.Handle("POST /api/ask", authMiddleware.RequireAuth(http.HandlerFunc(h.Ask)))
}

// Ask runs the question through the orchestrator's tool-call loop.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = WriteError(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}
	if req.Question == "" {
		_ = WriteError(w, http.StatusBadRequest, "invalid_request", "question is required")
		return
	}

	answer, err := h.orch.Ask(r.Context(), req.Question)
	if err != nil {
		h.logger.Error("Orchestrator failed to answer question", zap.Error(err))
		_ = WriteError(w, http.StatusBadGateway, "orchestration_failed", "The model could not complete the request")
		return
	}

	_ = WriteJSON(w, http.StatusOK, AskResponse{Answer: answer})
}
