package handlers

import (
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/auth"
	"github.com/glimpsehq/glimpse-engine/pkg/mcp"
	"github.com/glimpsehq/glimpse-engine/pkg/middleware"
)

// MCPHandler handles MCP protocol requests over HTTP.
type MCPHandler struct {
	httpServer *server.StreamableHTTPServer
	logger     *zap.Logger
}

// NewMCPHandler creates a new MCP handler from an MCP server.
func NewMCPHandler(mcpServer *mcp.Server, logger *zap.Logger) *MCPHandler {
	return &MCPHandler{
		httpServer: mcpServer.NewStreamableHTTPServer(),
		logger:     logger,
	}
}

// RegisterRoutes registers the MCP endpoint. The tenant is identified by the
// org claim in the Bearer token, not by the URL, so the route is unscoped.
// Middleware layers, innermost first:
//  1. Request logging (sees the authenticated org ID)
//  2. Authentication (validates the Bearer token, injects claims)
//  3. Method check (rejects non-POST before touching auth)
func (h *MCPHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	loggedHandler := middleware.RequestLogger(h.logger)(h.httpServer)
	authHandler := authMiddleware.RequireAuth(loggedHandler)
	methodCheckedHandler := h.requirePOST(authHandler)
	mux.Handle("/mcp", methodCheckedHandler)
}

// requirePOST returns 405 Method Not Allowed for non-POST requests.
// MCP over HTTP Streaming requires POST for JSON-RPC requests.
func (h *MCPHandler) requirePOST(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}
