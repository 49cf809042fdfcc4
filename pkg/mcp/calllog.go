package mcp

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/auth"
)

// CallLogger records every tool invocation through mcp-go hooks: tool name,
// caller org, duration, and outcome. Persistent audit of executed queries
// lives in the query service; this is the transport-level log.
type CallLogger struct {
	logger *zap.Logger

	// startTimes tracks when tool calls begin, keyed by request ID.
	startTimes sync.Map
}

// NewCallLogger creates a hook-based tool call logger.
func NewCallLogger(logger *zap.Logger) *CallLogger {
	return &CallLogger{logger: logger.Named("mcp-calls")}
}

// Hooks returns mcp-go Hooks wired to this logger.
func (c *CallLogger) Hooks() *server.Hooks {
	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(c.beforeCallTool)
	hooks.AddAfterCallTool(c.afterCallTool)
	hooks.AddOnError(c.onError)
	return hooks
}

func (c *CallLogger) beforeCallTool(_ context.Context, id any, _ *mcplib.CallToolRequest) {
	c.startTimes.Store(id, time.Now())
}

func (c *CallLogger) afterCallTool(ctx context.Context, id any, req *mcplib.CallToolRequest, result *mcplib.CallToolResult) {
	start := c.loadAndDeleteStart(id)

	fields := []zap.Field{
		zap.String("tool", req.Params.Name),
		zap.Duration("duration", time.Since(start)),
	}
	if orgID := auth.GetOrgIDFromContext(ctx); orgID != uuid.Nil {
		fields = append(fields, zap.String("org_id", orgID.String()))
	}

	if result != nil && result.IsError {
		fields = append(fields, zap.Bool("tool_error", true))
		if containsInjectionFinding(result) {
			c.logger.Warn("tool call rejected by injection scan", fields...)
			return
		}
		c.logger.Info("tool call returned error result", fields...)
		return
	}
	c.logger.Info("tool call completed", fields...)
}

func (c *CallLogger) onError(_ context.Context, id any, method mcplib.MCPMethod, message any, err error) {
	if method != mcplib.MethodToolsCall {
		return
	}
	req, ok := message.(*mcplib.CallToolRequest)
	if !ok {
		return
	}
	start := c.loadAndDeleteStart(id)
	c.logger.Error("tool call failed",
		zap.String("tool", req.Params.Name),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err))
}

func (c *CallLogger) loadAndDeleteStart(id any) time.Time {
	if v, ok := c.startTimes.LoadAndDelete(id); ok {
		return v.(time.Time)
	}
	return time.Now()
}

// containsInjectionFinding reports whether an error result carries an
// injection-scan rejection, which warrants a louder log level.
func containsInjectionFinding(result *mcplib.CallToolResult) bool {
	for _, content := range result.Content {
		tc, ok := content.(mcplib.TextContent)
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(tc.Text), "injection") {
			return true
		}
	}
	return false
}
