package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/auth"
	"github.com/glimpsehq/glimpse-engine/pkg/services"
	"github.com/glimpsehq/glimpse-engine/pkg/validation"
)

// Deps bundles everything the engine tools need.
type Deps struct {
	Pipeline *validation.Pipeline
	Query    services.QueryService
	Chart    services.ChartService
	Summary  services.SummaryService
	Gate     services.UsageGate
	Logger   *zap.Logger
}

// RegisterEngineTools registers the three model-facing tools.
func RegisterEngineTools(s *server.MCPServer, deps *Deps) {
	registerQueryTool(s, deps)
	registerChartTool(s, deps)
	registerSummaryTool(s, deps)
}

// rawArguments re-encodes the tool call arguments so the validation pipeline
// sees exactly what the model sent, as JSON.
func rawArguments(req mcp.CallToolRequest) (json.RawMessage, error) {
	raw, err := json.Marshal(req.Params.Arguments)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool arguments: %w", err)
	}
	return raw, nil
}

// checkGate consults the usage gate for the calling tenant. A nil result
// means the call may proceed. Callers without a tenant pass through here;
// the pipeline's tenant stage rejects them with a proper finding.
func checkGate(ctx context.Context, deps *Deps, tool string) (*mcp.CallToolResult, error) {
	orgID := auth.GetOrgIDFromContext(ctx)
	if orgID == uuid.Nil {
		return nil, nil
	}

	decision, err := deps.Gate.Check(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("usage gate check failed: %w", err)
	}
	if !decision.Allowed {
		return NewErrorResultWithDetails(
			"quota_exhausted",
			fmt.Sprintf("daily tool call quota exhausted; the %s tool is unavailable until tomorrow", tool),
			map[string]any{"remaining": decision.Remaining},
		), nil
	}
	return nil, nil
}

// recordUsage charges one tool call against the tenant's daily quota.
// Failures are logged, never surfaced: a successful result must not be lost
// to accounting.
func recordUsage(ctx context.Context, deps *Deps, orgID uuid.UUID, tool string) {
	if err := deps.Gate.Record(ctx, orgID, tool); err != nil {
		deps.Logger.Warn("failed to record tool usage",
			zap.String("tool", tool),
			zap.String("org_id", orgID.String()),
			zap.Error(err))
	}
}

// newJSONResult marshals a response payload into a text tool result.
func newJSONResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
