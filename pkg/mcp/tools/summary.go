package tools

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/glimpsehq/glimpse-engine/pkg/auth"
	"github.com/glimpsehq/glimpse-engine/pkg/models"
)

// summaryToolResponse carries the narrative plus the analysis settings that
// produced it.
type summaryToolResponse struct {
	Summary  string              `json:"summary"`
	Mode     models.AnalysisMode `json:"mode"`
	Tone     models.Tone         `json:"tone"`
	RowCount int                 `json:"row_count"`
	Warnings []string            `json:"warnings,omitempty"`
}

func registerSummaryTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"summarize_data",
		mcp.WithDescription(
			"Run a structured query and produce a statistical narrative over the result. "+
				"Modes: 'summary' (totals and distribution), 'trend' (first-to-last change), "+
				"'comparison' (first half vs second half), 'anomaly' (z-score outliers). "+
				"Example: summarize_data(data_source={resource: 'revenue'}, mode='trend', focus_areas=['amount'])",
		),
		mcp.WithObject(
			"data_source",
			mcp.Required(),
			mcp.Description("The structured query to execute, in query_database form"),
		),
		mcp.WithString(
			"mode",
			mcp.Description("Analysis mode: summary (default), trend, comparison, or anomaly"),
		),
		mcp.WithArray(
			"focus_areas",
			mcp.Description("Optional fields to prioritize; the first numeric one becomes the analyzed field"),
		),
		mcp.WithString(
			"tone",
			mcp.Description("Narrative tone: neutral (default), insightful, or actionable. Changes phrasing, never numbers"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, summaryToolHandler(deps))
}

func summaryToolHandler(deps *Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if gateResult, err := checkGate(ctx, deps, "summarize_data"); err != nil || gateResult != nil {
			return gateResult, err
		}

		raw, err := rawArguments(req)
		if err != nil {
			return nil, err
		}

		vctx := auth.ValidationContextFromContext(ctx)
		vr := deps.Pipeline.ValidateSummaryIntent(raw, vctx)
		if !vr.Success {
			return newValidationFailureResult(vr), nil
		}

		orgID, err := uuid.Parse(vctx.TenantID)
		if err != nil {
			return nil, fmt.Errorf("invalid tenant id after validation: %w", err)
		}

		intent := *vr.Data
		result := deps.Query.Execute(ctx, orgID, intent.DataSource)
		summary := deps.Summary.Summarize(intent, result)
		recordUsage(ctx, deps, orgID, "summarize_data")

		return newJSONResult(summaryToolResponse{
			Summary:  summary,
			Mode:     intent.Mode,
			Tone:     intent.Tone,
			RowCount: result.Metadata.RowCount,
			Warnings: vr.Warnings,
		})
	}
}
