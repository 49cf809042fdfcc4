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

// chartToolResponse carries the inferred chart configuration plus the row
// count it was built from.
type chartToolResponse struct {
	Chart    models.ChartConfiguration `json:"chart"`
	RowCount int                       `json:"row_count"`
	Warnings []string                  `json:"warnings,omitempty"`
}

func registerChartTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"generate_chart",
		mcp.WithDescription(
			"Run a structured query and produce a renderer-agnostic chart configuration. "+
				"Axes and chart type are inferred from the result data when not specified: "+
				"date x-axes yield line or area charts, two numeric fields yield a scatter plot, otherwise bar. "+
				"Example: generate_chart(data_source={resource: 'revenue', group_by: ['month']}, chart_type='line')",
		),
		mcp.WithObject(
			"data_source",
			mcp.Required(),
			mcp.Description("The structured query to execute, in query_database form"),
		),
		mcp.WithString(
			"chart_type",
			mcp.Description("Optional explicit chart type: bar, line, area, scatter, or pie"),
		),
		mcp.WithString(
			"x_field",
			mcp.Description("Optional explicit x-axis field; must exist in the result data"),
		),
		mcp.WithArray(
			"y_fields",
			mcp.Description("Optional explicit y-axis fields; non-existent fields are dropped"),
		),
		mcp.WithString(
			"title",
			mcp.Description("Optional chart title; generated from the resource and x-axis when omitted"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, chartToolHandler(deps))
}

func chartToolHandler(deps *Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if gateResult, err := checkGate(ctx, deps, "generate_chart"); err != nil || gateResult != nil {
			return gateResult, err
		}

		raw, err := rawArguments(req)
		if err != nil {
			return nil, err
		}

		vctx := auth.ValidationContextFromContext(ctx)
		vr := deps.Pipeline.ValidateChartIntent(raw, vctx)
		if !vr.Success {
			return newValidationFailureResult(vr), nil
		}

		orgID, err := uuid.Parse(vctx.TenantID)
		if err != nil {
			return nil, fmt.Errorf("invalid tenant id after validation: %w", err)
		}

		intent := *vr.Data
		result := deps.Query.Execute(ctx, orgID, intent.DataSource)
		chart := deps.Chart.Configure(intent, result)
		recordUsage(ctx, deps, orgID, "generate_chart")

		return newJSONResult(chartToolResponse{
			Chart:    chart,
			RowCount: result.Metadata.RowCount,
			Warnings: vr.Warnings,
		})
	}
}
