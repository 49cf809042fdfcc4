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

// queryToolResponse is the query_database result payload: the query result
// plus any validation warnings (sanitized field names, defaulted paging).
type queryToolResponse struct {
	*models.QueryResult
	Warnings []string `json:"warnings,omitempty"`
}

func registerQueryTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"query_database",
		mcp.WithDescription(
			"Execute a read-only structured query against a whitelisted resource. "+
				"Supports filters, aggregations (count/sum/avg/min/max), grouping, ordering, and pagination. "+
				"All queries are scoped to your organization; restricted resources allow counts only. "+
				"Example: query_database(resource='revenue', aggregations=[{field: 'amount', function: 'sum'}], group_by=['region'])",
		),
		mcp.WithString(
			"resource",
			mcp.Required(),
			mcp.Description("Resource to query (e.g. 'customers', 'revenue', 'activities')"),
		),
		mcp.WithArray(
			"filters",
			mcp.Description("Optional filters: [{column, operator, value}] with operators eq/ne/gt/lt/gte/lte/contains/in"),
		),
		mcp.WithArray(
			"aggregations",
			mcp.Description("Optional aggregates: [{field, function}] with functions count/sum/avg/min/max"),
		),
		mcp.WithArray(
			"group_by",
			mcp.Description("Optional columns to group aggregates by"),
		),
		mcp.WithArray(
			"order_by",
			mcp.Description("Optional sort order: [{field, direction}] with direction asc/desc"),
		),
		mcp.WithNumber(
			"limit",
			mcp.Description("Max rows to return for non-paginated queries (capped server-side)"),
		),
		mcp.WithNumber(
			"page",
			mcp.Description("Page number starting at 1; enables pagination"),
		),
		mcp.WithNumber(
			"page_size",
			mcp.Description("Rows per page (capped server-side)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, queryToolHandler(deps))
}

func queryToolHandler(deps *Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if gateResult, err := checkGate(ctx, deps, "query_database"); err != nil || gateResult != nil {
			return gateResult, err
		}

		raw, err := rawArguments(req)
		if err != nil {
			return nil, err
		}

		vctx := auth.ValidationContextFromContext(ctx)
		vr := deps.Pipeline.ValidateQueryIntent(raw, vctx)
		if !vr.Success {
			return newValidationFailureResult(vr), nil
		}

		orgID, err := uuid.Parse(vctx.TenantID)
		if err != nil {
			return nil, fmt.Errorf("invalid tenant id after validation: %w", err)
		}

		result := deps.Query.Execute(ctx, orgID, *vr.Data)
		recordUsage(ctx, deps, orgID, "query_database")

		return newJSONResult(queryToolResponse{QueryResult: result, Warnings: vr.Warnings})
	}
}
