package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/auth"
	"github.com/glimpsehq/glimpse-engine/pkg/mcp/tools"
	"github.com/glimpsehq/glimpse-engine/pkg/models"
	"github.com/glimpsehq/glimpse-engine/pkg/services"
	"github.com/glimpsehq/glimpse-engine/pkg/validation"
)

// ToolDispatcher executes one tool call and returns its result as a JSON
// string for the model. Validation rejections come back as structured error
// JSON the model can act on; system failures return Go errors.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, name string, arguments string) (string, error)
}

// EngineDispatcher routes tool calls through the validation pipeline, the
// usage gate, and the engine services. It applies the same semantics as the
// MCP tool handlers, for callers arriving through the LLM loop instead of an
// MCP client.
type EngineDispatcher struct {
	pipeline *validation.Pipeline
	query    services.QueryService
	chart    services.ChartService
	summary  services.SummaryService
	gate     services.UsageGate
	logger   *zap.Logger
}

// NewEngineDispatcher creates a dispatcher over the engine services.
func NewEngineDispatcher(
	pipeline *validation.Pipeline,
	query services.QueryService,
	chart services.ChartService,
	summary services.SummaryService,
	gate services.UsageGate,
	logger *zap.Logger,
) *EngineDispatcher {
	return &EngineDispatcher{
		pipeline: pipeline,
		query:    query,
		chart:    chart,
		summary:  summary,
		gate:     gate,
		logger:   logger.Named("dispatcher"),
	}
}

var _ ToolDispatcher = (*EngineDispatcher)(nil)

// Dispatch executes the named tool.
func (d *EngineDispatcher) Dispatch(ctx context.Context, name string, arguments string) (string, error) {
	d.logger.Debug("dispatching tool call", zap.String("tool", name))

	if blocked, err := d.checkGate(ctx, name); err != nil || blocked != "" {
		return blocked, err
	}

	switch name {
	case "query_database":
		return d.queryDatabase(ctx, arguments)
	case "generate_chart":
		return d.generateChart(ctx, arguments)
	case "summarize_data":
		return d.summarizeData(ctx, arguments)
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// checkGate consults the usage gate. A non-empty return is an error payload
// to hand back to the model.
func (d *EngineDispatcher) checkGate(ctx context.Context, tool string) (string, error) {
	orgID := auth.GetOrgIDFromContext(ctx)
	if orgID == uuid.Nil {
		return "", nil
	}
	decision, err := d.gate.Check(ctx, orgID)
	if err != nil {
		return "", fmt.Errorf("usage gate check failed: %w", err)
	}
	if !decision.Allowed {
		return marshalPayload(tools.ErrorResponse{
			Error:   true,
			Code:    "quota_exhausted",
			Message: fmt.Sprintf("daily tool call quota exhausted; the %s tool is unavailable until tomorrow", tool),
		})
	}
	return "", nil
}

func (d *EngineDispatcher) queryDatabase(ctx context.Context, arguments string) (string, error) {
	vctx := auth.ValidationContextFromContext(ctx)
	vr := d.pipeline.ValidateQueryIntent(json.RawMessage(arguments), vctx)
	if !vr.Success {
		return validationFailurePayload(vr.Stage, vr.Errors, vr.Warnings)
	}

	orgID, err := uuid.Parse(vctx.TenantID)
	if err != nil {
		return "", fmt.Errorf("invalid tenant id after validation: %w", err)
	}

	result := d.query.Execute(ctx, orgID, *vr.Data)
	d.recordUsage(ctx, orgID, "query_database")

	return marshalPayload(struct {
		*models.QueryResult
		Warnings []string `json:"warnings,omitempty"`
	}{result, vr.Warnings})
}

func (d *EngineDispatcher) generateChart(ctx context.Context, arguments string) (string, error) {
	vctx := auth.ValidationContextFromContext(ctx)
	vr := d.pipeline.ValidateChartIntent(json.RawMessage(arguments), vctx)
	if !vr.Success {
		return validationFailurePayload(vr.Stage, vr.Errors, vr.Warnings)
	}

	orgID, err := uuid.Parse(vctx.TenantID)
	if err != nil {
		return "", fmt.Errorf("invalid tenant id after validation: %w", err)
	}

	intent := *vr.Data
	result := d.query.Execute(ctx, orgID, intent.DataSource)
	chart := d.chart.Configure(intent, result)
	d.recordUsage(ctx, orgID, "generate_chart")

	return marshalPayload(struct {
		Chart    models.ChartConfiguration `json:"chart"`
		RowCount int                       `json:"row_count"`
		Warnings []string                  `json:"warnings,omitempty"`
	}{chart, result.Metadata.RowCount, vr.Warnings})
}

func (d *EngineDispatcher) summarizeData(ctx context.Context, arguments string) (string, error) {
	vctx := auth.ValidationContextFromContext(ctx)
	vr := d.pipeline.ValidateSummaryIntent(json.RawMessage(arguments), vctx)
	if !vr.Success {
		return validationFailurePayload(vr.Stage, vr.Errors, vr.Warnings)
	}

	orgID, err := uuid.Parse(vctx.TenantID)
	if err != nil {
		return "", fmt.Errorf("invalid tenant id after validation: %w", err)
	}

	intent := *vr.Data
	result := d.query.Execute(ctx, orgID, intent.DataSource)
	summary := d.summary.Summarize(intent, result)
	d.recordUsage(ctx, orgID, "summarize_data")

	return marshalPayload(struct {
		Summary  string              `json:"summary"`
		Mode     models.AnalysisMode `json:"mode"`
		Tone     models.Tone         `json:"tone"`
		RowCount int                 `json:"row_count"`
		Warnings []string            `json:"warnings,omitempty"`
	}{summary, intent.Mode, intent.Tone, result.Metadata.RowCount, vr.Warnings})
}

func (d *EngineDispatcher) recordUsage(ctx context.Context, orgID uuid.UUID, tool string) {
	if err := d.gate.Record(ctx, orgID, tool); err != nil {
		d.logger.Warn("failed to record tool usage",
			zap.String("tool", tool),
			zap.String("org_id", orgID.String()),
			zap.Error(err))
	}
}

// validationFailurePayload renders a rejected intent as error JSON carrying
// the failing stage and every finding.
func validationFailurePayload(stage models.ValidationStage, errs []models.ValidationError, warnings []string) (string, error) {
	code := "validation_failed"
	message := "intent rejected by the validation pipeline"
	if len(errs) > 0 {
		code = string(errs[0].Code)
		message = errs[0].Message
	}
	return marshalPayload(tools.ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: map[string]any{
			"stage":    stage,
			"errors":   errs,
			"warnings": warnings,
		},
	})
}

func marshalPayload(v any) (string, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tool payload: %w", err)
	}
	return string(jsonBytes), nil
}
