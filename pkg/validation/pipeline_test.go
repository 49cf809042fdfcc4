package validation

import (
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/models"
	"github.com/glimpsehq/glimpse-engine/pkg/resources"
)

const testTenantID = "6f1c8f4e-2d3a-4b5c-8d9e-1f2a3b4c5d6e"

func testPipeline() *Pipeline {
	return New(resources.NewRegistry(), zap.NewNop())
}

func testContext() models.ValidationContext {
	return models.ValidationContext{TenantID: testTenantID}
}

func mustRaw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal intent: %v", err)
	}
	return raw
}

func TestValidateQueryIntent_Valid(t *testing.T) {
	p := testPipeline()
	raw := mustRaw(t, models.QueryIntent{
		Resource: "customers",
		Filters: []models.Filter{
			{Column: "status", Operator: models.OperatorEq, Value: "active"},
		},
		OrderBy: []models.OrderBy{{Field: "created_at", Direction: models.SortDesc}},
		Limit:   50,
	})

	result := p.ValidateQueryIntent(raw, testContext())
	if !result.Success {
		t.Fatalf("expected success, got stage %s errors %v", result.Stage, result.ErrorMessages())
	}
	if result.Stage != models.StagePassed {
		t.Errorf("expected stage passed, got %s", result.Stage)
	}
	if result.Data == nil || result.Data.Resource != "customers" {
		t.Errorf("expected sanitized intent data, got %+v", result.Data)
	}
	if len(result.Errors) != 0 {
		t.Errorf("expected empty errors on success, got %v", result.Errors)
	}
}

func TestValidateQueryIntent_Stages(t *testing.T) {
	tests := []struct {
		name      string
		intent    models.QueryIntent
		vctx      models.ValidationContext
		wantStage models.ValidationStage
		wantCode  models.ValidationErrorCode
	}{
		{
			name:      "unknown resource",
			intent:    models.QueryIntent{Resource: "payments"},
			vctx:      testContext(),
			wantStage: models.StageResourceWhitelist,
			wantCode:  models.CodeResourceForbidden,
		},
		{
			name: "unknown operator",
			intent: models.QueryIntent{
				Resource: "customers",
				Filters:  []models.Filter{{Column: "status", Operator: "like", Value: "x"}},
			},
			vctx:      testContext(),
			wantStage: models.StageSchema,
			wantCode:  models.CodeSchemaValidation,
		},
		{
			name: "restricted column",
			intent: models.QueryIntent{
				Resource: "profiles",
				Filters:  []models.Filter{{Column: "email", Operator: models.OperatorContains, Value: "@example.com"}},
			},
			vctx:      testContext(),
			wantStage: models.StageColumnValidation,
			wantCode:  models.CodeColumnForbidden,
		},
		{
			name: "column outside allow list",
			intent: models.QueryIntent{
				Resource: "audit_logs",
				GroupBy:  []string{"ip_address"},
			},
			vctx:      testContext(),
			wantStage: models.StageColumnValidation,
			wantCode:  models.CodeColumnForbidden,
		},
		{
			name: "aggregate not allowed on resource",
			intent: models.QueryIntent{
				Resource:     "profiles",
				Aggregations: []models.Aggregation{{Field: "id", Function: models.AggregateSum}},
			},
			vctx:      testContext(),
			wantStage: models.StageColumnValidation,
			wantCode:  models.CodeAggregateDenied,
		},
		{
			name:      "missing tenant context",
			intent:    models.QueryIntent{Resource: "customers"},
			vctx:      models.ValidationContext{},
			wantStage: models.StageTenantContext,
			wantCode:  models.CodeTenantMissing,
		},
		{
			name:      "malformed tenant id",
			intent:    models.QueryIntent{Resource: "customers"},
			vctx:      models.ValidationContext{TenantID: "not-a-uuid"},
			wantStage: models.StageTenantContext,
			wantCode:  models.CodeTenantMalformed,
		},
		{
			name: "injection in filter value",
			intent: models.QueryIntent{
				Resource: "customers",
				Filters:  []models.Filter{{Column: "status", Operator: models.OperatorEq, Value: "1=1' OR '1'='1"}},
			},
			vctx:      testContext(),
			wantStage: models.StageInjectionScan,
			wantCode:  models.CodeInjectionDetected,
		},
		{
			name: "injection in array value",
			intent: models.QueryIntent{
				Resource: "customers",
				Filters: []models.Filter{{
					Column:   "status",
					Operator: models.OperatorIn,
					Value:    []any{"active", "x'; DROP TABLE customers--"},
				}},
			},
			vctx:      testContext(),
			wantStage: models.StageInjectionScan,
			wantCode:  models.CodeInjectionDetected,
		},
	}

	p := testPipeline()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := p.ValidateQueryIntent(mustRaw(t, tt.intent), tt.vctx)
			if result.Success {
				t.Fatal("expected validation failure")
			}
			if result.Stage != tt.wantStage {
				t.Errorf("stage = %s, want %s (errors: %v)", result.Stage, tt.wantStage, result.ErrorMessages())
			}
			if result.Data != nil {
				t.Error("expected nil data on failure")
			}
			found := false
			for _, e := range result.Errors {
				if e.Code == tt.wantCode {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error code %s, got %v", tt.wantCode, result.Errors)
			}
		})
	}
}

func TestValidateQueryIntent_MalformedJSON(t *testing.T) {
	p := testPipeline()

	result := p.ValidateQueryIntent(json.RawMessage(`{"resource": 42}`), testContext())
	if result.Success {
		t.Fatal("expected failure on wrong field type")
	}
	if result.Stage != models.StageSchema {
		t.Errorf("stage = %s, want schema", result.Stage)
	}

	result = p.ValidateQueryIntent(json.RawMessage(`not json`), testContext())
	if result.Success || result.Stage != models.StageSchema {
		t.Errorf("expected schema failure for invalid JSON, got %+v", result)
	}
}

func TestValidateQueryIntent_UnknownFieldsStripped(t *testing.T) {
	p := testPipeline()
	raw := json.RawMessage(`{"resource": "customers", "raw_sql": "DROP TABLE customers", "limit": 10}`)

	result := p.ValidateQueryIntent(raw, testContext())
	if !result.Success {
		t.Fatalf("expected success, got %v", result.ErrorMessages())
	}
	if result.Data.Limit != 10 {
		t.Errorf("expected known fields preserved, got limit %d", result.Data.Limit)
	}
}

func TestValidateQueryIntent_SanitizationWarning(t *testing.T) {
	p := testPipeline()
	raw := mustRaw(t, models.QueryIntent{
		Resource: "customers",
		Filters:  []models.Filter{{Column: "status;", Operator: models.OperatorEq, Value: "active"}},
	})

	result := p.ValidateQueryIntent(raw, testContext())
	if !result.Success {
		t.Fatalf("expected success after sanitization, got %v", result.ErrorMessages())
	}
	if result.Data.Filters[0].Column != "status" {
		t.Errorf("expected column rewritten to %q, got %q", "status", result.Data.Filters[0].Column)
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a sanitization warning")
	}
}

func TestValidateQueryIntent_AccumulateAllFindings(t *testing.T) {
	p := NewWithOptions(resources.NewRegistry(), Options{AbortEarly: false, InjectionAsError: true}, zap.NewNop())
	raw := mustRaw(t, models.QueryIntent{Resource: "payments"})

	result := p.ValidateQueryIntent(raw, models.ValidationContext{})
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Stage != models.StageResourceWhitelist {
		t.Errorf("stage should be the first failing stage, got %s", result.Stage)
	}
	if len(result.Errors) < 2 {
		t.Errorf("expected findings from multiple stages, got %v", result.Errors)
	}
}

func TestValidateQueryIntent_InjectionAsWarning(t *testing.T) {
	p := NewWithOptions(resources.NewRegistry(), Options{AbortEarly: true, InjectionAsError: false}, zap.NewNop())
	raw := mustRaw(t, models.QueryIntent{
		Resource: "customers",
		Filters:  []models.Filter{{Column: "status", Operator: models.OperatorEq, Value: "1=1' OR '1'='1"}},
	})

	result := p.ValidateQueryIntent(raw, testContext())
	if !result.Success {
		t.Fatalf("expected success with injection demoted to warning, got %v", result.ErrorMessages())
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "injection") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an injection warning, got %v", result.Warnings)
	}
}

func TestValidateChartIntent(t *testing.T) {
	p := testPipeline()

	raw := mustRaw(t, models.ChartIntent{
		DataSource: models.QueryIntent{Resource: "revenue"},
		ChartType:  models.ChartLine,
		Title:      "Monthly revenue",
		XField:     "created_at",
		YFields:    []string{"amount"},
	})
	result := p.ValidateChartIntent(raw, testContext())
	if !result.Success {
		t.Fatalf("expected success, got stage %s errors %v", result.Stage, result.ErrorMessages())
	}

	raw = mustRaw(t, models.ChartIntent{
		DataSource: models.QueryIntent{Resource: "revenue"},
		ChartType:  "donut",
	})
	result = p.ValidateChartIntent(raw, testContext())
	if result.Success || result.Stage != models.StageSchema {
		t.Errorf("expected schema failure for unknown chart type, got %+v", result)
	}

	raw = mustRaw(t, models.ChartIntent{
		DataSource: models.QueryIntent{Resource: "profiles"},
		ChartType:  models.ChartBar,
		YFields:    []string{"email"},
	})
	result = p.ValidateChartIntent(raw, testContext())
	if result.Success || result.Stage != models.StageColumnValidation {
		t.Errorf("expected column failure for restricted y field, got %+v", result)
	}
}

func TestValidateSummaryIntent(t *testing.T) {
	p := testPipeline()

	raw := mustRaw(t, models.SummaryIntent{
		DataSource: models.QueryIntent{Resource: "revenue"},
		Mode:       models.AnalysisTrend,
		FocusAreas: []string{"amount"},
		Tone:       models.ToneInsightful,
	})
	result := p.ValidateSummaryIntent(raw, testContext())
	if !result.Success {
		t.Fatalf("expected success, got stage %s errors %v", result.Stage, result.ErrorMessages())
	}
	if result.Data.Mode != models.AnalysisTrend {
		t.Errorf("mode = %s, want trend", result.Data.Mode)
	}
}

func TestValidateSummaryIntent_Defaults(t *testing.T) {
	p := testPipeline()
	raw := json.RawMessage(`{"data_source": {"resource": "customers"}}`)

	result := p.ValidateSummaryIntent(raw, testContext())
	if !result.Success {
		t.Fatalf("expected success, got %v", result.ErrorMessages())
	}
	if result.Data.Mode != models.AnalysisSummary {
		t.Errorf("mode should default to summary, got %s", result.Data.Mode)
	}
	if result.Data.Tone != models.ToneNeutral {
		t.Errorf("tone should default to neutral, got %s", result.Data.Tone)
	}
}

func TestValidateSummaryIntent_DropsInaccessibleFocusArea(t *testing.T) {
	p := testPipeline()
	raw := mustRaw(t, models.SummaryIntent{
		DataSource: models.QueryIntent{Resource: "profiles"},
		FocusAreas: []string{"display_name", "email"},
	})

	result := p.ValidateSummaryIntent(raw, testContext())
	if !result.Success {
		t.Fatalf("expected success with focus area dropped, got %v", result.ErrorMessages())
	}
	if len(result.Data.FocusAreas) != 1 || result.Data.FocusAreas[0] != "display_name" {
		t.Errorf("expected restricted focus area dropped, got %v", result.Data.FocusAreas)
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a warning for the dropped focus area")
	}
}
