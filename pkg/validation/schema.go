package validation

import (
	"encoding/json"
	"fmt"

	"github.com/glimpsehq/glimpse-engine/pkg/models"
)

var validOperators = map[models.FilterOperator]bool{
	models.OperatorEq:       true,
	models.OperatorNe:       true,
	models.OperatorGt:       true,
	models.OperatorLt:       true,
	models.OperatorGte:      true,
	models.OperatorLte:      true,
	models.OperatorContains: true,
	models.OperatorIn:       true,
}

var validAggregates = map[models.AggregateFunc]bool{
	models.AggregateCount: true,
	models.AggregateSum:   true,
	models.AggregateAvg:   true,
	models.AggregateMin:   true,
	models.AggregateMax:   true,
}

var validChartTypes = map[models.ChartType]bool{
	models.ChartBar:     true,
	models.ChartLine:    true,
	models.ChartArea:    true,
	models.ChartScatter: true,
	models.ChartPie:     true,
}

var validAnalysisModes = map[models.AnalysisMode]bool{
	models.AnalysisTrend:      true,
	models.AnalysisComparison: true,
	models.AnalysisAnomaly:    true,
	models.AnalysisSummary:    true,
}

var validTones = map[models.Tone]bool{
	models.ToneNeutral:    true,
	models.ToneInsightful: true,
	models.ToneActionable: true,
}

func schemaError(field, message string) models.ValidationError {
	return models.ValidationError{Code: models.CodeSchemaValidation, Field: field, Message: message}
}

// decodeQueryIntent decodes and shape-checks a raw query intent. The typed
// decode strips unknown fields; a decode failure reports the offending field
// when the JSON type mismatch identifies one.
func (p *Pipeline) decodeQueryIntent(raw json.RawMessage, r *run) *models.QueryIntent {
	var intent models.QueryIntent
	if decodeStrictTypes(raw, &intent, r) {
		return nil
	}
	p.checkQueryShape(&intent, r)
	if r.failStage == models.StageSchema {
		return nil
	}
	return &intent
}

func (p *Pipeline) decodeChartIntent(raw json.RawMessage, r *run) *models.ChartIntent {
	var intent models.ChartIntent
	if decodeStrictTypes(raw, &intent, r) {
		return nil
	}
	if intent.ChartType != "" && !validChartTypes[intent.ChartType] {
		r.fail(models.StageSchema, schemaError("chart_type", fmt.Sprintf("unknown chart type %q", intent.ChartType)))
	}
	p.checkQueryShape(&intent.DataSource, r)
	if r.failStage == models.StageSchema {
		return nil
	}
	return &intent
}

func (p *Pipeline) decodeSummaryIntent(raw json.RawMessage, r *run) *models.SummaryIntent {
	var intent models.SummaryIntent
	if decodeStrictTypes(raw, &intent, r) {
		return nil
	}
	if intent.Mode == "" {
		intent.Mode = models.AnalysisSummary
	} else if !validAnalysisModes[intent.Mode] {
		r.fail(models.StageSchema, schemaError("mode", fmt.Sprintf("unknown analysis mode %q", intent.Mode)))
	}
	if intent.Tone == "" {
		intent.Tone = models.ToneNeutral
	} else if !validTones[intent.Tone] {
		r.fail(models.StageSchema, schemaError("tone", fmt.Sprintf("unknown tone %q", intent.Tone)))
	}
	p.checkQueryShape(&intent.DataSource, r)
	if r.failStage == models.StageSchema {
		return nil
	}
	return &intent
}

// decodeStrictTypes unmarshals raw into dst, converting JSON type mismatches
// into schema errors. Returns true when decoding failed.
func decodeStrictTypes(raw json.RawMessage, dst any, r *run) bool {
	if len(raw) == 0 {
		r.fail(models.StageSchema, schemaError("", "intent is empty"))
		return true
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		if typeErr, ok := err.(*json.UnmarshalTypeError); ok {
			r.fail(models.StageSchema, schemaError(typeErr.Field,
				fmt.Sprintf("field %q has wrong type: expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)))
		} else {
			r.fail(models.StageSchema, schemaError("", fmt.Sprintf("intent is not valid JSON: %v", err)))
		}
		return true
	}
	return false
}

// checkQueryShape validates the structural contract of a query intent:
// required resource, closed operator and aggregate vocabularies, and
// bounded numeric fields. Out-of-range limits and page sizes are reported
// as warnings because the executor clamps them anyway.
func (p *Pipeline) checkQueryShape(intent *models.QueryIntent, r *run) {
	if intent.Resource == "" {
		r.fail(models.StageSchema, schemaError("resource", "resource is required"))
	}

	for i, f := range intent.Filters {
		if f.Column == "" {
			r.fail(models.StageSchema, schemaError(fmt.Sprintf("filters[%d].column", i), "filter column is required"))
		}
		if !validOperators[f.Operator] {
			r.fail(models.StageSchema, schemaError(fmt.Sprintf("filters[%d].operator", i),
				fmt.Sprintf("unknown operator %q", f.Operator)))
		}
		if f.Value == nil {
			r.fail(models.StageSchema, schemaError(fmt.Sprintf("filters[%d].value", i), "filter value is required"))
		}
		if f.Operator == models.OperatorIn {
			if _, ok := f.Value.([]any); !ok {
				r.fail(models.StageSchema, schemaError(fmt.Sprintf("filters[%d].value", i),
					`operator "in" requires an array value`))
			}
		}
	}

	for i, a := range intent.Aggregations {
		if a.Field == "" {
			r.fail(models.StageSchema, schemaError(fmt.Sprintf("aggregations[%d].field", i), "aggregation field is required"))
		}
		if !validAggregates[a.Function] {
			r.fail(models.StageSchema, schemaError(fmt.Sprintf("aggregations[%d].function", i),
				fmt.Sprintf("unknown aggregate function %q", a.Function)))
		}
	}

	for i, o := range intent.OrderBy {
		if o.Field == "" {
			r.fail(models.StageSchema, schemaError(fmt.Sprintf("order_by[%d].field", i), "order-by field is required"))
		}
		if o.Direction != models.SortAsc && o.Direction != models.SortDesc {
			r.fail(models.StageSchema, schemaError(fmt.Sprintf("order_by[%d].direction", i),
				fmt.Sprintf("direction must be asc or desc, got %q", o.Direction)))
		}
	}

	if intent.Limit < 0 {
		r.fail(models.StageSchema, schemaError("limit", "limit must be positive"))
	}
	if intent.Page < 0 || (intent.Page == 0 && intent.PageSize > 0) {
		if intent.Page < 0 {
			r.fail(models.StageSchema, schemaError("page", "page must be positive"))
		} else {
			r.warn("page_size given without page; defaulting to page 1")
			intent.Page = 1
		}
	}
	if intent.PageSize < 0 {
		r.fail(models.StageSchema, schemaError("page_size", "page size must be positive"))
	}
}
