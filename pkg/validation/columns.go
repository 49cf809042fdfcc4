package validation

import (
	"fmt"

	"github.com/glimpsehq/glimpse-engine/pkg/models"
	"github.com/glimpsehq/glimpse-engine/pkg/resources"
)

// checkQueryColumns validates every column the intent references against the
// registry's per-resource field rules. All violations are reported, not just
// the first. Column names that sanitize to a different (but still accessible)
// spelling are rewritten in place and surfaced as warnings.
func (p *Pipeline) checkQueryColumns(intent *models.QueryIntent, r *run) {
	for i := range intent.Filters {
		intent.Filters[i].Column = p.checkColumn(intent.Resource,
			fmt.Sprintf("filters[%d].column", i), intent.Filters[i].Column, r)
	}
	for i := range intent.Aggregations {
		intent.Aggregations[i].Field = p.checkColumn(intent.Resource,
			fmt.Sprintf("aggregations[%d].field", i), intent.Aggregations[i].Field, r)
		if !p.registry.IsAggregateAllowed(intent.Resource, intent.Aggregations[i].Function) {
			r.fail(models.StageColumnValidation, models.ValidationError{
				Code:  models.CodeAggregateDenied,
				Field: fmt.Sprintf("aggregations[%d].function", i),
				Message: fmt.Sprintf("aggregate %q is not allowed on resource %q",
					intent.Aggregations[i].Function, intent.Resource),
			})
		}
	}
	for i := range intent.GroupBy {
		intent.GroupBy[i] = p.checkColumn(intent.Resource,
			fmt.Sprintf("group_by[%d]", i), intent.GroupBy[i], r)
	}
	for i := range intent.OrderBy {
		intent.OrderBy[i].Field = p.checkColumn(intent.Resource,
			fmt.Sprintf("order_by[%d].field", i), intent.OrderBy[i].Field, r)
	}
}

// checkChartFields validates the chart's axis fields against the same rules
// as query columns. Empty axis fields are allowed; the configurator infers
// them from the result set.
func (p *Pipeline) checkChartFields(intent *models.ChartIntent, r *run) {
	resource := intent.DataSource.Resource
	if intent.XField != "" {
		intent.XField = p.checkColumn(resource, "x_field", intent.XField, r)
	}
	for i := range intent.YFields {
		intent.YFields[i] = p.checkColumn(resource, fmt.Sprintf("y_fields[%d]", i), intent.YFields[i], r)
	}
}

// checkSummaryFields validates the summary's focus areas. A focus area that
// names an inaccessible column is dropped with a warning rather than failing
// the whole intent, since focus areas only steer narrative emphasis.
func (p *Pipeline) checkSummaryFields(intent *models.SummaryIntent, r *run) {
	resource := intent.DataSource.Resource
	kept := intent.FocusAreas[:0]
	for _, area := range intent.FocusAreas {
		clean, err := resources.SanitizeFieldName(area)
		if err != nil || !p.registry.IsFieldAccessible(resource, clean) {
			r.warn(fmt.Sprintf("focus area %q is not an accessible column on %q; ignoring", area, resource))
			continue
		}
		if clean != area {
			r.warn(fmt.Sprintf("focus area %q sanitized to %q", area, clean))
		}
		kept = append(kept, clean)
	}
	intent.FocusAreas = kept
}

// checkColumn sanitizes one column reference and checks accessibility.
// Returns the sanitized name so callers can rewrite the intent in place.
func (p *Pipeline) checkColumn(resource, field, column string, r *run) string {
	clean, err := resources.SanitizeFieldName(column)
	if err != nil {
		r.fail(models.StageColumnValidation, models.ValidationError{
			Code:    models.CodeColumnForbidden,
			Field:   field,
			Message: fmt.Sprintf("column %q is not usable: %v", column, err),
		})
		return column
	}
	if clean != column {
		r.warn(fmt.Sprintf("column %q sanitized to %q", column, clean))
	}
	if !p.registry.IsFieldAccessible(resource, clean) {
		r.fail(models.StageColumnValidation, models.ValidationError{
			Code:    models.CodeColumnForbidden,
			Field:   field,
			Message: fmt.Sprintf("column %q is not accessible on resource %q", clean, resource),
		})
		return clean
	}
	return clean
}
