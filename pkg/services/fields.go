package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/glimpsehq/glimpse-engine/pkg/models"
)

// fieldProfile classifies the columns of a result set so the chart
// configurator and summarizer can pick axes and primary fields without
// schema knowledge.
type fieldProfile struct {
	// order lists column names deterministically (alphabetical); map
	// iteration order would make axis selection flap between requests.
	order       []string
	numeric     map[string]bool
	categorical map[string]bool
	dates       map[string]bool
}

// dateLayouts are the formats a string column may use and still count as a
// time axis.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
}

const maxCategoricalValues = 10

// profileFields inspects every row. A column is numeric when every value is
// a number or null, date-like when every non-null value is a timestamp or a
// parseable date string, and categorical when it has at most ten distinct
// stringified values.
func profileFields(rows []models.Row) fieldProfile {
	p := fieldProfile{
		numeric:     make(map[string]bool),
		categorical: make(map[string]bool),
		dates:       make(map[string]bool),
	}
	if len(rows) == 0 {
		return p
	}

	seen := make(map[string]bool)
	for _, row := range rows {
		for col := range row {
			if !seen[col] {
				seen[col] = true
				p.order = append(p.order, col)
			}
		}
	}
	sort.Strings(p.order)

	for _, col := range p.order {
		allNumeric := true
		allDates := true
		sawValue := false
		distinct := make(map[string]bool)

		for _, row := range rows {
			v, ok := row[col]
			if !ok || v == nil {
				continue
			}
			sawValue = true
			if !isNumericValue(v) {
				allNumeric = false
			}
			if !isDateValue(v) {
				allDates = false
			}
			if len(distinct) <= maxCategoricalValues {
				distinct[stringify(v)] = true
			}
		}

		if sawValue && allNumeric {
			p.numeric[col] = true
		}
		if sawValue && allDates {
			p.dates[col] = true
		}
		if sawValue && len(distinct) <= maxCategoricalValues {
			p.categorical[col] = true
		}
	}
	return p
}

func (p fieldProfile) numericFields() []string {
	var fields []string
	for _, col := range p.order {
		if p.numeric[col] {
			fields = append(fields, col)
		}
	}
	return fields
}

func (p fieldProfile) firstDateField() string {
	for _, col := range p.order {
		if p.dates[col] {
			return col
		}
	}
	return ""
}

func (p fieldProfile) firstCategoricalField() string {
	for _, col := range p.order {
		// A pure numeric column is a measure, not a category, even when it
		// has few distinct values.
		if p.categorical[col] && !p.numeric[col] {
			return col
		}
	}
	return ""
}

func isNumericValue(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

func isDateValue(v any) bool {
	switch val := v.(type) {
	case time.Time:
		return true
	case string:
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, val); err == nil {
				return true
			}
		}
	}
	return false
}

// toFloat converts a numeric value to float64. Returns false for anything
// non-numeric.
func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	}
	return 0, false
}

func stringify(v any) string {
	switch val := v.(type) {
	case time.Time:
		return val.Format(time.RFC3339)
	case string:
		return val
	}
	return fmt.Sprint(v)
}
