package validation

import (
	"fmt"
	"regexp"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"
	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/models"
)

// injectionPatterns are checked in addition to libinjection's tokenizer.
// libinjection is strong on real attack payloads but its fingerprinting can
// miss fragments that only become dangerous once embedded in a larger
// statement, so a fixed pattern set backstops it.
var injectionPatterns = []*regexp.Regexp{
	// Statement keywords that have no business in a filter value.
	regexp.MustCompile(`(?i)\b(union\s+select|insert\s+into|update\s+\w+\s+set|delete\s+from|drop\s+(table|database|schema)|alter\s+table|truncate\s+table|create\s+(table|database|user))\b`),
	// Comment markers used to cut off the trailing part of a statement.
	regexp.MustCompile(`(--|#|/\*|\*/)`),
	// Classic tautologies.
	regexp.MustCompile(`(?i)\b(or|and)\b\s*['"]?\s*\d+\s*=\s*\d+`),
	regexp.MustCompile(`(?i)['"]\s*(or|and)\s*['"]?\w*['"]?\s*=\s*['"]`),
	// Hex-encoded payloads.
	regexp.MustCompile(`(?i)0x[0-9a-f]{8,}`),
	// Stored procedure invocation prefixes.
	regexp.MustCompile(`(?i)\b(exec(ute)?\s+|xp_|sp_)`),
}

// scanQueryIntent runs the injection scan over every string the model
// controls inside a query intent: filter values, and the resource and column
// names (already sanitized, but the scan is cheap).
func (p *Pipeline) scanQueryIntent(intent *models.QueryIntent, r *run) {
	for i, f := range intent.Filters {
		field := fmt.Sprintf("filters[%d].value", i)
		switch v := f.Value.(type) {
		case string:
			p.scanStrings(r, field, v)
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					p.scanStrings(r, field, s)
				}
			}
		}
	}
}

// scanStrings checks each value for injection patterns. Findings are
// recorded as errors or warnings depending on Options.InjectionAsError.
func (p *Pipeline) scanStrings(r *run, field string, values ...string) {
	for _, value := range values {
		if value == "" {
			continue
		}
		reason := scanValue(value)
		if reason == "" {
			continue
		}
		if p.opts.InjectionAsError {
			p.logger.Warn("injection pattern detected",
				zap.String("field", field),
				zap.String("reason", reason))
			r.fail(models.StageInjectionScan, models.ValidationError{
				Code:    models.CodeInjectionDetected,
				Field:   field,
				Message: fmt.Sprintf("value rejected by injection scan: %s", reason),
			})
		} else {
			r.warn(fmt.Sprintf("%s: possible injection pattern (%s)", field, reason))
		}
	}
}

// scanValue returns a non-empty reason when the value looks like a SQL
// injection attempt.
func scanValue(value string) string {
	if isSQLi, fingerprint := libinjection.IsSQLi(value); isSQLi {
		return fmt.Sprintf("libinjection fingerprint %s", fingerprint)
	}
	for _, pattern := range injectionPatterns {
		if pattern.MatchString(value) {
			return fmt.Sprintf("matched pattern %s", pattern.String())
		}
	}
	if strings.Count(value, "'")%2 != 0 || strings.Count(value, `"`)%2 != 0 {
		return "unbalanced quotes"
	}
	return ""
}
