package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/models"
	"github.com/glimpsehq/glimpse-engine/pkg/stats"
)

// cannotSummarize is returned whenever no numeric field can be resolved.
// Fixed wording so callers and the model see a stable signal.
const cannotSummarize = "Unable to summarize this data: no numeric field was found to analyze."

// SummaryService renders statistical narratives over query results.
type SummaryService interface {
	// Summarize produces a narrative for the result set in the intent's
	// analysis mode and tone. It never fails: results without a numeric
	// field yield a fixed "cannot summarize" message.
	Summarize(intent models.SummaryIntent, result *models.QueryResult) string
}

type summaryService struct {
	deadbandPercent float64
	zThreshold      float64
	logger          *zap.Logger
}

// NewSummaryService creates a summarizer. deadbandPercent is the band within
// which trend and comparison changes read as stable; zThreshold flags
// anomalies.
func NewSummaryService(deadbandPercent, zThreshold float64, logger *zap.Logger) SummaryService {
	return &summaryService{
		deadbandPercent: deadbandPercent,
		zThreshold:      zThreshold,
		logger:          logger.Named("summary-service"),
	}
}

var _ SummaryService = (*summaryService)(nil)

// TrendResult is the outcome of a first-to-last trend analysis.
type TrendResult struct {
	Direction string  // "up", "down", "stable"
	Percent   float64 // signed percentage change
	First     float64
	Last      float64
}

// AnalyzeTrend computes the percentage change from the first to the last
// value. Changes smaller than deadbandPercent in magnitude read as stable.
func AnalyzeTrend(values []float64, deadbandPercent float64) TrendResult {
	if len(values) == 0 {
		return TrendResult{Direction: "stable"}
	}
	first, last := values[0], values[len(values)-1]
	pct := stats.PercentChange(first, last)
	direction := "stable"
	if pct > deadbandPercent {
		direction = "up"
	} else if pct < -deadbandPercent {
		direction = "down"
	}
	return TrendResult{Direction: direction, Percent: pct, First: first, Last: last}
}

func (s *summaryService) Summarize(intent models.SummaryIntent, result *models.QueryResult) string {
	rows := result.Data
	profile := profileFields(rows)

	field := primaryField(intent.FocusAreas, profile)
	if field == "" {
		return cannotSummarize
	}
	values := columnValues(rows, field, profile, intent.Mode)

	if len(values) == 0 {
		return cannotSummarize
	}

	noun := inflection.Plural(intent.DataSource.Resource)
	label := strings.ToLower(axisLabel(field))

	switch intent.Mode {
	case models.AnalysisTrend:
		return s.renderTrend(intent.Tone, label, noun, values)
	case models.AnalysisComparison:
		return s.renderComparison(intent.Tone, label, noun, values)
	case models.AnalysisAnomaly:
		return s.renderAnomalies(intent.Tone, label, values)
	default:
		return s.renderSummary(intent.Tone, label, noun, values)
	}
}

// primaryField picks the field to analyze: the first requested focus area
// that is numeric, else the first numeric field in the data.
func primaryField(focusAreas []string, profile fieldProfile) string {
	for _, area := range focusAreas {
		if profile.numeric[area] {
			return area
		}
	}
	numeric := profile.numericFields()
	if len(numeric) > 0 {
		return numeric[0]
	}
	return ""
}

// columnValues extracts the numeric column. Trend analysis orders rows by
// the first detected time field when one exists, so "first to last" means
// chronological rather than arrival order.
func columnValues(rows []models.Row, field string, profile fieldProfile, mode models.AnalysisMode) []float64 {
	ordered := rows
	if mode == models.AnalysisTrend {
		if timeField := profile.firstDateField(); timeField != "" {
			ordered = make([]models.Row, len(rows))
			copy(ordered, rows)
			sort.SliceStable(ordered, func(i, j int) bool {
				return stringify(ordered[i][timeField]) < stringify(ordered[j][timeField])
			})
		}
	}

	values := make([]float64, 0, len(ordered))
	for _, row := range ordered {
		if v, ok := toFloat(row[field]); ok {
			values = append(values, v)
		}
	}
	return values
}

func (s *summaryService) renderTrend(tone models.Tone, label, noun string, values []float64) string {
	trend := AnalyzeTrend(values, s.deadbandPercent)

	var core string
	switch trend.Direction {
	case "stable":
		core = fmt.Sprintf("%s held stable across %d %s (%.1f%% change, from %.2f to %.2f)",
			capitalize(label), len(values), noun, trend.Percent, trend.First, trend.Last)
	default:
		core = fmt.Sprintf("%s trended %s %.1f%% across %d %s (from %.2f to %.2f)",
			capitalize(label), trend.Direction, absFloat(trend.Percent), len(values), noun, trend.First, trend.Last)
	}

	switch tone {
	case models.ToneInsightful:
		if trend.Direction == "stable" {
			return core + ". The series shows no meaningful movement over this window."
		}
		return fmt.Sprintf("Notably, %s. This is a sustained shift rather than a single-point spike.", lowerFirst(core))
	case models.ToneActionable:
		if trend.Direction == "down" {
			return core + ". Consider investigating what changed around the start of the decline."
		}
		if trend.Direction == "up" {
			return core + ". Consider confirming the drivers of this growth to sustain it."
		}
		return core + ". No action is suggested by this trend."
	default:
		return core + "."
	}
}

func (s *summaryService) renderComparison(tone models.Tone, label, noun string, values []float64) string {
	mid := len(values) / 2
	previous := stats.Sum(values[:mid])
	current := stats.Sum(values[mid:])
	pct := stats.PercentChange(previous, current)

	verdict := "no_change"
	if pct > s.deadbandPercent {
		verdict = "increase"
	} else if pct < -s.deadbandPercent {
		verdict = "decrease"
	}

	var core string
	switch verdict {
	case "no_change":
		core = fmt.Sprintf("%s was essentially unchanged between the two halves of the period (%.2f vs %.2f, %.1f%%)",
			capitalize(label), previous, current, pct)
	case "increase":
		core = fmt.Sprintf("%s increased %.1f%% in the second half of the period (%.2f vs %.2f)",
			capitalize(label), absFloat(pct), current, previous)
	default:
		core = fmt.Sprintf("%s decreased %.1f%% in the second half of the period (%.2f vs %.2f)",
			capitalize(label), absFloat(pct), current, previous)
	}

	switch tone {
	case models.ToneInsightful:
		return fmt.Sprintf("Comparing both halves of %d %s: %s.", len(values), noun, lowerFirst(core))
	case models.ToneActionable:
		if verdict == "decrease" {
			return core + ". Consider reviewing the second half of the period for the cause."
		}
		return core + "."
	default:
		return core + "."
	}
}

func (s *summaryService) renderAnomalies(tone models.Tone, label string, values []float64) string {
	mean := stats.Mean(values)
	stddev := stats.StdDev(values)

	type anomaly struct {
		index int
		value float64
		z     float64
	}
	var anomalies []anomaly
	for i, v := range values {
		z := stats.ZScore(v, mean, stddev)
		if absFloat(z) > s.zThreshold {
			anomalies = append(anomalies, anomaly{index: i, value: v, z: z})
		}
	}

	if len(anomalies) == 0 {
		msg := fmt.Sprintf("No anomalies detected in %s: all %d values fall within the expected range of %.2f to %.2f.",
			label, len(values), mean-s.zThreshold*stddev, mean+s.zThreshold*stddev)
		if tone == models.ToneActionable {
			return msg + " No action needed."
		}
		return msg
	}

	parts := make([]string, len(anomalies))
	for i, a := range anomalies {
		parts[i] = fmt.Sprintf("row %d has %s %.2f (deviation %.1f, expected %.2f to %.2f)",
			a.index+1, label, a.value, a.z, mean-s.zThreshold*stddev, mean+s.zThreshold*stddev)
	}
	core := fmt.Sprintf("Found %d %s in %s: %s",
		len(anomalies), pluralizeCount("anomaly", len(anomalies)), label, strings.Join(parts, "; "))

	switch tone {
	case models.ToneInsightful:
		return core + ". Outliers of this size usually have a single identifiable cause."
	case models.ToneActionable:
		return core + ". Consider examining the flagged rows before drawing conclusions from aggregates."
	default:
		return core + "."
	}
}

func (s *summaryService) renderSummary(tone models.Tone, label, noun string, values []float64) string {
	core := fmt.Sprintf("Across %d %s, %s totals %.2f with an average of %.2f (min %.2f, max %.2f, median %.2f, standard deviation %.2f)",
		len(values), noun, label,
		stats.Sum(values), stats.Mean(values),
		stats.Min(values), stats.Max(values),
		stats.Median(values), stats.StdDev(values))

	switch tone {
	case models.ToneInsightful:
		spread := stats.Max(values) - stats.Min(values)
		return fmt.Sprintf("%s. The spread between extremes is %.2f.", core, spread)
	case models.ToneActionable:
		return core + ". Use the median alongside the average when the distribution is skewed."
	default:
		return core + "."
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func pluralizeCount(noun string, n int) string {
	if n == 1 {
		return noun
	}
	return inflection.Plural(noun)
}
