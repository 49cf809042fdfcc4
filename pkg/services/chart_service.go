package services

import (
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/models"
)

// ChartService turns query results into renderer-agnostic chart
// configurations.
type ChartService interface {
	// Configure infers axes, chart type, and styling for the result set.
	// Empty results degrade to an explicit "no data" configuration, never an
	// error.
	Configure(intent models.ChartIntent, result *models.QueryResult) models.ChartConfiguration
}

type chartService struct {
	logger *zap.Logger
}

func NewChartService(logger *zap.Logger) ChartService {
	return &chartService{logger: logger.Named("chart-service")}
}

var _ ChartService = (*chartService)(nil)

// defaultPalette is applied to series in order.
var defaultPalette = []string{
	"#4E79A7", "#F28E2B", "#E15759", "#76B7B2", "#59A14F",
	"#EDC948", "#B07AA1", "#FF9DA7", "#9C755F", "#BAB0AC",
}

func (s *chartService) Configure(intent models.ChartIntent, result *models.QueryResult) models.ChartConfiguration {
	cfg := models.ChartConfiguration{
		Type:   intent.ChartType,
		Title:  intent.Title,
		Data:   []models.Row{},
		YAxis:  []models.AxisConfig{},
		Series: []models.SeriesConfig{},
		Colors: defaultPalette,
		Tooltip: models.TooltipConfig{
			Enabled:      true,
			NumberFormat: "locale",
		},
		Legend: models.LegendConfig{
			Enabled:  true,
			Position: "top-center",
		},
		Grid: models.GridConfig{
			Enabled:   true,
			LineStyle: "dashed",
			Color:     "#E0E0E0",
		},
	}

	rows := result.Data
	profile := profileFields(rows)
	yFields := s.resolveYFields(intent, profile)

	if len(rows) == 0 || len(yFields) == 0 {
		if cfg.Type == "" {
			cfg.Type = models.ChartBar
		}
		if cfg.Title == "" {
			cfg.Title = fmt.Sprintf("No data available for %s", inflection.Plural(intent.DataSource.Resource))
		}
		s.logger.Debug("chart degraded to no-data state",
			zap.String("resource", intent.DataSource.Resource),
			zap.Int("rows", len(rows)))
		return cfg
	}

	xField := s.resolveXField(intent, profile)
	if cfg.Type == "" {
		cfg.Type = inferChartType(profile, xField, yFields)
	}
	if cfg.Title == "" {
		cfg.Title = defaultTitle(intent.DataSource.Resource, xField)
	}

	cfg.Data = rows
	cfg.XAxis = models.AxisConfig{
		Field: xField,
		Label: axisLabel(xField),
		Type:  xAxisType(profile, xField),
	}
	for i, field := range yFields {
		cfg.YAxis = append(cfg.YAxis, models.AxisConfig{
			Field: field,
			Label: axisLabel(field),
			Type:  "value",
		})
		cfg.Series = append(cfg.Series, models.SeriesConfig{
			Name:  axisLabel(field),
			Field: field,
			Color: defaultPalette[i%len(defaultPalette)],
		})
	}
	return cfg
}

// resolveXField picks the x-axis: the explicitly requested field when the
// data actually has it, then the first date field, first categorical field,
// and finally the first column at all.
func (s *chartService) resolveXField(intent models.ChartIntent, profile fieldProfile) string {
	if intent.XField != "" {
		for _, col := range profile.order {
			if col == intent.XField {
				return intent.XField
			}
		}
	}
	if f := profile.firstDateField(); f != "" {
		return f
	}
	if f := profile.firstCategoricalField(); f != "" {
		return f
	}
	if len(profile.order) > 0 {
		return profile.order[0]
	}
	return ""
}

// resolveYFields picks the y-axes: explicit request filtered to fields the
// data has, else up to the first three numeric fields.
func (s *chartService) resolveYFields(intent models.ChartIntent, profile fieldProfile) []string {
	if len(intent.YFields) > 0 {
		var fields []string
		for _, requested := range intent.YFields {
			for _, col := range profile.order {
				if col == requested {
					fields = append(fields, requested)
					break
				}
			}
		}
		return fields
	}

	numeric := profile.numericFields()
	if len(numeric) > 3 {
		numeric = numeric[:3]
	}
	return numeric
}

func inferChartType(profile fieldProfile, xField string, yFields []string) models.ChartType {
	if len(yFields) > 3 {
		return models.ChartBar
	}
	if profile.dates[xField] {
		if len(yFields) == 1 {
			return models.ChartArea
		}
		return models.ChartLine
	}
	if len(profile.numericFields()) == 2 {
		return models.ChartScatter
	}
	return models.ChartBar
}

func xAxisType(profile fieldProfile, xField string) string {
	switch {
	case profile.dates[xField]:
		return "time"
	case profile.numeric[xField]:
		return "value"
	default:
		return "category"
	}
}

// axisLabel renders a column name for display: underscores become spaces and
// words are capitalized.
func axisLabel(field string) string {
	words := strings.Split(field, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func defaultTitle(resource, xField string) string {
	noun := axisLabel(inflection.Plural(resource))
	if xField == "" {
		return noun
	}
	return fmt.Sprintf("%s by %s", noun, axisLabel(xField))
}
