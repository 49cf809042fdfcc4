package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/models"
)

func chartResult(rows []models.Row) *models.QueryResult {
	return &models.QueryResult{Data: rows, Metadata: models.QueryMetadata{RowCount: len(rows)}}
}

func revenueIntent() models.ChartIntent {
	return models.ChartIntent{DataSource: models.QueryIntent{Resource: "revenue"}}
}

func TestConfigure_InfersLineForDateAxisWithTwoSeries(t *testing.T) {
	svc := NewChartService(zap.NewNop())
	rows := []models.Row{
		{"day": "2026-01-01", "amount": 100.0, "count": 5.0},
		{"day": "2026-01-02", "amount": 150.0, "count": 7.0},
		{"day": "2026-01-03", "amount": 130.0, "count": 6.0},
	}

	cfg := svc.Configure(revenueIntent(), chartResult(rows))

	assert.Equal(t, models.ChartLine, cfg.Type)
	assert.Equal(t, "day", cfg.XAxis.Field)
	assert.Equal(t, "time", cfg.XAxis.Type)
	require.Len(t, cfg.Series, 2)
	assert.Equal(t, "amount", cfg.Series[0].Field)
	assert.Equal(t, "count", cfg.Series[1].Field)
}

func TestConfigure_InfersAreaForDateAxisWithOneSeries(t *testing.T) {
	svc := NewChartService(zap.NewNop())
	rows := []models.Row{
		{"day": "2026-01-01", "amount": 100.0},
		{"day": "2026-01-02", "amount": 150.0},
	}

	cfg := svc.Configure(revenueIntent(), chartResult(rows))

	assert.Equal(t, models.ChartArea, cfg.Type)
}

func TestConfigure_InfersScatterForTwoNumericFields(t *testing.T) {
	svc := NewChartService(zap.NewNop())
	rows := []models.Row{
		{"amount": 100.0, "count": 5.0},
		{"amount": 150.0, "count": 7.0},
	}

	cfg := svc.Configure(revenueIntent(), chartResult(rows))

	assert.Equal(t, models.ChartScatter, cfg.Type)
}

func TestConfigure_InfersBarForManySeries(t *testing.T) {
	svc := NewChartService(zap.NewNop())
	rows := []models.Row{
		{"region": "eu", "a": 1.0, "b": 2.0, "c": 3.0, "d": 4.0},
	}
	intent := revenueIntent()
	intent.YFields = []string{"a", "b", "c", "d"}

	cfg := svc.Configure(intent, chartResult(rows))

	assert.Equal(t, models.ChartBar, cfg.Type)
	assert.Len(t, cfg.Series, 4)
}

func TestConfigure_ExplicitTypeWins(t *testing.T) {
	svc := NewChartService(zap.NewNop())
	rows := []models.Row{
		{"day": "2026-01-01", "amount": 100.0},
	}
	intent := revenueIntent()
	intent.ChartType = models.ChartPie

	cfg := svc.Configure(intent, chartResult(rows))

	assert.Equal(t, models.ChartPie, cfg.Type)
}

func TestConfigure_YFieldsCappedAtThree(t *testing.T) {
	svc := NewChartService(zap.NewNop())
	rows := []models.Row{
		{"a": 1.0, "b": 2.0, "c": 3.0, "d": 4.0, "e": 5.0},
	}

	cfg := svc.Configure(revenueIntent(), chartResult(rows))

	assert.Len(t, cfg.Series, 3)
}

func TestConfigure_ExplicitXFieldMustExistInData(t *testing.T) {
	svc := NewChartService(zap.NewNop())
	rows := []models.Row{
		{"day": "2026-01-01", "amount": 100.0},
	}
	intent := revenueIntent()
	intent.XField = "nonexistent"

	cfg := svc.Configure(intent, chartResult(rows))

	// Falls back to the date field when the requested x is absent.
	assert.Equal(t, "day", cfg.XAxis.Field)
}

func TestConfigure_CategoricalXAxis(t *testing.T) {
	svc := NewChartService(zap.NewNop())
	rows := []models.Row{
		{"region": "eu", "amount": 100.0},
		{"region": "us", "amount": 200.0},
	}

	cfg := svc.Configure(revenueIntent(), chartResult(rows))

	assert.Equal(t, "region", cfg.XAxis.Field)
	assert.Equal(t, "category", cfg.XAxis.Type)
	assert.Equal(t, models.ChartBar, cfg.Type)
}

func TestConfigure_EmptyResultDegradesGracefully(t *testing.T) {
	svc := NewChartService(zap.NewNop())

	cfg := svc.Configure(revenueIntent(), chartResult(nil))

	assert.Empty(t, cfg.Data)
	assert.Empty(t, cfg.Series)
	assert.NotEmpty(t, cfg.Title)
	assert.Contains(t, cfg.Title, "No data")
	assert.Equal(t, models.ChartBar, cfg.Type)
}

func TestConfigure_NoNumericFieldsDegradesGracefully(t *testing.T) {
	svc := NewChartService(zap.NewNop())
	rows := []models.Row{{"name": "Acme"}}

	cfg := svc.Configure(revenueIntent(), chartResult(rows))

	assert.Empty(t, cfg.Series)
	assert.Contains(t, cfg.Title, "No data")
}

func TestConfigure_Defaults(t *testing.T) {
	svc := NewChartService(zap.NewNop())
	rows := []models.Row{{"region": "eu", "amount": 100.0}}

	cfg := svc.Configure(revenueIntent(), chartResult(rows))

	assert.True(t, cfg.Tooltip.Enabled)
	assert.Equal(t, "locale", cfg.Tooltip.NumberFormat)
	assert.True(t, cfg.Legend.Enabled)
	assert.Equal(t, "top-center", cfg.Legend.Position)
	assert.True(t, cfg.Grid.Enabled)
	assert.Equal(t, "dashed", cfg.Grid.LineStyle)
	assert.NotEmpty(t, cfg.Colors)
	assert.NotEmpty(t, cfg.Title)
}

func TestConfigure_TitlePreserved(t *testing.T) {
	svc := NewChartService(zap.NewNop())
	rows := []models.Row{{"region": "eu", "amount": 100.0}}
	intent := revenueIntent()
	intent.Title = "Quarterly revenue by region"

	cfg := svc.Configure(intent, chartResult(rows))

	assert.Equal(t, "Quarterly revenue by region", cfg.Title)
}
