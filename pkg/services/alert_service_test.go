package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/models"
)

func newAlertService(cfg models.AlertConfig) AlertService {
	return NewAlertService(cfg, zap.NewNop())
}

func defaultAlertConfig() models.AlertConfig {
	return models.AlertConfig{Defaults: models.DefaultAlertThresholds()}
}

// dailyPoints builds a series of daily observations ending at now.
func dailyPoints(now time.Time, values ...float64) []models.MetricPoint {
	points := make([]models.MetricPoint, len(values))
	for i, v := range values {
		points[i] = models.MetricPoint{
			Timestamp: now.AddDate(0, 0, -(len(values) - 1 - i)),
			Value:     v,
		}
	}
	return points
}

func alertsBySeverity(alerts []models.MetricAlert, severity string) []models.MetricAlert {
	var out []models.MetricAlert
	for _, a := range alerts {
		if a.Severity == severity {
			out = append(out, a)
		}
	}
	return out
}

func TestEvaluateMetric_ZScoreWarning(t *testing.T) {
	svc := newAlertService(defaultAlertConfig())
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// Nine identical values plus one outlier put the outlier at exactly
	// z = 3.0, above the 2.0 threshold but not past the 1.5x critical cut.
	points := dailyPoints(now, 10, 10, 10, 10, 10, 10, 10, 10, 10, 20)

	alerts := svc.EvaluateMetric("daily_revenue", points, now)

	warnings := alertsBySeverity(alerts, models.AlertSeverityWarning)
	require.Len(t, warnings, 1)
	assert.Equal(t, "daily_revenue", warnings[0].Metric)
	assert.Equal(t, 20.0, warnings[0].Value)
	assert.InDelta(t, 3.0, warnings[0].ZScore, 0.001)
	assert.InDelta(t, 5.0, warnings[0].ExpectedLow, 0.001)
	assert.InDelta(t, 17.0, warnings[0].ExpectedHigh, 0.001)
	assert.Contains(t, warnings[0].Message, "outside the expected range")

	assert.Empty(t, alertsBySeverity(alerts, models.AlertSeverityCritical))
}

func TestEvaluateMetric_ZScoreCritical(t *testing.T) {
	svc := newAlertService(defaultAlertConfig())
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// Ten identical values plus one outlier push the outlier past
	// z = 3.0, which clears the 1.5x critical multiplier.
	points := dailyPoints(now, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 20)

	alerts := svc.EvaluateMetric("daily_revenue", points, now)

	critical := alertsBySeverity(alerts, models.AlertSeverityCritical)
	require.Len(t, critical, 1)
	assert.Equal(t, 20.0, critical[0].Value)
	assert.Greater(t, critical[0].ZScore, 3.0)
}

func TestEvaluateMetric_TrendAboveBaseline(t *testing.T) {
	svc := newAlertService(defaultAlertConfig())
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// The final value sits at exactly z = 2.0, so no z-score alert fires,
	// but it is 15% above the smoothed baseline of 100.
	points := dailyPoints(now, 100, 100, 100, 100, 115)

	alerts := svc.EvaluateMetric("active_users", points, now)

	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertSeverityInfo, alerts[0].Severity)
	assert.Equal(t, 115.0, alerts[0].Value)
	assert.InDelta(t, 100.0, alerts[0].ExpectedLow, 0.001)
	assert.Contains(t, alerts[0].Message, "15.0% above")
}

func TestEvaluateMetric_TrendBelowBaseline(t *testing.T) {
	svc := newAlertService(defaultAlertConfig())
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	points := dailyPoints(now, 100, 100, 100, 100, 85)

	alerts := svc.EvaluateMetric("active_users", points, now)

	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Message, "15.0% below")
}

func TestEvaluateMetric_StableSeriesRaisesNothing(t *testing.T) {
	svc := newAlertService(defaultAlertConfig())
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	alerts := svc.EvaluateMetric("daily_revenue", dailyPoints(now, 10, 10, 10, 10), now)

	assert.Empty(t, alerts)
}

func TestEvaluateMetric_WindowExcludesOldPoints(t *testing.T) {
	svc := newAlertService(defaultAlertConfig())
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// A huge outlier older than the 90-day window must not count.
	points := append(
		[]models.MetricPoint{{Timestamp: now.AddDate(0, 0, -120), Value: 100000}},
		dailyPoints(now, 10, 10, 10, 10)...,
	)

	alerts := svc.EvaluateMetric("daily_revenue", points, now)

	assert.Empty(t, alerts)
}

func TestEvaluateMetric_TooFewPointsInWindow(t *testing.T) {
	svc := newAlertService(defaultAlertConfig())
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	points := []models.MetricPoint{
		{Timestamp: now.AddDate(0, 0, -200), Value: 10},
		{Timestamp: now.AddDate(0, 0, -150), Value: 500},
		{Timestamp: now, Value: 10},
	}

	assert.Nil(t, svc.EvaluateMetric("daily_revenue", points, now))
}

func TestEvaluateMetric_PerMetricOverrides(t *testing.T) {
	zThreshold := 4.0
	trendPercent := 200.0
	cfg := models.AlertConfig{
		Defaults: models.DefaultAlertThresholds(),
		Metrics: map[string]models.MetricThresholdPatch{
			"api_errors": {
				ZScoreThreshold:    &zThreshold,
				TrendChangePercent: &trendPercent,
			},
		},
	}
	svc := newAlertService(cfg)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	points := dailyPoints(now, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 20)

	// Under the defaults this series produces alerts; the relaxed
	// per-metric thresholds silence them.
	assert.NotEmpty(t, svc.EvaluateMetric("daily_revenue", points, now))
	assert.Empty(t, svc.EvaluateMetric("api_errors", points, now))
}

func TestLoadAlertConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	content := []byte(`defaults:
  z_score_threshold: 3.0
metrics:
  api_errors:
    z_score_threshold: 4.0
    window_days: 30
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := LoadAlertConfig(path)
	require.NoError(t, err)

	// The overridden default applies while untouched defaults survive.
	assert.Equal(t, 3.0, cfg.Defaults.ZScoreThreshold)
	assert.Equal(t, 90, cfg.Defaults.WindowDays)
	assert.Equal(t, 0.3, cfg.Defaults.SmoothingAlpha)

	resolved := cfg.ForMetric("api_errors")
	assert.Equal(t, 4.0, resolved.ZScoreThreshold)
	assert.Equal(t, 30, resolved.WindowDays)
	assert.Equal(t, 10.0, resolved.TrendChangePercent)

	assert.Equal(t, cfg.Defaults, cfg.ForMetric("unknown_metric"))
}

func TestLoadAlertConfig_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadAlertConfig("")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultAlertThresholds(), cfg.Defaults)
	assert.Empty(t, cfg.Metrics)
}

func TestLoadAlertConfig_MissingFile(t *testing.T) {
	_, err := LoadAlertConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadAlertConfig_MetricsOnlyKeepsStockDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	content := []byte(`metrics:
  daily_revenue:
    deadband_percent: 8.0
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := LoadAlertConfig(path)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultAlertThresholds(), cfg.Defaults)
	assert.Equal(t, 8.0, cfg.ForMetric("daily_revenue").DeadbandPercent)
}
