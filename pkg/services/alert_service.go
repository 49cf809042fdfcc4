package services

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/glimpsehq/glimpse-engine/pkg/models"
	"github.com/glimpsehq/glimpse-engine/pkg/stats"
)

// AlertService evaluates metric time series for anomalies and trend breaks.
// It shares the statistics primitives with the summarizer so "is this value
// anomalous" means the same thing in both places.
type AlertService interface {
	// EvaluateMetric inspects the series and returns any alerts. Points
	// older than the metric's window are ignored.
	EvaluateMetric(metric string, points []models.MetricPoint, now time.Time) []models.MetricAlert
}

type alertService struct {
	config models.AlertConfig
	logger *zap.Logger
}

// NewAlertService creates an alert engine with the given configuration.
func NewAlertService(config models.AlertConfig, logger *zap.Logger) AlertService {
	return &alertService{
		config: config,
		logger: logger.Named("alert-service"),
	}
}

var _ AlertService = (*alertService)(nil)

// LoadAlertConfig reads per-metric threshold overrides from a YAML file.
// An empty path returns the defaults unchanged.
func LoadAlertConfig(path string) (models.AlertConfig, error) {
	cfg := models.AlertConfig{Defaults: models.DefaultAlertThresholds()}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read alert thresholds file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse alert thresholds file: %w", err)
	}

	// A thresholds file that sets only per-metric patches keeps the stock
	// defaults.
	if cfg.Defaults == (models.AlertThresholds{}) {
		cfg.Defaults = models.DefaultAlertThresholds()
	}
	return cfg, nil
}

func (s *alertService) EvaluateMetric(metric string, points []models.MetricPoint, now time.Time) []models.MetricAlert {
	thresholds := s.config.ForMetric(metric)

	cutoff := now.AddDate(0, 0, -thresholds.WindowDays)
	window := make([]models.MetricPoint, 0, len(points))
	for _, p := range points {
		if !p.Timestamp.Before(cutoff) {
			window = append(window, p)
		}
	}
	if len(window) < 2 {
		return nil
	}

	values := make([]float64, len(window))
	for i, p := range window {
		values[i] = p.Value
	}

	alerts := s.zScoreAlerts(metric, window, values, thresholds)
	if trendAlert := s.trendAlert(metric, window, values, thresholds); trendAlert != nil {
		alerts = append(alerts, *trendAlert)
	}

	if len(alerts) > 0 {
		s.logger.Info("metric alerts raised",
			zap.String("metric", metric),
			zap.Int("count", len(alerts)))
	}
	return alerts
}

// zScoreAlerts flags points whose deviation from the window mean exceeds the
// z threshold.
func (s *alertService) zScoreAlerts(metric string, window []models.MetricPoint, values []float64, th models.AlertThresholds) []models.MetricAlert {
	mean := stats.Mean(values)
	stddev := stats.StdDev(values)
	low := mean - th.ZScoreThreshold*stddev
	high := mean + th.ZScoreThreshold*stddev

	var alerts []models.MetricAlert
	for i, p := range window {
		z := stats.ZScore(values[i], mean, stddev)
		if absFloat(z) <= th.ZScoreThreshold {
			continue
		}
		severity := models.AlertSeverityWarning
		if absFloat(z) > th.ZScoreThreshold*1.5 {
			severity = models.AlertSeverityCritical
		}
		alerts = append(alerts, models.MetricAlert{
			Metric:       metric,
			Severity:     severity,
			Timestamp:    p.Timestamp,
			Value:        p.Value,
			ExpectedLow:  low,
			ExpectedHigh: high,
			ZScore:       z,
			Message: fmt.Sprintf("%s value %.2f is outside the expected range %.2f to %.2f (z-score %.1f)",
				metric, p.Value, low, high, z),
		})
	}
	return alerts
}

// trendAlert compares the latest observation against its exponentially
// smoothed baseline and alerts when the change exceeds the trend threshold.
func (s *alertService) trendAlert(metric string, window []models.MetricPoint, values []float64, th models.AlertThresholds) *models.MetricAlert {
	smoothed := stats.ExponentialSmoothing(values, th.SmoothingAlpha)
	if len(smoothed) < 2 {
		return nil
	}

	latest := values[len(values)-1]
	// The baseline is the smoothed series up to but excluding the latest
	// point, so a spike cannot hide inside its own baseline.
	baseline := smoothed[len(smoothed)-2]
	change := stats.PercentChange(baseline, latest)
	if absFloat(change) <= th.TrendChangePercent {
		return nil
	}

	direction := "above"
	if change < 0 {
		direction = "below"
	}
	last := window[len(window)-1]
	return &models.MetricAlert{
		Metric:       metric,
		Severity:     models.AlertSeverityInfo,
		Timestamp:    last.Timestamp,
		Value:        latest,
		ExpectedLow:  baseline,
		ExpectedHigh: baseline,
		ZScore:       0,
		Message: fmt.Sprintf("%s moved %.1f%% %s its smoothed baseline of %.2f",
			metric, absFloat(change), direction, baseline),
	}
}
