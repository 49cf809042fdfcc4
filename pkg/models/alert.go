package models

import "time"

// Alert detector severities.
const (
	AlertSeverityInfo     = "info"
	AlertSeverityWarning  = "warning"
	AlertSeverityCritical = "critical"
)

// MetricPoint is one observation in a metric time series.
type MetricPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// AlertThresholds holds the tunables for the metric alert detectors and the
// summarizer's deadband. The 5% deadband and the 2.0 z threshold are
// defaults, not hardcoded law: metrics with naturally noisier behaviour get
// per-metric overrides via the thresholds file.
type AlertThresholds struct {
	ZScoreThreshold    float64 `yaml:"z_score_threshold" json:"z_score_threshold"`
	SmoothingAlpha     float64 `yaml:"smoothing_alpha" json:"smoothing_alpha"`
	TrendChangePercent float64 `yaml:"trend_change_percent" json:"trend_change_percent"`
	DeadbandPercent    float64 `yaml:"deadband_percent" json:"deadband_percent"`
	WindowDays         int     `yaml:"window_days" json:"window_days"`
}

// DefaultAlertThresholds returns the stock detector configuration: rolling
// 90-day window, z threshold 2.0, smoothing factor 0.3, 10% trend change,
// 5% deadband.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		ZScoreThreshold:    2.0,
		SmoothingAlpha:     0.3,
		TrendChangePercent: 10.0,
		DeadbandPercent:    5.0,
		WindowDays:         90,
	}
}

// AlertConfig is the full alert configuration: defaults plus per-metric
// overrides, loadable from a YAML file.
type AlertConfig struct {
	Defaults AlertThresholds                 `yaml:"defaults"`
	Metrics  map[string]MetricThresholdPatch `yaml:"metrics"`
}

// MetricThresholdPatch overrides a subset of thresholds for one metric.
// Nil fields keep the default.
type MetricThresholdPatch struct {
	ZScoreThreshold    *float64 `yaml:"z_score_threshold"`
	SmoothingAlpha     *float64 `yaml:"smoothing_alpha"`
	TrendChangePercent *float64 `yaml:"trend_change_percent"`
	DeadbandPercent    *float64 `yaml:"deadband_percent"`
	WindowDays         *int     `yaml:"window_days"`
}

// ForMetric resolves the effective thresholds for a metric name.
func (c *AlertConfig) ForMetric(metric string) AlertThresholds {
	out := c.Defaults
	patch, ok := c.Metrics[metric]
	if !ok {
		return out
	}
	if patch.ZScoreThreshold != nil {
		out.ZScoreThreshold = *patch.ZScoreThreshold
	}
	if patch.SmoothingAlpha != nil {
		out.SmoothingAlpha = *patch.SmoothingAlpha
	}
	if patch.TrendChangePercent != nil {
		out.TrendChangePercent = *patch.TrendChangePercent
	}
	if patch.DeadbandPercent != nil {
		out.DeadbandPercent = *patch.DeadbandPercent
	}
	if patch.WindowDays != nil {
		out.WindowDays = *patch.WindowDays
	}
	return out
}

// MetricAlert is one anomaly finding from the metric alert engine.
type MetricAlert struct {
	Metric       string    `json:"metric"`
	Severity     string    `json:"severity"`
	Timestamp    time.Time `json:"timestamp"`
	Value        float64   `json:"value"`
	ExpectedLow  float64   `json:"expected_low"`
	ExpectedHigh float64   `json:"expected_high"`
	ZScore       float64   `json:"z_score"`
	Message      string    `json:"message"`
}
