package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/auth"
	"github.com/glimpsehq/glimpse-engine/pkg/models"
	"github.com/glimpsehq/glimpse-engine/pkg/services"
)

// AlertsHandler exposes metric alert evaluation to the monitoring layer.
// The caller supplies the series; windowing and thresholds are the engine's
// concern.
type AlertsHandler struct {
	alerts services.AlertService
	logger *zap.Logger
}

// NewAlertsHandler creates a new alerts handler.
func NewAlertsHandler(alerts services.AlertService, logger *zap.Logger) *AlertsHandler {
	return &AlertsHandler{
		alerts: alerts,
		logger: logger,
	}
}

// EvaluateRequest is the body of an alert evaluation call.
type EvaluateRequest struct {
	Metric string               `json:"metric"`
	Points []models.MetricPoint `json:"points"`
}

// EvaluateResponse carries the findings for one metric series.
type EvaluateResponse struct {
	Metric string               `json:"metric"`
	Alerts []models.MetricAlert `json:"alerts"`
}

// RegisterRoutes registers the alert evaluation endpoint behind auth.
func (h *AlertsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.Handle("POST /api/alerts/evaluate", authMiddleware.RequireAuth(http.HandlerFunc(h.Evaluate)))
}

// Evaluate runs the alert detectors over the submitted series.
func (h *AlertsHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = WriteError(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}
	if req.Metric == "" {
		_ = WriteError(w, http.StatusBadRequest, "invalid_request", "metric is required")
		return
	}

	alerts := h.alerts.EvaluateMetric(req.Metric, req.Points, time.Now())
	if alerts == nil {
		alerts = []models.MetricAlert{}
	}

	h.logger.Debug("Evaluated metric series",
		zap.String("metric", req.Metric),
		zap.Int("points", len(req.Points)),
		zap.Int("alerts", len(alerts)))

	_ = WriteJSON(w, http.StatusOK, EvaluateResponse{
		Metric: req.Metric,
		Alerts: alerts,
	})
}
