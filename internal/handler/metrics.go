package handler

import (
	"net/http"
	"strconv"

	"github.com/recipex/recipex/internal/metrics"
)

// Default and maximum number of recent records one metrics request
// returns.
const (
	defaultRecentLimit = 100
	maxRecentLimit     = metrics.DefaultHistorySize
)

// MetricsHandler exposes the collected performance metrics.
type MetricsHandler struct {
	collector *metrics.Collector
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(collector *metrics.Collector) *MetricsHandler {
	return &MetricsHandler{collector: collector}
}

// Get handles GET /api/v1/metrics. It reports aggregate statistics, the
// most recent raw records newest-first, and the internal-versus-external
// comparison (null until both sources have been measured).
func (h *MetricsHandler) Get(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= maxRecentLimit {
			limit = parsed
		}
	}

	recent := h.collector.Recent(limit)

	writeSuccess(w, http.StatusOK, "Metrics retrieved successfully",
		map[string]any{
			"statistics":             h.collector.Statistics(),
			"recent_metrics":         recent,
			"performance_comparison": h.collector.Comparison(),
		},
		map[string]any{
			"recent_count": len(recent),
			"limit":        limit,
		})
}

// Clear handles DELETE /api/v1/metrics. It resets aggregates and history
// so a measurement run starts from a clean slate.
func (h *MetricsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.collector.Clear()

	writeSuccess(w, http.StatusOK, "Metrics cleared successfully",
		map[string]any{"cleared": true}, nil)
}
