// Package health reports the health of the SPL document store.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/giygas/spl-labels-api/interfaces"
)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore    interfaces.DocumentStore
	scanInterval time.Duration
}

// NewHealthChecker creates a new health checker with injected dependencies.
// scanInterval is the ingestion period the data age thresholds are derived from.
func NewHealthChecker(dataStore interfaces.DocumentStore, scanInterval time.Duration) interfaces.HealthChecker {
	if scanInterval <= 0 {
		scanInterval = time.Hour
	}
	return &HealthCheckerImpl{
		dataStore:    dataStore,
		scanInterval: scanInterval,
	}
}

// HealthCheck returns HTTP-specific health data
// Used by /health HTTP endpoint
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	documents := h.dataStore.GetDocuments()
	sets := h.dataStore.GetSetsMap()
	report := h.dataStore.GetReport()
	lastUpdate := h.dataStore.GetLastUpdated()
	isUpdating := h.dataStore.IsUpdating()

	dataAge := time.Since(lastUpdate)

	switch {
	case lastUpdate.IsZero() && isUpdating:
		status = "starting"
		httpStatus = http.StatusServiceUnavailable

	case len(documents) == 0:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > 4*h.scanInterval:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > 2*h.scanInterval:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"last_update":       lastUpdate.Format(time.RFC3339),
		"data_age_hours":    math.Round(dataAge.Hours()*10) / 10,
		"documents":         len(documents),
		"sets":              len(sets),
		"invalid_documents": len(report.InvalidDocuments),
		"parse_failures":    len(report.ParseFailures),
		"is_updating":       isUpdating,
		"next_update":       h.CalculateNextUpdate().Format(time.RFC3339),
	}
	if start := h.dataStore.GetServerStartTime(); !start.IsZero() {
		data["uptime_seconds"] = math.Round(time.Since(start).Seconds())
	}

	return status, data, httpStatus
}

// CalculateNextUpdate returns the next scheduled ingestion time
func (h *HealthCheckerImpl) CalculateNextUpdate() time.Time {
	now := time.Now()
	lastUpdate := h.dataStore.GetLastUpdated()
	if lastUpdate.IsZero() {
		return now
	}

	next := lastUpdate.Add(h.scanInterval)
	for next.Before(now) {
		next = next.Add(h.scanInterval)
	}
	return next
}
