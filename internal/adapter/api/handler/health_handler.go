package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthCheck probes one backing service.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	nodeID string
	checks map[string]HealthCheck
}

var healthHandler *HealthHandler

func NewHealthHandler(nodeID string, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{
		nodeID: nodeID,
		checks: checks,
	}
}

func SetupHealthHandler(nodeID string, checks map[string]HealthCheck) {
	healthHandler = NewHealthHandler(nodeID, checks)
}

func GetHealthHandler() *HealthHandler {
	return healthHandler
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "Server is running",
		"node":   h.nodeID,
		"time":   time.Now().Format(time.RFC3339),
	})
}

// CheckDependencies runs every registered probe and reports 503 when any fails.
func (h *HealthHandler) CheckDependencies(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	return c.JSON(status, map[string]interface{}{
		"status": http.StatusText(status),
		"checks": results,
	})
}
