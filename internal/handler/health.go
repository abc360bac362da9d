package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"hubspot-relay/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// fallbackVersion is reported when neither config nor the build sets one.
const fallbackVersion = "1.0.0"

// isoMillis matches the ISO-8601 form browsers emit for Date.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	cfg     *config.Config
	version Version
	now     func() time.Time
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v, now: time.Now}
}

// Health reports process liveness. It checks no dependencies.
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":      "healthy",
		"timestamp":   h.now().UTC().Format(isoMillis),
		"version":     h.reportedVersion(),
		"environment": h.cfg.App.Environment,
	})
}

func (h *HealthHandler) reportedVersion() string {
	if h.cfg.App.Version != "" {
		return h.cfg.App.Version
	}
	if h.version != "" && h.version != "dev" {
		return string(h.version)
	}
	return fallbackVersion
}
