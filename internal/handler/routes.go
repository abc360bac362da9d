package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hubspot-relay/internal/config"
	"hubspot-relay/internal/metrics"
	"hubspot-relay/internal/model"
)

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, m *metrics.Metrics, health *HealthHandler, redirect *RedirectHandler, webhook *WebhookHandler) {
	// GET routes also answer HEAD.
	read := []string{http.MethodGet, http.MethodHead}

	e.Match(read, "/health", health.Health)

	e.Match(read, oauthStartRoute.path, redirect.OAuthStart)
	e.Match(read, oauthCallbackRoute.path, redirect.OAuthCallback)
	e.Match(read, syncStatusCardRoute.path, redirect.SyncStatusCard)
	e.Match(read, companyMappingCardRoute.path, redirect.CompanyMappingCard)

	for _, event := range model.WebhookEvents {
		e.POST("/webhooks/hubspot/"+string(event), webhook.Forward(event))
	}

	if cfg.Metrics.Enabled && m != nil {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}
}
