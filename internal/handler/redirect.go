package handler

import (
	"log/slog"
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"

	"hubspot-relay/internal/metrics"
	"hubspot-relay/internal/model"
	"hubspot-relay/internal/service"
)

// oauthCodePattern matches the OAuth authorization code in a redirect URL.
var oauthCodePattern = regexp.MustCompile(`([?&]code=)[^&#]+`)

// redirectRoute describes a GET route answered with a 302 to the same path
// on the downstream origin.
type redirectRoute struct {
	name     string   // metrics and log label
	path     string   // inbound and downstream path
	params   []string // query parameters copied, in order
	required []string // params that must be non-empty
	missing  string   // error message when a required param is absent
}

var (
	oauthStartRoute = redirectRoute{
		name:     "oauth_start",
		path:     "/oauth/hubspot/start",
		params:   []string{"portalId", "state"},
		required: []string{"portalId"},
		missing:  "Missing portalId parameter",
	}
	oauthCallbackRoute = redirectRoute{
		name:     "oauth_callback",
		path:     "/oauth/hubspot/callback",
		params:   []string{"code", "state", "portalId"},
		required: []string{"code", "portalId"},
		missing:  "Missing required OAuth parameters",
	}
	syncStatusCardRoute = redirectRoute{
		name:   "card_sync_status",
		path:   "/cards/sync-status",
		params: []string{"portalId", "userId"},
	}
	companyMappingCardRoute = redirectRoute{
		name:   "card_company_mapping",
		path:   "/cards/company-mapping",
		params: []string{"portalId", "userId"},
	}
)

// RedirectHandler sends browsers to the downstream origin.
type RedirectHandler struct {
	service *service.RelayService
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewRedirectHandler creates a RedirectHandler. The metrics parameter is optional.
func NewRedirectHandler(svc *service.RelayService, logger *slog.Logger, m *metrics.Metrics) *RedirectHandler {
	return &RedirectHandler{
		service: svc,
		logger:  logger.With("component", "redirect_handler"),
		metrics: m,
	}
}

// OAuthStart redirects to the backend's OAuth initiation flow.
func (h *RedirectHandler) OAuthStart(c echo.Context) error {
	return h.redirect(c, oauthStartRoute)
}

// OAuthCallback redirects HubSpot's OAuth callback to the backend.
func (h *RedirectHandler) OAuthCallback(c echo.Context) error {
	return h.redirect(c, oauthCallbackRoute)
}

// SyncStatusCard redirects the sync status UI card.
func (h *RedirectHandler) SyncStatusCard(c echo.Context) error {
	return h.redirect(c, syncStatusCardRoute)
}

// CompanyMappingCard redirects the company mapping UI card.
func (h *RedirectHandler) CompanyMappingCard(c echo.Context) error {
	return h.redirect(c, companyMappingCardRoute)
}

func (h *RedirectHandler) redirect(c echo.Context, rt redirectRoute) error {
	for _, name := range rt.required {
		if c.QueryParam(name) == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": rt.missing})
		}
	}

	params := make([]model.QueryParam, len(rt.params))
	for i, name := range rt.params {
		params[i] = model.QueryParam{Name: name, Value: c.QueryParam(name)}
	}
	location := h.service.RedirectURL(rt.path, params...)

	h.logger.Info("redirecting",
		"route", rt.name,
		"portal_id", c.QueryParam("portalId"),
		"location", redactCode(location),
	)
	if h.metrics != nil {
		h.metrics.Redirects.WithLabelValues(rt.name).Inc()
	}

	return c.Redirect(http.StatusFound, location)
}

// redactCode hides OAuth authorization codes in URLs written to logs.
func redactCode(location string) string {
	return oauthCodePattern.ReplaceAllString(location, "${1}[REDACTED]")
}
