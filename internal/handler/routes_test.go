package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"hubspot-relay/internal/config"
	"hubspot-relay/internal/metrics"
)

func newTestServer(t *testing.T, cfg *config.Config, m *metrics.Metrics) *echo.Echo {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := newTestRelay(t, cfg.Downstream.BaseURL, m)

	e := echo.New()
	e.HTTPErrorHandler = NewErrorHandler(logger)
	RegisterRoutes(e, cfg, m,
		NewHealthHandler(cfg, "test"),
		NewRedirectHandler(svc, logger, m),
		NewWebhookHandler(svc, logger),
	)
	return e
}

func TestRegisterRoutes_Wiring(t *testing.T) {
	srv, _ := newMockDownstream(t, http.StatusOK)
	cfg := &config.Config{
		Downstream: config.DownstreamConfig{BaseURL: srv.URL},
		Metrics:    config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
	e := newTestServer(t, cfg, metrics.New())

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"GET /health", http.MethodGet, "/health", "", http.StatusOK},
		{"GET /oauth/hubspot/start", http.MethodGet, "/oauth/hubspot/start?portalId=1", "", http.StatusFound},
		{"GET /oauth/hubspot/start missing", http.MethodGet, "/oauth/hubspot/start", "", http.StatusBadRequest},
		{"GET /oauth/hubspot/callback", http.MethodGet, "/oauth/hubspot/callback?code=c&portalId=1", "", http.StatusFound},
		{"GET /cards/sync-status", http.MethodGet, "/cards/sync-status?portalId=1&userId=u", "", http.StatusFound},
		{"GET /cards/company-mapping", http.MethodGet, "/cards/company-mapping", "", http.StatusFound},
		{"POST install", http.MethodPost, "/webhooks/hubspot/install", `{"portalId":1}`, http.StatusOK},
		{"POST uninstall", http.MethodPost, "/webhooks/hubspot/uninstall", `{"portalId":1}`, http.StatusOK},
		{"POST subscription", http.MethodPost, "/webhooks/hubspot/subscription", `[{"portalId":1}]`, http.StatusOK},
		{"HEAD /health", http.MethodHead, "/health", "", http.StatusOK},
		{"HEAD /oauth/hubspot/start", http.MethodHead, "/oauth/hubspot/start?portalId=1", "", http.StatusFound},
		{"HEAD /cards/company-mapping", http.MethodHead, "/cards/company-mapping", "", http.StatusFound},
		{"GET /metrics", http.MethodGet, "/metrics", "", http.StatusOK},
		{"GET /unknown-endpoint", http.MethodGet, "/unknown-endpoint", "", http.StatusNotFound},
		{"POST unknown webhook", http.MethodPost, "/webhooks/hubspot/delete", `{}`, http.StatusNotFound},
		{"GET on webhook route", http.MethodGet, "/webhooks/hubspot/install", "", http.StatusNotFound},
		{"POST on redirect route", http.MethodPost, "/oauth/hubspot/start?portalId=1", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %q)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus == http.StatusNotFound {
				assertJSONError(t, rec, http.StatusNotFound, "Endpoint not found")
			}
		})
	}
}

func TestRegisterRoutes_MetricsDisabled(t *testing.T) {
	cfg := &config.Config{
		Downstream: config.DownstreamConfig{BaseURL: testOrigin},
		Metrics:    config.MetricsConfig{Enabled: false, Path: "/metrics"},
	}
	e := newTestServer(t, cfg, metrics.New())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	assertJSONError(t, rec, http.StatusNotFound, "Endpoint not found")
}

func TestRegisterRoutes_RedirectLocationUsesDownstream(t *testing.T) {
	cfg := &config.Config{Downstream: config.DownstreamConfig{BaseURL: testOrigin}}
	e := newTestServer(t, cfg, nil)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth/hubspot/start?portalId=12345", http.NoBody))

	loc := rec.Header().Get(echo.HeaderLocation)
	if !strings.Contains(loc, "blihu.yoyaba.com") || !strings.Contains(loc, "portalId=12345") {
		t.Errorf("Location = %q, want downstream origin with portalId=12345", loc)
	}
}
