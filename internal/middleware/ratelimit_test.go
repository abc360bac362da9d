package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"hubspot-relay/internal/config"
)

func newLimitedEcho(cfg config.RateLimitConfig) *echo.Echo {
	e := echo.New()
	e.Use(RateLimiter(cfg))
	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	return e
}

func TestRateLimiter_Enabled(t *testing.T) {
	// 1 request per second, burst of 1: the second request should be rejected.
	e := newLimitedEcho(config.RateLimitConfig{Enabled: true, RequestsPerSecond: 1, Burst: 1})

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d, want %d", rec.Code, http.StatusOK)
	}

	got429 := false
	for range 10 {
		req = httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
		rec = httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			got429 = true
			break
		}
	}
	if !got429 {
		t.Error("expected at least one 429 response after burst, got none")
	}
}

func TestRateLimiter_DenyMessage(t *testing.T) {
	e := newLimitedEcho(config.RateLimitConfig{Enabled: true, RequestsPerSecond: 1, Burst: 1})

	// The limiter hands its denial to c.Error rather than returning it.
	var denied []error
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		denied = append(denied, err)
		e.DefaultHTTPErrorHandler(err, c)
	}

	var rec *httptest.ResponseRecorder
	for range 5 {
		rec = httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", http.NoBody))
	}

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if len(denied) == 0 {
		t.Fatal("expected the error handler to receive the denial")
	}
	var he *echo.HTTPError
	if !errors.As(denied[len(denied)-1], &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", denied[len(denied)-1])
	}
	if he.Code != http.StatusTooManyRequests || he.Message != rateLimitMessage {
		t.Errorf("got (%d, %v), want (429, %q)", he.Code, he.Message, rateLimitMessage)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["message"] != rateLimitMessage {
		t.Errorf("message = %q, want %q", body["message"], rateLimitMessage)
	}
}

func TestRateLimiter_HealthSkipped(t *testing.T) {
	e := newLimitedEcho(config.RateLimitConfig{Enabled: true, RequestsPerSecond: 1, Burst: 1})

	for i := range 10 {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d to /health: status = %d, want %d", i, rec.Code, http.StatusOK)
		}
	}
}
