package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"hubspot-relay/internal/config"
)

// rateLimitMessage is returned to callers over their per-IP budget.
const rateLimitMessage = "Too many requests from this IP, please try again later."

// RateLimiter returns a per-IP token bucket limiter. Health probes are never
// limited.
func RateLimiter(cfg config.RateLimitConfig) echo.MiddlewareFunc {
	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.RequestsPerSecond),
		Burst:     cfg.Burst,
		ExpiresIn: 3 * time.Minute,
	})

	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/health"
		},
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(_ echo.Context, err error) error {
			return &echo.HTTPError{Code: http.StatusForbidden, Message: "Forbidden", Internal: err}
		},
		DenyHandler: func(_ echo.Context, _ string, err error) error {
			return &echo.HTTPError{Code: http.StatusTooManyRequests, Message: rateLimitMessage, Internal: err}
		},
	})
}
