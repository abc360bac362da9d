package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// NewErrorHandler returns the process-wide echo error handler. Unmatched
// routes become 404 {"error":"Endpoint not found"}; client errors raised by
// middleware keep their status; everything else, an oversized body included,
// is a generic 500.
func NewErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	logger = logger.With("component", "error_handler")

	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, msg := classify(err)
		if status >= http.StatusInternalServerError {
			logger.Error("unhandled error",
				"err", err,
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
			)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, map[string]string{"error": msg})
		}
		if werr != nil {
			logger.Error("writing error response", "err", werr)
		}
	}
}

func classify(err error) (int, string) {
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		return http.StatusInternalServerError, "Internal server error"
	}

	switch {
	case he.Code == http.StatusNotFound, he.Code == http.StatusMethodNotAllowed:
		return http.StatusNotFound, "Endpoint not found"
	case he.Code >= http.StatusInternalServerError, he.Code == http.StatusRequestEntityTooLarge:
		return http.StatusInternalServerError, "Internal server error"
	}

	if msg, ok := he.Message.(string); ok && msg != "" {
		return he.Code, msg
	}
	return he.Code, http.StatusText(he.Code)
}
