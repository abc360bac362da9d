package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"not found", echo.ErrNotFound, http.StatusNotFound, "Endpoint not found"},
		{"method not allowed", echo.ErrMethodNotAllowed, http.StatusNotFound, "Endpoint not found"},
		{"too large is 500", echo.ErrStatusRequestEntityTooLarge, http.StatusInternalServerError, "Internal server error"},
		{"rate limited message", &echo.HTTPError{Code: http.StatusTooManyRequests, Message: "slow down"}, http.StatusTooManyRequests, "slow down"},
		{"non-string message", &echo.HTTPError{Code: http.StatusBadRequest, Message: 42}, http.StatusBadRequest, "Bad Request"},
		{"http 5xx is generic", echo.NewHTTPError(http.StatusBadGateway, "upstream detail"), http.StatusInternalServerError, "Internal server error"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := classify(tt.err)
			if status != tt.wantStatus || msg != tt.wantMsg {
				t.Errorf("classify() = (%d, %q), want (%d, %q)", status, msg, tt.wantStatus, tt.wantMsg)
			}
		})
	}
}

func TestErrorHandler_RecoveredPanic(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := echo.New()
	e.HTTPErrorHandler = NewErrorHandler(logger)
	e.Use(echomw.Recover())
	e.GET("/panic", func(echo.Context) error {
		panic("handler exploded")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", http.NoBody))

	assertJSONError(t, rec, http.StatusInternalServerError, "Internal server error")
}

func TestErrorHandler_HeadHasNoBody(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := echo.New()
	e.HTTPErrorHandler = NewErrorHandler(logger)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/nope", http.NoBody))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty for HEAD", rec.Body.String())
	}
}

func TestErrorHandler_CommittedResponseUntouched(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := echo.New()
	e.HTTPErrorHandler = NewErrorHandler(logger)
	e.GET("/partial", func(c echo.Context) error {
		_ = c.String(http.StatusAccepted, "partial")
		return errors.New("late failure")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/partial", http.NoBody))

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	if rec.Body.String() != "partial" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "partial")
	}
}
