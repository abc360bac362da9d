package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"hubspot-relay/internal/model"
	"hubspot-relay/internal/service"
)

// WebhookHandler relays HubSpot webhooks to the downstream origin.
type WebhookHandler struct {
	service *service.RelayService
	logger  *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(svc *service.RelayService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: svc,
		logger:  logger.With("component", "webhook_handler"),
	}
}

// Forward returns the handler for one webhook event route.
func (h *WebhookHandler) Forward(event model.WebhookEvent) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()

		// Read errors (including the body limit's 413) go to the error handler.
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			return err
		}
		body, err := decodeBody(req.Header.Get(echo.HeaderContentType), raw)
		if err != nil {
			return err
		}

		err = h.service.Forward(&model.WebhookRequest{
			Ctx:   req.Context(),
			Event: event,
			Body:  body,
		})
		if err != nil {
			return h.mapError(c, event, err)
		}

		return c.JSON(http.StatusOK, map[string]string{"status": "forwarded"})
	}
}

// mapError replies with a generic message; downstream detail stays in logs.
func (h *WebhookHandler) mapError(c echo.Context, event model.WebhookEvent, err error) error {
	var rejected *service.RejectedError
	if errors.As(err, &rejected) {
		h.logger.Error("failed to forward webhook",
			"event", event,
			"status", rejected.StatusCode,
		)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to forward webhook",
		})
	}

	h.logger.Error("error forwarding webhook",
		"event", event,
		"err", err,
		"unreachable", errors.Is(err, service.ErrDownstreamUnreachable),
	)
	return c.JSON(http.StatusInternalServerError, map[string]string{
		"error": "Internal server error",
	})
}

// decodeBody turns an inbound webhook body into the JSON payload to relay.
// JSON passes through for the service to validate, form bodies become a
// JSON object, and any other media type is relayed as an empty payload.
func decodeBody(contentType string, body []byte) ([]byte, error) {
	// A malformed or missing type yields "" and falls to the default case.
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case echo.MIMEApplicationJSON:
		return body, nil
	case echo.MIMEApplicationForm:
		return formToJSON(body)
	default:
		return nil, nil
	}
}

// formToJSON encodes a urlencoded body as a JSON object in field order.
// A repeated field becomes an array of its values.
func formToJSON(body []byte) ([]byte, error) {
	var keys []string
	values := make(map[string][]string)
	for pair := range strings.SplitSeq(string(body), "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		k, v = unescapeForm(k), unescapeForm(v)
		if _, seen := values[k]; !seen {
			keys = append(keys, k)
		}
		values[k] = append(values[k], v)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	writeJSON := func(v any) error {
		if err := enc.Encode(v); err != nil {
			return err
		}
		buf.Truncate(buf.Len() - 1) // Encode appends a newline
		return nil
	}

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		var field any = values[k]
		if len(values[k]) == 1 {
			field = values[k][0]
		}
		if err := writeJSON(k); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSON(field); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// unescapeForm decodes one form component, keeping it raw when the escape is
// malformed.
func unescapeForm(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}
