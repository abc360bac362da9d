// Package service implements the relay core: redirect URL assembly and
// webhook forwarding to the downstream backend.
package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"hubspot-relay/internal/client"
	"hubspot-relay/internal/config"
	"hubspot-relay/internal/metrics"
	"hubspot-relay/internal/model"
)

var (
	// ErrDownstreamRejected is matched by errors returned when the backend
	// answers a forwarded webhook with a non-2xx status.
	ErrDownstreamRejected = errors.New("downstream rejected webhook")
	// ErrDownstreamUnreachable wraps transport faults: connect, DNS, timeout
	// and cancellation.
	ErrDownstreamUnreachable = errors.New("downstream unreachable")
	// ErrInvalidPayload is returned when a webhook body is not a JSON object
	// or array.
	ErrInvalidPayload = errors.New("webhook body is not a JSON object or array")
	// ErrUnknownEvent is returned for events the relay does not forward.
	ErrUnknownEvent = errors.New("unknown webhook event")
)

// RejectedError reports the status the backend answered with.
type RejectedError struct {
	StatusCode int
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: status %d", ErrDownstreamRejected, e.StatusCode)
}

// Is makes errors.Is(err, ErrDownstreamRejected) hold for *RejectedError.
func (e *RejectedError) Is(target error) bool {
	return target == ErrDownstreamRejected
}

const (
	userAgent           = "hubspot-relay/1.0"
	forwardedFromHeader = "X-Forwarded-From"
	webhookPathPrefix   = "/webhooks/hubspot/"
	// maxDrainBytes bounds how much of a downstream reply is read before the
	// connection is returned to the pool.
	maxDrainBytes = 64 << 10
)

// RelayService builds redirect targets and forwards webhooks downstream.
type RelayService struct {
	client  *client.DownstreamClient
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	signer  *Signer
	baseURL *url.URL
}

// NewRelayService creates a RelayService. The metrics parameter is optional.
func NewRelayService(c *client.DownstreamClient, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*RelayService, error) {
	u, err := url.Parse(cfg.Downstream.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse downstream base_url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("downstream base_url %q is not absolute", cfg.Downstream.BaseURL)
	}

	return &RelayService{
		client:  c,
		cfg:     cfg,
		logger:  logger.With("component", "relay_service"),
		metrics: m,
		signer:  NewSigner(cfg.Downstream.SigningSecret),
		baseURL: u,
	}, nil
}

// RedirectURL returns the downstream URL for path with params appended in
// the given order. Names and values are percent-encoded, so the same inputs
// always produce the same URL.
func (s *RelayService) RedirectURL(path string, params ...model.QueryParam) string {
	u := s.downstreamURL(path)

	var q strings.Builder
	for i, p := range params {
		if i > 0 {
			q.WriteByte('&')
		}
		q.WriteString(url.QueryEscape(p.Name))
		q.WriteByte('=')
		q.WriteString(url.QueryEscape(p.Value))
	}
	u.RawQuery = q.String()

	return u.String()
}

// WebhookURL returns the downstream URL webhooks for event are posted to.
func (s *RelayService) WebhookURL(event model.WebhookEvent) string {
	u := s.downstreamURL(webhookPathPrefix + string(event))
	return u.String()
}

// Forward relays a webhook body to the backend once. It returns nil when the
// backend answers 2xx, an error matching ErrDownstreamRejected for any other
// status, and an error matching ErrDownstreamUnreachable for transport faults.
func (s *RelayService) Forward(wr *model.WebhookRequest) error {
	if !wr.Event.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, wr.Event)
	}

	body, err := normalizeBody(wr.Body)
	if err != nil {
		return err
	}

	s.logger.Info("webhook received",
		"event", wr.Event,
		"portal_id", portalID(body),
	)

	header, err := s.outboundHeaders(wr.Event, body)
	if err != nil {
		return err
	}

	resp, err := s.client.Send(wr.Ctx, http.MethodPost, s.WebhookURL(wr.Event), header, bytes.NewReader(body))
	if err != nil {
		s.record(wr.Event, metrics.OutcomeUnreachable)
		return fmt.Errorf("%w: %w", ErrDownstreamUnreachable, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
		_ = resp.Body.Close()
	}()

	if !resp.OK() {
		s.record(wr.Event, metrics.OutcomeRejected)
		return &RejectedError{StatusCode: resp.StatusCode}
	}

	s.record(wr.Event, metrics.OutcomeForwarded)
	s.logger.Info("webhook forwarded", "event", wr.Event, "status", resp.StatusCode)
	return nil
}

func (s *RelayService) outboundHeaders(event model.WebhookEvent, body []byte) (http.Header, error) {
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set(forwardedFromHeader, s.cfg.Downstream.ForwardedFrom)
	header.Set("User-Agent", userAgent)

	if s.signer != nil {
		sig, err := s.signer.Sign(event, body)
		if err != nil {
			return nil, err
		}
		header.Set(SignatureHeader, sig)
	}
	return header, nil
}

func (s *RelayService) downstreamURL(path string) url.URL {
	u := *s.baseURL
	u.Path = strings.TrimRight(s.baseURL.Path, "/") + path
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u
}

func (s *RelayService) record(event model.WebhookEvent, outcome string) {
	if s.metrics != nil {
		s.metrics.WebhookForwards.WithLabelValues(string(event), outcome).Inc()
	}
}

// normalizeBody returns body as compact JSON with key order and values
// untouched. An empty body is sent as an empty object. Top-level scalars are
// rejected.
func normalizeBody(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return []byte("{}"), nil
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: top-level %q", ErrInvalidPayload, trimmed[0])
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return buf.Bytes(), nil
}

// portalID extracts portalId from an object payload for logging. Array
// payloads and missing fields yield "".
func portalID(body []byte) string {
	var envelope struct {
		PortalID json.RawMessage `json:"portalId"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.PortalID) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(envelope.PortalID, &s); err == nil {
		return s
	}
	return string(envelope.PortalID)
}
