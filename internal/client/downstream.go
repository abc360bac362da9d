// Package client provides the outbound HTTP client for the downstream backend.
package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"hubspot-relay/internal/config"
	"hubspot-relay/internal/metrics"
	"hubspot-relay/internal/model"
)

// DownstreamClient sends requests to the downstream backend.
type DownstreamClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewDownstreamClient creates a DownstreamClient with connection pooling and
// an overall per-request timeout. The metrics parameter is optional; pass nil
// to disable downstream metrics recording.
func NewDownstreamClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *DownstreamClient {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.Downstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Downstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &DownstreamClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Downstream.TimeoutSeconds) * time.Second,
			// Redirects from the backend are reported, not followed.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger:  logger.With("component", "downstream_client"),
		metrics: m,
	}
}

// Do executes an HTTP request against the downstream and returns the raw response.
// The caller is responsible for closing the response body.
func (c *DownstreamClient) Do(req *http.Request) (*model.DownstreamResponse, error) {
	c.logger.Debug("downstream request",
		"method", req.Method,
		"path", req.URL.Path,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:bodyclose // body ownership transfers to caller via DownstreamResponse
	duration := time.Since(start).Seconds()

	method := metrics.NormalizeMethod(req.Method)

	if err != nil {
		if c.metrics != nil {
			c.metrics.DownstreamDuration.WithLabelValues(method).Observe(duration)
		}
		return nil, fmt.Errorf("downstream request: %w", err)
	}

	if c.metrics != nil {
		status := strconv.Itoa(resp.StatusCode)
		c.metrics.DownstreamDuration.WithLabelValues(method).Observe(duration)
		c.metrics.DownstreamResponses.WithLabelValues(method, status).Inc()
	}

	return &model.DownstreamResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}

// Send builds and executes a request. The caller is responsible for closing
// the returned body. The context controls the lifetime of the outbound call:
// when it is canceled (e.g. the inbound client disconnects), the call is
// canceled too.
func (c *DownstreamClient) Send(ctx context.Context, method, url string, header http.Header, body io.Reader) (*model.DownstreamResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build downstream request: %w", err)
	}
	req.Header = header

	return c.Do(req)
}
