// Package model defines shared types for the relay.
package model

import (
	"context"
	"io"
	"net/http"
)

// WebhookEvent names a HubSpot webhook route. It is also the final path
// segment of the downstream webhook URL.
type WebhookEvent string

const (
	EventInstall      WebhookEvent = "install"
	EventUninstall    WebhookEvent = "uninstall"
	EventSubscription WebhookEvent = "subscription"
)

// WebhookEvents lists every event the relay forwards.
var WebhookEvents = []WebhookEvent{EventInstall, EventUninstall, EventSubscription}

// Valid reports whether e is one of the forwarded events.
func (e WebhookEvent) Valid() bool {
	switch e {
	case EventInstall, EventUninstall, EventSubscription:
		return true
	}
	return false
}

// WebhookRequest is an inbound webhook payload to be relayed downstream.
type WebhookRequest struct {
	Ctx   context.Context
	Event WebhookEvent
	Body  []byte
}

// QueryParam is one named value copied into a redirect URL.
type QueryParam struct {
	Name  string
	Value string
}

// DownstreamResponse is the backend's reply to an outbound call.
type DownstreamResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// OK reports whether the backend answered with a 2xx status.
func (r *DownstreamResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
