// Package ga4mp implements the analytics sink against the GA4 Measurement
// Protocol.
package ga4mp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// DefaultEndpoint is the production Measurement Protocol collection endpoint.
const DefaultEndpoint = "https://www.google-analytics.com/mp/collect"

// Client records events via the Measurement Protocol.
type Client struct {
	httpClient    *http.Client
	endpoint      string
	measurementID string
	apiSecret     string
	clientID      string
}

// NewClient creates a Measurement Protocol client. endpoint and clientID
// may be empty; the production endpoint and a per-process UUID are used.
func NewClient(measurementID, apiSecret, endpoint, clientID string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if clientID == "" {
		clientID = uuid.NewString()
	}
	return &Client{
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		endpoint:      endpoint,
		measurementID: measurementID,
		apiSecret:     apiSecret,
		clientID:      clientID,
	}
}

// Init implements sink.Sink. It validates the configuration; there is no
// remote handshake to perform and repeated calls are harmless.
func (c *Client) Init(ctx context.Context) error {
	if c.measurementID == "" || c.apiSecret == "" {
		return fmt.Errorf("ga4mp: measurement id and api secret are required")
	}
	if _, err := url.Parse(c.endpoint); err != nil {
		return fmt.Errorf("ga4mp: invalid endpoint %q: %w", c.endpoint, err)
	}
	return nil
}

type collectRequest struct {
	ClientID string         `json:"client_id"`
	Events   []collectEvent `json:"events"`
}

type collectEvent struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

// Record implements sink.Sink. One call sends one event.
func (c *Client) Record(ctx context.Context, eventName string, params map[string]any) error {
	body, err := json.Marshal(collectRequest{
		ClientID: c.clientID,
		Events:   []collectEvent{{Name: eventName, Params: params}},
	})
	if err != nil {
		return fmt.Errorf("ga4mp: encoding event %s: %w", eventName, err)
	}

	u := fmt.Sprintf("%s?measurement_id=%s&api_secret=%s",
		c.endpoint, url.QueryEscape(c.measurementID), url.QueryEscape(c.apiSecret))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ga4mp: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ga4mp: sending event %s: %w", eventName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("ga4mp: event %s rejected with status %d", eventName, resp.StatusCode)
	}
	return nil
}
