package signals

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"PriceRadar/internal/config"
	"PriceRadar/internal/domain"
	"PriceRadar/internal/ports"
)

// Client fetches observed per-source reliability signals from a reporting
// service. The service answers GET {url} with a JSON object keyed by source id.
type Client struct {
	endpoint string
	client   *resty.Client
}

var _ ports.SignalProvider = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.SignalsConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &Client{endpoint: strings.TrimSpace(cfg.URL), client: client}
}

// Signals returns the latest signals, keyed by lowercase source id.
func (c *Client) Signals(ctx context.Context) (map[string]domain.TrustSignals, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("signals endpoint is not configured")
	}

	var payload map[string]domain.TrustSignals
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&payload).
		Get(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("unexpected status %s", resp.Status())
	}

	out := make(map[string]domain.TrustSignals, len(payload))
	for source, sig := range payload {
		out[strings.ToLower(strings.TrimSpace(source))] = sig
	}
	return out, nil
}
