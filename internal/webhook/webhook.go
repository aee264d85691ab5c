// Package webhook delivers submitted offers to the configured endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/evcraddock/offer-form/internal/metrics"
)

// DefaultTimeout bounds a single delivery.
const DefaultTimeout = 30 * time.Second

// ErrRejected is returned when the endpoint answers with a non-2xx status.
var ErrRejected = errors.New("webhook rejected the offer")

// Client posts JSON to a single URL.
type Client struct {
	httpClient *http.Client
	url        string
}

// NewClient creates a client for url.
func NewClient(url string, timeout time.Duration) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
	}, nil
}

// Deliver posts payload as JSON. Any 2xx response is a success.
func (c *Client) Deliver(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.WebhookDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			zap.L().Warn("closing webhook response body", zap.Error(err))
		}
	}()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
	return nil
}
