// Package qr fetches QR code images for offer links.
package qr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the QR image service.
	DefaultBaseURL = "https://api.qrserver.com"

	createPath = "/v1/create-qr-code/"
	size       = "500x500"
	maxImage   = 2 << 20
	nameLen    = 15
)

var unsafeName = regexp.MustCompile(`(?i)[^a-z0-9]`)

// Client fetches QR code PNGs.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a client for the service at baseURL, or DefaultBaseURL
// when blank.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// ImageURL returns the address of a PNG encoding data.
func (c *Client) ImageURL(data string) string {
	params := url.Values{
		"size":   {size},
		"data":   {data},
		"ecc":    {"L"},
		"margin": {"2"},
		"format": {"png"},
	}
	return c.baseURL + createPath + "?" + params.Encode()
}

// Fetch downloads the PNG encoding data.
func (c *Client) Fetch(ctx context.Context, data string) (_ []byte, err error) {
	if data == "" {
		return nil, fmt.Errorf("QR data is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ImageURL(data), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			err = fmt.Errorf("%w (also failed to close body: %v)", err, closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	img, err := io.ReadAll(io.LimitReader(resp.Body, maxImage))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	return img, nil
}

// Filename returns the download name for the QR code of address.
func Filename(address string) string {
	name := unsafeName.ReplaceAllString(address, "_")
	if len(name) > nameLen {
		name = name[:nameLen]
	}
	return "QR_" + name + ".png"
}
