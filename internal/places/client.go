// Package places suggests and resolves street addresses with the Google
// Places API.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultAutocompleteURL = "https://maps.googleapis.com/maps/api/place/autocomplete/json"
	defaultDetailsURL      = "https://maps.googleapis.com/maps/api/place/details/json"

	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

// Suggestion is one autocomplete prediction.
type Suggestion struct {
	PlaceID     string `json:"placeId"`
	Description string `json:"description"`
}

// Client talks to the Places API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	country    string

	// Overridable URLs for testing.
	autocompleteURL string
	detailsURL      string
}

// NewClient creates a Places client restricted to country (ISO 3166-1
// alpha-2, may be empty).
func NewClient(apiKey, country string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("places API key is required")
	}
	return &Client{
		httpClient:      &http.Client{Timeout: 10 * time.Second},
		apiKey:          apiKey,
		country:         country,
		autocompleteURL: defaultAutocompleteURL,
		detailsURL:      defaultDetailsURL,
	}, nil
}

type autocompleteResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Predictions  []struct {
		PlaceID     string `json:"place_id"`
		Description string `json:"description"`
	} `json:"predictions"`
}

// Suggest returns address predictions for input.
func (c *Client) Suggest(ctx context.Context, input string) ([]Suggestion, error) {
	if input == "" {
		return []Suggestion{}, nil
	}

	params := url.Values{
		"input": {input},
		"types": {"address"},
		"key":   {c.apiKey},
	}
	if c.country != "" {
		params.Set("components", "country:"+c.country)
	}

	var result autocompleteResponse
	if err := c.get(ctx, c.autocompleteURL, params, &result); err != nil {
		return nil, fmt.Errorf("autocomplete: %w", err)
	}
	if result.Status != statusOK && result.Status != statusZeroResults {
		return nil, fmt.Errorf("autocomplete: status %s: %s", result.Status, result.ErrorMessage)
	}

	out := make([]Suggestion, 0, len(result.Predictions))
	for _, p := range result.Predictions {
		out = append(out, Suggestion{PlaceID: p.PlaceID, Description: p.Description})
	}
	return out, nil
}

type detailsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Result       struct {
		FormattedAddress string `json:"formatted_address"`
	} `json:"result"`
}

// Resolve returns the formatted address of a place.
func (c *Client) Resolve(ctx context.Context, placeID string) (string, error) {
	if placeID == "" {
		return "", fmt.Errorf("place ID is required")
	}

	params := url.Values{
		"place_id": {placeID},
		"fields":   {"formatted_address"},
		"key":      {c.apiKey},
	}

	var result detailsResponse
	if err := c.get(ctx, c.detailsURL, params, &result); err != nil {
		return "", fmt.Errorf("place details: %w", err)
	}
	if result.Status != statusOK {
		return "", fmt.Errorf("place details: status %s: %s", result.Status, result.ErrorMessage)
	}
	if result.Result.FormattedAddress == "" {
		return "", fmt.Errorf("no address for place %s", placeID)
	}
	return result.Result.FormattedAddress, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			err = fmt.Errorf("%w (also failed to close body: %v)", err, closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
