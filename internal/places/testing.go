package places

// SetTestURLs overrides the API URLs on a client for testing.
// This should only be used in tests.
func SetTestURLs(c *Client, autocompleteURL, detailsURL string) {
	if autocompleteURL != "" {
		c.autocompleteURL = autocompleteURL
	}
	if detailsURL != "" {
		c.detailsURL = detailsURL
	}
}
