// Package client provides an HTTP client for the offer form REST API.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/evcraddock/offer-form/internal/admin"
	"github.com/evcraddock/offer-form/internal/formsvc"
	"github.com/evcraddock/offer-form/internal/offer"
	"github.com/evcraddock/offer-form/internal/roster"
	"github.com/evcraddock/offer-form/internal/settings"
	"github.com/evcraddock/offer-form/internal/shortlink"
	"github.com/evcraddock/offer-form/internal/submit"
)

// StatusError is returned for responses with a 4xx or 5xx status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusUnauthorized
}

// Client is an HTTP client for the offer form API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// KeyResponse is the response from POST /auth/cli.
type KeyResponse struct {
	Key    string `json:"key"`
	APIKey struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"api_key"`
}

// Login exchanges the admin passphrase for a new API key.
func (c *Client) Login(passphrase, name string) (*KeyResponse, error) {
	body := map[string]string{"passphrase": passphrase, "name": name}
	var resp KeyResponse
	if err := c.post("/auth/cli", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// IsAdmin reports whether the configured key is accepted as admin.
func (c *Client) IsAdmin() (bool, error) {
	var resp struct {
		Admin bool `json:"admin"`
	}
	if err := c.get("/auth/status", &resp); err != nil {
		return false, err
	}
	return resp.Admin, nil
}

// DeleteKey revokes an API key.
func (c *Client) DeleteKey(id int64) error {
	return c.doDelete(fmt.Sprintf("/api/keys/%d", id))
}

// ListAgents returns the agent roster.
func (c *Client) ListAgents() ([]roster.Agent, error) {
	var agents []roster.Agent
	if err := c.get("/api/agents", &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

// AddAgent adds an agent to the roster.
func (c *Client) AddAgent(a roster.Agent) (*roster.Agent, error) {
	var out roster.Agent
	if err := c.post("/api/admin/agents", a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAgent removes an agent.
func (c *Client) DeleteAgent(id int64) error {
	return c.doDelete(fmt.Sprintf("/api/admin/agents/%d", id))
}

// SeedAgents adds the default roster and returns how many were new.
func (c *Client) SeedAgents() (int, error) {
	var resp struct {
		Added int `json:"added"`
	}
	if err := c.post("/api/admin/agents/seed", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Added, nil
}

// GetSettings returns the admin settings document.
func (c *Client) GetSettings() (*settings.Settings, error) {
	var s settings.Settings
	if err := c.get("/api/settings", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveSettings applies a partial settings update.
func (c *Client) SaveSettings(p settings.Patch) (*settings.Settings, error) {
	var s settings.Settings
	if err := c.send("PUT", "/api/admin/settings", p, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateLink creates a short link for an agent and address.
func (c *Client) CreateLink(agent, address string) (*admin.Link, error) {
	body := map[string]string{"agent": agent, "address": address}
	var link admin.Link
	if err := c.post("/api/admin/shortlinks", body, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

// ListLinks returns the most recent short links.
func (c *Client) ListLinks(limit int) ([]shortlink.Link, error) {
	path := "/api/admin/shortlinks"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var links []shortlink.Link
	if err := c.get(path, &links); err != nil {
		return nil, err
	}
	return links, nil
}

// QRCode downloads the QR image encoding data.
func (c *Client) QRCode(data, address string) ([]byte, error) {
	q := url.Values{"data": {data}, "address": {address}}
	return c.raw("/api/admin/qr?" + q.Encode())
}

// SubmitResponse is the response from POST /api/forms/{id}/submit.
type SubmitResponse struct {
	Result submit.Result `json:"result"`
	Form   formsvc.View  `json:"form"`
}

// StartForm opens a blank form session.
func (c *Client) StartForm() (*formsvc.View, error) {
	var v formsvc.View
	if err := c.post("/api/forms", nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// ReplaceRecord overwrites a session's record.
func (c *Client) ReplaceRecord(id string, r offer.Record) (*formsvc.View, error) {
	var v formsvc.View
	if err := c.send("PUT", "/api/forms/"+url.PathEscape(id)+"/record", r, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Submit submits a session. Blocked and failed submissions are reported
// through the result rather than as an error.
func (c *Client) Submit(id string) (*SubmitResponse, error) {
	req, err := c.newRequest("POST", "/api/forms/"+url.PathEscape(id)+"/submit", nil)
	if err != nil {
		return nil, err
	}
	var resp SubmitResponse
	if err := c.do(req, &resp, http.StatusUnprocessableEntity, http.StatusBadGateway); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CloseForm ends a session.
func (c *Client) CloseForm(id string) error {
	return c.doDelete("/api/forms/" + url.PathEscape(id))
}

// get performs a GET request and decodes the response.
func (c *Client) get(path string, result interface{}) error {
	req, err := c.newRequest("GET", path, nil)
	if err != nil {
		return err
	}
	return c.do(req, result)
}

// post performs a POST request with a JSON body and decodes the response.
func (c *Client) post(path string, body interface{}, result interface{}) error {
	return c.send("POST", path, body, result)
}

func (c *Client) send(method, path string, body interface{}, result interface{}) error {
	req, err := c.newRequest(method, path, body)
	if err != nil {
		return err
	}
	return c.do(req, result)
}

// doDelete performs a DELETE request.
func (c *Client) doDelete(path string) error {
	req, err := c.newRequest("DELETE", path, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// raw performs a GET request and returns the body undecoded.
func (c *Client) raw(path string) ([]byte, error) {
	req, err := c.newRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}
	var out []byte
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) newRequest(method, path string, body interface{}) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do executes an HTTP request with auth header and handles errors.
// Statuses listed in accept are decoded like a success. A *[]byte result
// receives the raw body.
func (c *Client) do(req *http.Request, result interface{}, accept ...int) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			fmt.Printf("warning: closing response body: %v\n", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 && !accepted(resp.StatusCode, accept) {
		var errResp struct {
			Error string `json:"error"`
		}
		msg := "server error: " + http.StatusText(resp.StatusCode)
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			msg = errResp.Error
		}
		return &StatusError{Code: resp.StatusCode, Message: msg}
	}

	if raw, ok := result.(*[]byte); ok {
		*raw = respBody
		return nil
	}
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

func accepted(code int, accept []int) bool {
	for _, a := range accept {
		if a == code {
			return true
		}
	}
	return false
}
