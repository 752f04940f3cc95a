package trello

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// apiBaseURL can be overridden in tests to point at a httptest server.
var apiBaseURL string

const defaultAPIBaseURL = "https://api.trello.com/1"

// requestTimeout bounds every call to the Trello API. It is not configurable.
const requestTimeout = 15 * time.Second

// Client issues authenticated read requests against the Trello REST API.
// Every request carries the API key and token as query parameters.
type Client struct {
	key   string
	token string
	http  *http.Client
}

// NewClient returns a Client authenticating with the given API key and token.
func NewClient(key, token string) *Client {
	return &Client{
		key:   key,
		token: token,
		http:  &http.Client{Timeout: requestTimeout},
	}
}

func baseURL() string {
	if apiBaseURL != "" {
		return strings.TrimSuffix(apiBaseURL, "/")
	}
	return defaultAPIBaseURL
}

// GetJSON performs a GET of path (relative to the API root) with params merged
// with the auth credentials and decodes the JSON response into out.
// Auth params always take precedence over caller-supplied "key" and "token".
// A non-200 status yields a *RemoteRequestError.
func (c *Client) GetJSON(ctx context.Context, path string, params url.Values, out any) error {
	query := url.Values{}
	for k, vs := range params {
		if k == "key" || k == "token" {
			slog.Warn("Ignoring caller-supplied auth parameter", "param", k, "path", path)
			continue
		}
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	query.Set("key", c.key)
	query.Set("token", c.token)

	endpoint := baseURL() + "/" + strings.TrimPrefix(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create trello request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	slog.Debug("Trello request", "path", path)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch from trello: %w", err)
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read trello response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &RemoteRequestError{
			StatusCode: resp.StatusCode,
			Path:       path,
			Body:       string(body),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse trello response for %s: %w", path, err)
	}
	return nil
}
