// Package feed fetches the transit-agency service alert feed.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/alertbot/internal/alert"
)

const httpTimeout = 30 * time.Second

// Client fetches alert entities from the configured feed endpoint.
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// New creates a feed client for the given endpoint. The API key is sent
// on every request in the x-api-key header.
func New(url, apiKey string) *Client {
	return &Client{
		url:    url,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: httpTimeout,
		},
	}
}

// payload matches the upstream JSON envelope. Only the entity list is
// read; everything else the feed sends is ignored.
type payload struct {
	Entity *[]alert.Entity `json:"entity"`
}

// Fetch retrieves the current feed contents. A non-2xx status or a
// payload without an entity list is an error; callers treat either as a
// recoverable cycle abort, not a crash.
func (c *Client) Fetch(ctx context.Context) ([]alert.Entity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: url is from trusted config, not user input
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("feed returned %d: %s", resp.StatusCode, string(body[:min(len(body), 512)]))
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("unmarshal feed: %w", err)
	}
	if p.Entity == nil {
		return nil, fmt.Errorf("feed payload has no entity list")
	}

	return *p.Entity, nil
}
