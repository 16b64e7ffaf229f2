// Package creds fetches the portal login pair from the local credential
// provider endpoint. The worker treats any failure here as a failed session
// acquisition.
package creds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/parking-sniper/internal/portal"
)

type Client struct {
	url string
	hc  *http.Client
}

func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{url: url, hc: &http.Client{Timeout: timeout}}
}

func (c *Client) Fetch(ctx context.Context) (portal.Credentials, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return portal.Credentials{}, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return portal.Credentials{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return portal.Credentials{}, fmt.Errorf("creds endpoint: status %d", resp.StatusCode)
	}
	var out portal.Credentials
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return portal.Credentials{}, fmt.Errorf("creds endpoint: decode: %w", err)
	}
	if out.Email == "" || out.Password == "" {
		return portal.Credentials{}, fmt.Errorf("creds endpoint: empty credentials")
	}
	return out, nil
}
