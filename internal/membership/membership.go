// Package membership resolves whether a government id belongs to an active
// member of the organization. The lookup is consumed once, at registration,
// and decides the user's pricing tier for good.
package membership

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ParityLookup is the deterministic stand-in for the real registry: a
// government id ending in an even digit is an active member. Swappable for
// the HTTP client without touching the booking engine.
type ParityLookup struct{}

func (ParityLookup) Active(_ context.Context, govID string) (bool, error) {
	if govID == "" {
		return false, nil
	}
	last := govID[len(govID)-1]
	return last >= '0' && last <= '9' && (last-'0')%2 == 0, nil
}

// Client queries a membership registry over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Active(ctx context.Context, govID string) (bool, error) {
	endpoint := fmt.Sprintf("%s/members/%s", c.baseURL, url.PathEscape(govID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}

	res, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("membership lookup: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if res.StatusCode != http.StatusOK {
		return false, fmt.Errorf("membership lookup: unexpected status %d", res.StatusCode)
	}

	var body struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("membership lookup: decode response: %w", err)
	}
	return body.Active, nil
}
