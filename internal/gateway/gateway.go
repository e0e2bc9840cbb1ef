// Package gateway binds the payment processor to an external charge
// provider over HTTP. The call is latency-bearing; the client applies a
// hard timeout and the processor maps declines and transport failures to
// its own error taxonomy.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout is the production bound on a gateway round trip.
const DefaultTimeout = 30 * time.Second

type ChargeResult struct {
	Approved  bool   `json:"approved"`
	Reference string `json:"reference"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Charge(ctx context.Context, amount int64, currency, reservationID string) (ChargeResult, error) {
	payload, err := json.Marshal(map[string]any{
		"amount":   amount,
		"currency": currency,
		"metadata": map[string]string{"reservation_id": reservationID},
	})
	if err != nil {
		return ChargeResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/charges", bytes.NewReader(payload))
	if err != nil {
		return ChargeResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.apiKey, "")

	res, err := c.http.Do(req)
	if err != nil {
		return ChargeResult{}, fmt.Errorf("charge gateway: %w", err)
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return ChargeResult{}, fmt.Errorf("charge gateway: %s (%d)", string(body), res.StatusCode)
	}

	var result ChargeResult
	if err := json.Unmarshal(body, &result); err != nil {
		return ChargeResult{}, fmt.Errorf("charge gateway: parse response: %w", err)
	}
	return result, nil
}
