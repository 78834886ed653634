package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type ClientConfig struct {
	BaseURL       string `json:"baseUrl" mapstructure:"base_url"`
	KeyID         string `json:"keyId" mapstructure:"key_id"`
	KeySecret     string `json:"keySecret" mapstructure:"key_secret"`
	WebhookSecret string `json:"webhookSecret" mapstructure:"webhook_secret"`
}

type Client struct {
	// baseURL is the base url of the gateway API.
	baseURL string

	// keyID / keySecret authenticate API calls (basic auth).
	keyID     string
	keySecret string

	// webhookSecret signs webhook deliveries.
	webhookSecret string

	// hc is the http client.
	hc *http.Client
}

// newClient creates a new gateway API client.
func newClient(_ context.Context, c *ClientConfig) *Client {
	return &Client{
		baseURL:       c.BaseURL,
		keyID:         c.KeyID,
		keySecret:     c.KeySecret,
		webhookSecret: c.WebhookSecret,

		// set http client with timeout.
		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type orderPayload struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// createOrder registers an order with the gateway.
func (c *Client) createOrder(ctx context.Context, p *orderPayload) (*orderResponse, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/orders", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		var ae apiError
		if err := json.Unmarshal(raw, &ae); err == nil && ae.Error.Description != "" {
			return nil, fmt.Errorf("gateway order create: %s (%s)", ae.Error.Description, ae.Error.Code)
		}
		return nil, fmt.Errorf("gateway order create: unexpected status %d", resp.StatusCode)
	}

	var order orderResponse
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("gateway order create: bad response: %w", err)
	}

	return &order, nil
}
