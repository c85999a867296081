package bux

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bahaypares/ordering-backend/pkg/config"
	"github.com/bahaypares/ordering-backend/pkg/logger"
)

// CheckoutRequest is the payload for opening a hosted checkout session.
type CheckoutRequest struct {
	ReqID           string          `json:"req_id"`
	ClientID        string          `json:"client_id"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	Expiry          int             `json:"expiry"`
	Email           string          `json:"email"`
	Contact         string          `json:"contact"`
	Name            string          `json:"name"`
	NotificationURL string          `json:"notification_url"`
	RedirectURL     string          `json:"redirect_url"`
	EnabledChannels []string        `json:"enabled_channels"`
}

// CheckoutResponse carries the redirect URL for the customer. The gateway has
// returned the field under both names, so both are decoded.
type CheckoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
	URL         string `json:"url"`
}

// RedirectURL returns whichever URL field the gateway populated.
func (r CheckoutResponse) RedirectURL() string {
	if r.CheckoutURL != "" {
		return r.CheckoutURL
	}
	return r.URL
}

// Callback is the signed asynchronous payment notification body.
type Callback struct {
	ReqID     string `json:"req_id"`
	ClientID  string `json:"client_id"`
	Status    string `json:"status"`
	Signature string `json:"signature"`
}

// StatusPaid is the callback status confirming settlement.
const StatusPaid = "paid"

// Client talks to the Bux payment gateway.
type Client struct {
	cfg        config.BuxConfig
	httpClient *http.Client
	logg       *logger.Logger
}

// NewClient validates the gateway configuration and returns a client.
func NewClient(cfg config.BuxConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("bux api key required")
	}
	if strings.TrimSpace(cfg.APISecret) == "" {
		return nil, fmt.Errorf("bux api secret required")
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, fmt.Errorf("bux client id required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logg:       logg,
	}, nil
}

// ClientID returns the merchant client id presented to the gateway.
func (c *Client) ClientID() string {
	return c.cfg.ClientID
}

// NotificationURL returns the configured callback endpoint.
func (c *Client) NotificationURL() string {
	return c.cfg.NotificationURL
}

// RedirectURL returns the configured post-payment redirect.
func (c *Client) RedirectURL() string {
	return c.cfg.RedirectURL
}

// EnabledChannels returns the configured payment channels.
func (c *Client) EnabledChannels() []string {
	return c.cfg.EnabledChannels
}

// CheckoutExpirySeconds returns the session expiry in whole seconds.
func (c *Client) CheckoutExpirySeconds() int {
	return int(c.cfg.CheckoutExpiry / time.Second)
}

// VerifyCallback checks the callback signature against the shared secret.
func (c *Client) VerifyCallback(cb Callback) bool {
	return VerifySignature(cb.ReqID, cb.Status, c.cfg.APISecret, cb.Signature)
}

// OpenCheckout creates a hosted checkout session and returns the customer
// redirect URL.
func (c *Client) OpenCheckout(ctx context.Context, req CheckoutRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding checkout request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/open/checkout"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building checkout request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calling payment gateway: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if c.logg != nil {
			c.logg.Warn(ctx, fmt.Sprintf("gateway checkout rejected with status %d", resp.StatusCode))
		}
		return "", fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}

	var decoded CheckoutResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", fmt.Errorf("decoding gateway response: %w", err)
	}

	redirect := decoded.RedirectURL()
	if redirect == "" {
		return "", fmt.Errorf("gateway response missing checkout url")
	}
	return redirect, nil
}
