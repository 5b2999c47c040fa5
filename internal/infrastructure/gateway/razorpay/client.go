// Package razorpay implements the payment.Gateway port against the
// Razorpay Orders API and webhook signature scheme.
package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	domain "github.com/minimart/storefront/internal/domain/payment"
	"github.com/minimart/storefront/internal/metrics"
)

const defaultBaseURL = "https://api.razorpay.com"

type Client struct {
	httpClient    *http.Client
	baseURL       string
	keyID         string
	keySecret     string
	webhookSecret string
	met           *metrics.Metrics
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.met = m }
}

func NewClient(keyID, keySecret, webhookSecret string, opts ...Option) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		baseURL:       defaultBaseURL,
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type createOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CreateIntent creates a remote gateway order scoped to the given amount
// in minor currency units. The receipt carries our internal order id.
func (c *Client) CreateIntent(ctx context.Context, amountMinor int64, currency, receipt string) (domain.IntentRef, error) {
	body, err := json.Marshal(createOrderRequest{
		Amount:   amountMinor,
		Currency: currency,
		Receipt:  receipt,
	})
	if err != nil {
		return domain.IntentRef{}, fmt.Errorf("razorpay: encode order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return domain.IntentRef{}, fmt.Errorf("razorpay: build request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.met.GatewayObserved("error", time.Since(start).Seconds())
		return domain.IntentRef{}, fmt.Errorf("razorpay: create order: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.met.GatewayObserved("rejected", time.Since(start).Seconds())
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.IntentRef{}, fmt.Errorf("razorpay: create order: status %d: %s", resp.StatusCode, detail)
	}

	var out createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.met.GatewayObserved("error", time.Since(start).Seconds())
		return domain.IntentRef{}, fmt.Errorf("razorpay: decode order: %w", err)
	}
	c.met.GatewayObserved("success", time.Since(start).Seconds())

	return domain.IntentRef{
		ID:          out.ID,
		AmountMinor: out.Amount,
		Currency:    out.Currency,
	}, nil
}

// VerifySignature recomputes the hex HMAC-SHA256 of the exact raw webhook
// bytes under the shared webhook secret. hmac.Equal keeps the comparison
// constant-time.
func (c *Client) VerifySignature(rawBody []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ClientKey is the publishable key id the client passes to the gateway
// checkout UI.
func (c *Client) ClientKey() string { return c.keyID }
