package tapwait

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type OrderResult struct {
	OrderID string  `json:"orderId"`
	Amount  float64 `json:"amount"`
	Status  string  `json:"status"`
}

type InitResult struct {
	SessionID string `json:"sessionId"`
	OrderID   string `json:"orderId"`
	Status    string `json:"status"`
}

type SubmitResult struct {
	Status        string `json:"status"`
	OrderID       string `json:"orderId"`
	TransactionID string `json:"transactionId"`
}

// APIError is a non-2xx response from the checkout backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("checkout api: %s (status %d)", e.Message, e.StatusCode)
}

// Client talks to the checkout backend over its JSON HTTP contract.
type Client struct {
	base string
	http *http.Client
}

var _ Checkout = (*Client)(nil)

func NewClient(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) CreateOrder(ctx context.Context, amount float64) (OrderResult, error) {
	var out OrderResult
	err := c.postJSON(ctx, "/order/create", map[string]any{"amount": amount}, &out)
	return out, err
}

func (c *Client) TapInit(ctx context.Context, orderID string) (InitResult, error) {
	var out InitResult
	err := c.postJSON(ctx, "/payment/tap/init", map[string]any{"orderId": orderID}, &out)
	return out, err
}

func (c *Client) TapSubmit(ctx context.Context, sessionID, pan, expiry string) (SubmitResult, error) {
	var out SubmitResult
	err := c.postJSON(ctx, "/payment/tap/submit", map[string]any{
		"sessionId": sessionID,
		"pan":       pan,
		"expiry":    expiry,
	}, &out)
	return out, err
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		msg := apiErr.Error
		if msg == "" {
			msg = "request failed"
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
