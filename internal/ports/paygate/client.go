// Package paygate talks to the payment provider's HTTP JSON API.
package paygate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/ports"
)

var ErrRejected = errors.New("payment provider rejected request")

// Client implements ports.PaymentGateway and ports.StakeCollector.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

var (
	_ ports.PaymentGateway = (*Client)(nil)
	_ ports.StakeCollector = (*Client)(nil)
)

func NewClient(baseURL, token string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
	}
}

type payoutBody struct {
	Destination string `json:"destination"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Memo        string `json:"memo,omitempty"`
}

// RequestPayout posts to /payouts. The idempotency key travels as a header.
func (c *Client) RequestPayout(ctx context.Context, req ports.PayoutRequest) error {
	body := payoutBody{
		Destination: req.Destination,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Memo:        req.Memo,
	}
	return c.post(ctx, "/payouts", req.IdempotencyKey, body, nil)
}

type invoiceBody struct {
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Reference string `json:"reference"`
	Payer     string `json:"payer"`
	Memo      string `json:"memo,omitempty"`
}

type invoiceResponse struct {
	ID             string    `json:"id"`
	PaymentRequest string    `json:"payment_request"`
	Status         string    `json:"status"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// RequestStake creates an invoice for the stake at /invoices.
func (c *Client) RequestStake(ctx context.Context, req ports.StakeRequest) (ports.Invoice, error) {
	body := invoiceBody{
		Amount:    req.Amount,
		Currency:  req.Currency,
		Reference: req.Reference,
		Payer:     req.Identity,
		Memo:      "Battleship stake",
	}
	var resp invoiceResponse
	if err := c.post(ctx, "/invoices", req.Reference, body, &resp); err != nil {
		return ports.Invoice{}, err
	}
	return ports.Invoice{
		ID:             resp.ID,
		PaymentRequest: resp.PaymentRequest,
		Settled:        resp.Status == "paid",
		ExpiresAt:      resp.ExpiresAt,
	}, nil
}

func (c *Client) post(ctx context.Context, path, idempotencyKey string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s returned %s: %s", ErrRejected, path, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
