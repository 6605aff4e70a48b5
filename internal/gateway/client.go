// Package gateway is the REST client for the signal backend: the service of
// record for signal status and execution history.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/blueenergy/quantTrader/internal/position"
	"github.com/blueenergy/quantTrader/internal/signal"
)

const defaultTimeout = 10 * time.Second

// Client talks to the trader endpoints of the backend API. All calls are
// bounded by the client timeout and the caller's context.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures Client construction.
type Option func(*Client)

// WithTimeout overrides the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient swaps the underlying transport, mainly for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient builds a gateway client for the given base URL and bearer token.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusUpdate carries one signal status transition to the gateway. Optional
// fields are omitted from the payload when unset.
type StatusUpdate struct {
	Status        signal.Status    `json:"status"`
	BrokerOrderID string           `json:"broker_order_id,omitempty"`
	RetryCount    int              `json:"retry_count,omitempty"`
	LastError     string           `json:"last_error,omitempty"`
	SubmittedAt   float64          `json:"submitted_at,omitempty"`
	ExecutedAt    float64          `json:"executed_at,omitempty"`
	FilledQty     int64            `json:"filled_qty,omitempty"`
	AvgPrice      *decimal.Decimal `json:"avg_price,omitempty"`
}

// ExecutionRecord is the execution report payload: the result plus enough
// signal context for the backend to file it without a lookup.
type ExecutionRecord struct {
	OrderID             string          `json:"order_id"`
	Symbol              string          `json:"symbol"`
	Side                string          `json:"action"`
	Size                int64           `json:"size"`
	TargetPrice         decimal.Decimal `json:"target_price"`
	FilledPrice         decimal.Decimal `json:"filled_price"`
	FilledSize          int64           `json:"filled_size"`
	Commission          decimal.Decimal `json:"commission"`
	Status              signal.Status   `json:"status"`
	BrokerOrderID       string          `json:"broker_order_id,omitempty"`
	Broker              string          `json:"broker,omitempty"`
	Mode                signal.Mode     `json:"mode"`
	Strategy            string          `json:"strategy,omitempty"`
	StrategyName        string          `json:"strategy_name,omitempty"`
	AccountID           string          `json:"account_id,omitempty"`
	SecuritiesAccountID string          `json:"securities_account_id,omitempty"`
	Error               string          `json:"error,omitempty"`
	Timestamp           float64         `json:"timestamp"`
}

type signalsEnvelope struct {
	Data []signal.Signal `json:"data"`
}

// FetchPending lists signals awaiting execution for the authenticated
// account, optionally including ones parked in retry_pending.
func (c *Client) FetchPending(ctx context.Context, limit int, includeRetryable bool) ([]signal.Signal, error) {
	url := fmt.Sprintf("%s/trader/signals?limit=%d&include_retryable=%s",
		c.baseURL, limit, strconv.FormatBool(includeRetryable))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch signals: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch signals: unexpected status %d", resp.StatusCode)
	}

	var envelope signalsEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode signals: %w", err)
	}
	return envelope.Data, nil
}

// UpdateStatus posts one status transition for the given signal.
func (c *Client) UpdateStatus(ctx context.Context, orderID string, upd StatusUpdate) error {
	url := fmt.Sprintf("%s/trader/signals/%s/status", c.baseURL, orderID)
	return c.post(ctx, url, upd)
}

// RecordExecution reports an execution outcome to the backend.
func (c *Client) RecordExecution(ctx context.Context, rec ExecutionRecord) error {
	return c.post(ctx, c.baseURL+"/trader/executions", rec)
}

// SyncPositions pushes the broker's current holdings.
func (c *Client) SyncPositions(ctx context.Context, positions []position.Position) error {
	payload := struct {
		Positions []position.Position `json:"positions"`
	}{Positions: positions}
	return c.post(ctx, c.baseURL+"/trader/positions/sync", payload)
}

// SyncAccount pushes the broker's account balances.
func (c *Client) SyncAccount(ctx context.Context, acct position.Account) error {
	return c.post(ctx, c.baseURL+"/trader/account/sync", acct)
}

// CleanupStale asks the backend to drop positions no longer held at the
// broker. The held list may be empty, which clears everything for the
// account.
func (c *Client) CleanupStale(ctx context.Context, held []string, accountID string) error {
	if held == nil {
		held = []string{}
	}
	payload := struct {
		Held      []string `json:"held_symbols"`
		AccountID string   `json:"account_id,omitempty"`
	}{Held: held, AccountID: accountID}
	return c.post(ctx, c.baseURL+"/trader/positions/cleanup", payload)
}

// Ping verifies connectivity and credentials with a minimal fetch.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.FetchPending(ctx, 1, false)
	return err
}

func (c *Client) post(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Keep a short error excerpt for the log; bodies here are small.
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("post %s: unexpected status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(excerpt)))
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
}
