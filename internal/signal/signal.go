// Package signal standardizes the trade-intent payloads shared between the
// gateway, the broker adapters, and the polling loop.
package signal

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Status is the gateway-visible lifecycle state of a signal.
type Status string

const (
	StatusPending       Status = "pending"
	StatusSubmitted     Status = "submitted"
	StatusFilled        Status = "filled"
	StatusPartialFilled Status = "partial_filled"
	StatusFailed        Status = "failed"
	StatusRetryPending  Status = "retry_pending"
	StatusRejected      Status = "rejected"
	StatusCancelled     Status = "cancelled"
)

// Side is the order direction.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// ParseSide normalizes a wire-format action string.
func ParseSide(s string) (Side, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return Buy, true
	case "SELL":
		return Sell, true
	}
	return "", false
}

// Mode separates live trading from paper runs; a loop only picks up signals
// whose mode matches its own.
type Mode string

const (
	ModeLive  Mode = "live"
	ModePaper Mode = "paper"
)

// Signal is a unit of trading intent pulled from the gateway. The loop never
// mutates one locally; all state changes go back through status updates.
type Signal struct {
	OrderID             string          `json:"order_id"`
	Symbol              string          `json:"symbol"`
	Side                string          `json:"action"`
	Size                int64           `json:"size"`
	Price               decimal.Decimal `json:"price"` // zero means market
	Strategy            string          `json:"strategy,omitempty"`
	StrategyName        string          `json:"strategy_name,omitempty"`
	Status              Status          `json:"status"`
	Executable          bool            `json:"is_executable"`
	Mode                Mode            `json:"mode"`
	Broker              string          `json:"broker,omitempty"`
	AccountID           string          `json:"account_id,omitempty"`
	SecuritiesAccountID string          `json:"securities_account_id,omitempty"`
	RetryCount          int             `json:"retry_count,omitempty"`
	LastError           string          `json:"last_error,omitempty"`
	CreatedAt           float64         `json:"created_at,omitempty"`
	UpdatedAt           float64         `json:"updated_at,omitempty"`
}

// ValidationError marks a signal that can never execute as-is; it is
// non-retryable and must not reach a broker.
type ValidationError struct {
	OrderID string
	Field   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("signal %s: missing or invalid field %q", e.OrderID, e.Field)
}

// Validate checks the fields an order placement cannot do without.
func (s Signal) Validate() error {
	if s.OrderID == "" {
		return &ValidationError{OrderID: s.OrderID, Field: "order_id"}
	}
	if s.Symbol == "" {
		return &ValidationError{OrderID: s.OrderID, Field: "symbol"}
	}
	if _, ok := ParseSide(s.Side); !ok {
		return &ValidationError{OrderID: s.OrderID, Field: "action"}
	}
	if s.Size <= 0 {
		return &ValidationError{OrderID: s.OrderID, Field: "size"}
	}
	return nil
}

// Eligible reports whether this loop instance should process the signal at
// all: pending or retry_pending, flagged executable, and in our mode.
func (s Signal) Eligible(mode Mode) bool {
	if s.Status != StatusPending && s.Status != StatusRetryPending {
		return false
	}
	if !s.Executable {
		return false
	}
	return s.Mode == mode
}

// ExecutionResult is the transient outcome of one placement attempt; it is
// reported to the gateway and discarded.
type ExecutionResult struct {
	OrderID       string          `json:"order_id"`
	BrokerOrderID string          `json:"broker_order_id,omitempty"`
	Status        Status          `json:"status"`
	FilledSize    int64           `json:"filled_size"`
	FilledPrice   decimal.Decimal `json:"filled_price"`
	Commission    decimal.Decimal `json:"commission"`
	Error         string          `json:"error,omitempty"`
	ExecutedAt    float64         `json:"executed_at"`
}
