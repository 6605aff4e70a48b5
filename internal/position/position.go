// Package position mirrors broker-side holdings into the gateway so the
// backend's portfolio view tracks what the venue actually holds.
package position

import (
	"github.com/shopspring/decimal"
)

// Position is the wire format pushed to the gateway's position sync endpoint.
type Position struct {
	Symbol    string          `json:"symbol"`
	Qty       int64           `json:"qty"`
	AvgPrice  decimal.Decimal `json:"avg_price"`
	AccountID string          `json:"account_id,omitempty"`
	Broker    string          `json:"broker,omitempty"`
	UpdatedAt float64         `json:"updated_at"`
}

// Account is the wire format pushed to the gateway's account sync endpoint.
type Account struct {
	Cash        decimal.Decimal `json:"cash"`
	MarketValue decimal.Decimal `json:"market_value"`
	TotalAsset  decimal.Decimal `json:"total_asset"`
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
	AccountID   string          `json:"account_id,omitempty"`
	Broker      string          `json:"broker,omitempty"`
	UpdatedAt   float64         `json:"updated_at"`
}
