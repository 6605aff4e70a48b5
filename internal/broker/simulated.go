package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/blueenergy/quantTrader/internal/signal"
)

// Position is a simulated holding, exposed for position sync.
type Position struct {
	Symbol  string
	Qty     int64
	AvgCost decimal.Decimal
}

// AccountSnapshot is a point-in-time view of the simulated balances.
// Holdings are valued at cost; the simulator has no market data to mark
// against.
type AccountSnapshot struct {
	Cash        decimal.Decimal
	MarketValue decimal.Decimal
	RealizedPnL decimal.Decimal
}

// Simulated is an adapter that never touches a real venue: it fills every
// accepted order at the signal's price and hands back SIM- ids. When
// constructed with starting cash it also tracks virtual balances, rejecting
// orders the account cannot afford the way a real venue would.
type Simulated struct {
	log         zerolog.Logger
	latency     time.Duration
	defaultMark decimal.Decimal
	trackFunds  bool

	mu        sync.Mutex
	cash      decimal.Decimal
	realized  decimal.Decimal
	positions map[string]Position
	closed    bool
}

// SimulatedOption configures the simulated adapter.
type SimulatedOption func(*Simulated)

// WithLatency adds artificial per-order latency.
func WithLatency(d time.Duration) SimulatedOption {
	return func(s *Simulated) {
		if d > 0 {
			s.latency = d
		}
	}
}

// WithStartingCash enables virtual balance tracking.
func WithStartingCash(cash float64) SimulatedOption {
	return func(s *Simulated) {
		if cash > 0 {
			s.trackFunds = true
			s.cash = decimal.NewFromFloat(cash)
		}
	}
}

// WithDefaultMark sets the fill price used for market orders (signals with a
// zero price).
func WithDefaultMark(mark float64) SimulatedOption {
	return func(s *Simulated) {
		if mark > 0 {
			s.defaultMark = decimal.NewFromFloat(mark)
		}
	}
}

// NewSimulated builds the no-op venue adapter.
func NewSimulated(log zerolog.Logger, opts ...SimulatedOption) *Simulated {
	s := &Simulated{
		log:         log.With().Str("broker", "simulated").Logger(),
		defaultMark: decimal.NewFromInt(100),
		positions:   make(map[string]Position),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FillPrice returns the price an order for sig would fill at.
func (s *Simulated) FillPrice(sig signal.Signal) decimal.Decimal {
	if sig.Price.IsPositive() {
		return sig.Price
	}
	return s.defaultMark
}

// PlaceOrder fills immediately at the signal's price. Rejections for
// unaffordable orders are permanent; a closed adapter rejects everything.
func (s *Simulated) PlaceOrder(ctx context.Context, sig signal.Signal) (string, error) {
	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-ctx.Done():
			return "", Transient("simulated place_order", ctx.Err())
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", Permanent("simulated place_order", errors.New("adapter closed"))
	}

	price := s.FillPrice(sig)
	if s.trackFunds {
		if err := s.applyFill(sig, price); err != nil {
			return "", Permanent("simulated place_order", err)
		}
	}

	brokerOrderID := fmt.Sprintf("SIM-%d", time.Now().UnixNano())
	s.log.Info().
		Str("order_id", sig.OrderID).
		Str("symbol", sig.Symbol).
		Str("side", sig.Side).
		Int64("size", sig.Size).
		Str("price", price.String()).
		Str("broker_order_id", brokerOrderID).
		Msg("simulated order filled")
	return brokerOrderID, nil
}

// applyFill mutates virtual balances; caller holds the lock.
func (s *Simulated) applyFill(sig signal.Signal, price decimal.Decimal) error {
	side, _ := signal.ParseSide(sig.Side)
	qty := decimal.NewFromInt(sig.Size)
	notional := price.Mul(qty)
	pos := s.positions[sig.Symbol]

	switch side {
	case signal.Buy:
		if notional.GreaterThan(s.cash) {
			return fmt.Errorf("insufficient cash: need %s, have %s", notional, s.cash)
		}
		newQty := pos.Qty + sig.Size
		cost := pos.AvgCost.Mul(decimal.NewFromInt(pos.Qty)).Add(notional)
		s.cash = s.cash.Sub(notional)
		s.positions[sig.Symbol] = Position{
			Symbol:  sig.Symbol,
			Qty:     newQty,
			AvgCost: cost.Div(decimal.NewFromInt(newQty)),
		}
	case signal.Sell:
		if pos.Qty < sig.Size {
			return fmt.Errorf("insufficient position: hold %d, selling %d", pos.Qty, sig.Size)
		}
		s.realized = s.realized.Add(price.Sub(pos.AvgCost).Mul(qty))
		s.cash = s.cash.Add(notional)
		pos.Qty -= sig.Size
		if pos.Qty == 0 {
			delete(s.positions, sig.Symbol)
		} else {
			s.positions[sig.Symbol] = pos
		}
	default:
		return fmt.Errorf("unknown side %q", sig.Side)
	}
	return nil
}

// Positions snapshots current holdings for position sync.
func (s *Simulated) Positions() []Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Position, 0, len(s.positions))
	for _, pos := range s.positions {
		out = append(out, pos)
	}
	return out
}

// Account snapshots the virtual balances for account sync.
func (s *Simulated) Account() AccountSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	marketValue := decimal.Zero
	for _, pos := range s.positions {
		marketValue = marketValue.Add(pos.AvgCost.Mul(decimal.NewFromInt(pos.Qty)))
	}
	return AccountSnapshot{Cash: s.cash, MarketValue: marketValue, RealizedPnL: s.realized}
}

// Close is idempotent; subsequent placements are rejected.
func (s *Simulated) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.log.Info().Msg("simulated broker closed")
	}
	return nil
}
