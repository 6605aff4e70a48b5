// Package broker defines the execution-venue capability the trading loop
// consumes and the adapters that satisfy it.
package broker

import (
	"context"

	"github.com/blueenergy/quantTrader/internal/signal"
)

// Adapter is the contract every venue integration must satisfy. PlaceOrder
// returns the venue-assigned order id or a classified error; Close releases
// venue resources, is safe to call more than once, and never panics.
type Adapter interface {
	PlaceOrder(ctx context.Context, sig signal.Signal) (string, error)
	Close() error
}
