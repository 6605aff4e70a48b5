package broker

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/blueenergy/quantTrader/internal/config"
)

// Adapter names accepted in broker.name.
const (
	NameSimulated = "simulated"
)

// New selects and constructs the configured adapter. An unknown name is a
// startup error, not a fallback to the simulator.
func New(cfg config.Broker, log zerolog.Logger) (Adapter, error) {
	switch cfg.Name {
	case NameSimulated:
		opts := []SimulatedOption{}
		if cfg.StartingCash > 0 {
			opts = append(opts, WithStartingCash(cfg.StartingCash))
		}
		if cfg.DefaultMark > 0 {
			opts = append(opts, WithDefaultMark(cfg.DefaultMark))
		}
		if cfg.LatencyMs > 0 {
			opts = append(opts, WithLatency(time.Duration(cfg.LatencyMs)*time.Millisecond))
		}
		return NewSimulated(log, opts...), nil
	default:
		return nil, fmt.Errorf("unknown broker %q", cfg.Name)
	}
}
