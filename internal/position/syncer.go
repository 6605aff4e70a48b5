package position

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/blueenergy/quantTrader/internal/broker"
	"github.com/blueenergy/quantTrader/internal/metrics"
)

// Reporter is the optional capability a broker adapter can expose for
// position sync. Adapters without it are simply not synced.
type Reporter interface {
	Positions() []broker.Position
}

// AccountReporter is the further optional capability for account balance
// sync; adapters exposing positions but not balances skip the account pass.
type AccountReporter interface {
	Account() broker.AccountSnapshot
}

// Gateway is the slice of the backend API the syncer consumes.
type Gateway interface {
	SyncPositions(ctx context.Context, positions []Position) error
	CleanupStale(ctx context.Context, held []string, accountID string) error
	SyncAccount(ctx context.Context, acct Account) error
}

// Syncer periodically mirrors broker holdings into the gateway and clears
// positions the broker no longer holds.
type Syncer struct {
	gw        Gateway
	reporter  Reporter
	acct      AccountReporter
	interval  time.Duration
	accountID string
	brokerID  string
	log       zerolog.Logger
}

// NewSyncer wires a syncer; interval must be positive (callers disable sync
// by not constructing one). The account pass is enabled when the reporter
// also exposes balances.
func NewSyncer(gw Gateway, reporter Reporter, interval time.Duration, accountID, brokerID string, log zerolog.Logger) *Syncer {
	s := &Syncer{
		gw:        gw,
		reporter:  reporter,
		interval:  interval,
		accountID: accountID,
		brokerID:  brokerID,
		log:       log.With().Str("component", "position-sync").Logger(),
	}
	if acct, ok := reporter.(AccountReporter); ok {
		s.acct = acct
	}
	return s
}

// Run syncs on the configured cadence until ctx is cancelled. Sync errors
// are logged and retried next pass, never fatal.
func (s *Syncer) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.SyncOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.SyncOnce(ctx)
		}
	}
}

// SyncOnce pushes the current holdings and always runs stale cleanup, even
// with a flat book, so closed positions disappear from the backend.
func (s *Syncer) SyncOnce(ctx context.Context) {
	holdings := s.reporter.Positions()
	now := float64(time.Now().UnixMilli()) / 1000.0

	held := make([]string, 0, len(holdings))
	positions := make([]Position, 0, len(holdings))
	for _, h := range holdings {
		held = append(held, h.Symbol)
		positions = append(positions, Position{
			Symbol:    h.Symbol,
			Qty:       h.Qty,
			AvgPrice:  h.AvgCost,
			AccountID: s.accountID,
			Broker:    s.brokerID,
			UpdatedAt: now,
		})
	}

	if len(positions) > 0 {
		if err := s.gw.SyncPositions(ctx, positions); err != nil {
			s.log.Error().Err(err).Msg("position sync failed")
			return
		}
	}
	if err := s.gw.CleanupStale(ctx, held, s.accountID); err != nil {
		s.log.Error().Err(err).Msg("stale position cleanup failed")
		return
	}

	if s.acct != nil {
		snap := s.acct.Account()
		acct := Account{
			Cash:        snap.Cash,
			MarketValue: snap.MarketValue,
			TotalAsset:  snap.Cash.Add(snap.MarketValue),
			RealizedPnL: snap.RealizedPnL,
			AccountID:   s.accountID,
			Broker:      s.brokerID,
			UpdatedAt:   now,
		}
		if err := s.gw.SyncAccount(ctx, acct); err != nil {
			s.log.Error().Err(err).Msg("account sync failed")
			return
		}
	}

	metrics.PositionSyncsTotal.Inc()
	s.log.Debug().Int("positions", len(positions)).Msg("positions synced")
}
