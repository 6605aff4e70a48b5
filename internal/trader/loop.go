// Package trader owns the poll/execute/report loop that bridges the signal
// gateway and a broker adapter.
package trader

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/blueenergy/quantTrader/internal/broker"
	"github.com/blueenergy/quantTrader/internal/config"
	"github.com/blueenergy/quantTrader/internal/gateway"
	"github.com/blueenergy/quantTrader/internal/metrics"
	"github.com/blueenergy/quantTrader/internal/signal"
)

// Gateway is the slice of the backend API the loop consumes.
type Gateway interface {
	FetchPending(ctx context.Context, limit int, includeRetryable bool) ([]signal.Signal, error)
	UpdateStatus(ctx context.Context, orderID string, upd gateway.StatusUpdate) error
	RecordExecution(ctx context.Context, rec gateway.ExecutionRecord) error
}

// Journal receives every execution result the loop produces.
type Journal interface {
	Record(signal.ExecutionResult) error
}

// Options tune the loop. Zero values fall back to the documented defaults;
// validation of operator input happens in config, not here.
type Options struct {
	PollInterval     time.Duration
	FetchLimit       int
	IncludeRetryable bool
	Mode             signal.Mode
	OrderTimeout     time.Duration
	ReportTimeout    time.Duration
	// DefaultFillPrice is used for market orders, where the signal carries no
	// target price to value the synchronous fill at.
	DefaultFillPrice decimal.Decimal
}

func (o *Options) applyDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.FetchLimit <= 0 {
		o.FetchLimit = 50
	}
	if o.Mode == "" {
		o.Mode = signal.ModeLive
	}
	if o.OrderTimeout <= 0 {
		o.OrderTimeout = 15 * time.Second
	}
	if o.ReportTimeout <= 0 {
		o.ReportTimeout = 10 * time.Second
	}
	if !o.DefaultFillPrice.IsPositive() {
		o.DefaultFillPrice = decimal.NewFromInt(100)
	}
}

// OptionsFromConfig maps operator configuration onto loop options. The
// broker's default mark doubles as the loop's market-order fill price so the
// reported execution matches what the adapter actually filled at.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		PollInterval:     cfg.PollInterval(),
		FetchLimit:       cfg.Trader.FetchLimit,
		IncludeRetryable: cfg.Trader.IncludeRetryable,
		Mode:             signal.Mode(cfg.Trader.Mode),
		OrderTimeout:     cfg.OrderTimeout(),
	}
	if cfg.Broker.DefaultMark > 0 {
		opts.DefaultFillPrice = decimal.NewFromFloat(cfg.Broker.DefaultMark)
	}
	return opts
}

// Loop is one trading-loop instance: a single sequential stream of poll
// cycles over one account's signal queue. It holds no durable state; the
// gateway is the source of truth a restarted instance resumes from.
type Loop struct {
	opts    Options
	gw      Gateway
	adapter broker.Adapter
	journal Journal
	log     zerolog.Logger
}

// New wires a loop from its collaborators. journal may be nil.
func New(opts Options, gw Gateway, adapter broker.Adapter, journal Journal, log zerolog.Logger) *Loop {
	opts.applyDefaults()
	return &Loop{
		opts:    opts,
		gw:      gw,
		adapter: adapter,
		journal: journal,
		log:     log.With().Str("component", "trader").Logger(),
	}
}

// Run polls until ctx is cancelled, then closes the adapter. Cancellation is
// honored between cycles and between signals; the signal in flight always
// finishes its full execute→report sequence first.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info().
		Dur("poll_interval", l.opts.PollInterval).
		Int("fetch_limit", l.opts.FetchLimit).
		Str("mode", string(l.opts.Mode)).
		Msg("trader loop started")

	defer func() {
		if err := l.adapter.Close(); err != nil {
			l.log.Error().Err(err).Msg("broker close failed")
		}
		l.log.Info().Msg("trader loop stopped")
	}()

	ticker := time.NewTicker(l.opts.PollInterval)
	defer ticker.Stop()

	l.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.runCycle(ctx)
		}
	}
}

// runCycle performs one fetch-and-process pass. A failed fetch ends the
// cycle; the next tick retries it, so an outage never tight-loops.
func (l *Loop) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	signals, err := l.gw.FetchPending(ctx, l.opts.FetchLimit, l.opts.IncludeRetryable)
	if err != nil {
		metrics.PollErrorsTotal.Inc()
		l.log.Error().Err(err).Msg("fetch pending signals failed")
		return
	}
	metrics.PollsTotal.Inc()

	if len(signals) == 0 {
		l.log.Debug().Msg("no pending signals")
		return
	}
	l.log.Info().Int("count", len(signals)).Msg("fetched pending signals")

	for _, sig := range signals {
		if ctx.Err() != nil {
			l.log.Info().Str("order_id", sig.OrderID).Msg("cancellation requested, leaving remaining signals for restart")
			return
		}
		l.process(ctx, sig)
	}
}

// process carries exactly one signal through execute→report. The parent
// context only gates entry: once dispatched, broker and gateway calls run on
// detached timeouts so a shutdown never leaves a placed order un-reported.
func (l *Loop) process(ctx context.Context, sig signal.Signal) {
	log := l.log.With().
		Str("order_id", sig.OrderID).
		Str("symbol", sig.Symbol).
		Str("side", sig.Side).
		Int64("size", sig.Size).
		Logger()

	if !sig.Eligible(l.opts.Mode) {
		// The gateway should not hand these out; skip without touching the broker.
		metrics.SignalsTotal.WithLabelValues(metrics.OutcomeSkipped).Inc()
		log.Warn().
			Str("status", string(sig.Status)).
			Bool("is_executable", sig.Executable).
			Str("mode", string(sig.Mode)).
			Msg("skipping ineligible signal")
		return
	}

	detached := context.WithoutCancel(ctx)

	if err := sig.Validate(); err != nil {
		metrics.SignalsTotal.WithLabelValues(metrics.OutcomeValidationFailed).Inc()
		log.Error().Err(err).Msg("signal failed validation")
		l.updateStatus(detached, log, sig.OrderID, gateway.StatusUpdate{
			Status:    signal.StatusFailed,
			LastError: err.Error(),
		})
		return
	}

	placeCtx, cancel := context.WithTimeout(detached, l.opts.OrderTimeout)
	brokerOrderID, err := l.adapter.PlaceOrder(placeCtx, sig)
	cancel()
	if err != nil {
		l.handlePlacementFailure(detached, log, sig, err)
		return
	}

	side, _ := signal.ParseSide(sig.Side)
	metrics.OrdersPlacedTotal.WithLabelValues(sig.Symbol, string(side)).Inc()
	log.Info().Str("broker_order_id", brokerOrderID).Msg("order placed")

	now := unixNow()
	l.updateStatus(detached, log, sig.OrderID, gateway.StatusUpdate{
		Status:        signal.StatusSubmitted,
		BrokerOrderID: brokerOrderID,
		SubmittedAt:   now,
	})

	// Default collaborator contract: placement success is an immediate fill.
	// Adapters resolving fills asynchronously must do so before returning.
	result := signal.ExecutionResult{
		OrderID:       sig.OrderID,
		BrokerOrderID: brokerOrderID,
		Status:        signal.StatusFilled,
		FilledSize:    sig.Size,
		FilledPrice:   l.fillPrice(sig),
		Commission:    decimal.Zero,
		ExecutedAt:    now,
	}
	l.recordExecution(detached, log, sig, result)
	if l.journal != nil {
		if err := l.journal.Record(result); err != nil {
			log.Warn().Err(err).Msg("journal write failed")
		}
	}
	metrics.SignalsTotal.WithLabelValues(metrics.OutcomeFilled).Inc()
	log.Info().Str("filled_price", result.FilledPrice.String()).Msg("execution reported")
}

func (l *Loop) handlePlacementFailure(ctx context.Context, log zerolog.Logger, sig signal.Signal, err error) {
	if broker.IsTransient(err) {
		metrics.SignalsTotal.WithLabelValues(metrics.OutcomeRetryPending).Inc()
		log.Warn().Err(err).Int("retry_count", sig.RetryCount+1).Msg("placement failed, will retry")
		l.updateStatus(ctx, log, sig.OrderID, gateway.StatusUpdate{
			Status:     signal.StatusRetryPending,
			RetryCount: sig.RetryCount + 1,
			LastError:  err.Error(),
		})
		return
	}
	metrics.SignalsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
	log.Error().Err(err).Msg("placement rejected")
	l.updateStatus(ctx, log, sig.OrderID, gateway.StatusUpdate{
		Status:    signal.StatusFailed,
		LastError: err.Error(),
	})
}

// updateStatus performs one gateway status write. Failures here are
// reporting failures: the broker-side effect already happened and is never
// rolled back, so they are logged and counted, not escalated.
func (l *Loop) updateStatus(ctx context.Context, log zerolog.Logger, orderID string, upd gateway.StatusUpdate) {
	callCtx, cancel := context.WithTimeout(ctx, l.opts.ReportTimeout)
	defer cancel()
	if err := l.gw.UpdateStatus(callCtx, orderID, upd); err != nil {
		metrics.ReportingFailuresTotal.Inc()
		log.Error().Err(err).Str("status", string(upd.Status)).Msg("status update failed")
	}
}

func (l *Loop) recordExecution(ctx context.Context, log zerolog.Logger, sig signal.Signal, result signal.ExecutionResult) {
	callCtx, cancel := context.WithTimeout(ctx, l.opts.ReportTimeout)
	defer cancel()
	rec := gateway.ExecutionRecord{
		OrderID:             result.OrderID,
		Symbol:              sig.Symbol,
		Side:                sig.Side,
		Size:                sig.Size,
		TargetPrice:         sig.Price,
		FilledPrice:         result.FilledPrice,
		FilledSize:          result.FilledSize,
		Commission:          result.Commission,
		Status:              result.Status,
		BrokerOrderID:       result.BrokerOrderID,
		Broker:              sig.Broker,
		Mode:                sig.Mode,
		Strategy:            sig.Strategy,
		StrategyName:        sig.StrategyName,
		AccountID:           sig.AccountID,
		SecuritiesAccountID: sig.SecuritiesAccountID,
		Timestamp:           result.ExecutedAt,
	}
	if err := l.gw.RecordExecution(callCtx, rec); err != nil {
		metrics.ReportingFailuresTotal.Inc()
		log.Error().Err(err).Msg("execution record failed")
	}
}

func (l *Loop) fillPrice(sig signal.Signal) decimal.Decimal {
	if sig.Price.IsPositive() {
		return sig.Price
	}
	return l.opts.DefaultFillPrice
}

func unixNow() float64 {
	return float64(time.Now().UnixMilli()) / 1000.0
}
