package position

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/blueenergy/quantTrader/internal/broker"
)

type fakeReporter struct {
	positions []broker.Position
}

func (r *fakeReporter) Positions() []broker.Position { return r.positions }

// fakeBalanceReporter additionally exposes account balances.
type fakeBalanceReporter struct {
	fakeReporter
	snapshot broker.AccountSnapshot
}

func (r *fakeBalanceReporter) Account() broker.AccountSnapshot { return r.snapshot }

type fakeGateway struct {
	synced   [][]Position
	cleanups [][]string
	accounts []Account
	syncErr  error
}

func (g *fakeGateway) SyncPositions(ctx context.Context, positions []Position) error {
	g.synced = append(g.synced, positions)
	return g.syncErr
}

func (g *fakeGateway) CleanupStale(ctx context.Context, held []string, accountID string) error {
	g.cleanups = append(g.cleanups, held)
	return nil
}

func (g *fakeGateway) SyncAccount(ctx context.Context, acct Account) error {
	g.accounts = append(g.accounts, acct)
	return nil
}

func TestSyncOncePushesHoldings(t *testing.T) {
	gw := &fakeGateway{}
	rep := &fakeReporter{positions: []broker.Position{
		{Symbol: "000858", Qty: 100, AvgCost: decimal.NewFromInt(10)},
	}}
	syncer := NewSyncer(gw, rep, time.Minute, "ACC-1", "simulated", zerolog.Nop())

	syncer.SyncOnce(context.Background())

	if len(gw.synced) != 1 || len(gw.synced[0]) != 1 {
		t.Fatalf("expected one sync with one position, got %+v", gw.synced)
	}
	pos := gw.synced[0][0]
	if pos.Symbol != "000858" || pos.Qty != 100 || pos.AccountID != "ACC-1" || pos.Broker != "simulated" {
		t.Fatalf("unexpected position payload: %+v", pos)
	}
	if len(gw.cleanups) != 1 || len(gw.cleanups[0]) != 1 || gw.cleanups[0][0] != "000858" {
		t.Fatalf("cleanup should list held symbols: %+v", gw.cleanups)
	}
}

func TestSyncOnceFlatBookStillCleansUp(t *testing.T) {
	gw := &fakeGateway{}
	syncer := NewSyncer(gw, &fakeReporter{}, time.Minute, "ACC-1", "simulated", zerolog.Nop())

	syncer.SyncOnce(context.Background())

	if len(gw.synced) != 0 {
		t.Fatalf("flat book should not push positions")
	}
	if len(gw.cleanups) != 1 || len(gw.cleanups[0]) != 0 {
		t.Fatalf("cleanup must still run with an empty held list: %+v", gw.cleanups)
	}
}

func TestSyncOnceSkipsCleanupAfterSyncError(t *testing.T) {
	gw := &fakeGateway{syncErr: errors.New("backend down")}
	rep := &fakeReporter{positions: []broker.Position{{Symbol: "000858", Qty: 1}}}
	syncer := NewSyncer(gw, rep, time.Minute, "", "", zerolog.Nop())

	syncer.SyncOnce(context.Background())

	if len(gw.cleanups) != 0 {
		t.Fatalf("cleanup must not run when the sync push failed")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	gw := &fakeGateway{}
	syncer := NewSyncer(gw, &fakeReporter{}, time.Millisecond, "", "", zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- syncer.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("syncer did not stop after cancellation")
	}
	if len(gw.cleanups) == 0 {
		t.Fatalf("expected at least one sync pass before shutdown")
	}
}

func TestSyncOncePushesAccountWhenReported(t *testing.T) {
	gw := &fakeGateway{}
	rep := &fakeBalanceReporter{
		snapshot: broker.AccountSnapshot{
			Cash:        decimal.NewFromInt(9000),
			MarketValue: decimal.NewFromInt(1000),
			RealizedPnL: decimal.NewFromInt(200),
		},
	}
	syncer := NewSyncer(gw, rep, time.Minute, "ACC-1", "simulated", zerolog.Nop())

	syncer.SyncOnce(context.Background())

	if len(gw.accounts) != 1 {
		t.Fatalf("expected one account push, got %d", len(gw.accounts))
	}
	acct := gw.accounts[0]
	if !acct.Cash.Equal(decimal.NewFromInt(9000)) || !acct.MarketValue.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("unexpected account payload: %+v", acct)
	}
	if !acct.TotalAsset.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("total asset should be cash plus market value, got %s", acct.TotalAsset)
	}
	if acct.AccountID != "ACC-1" || acct.Broker != "simulated" || acct.UpdatedAt <= 0 {
		t.Fatalf("unexpected account metadata: %+v", acct)
	}
}

func TestSyncOncePositionsOnlyWithoutBalanceCapability(t *testing.T) {
	gw := &fakeGateway{}
	syncer := NewSyncer(gw, &fakeReporter{}, time.Minute, "ACC-1", "simulated", zerolog.Nop())

	syncer.SyncOnce(context.Background())

	if len(gw.accounts) != 0 {
		t.Fatalf("reporter without balances must not push an account: %+v", gw.accounts)
	}
	if len(gw.cleanups) != 1 {
		t.Fatalf("position pass should still run: %+v", gw.cleanups)
	}
}

func TestSimulatedAdapterSatisfiesReporterCapabilities(t *testing.T) {
	var adapter any = broker.NewSimulated(zerolog.Nop(), broker.WithStartingCash(1000))
	if _, ok := adapter.(Reporter); !ok {
		t.Fatalf("simulated adapter should expose the position reporter capability")
	}
	if _, ok := adapter.(AccountReporter); !ok {
		t.Fatalf("simulated adapter should expose the account reporter capability")
	}
}
