package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/blueenergy/quantTrader/internal/position"
	"github.com/blueenergy/quantTrader/internal/signal"
)

func TestFetchPending(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{
				"order_id":      "A1",
				"symbol":        "000858",
				"action":        "BUY",
				"size":          100,
				"price":         "10.5",
				"status":        "pending",
				"is_executable": true,
				"mode":          "live",
			}},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")
	signals, err := client.FetchPending(context.Background(), 50, true)
	if err != nil {
		t.Fatalf("FetchPending returned error: %v", err)
	}
	if gotPath != "/trader/signals" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotQuery != "limit=50&include_retryable=true" {
		t.Fatalf("unexpected query: %s", gotQuery)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected auth header: %s", gotAuth)
	}
	if len(signals) != 1 {
		t.Fatalf("expected one signal, got %d", len(signals))
	}
	sig := signals[0]
	if sig.OrderID != "A1" || sig.Symbol != "000858" || sig.Size != 100 {
		t.Fatalf("unexpected signal: %+v", sig)
	}
	if !sig.Price.Equal(decimal.NewFromFloat(10.5)) {
		t.Fatalf("unexpected price: %s", sig.Price)
	}
	if !sig.Eligible(signal.ModeLive) {
		t.Fatalf("decoded signal should be eligible")
	}
}

func TestFetchPendingServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")
	if _, err := client.FetchPending(context.Background(), 50, false); err == nil {
		t.Fatalf("expected error for 502 response")
	}
}

func TestFetchPendingUnreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "secret")
	if _, err := client.FetchPending(context.Background(), 50, false); err == nil {
		t.Fatalf("expected transport error")
	}
}

func TestUpdateStatus(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")
	err := client.UpdateStatus(context.Background(), "A1", StatusUpdate{
		Status:        signal.StatusSubmitted,
		BrokerOrderID: "SIM-1",
		SubmittedAt:   1700000000,
	})
	if err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}
	if gotPath != "/trader/signals/A1/status" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotBody["status"] != "submitted" || gotBody["broker_order_id"] != "SIM-1" {
		t.Fatalf("unexpected body: %+v", gotBody)
	}
	if _, present := gotBody["retry_count"]; present {
		t.Fatalf("zero retry_count should be omitted: %+v", gotBody)
	}
}

func TestUpdateStatusRetryFields(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")
	err := client.UpdateStatus(context.Background(), "A1", StatusUpdate{
		Status:     signal.StatusRetryPending,
		RetryCount: 2,
		LastError:  "timeout",
	})
	if err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}
	if gotBody["status"] != "retry_pending" || gotBody["retry_count"] != float64(2) || gotBody["last_error"] != "timeout" {
		t.Fatalf("unexpected body: %+v", gotBody)
	}
}

func TestRecordExecution(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")
	err := client.RecordExecution(context.Background(), ExecutionRecord{
		OrderID:     "A1",
		Symbol:      "000858",
		Side:        "BUY",
		Size:        100,
		FilledSize:  100,
		FilledPrice: decimal.NewFromFloat(10.5),
		Status:      signal.StatusFilled,
		Mode:        signal.ModeLive,
	})
	if err != nil {
		t.Fatalf("RecordExecution returned error: %v", err)
	}
	if gotPath != "/trader/executions" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotBody["order_id"] != "A1" || gotBody["status"] != "filled" {
		t.Fatalf("unexpected body: %+v", gotBody)
	}
}

func TestSyncAndCleanup(t *testing.T) {
	paths := []string{}
	var cleanupBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/trader/positions/cleanup" {
			_ = json.NewDecoder(r.Body).Decode(&cleanupBody)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")
	err := client.SyncPositions(context.Background(), []position.Position{{
		Symbol: "000858", Qty: 100, AvgPrice: decimal.NewFromInt(10),
	}})
	if err != nil {
		t.Fatalf("SyncPositions returned error: %v", err)
	}
	if err := client.CleanupStale(context.Background(), nil, "ACC-1"); err != nil {
		t.Fatalf("CleanupStale returned error: %v", err)
	}
	if len(paths) != 2 || paths[0] != "/trader/positions/sync" {
		t.Fatalf("unexpected paths: %v", paths)
	}
	held, ok := cleanupBody["held_symbols"].([]any)
	if !ok || len(held) != 0 {
		t.Fatalf("expected empty held_symbols array, got %+v", cleanupBody)
	}
}

func TestSyncAccount(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")
	err := client.SyncAccount(context.Background(), position.Account{
		Cash:        decimal.NewFromInt(9000),
		MarketValue: decimal.NewFromInt(1000),
		TotalAsset:  decimal.NewFromInt(10000),
		AccountID:   "ACC-1",
		Broker:      "simulated",
		UpdatedAt:   1700000000,
	})
	if err != nil {
		t.Fatalf("SyncAccount returned error: %v", err)
	}
	if gotPath != "/trader/account/sync" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotBody["cash"] != "9000" || gotBody["total_asset"] != "10000" || gotBody["account_id"] != "ACC-1" {
		t.Fatalf("unexpected body: %+v", gotBody)
	}
}
