package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PollsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "trader_polls_total", Help: "Completed poll cycles"},
	)
	PollErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "trader_poll_errors_total", Help: "Poll cycles that failed to fetch signals"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trader_signals_total", Help: "Signals processed by outcome"},
		[]string{"outcome"},
	)
	OrdersPlacedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trader_orders_placed_total", Help: "Orders accepted by the broker"},
		[]string{"symbol", "side"},
	)
	ReportingFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "trader_reporting_failures_total", Help: "Gateway status/execution writes that failed"},
	)
	PositionSyncsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "trader_position_syncs_total", Help: "Position sync passes pushed to the gateway"},
	)
)

// Outcome labels for SignalsTotal.
const (
	OutcomeFilled           = "filled"
	OutcomeRetryPending     = "retry_pending"
	OutcomeFailed           = "failed"
	OutcomeValidationFailed = "validation_failed"
	OutcomeSkipped          = "skipped"
)

func init() {
	prometheus.MustRegister(
		PollsTotal,
		PollErrorsTotal,
		SignalsTotal,
		OrdersPlacedTotal,
		ReportingFailuresTotal,
		PositionSyncsTotal,
	)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
