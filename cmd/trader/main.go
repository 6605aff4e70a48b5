// Binary trader runs the polling trade loop against the configured gateway
// and broker adapter until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/blueenergy/quantTrader/internal/broker"
	"github.com/blueenergy/quantTrader/internal/config"
	"github.com/blueenergy/quantTrader/internal/gateway"
	"github.com/blueenergy/quantTrader/internal/metrics"
	"github.com/blueenergy/quantTrader/internal/position"
	"github.com/blueenergy/quantTrader/internal/trader"
	"github.com/blueenergy/quantTrader/internal/util"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := util.NewLogger("info")
		bootLog.Fatal().Err(err).Msg("load config")
	}

	log := util.NewLogger(cfg.App.LogLevel)
	log.Info().Str("app", cfg.App.Name).Str("api", cfg.API.BaseURL).Msg("starting")

	if cfg.App.MetricsAddr != "" {
		_ = metrics.Serve(cfg.App.MetricsAddr)
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := gateway.NewClient(cfg.API.BaseURL, cfg.API.Token, gateway.WithTimeout(cfg.APITimeout()))

	adapter, err := broker.New(cfg.Broker, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build broker")
	}
	log.Info().Str("broker", cfg.Broker.Name).Msg("broker ready")

	var journal trader.Journal
	if cfg.Trader.JournalPath != "" {
		jsonl, err := trader.NewJSONLJournal(cfg.Trader.JournalPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Trader.JournalPath).Msg("open journal")
		}
		defer jsonl.Close()
		journal = jsonl
	}

	if interval := cfg.SyncInterval(); interval > 0 {
		if reporter, ok := adapter.(position.Reporter); ok {
			syncer := position.NewSyncer(client, reporter, interval, "", cfg.Broker.Name, log)
			go func() { _ = syncer.Run(ctx) }()
			log.Info().Dur("interval", interval).Msg("position sync enabled")
		} else {
			log.Warn().Str("broker", cfg.Broker.Name).Msg("broker does not report positions, sync disabled")
		}
	}

	loop := trader.New(trader.OptionsFromConfig(cfg), client, adapter, journal, log)

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("trader loop exited")
		os.Exit(1)
	}
}
