// Binary diagnose checks gateway connectivity and credentials without
// placing any orders.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/joho/godotenv"

	"github.com/blueenergy/quantTrader/internal/config"
	"github.com/blueenergy/quantTrader/internal/gateway"
	"github.com/blueenergy/quantTrader/internal/util"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to YAML config")
	flag.Parse()

	log := util.NewConsoleLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client := gateway.NewClient(cfg.API.BaseURL, cfg.API.Token, gateway.WithTimeout(cfg.APITimeout()))

	log.Info().Str("api", cfg.API.BaseURL).Msg("checking gateway connectivity")
	if err := client.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("gateway unreachable or credentials rejected")
	}
	log.Info().Msg("gateway reachable, credentials accepted")

	signals, err := client.FetchPending(ctx, cfg.Trader.FetchLimit, cfg.Trader.IncludeRetryable)
	if err != nil {
		log.Fatal().Err(err).Msg("fetch pending signals")
	}
	log.Info().Int("pending", len(signals)).Msg("signal queue fetched")
	for _, s := range signals {
		log.Info().
			Str("order_id", s.OrderID).
			Str("symbol", s.Symbol).
			Str("side", s.Side).
			Int64("size", s.Size).
			Str("status", string(s.Status)).
			Bool("is_executable", s.Executable).
			Msg("pending signal")
	}
}
