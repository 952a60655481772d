// Command chronos runs a BTC backtest in which four simulated investors
// decide daily, either via an LLM with a rule fallback or via rules alone.
//
// Usage:
//
//	chronos --setup                  generate a config interactively
//	chronos --config config.yaml     run a backtest
//
// The LLM API key can be provided via the CHRONOS_LLM_API_KEY
// environment variable instead of the config file.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	binance "github.com/adshao/go-binance/v2"
	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	hyperliquid "github.com/sonirico/go-hyperliquid"
	"go.uber.org/zap"

	"github.com/projectchronos/chronos/config"
	"github.com/projectchronos/chronos/internal"
	"github.com/projectchronos/chronos/internal/clients"
	"github.com/projectchronos/chronos/internal/domain"
	"github.com/projectchronos/chronos/internal/services/debate"
	"github.com/projectchronos/chronos/internal/services/decision"
	"github.com/projectchronos/chronos/internal/services/market/collector"
	"github.com/projectchronos/chronos/internal/services/news"
	"github.com/projectchronos/chronos/internal/services/personas"
	"github.com/projectchronos/chronos/internal/services/sentiment"
	"github.com/projectchronos/chronos/internal/setup"
	"github.com/projectchronos/chronos/internal/storage/decisions"
)

const hyperliquidAPIURL = "https://api.hyperliquid.xyz"

func main() {
	cfg, runSetup, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	if runSetup {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		return
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("backtest failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	provider, err := klineProvider(ctx, cfg)
	if err != nil {
		return err
	}

	history := collector.NewHistoryService(logger, provider, cfg.Pair, cfg.DataDir)
	fearGreed := sentiment.NewFearGreedService(logger, cfg.DataDir)
	newsCache := news.NewCache(logger, cfg.DataDir)
	registry := personas.NewRegistry()

	var llm *clients.OpenAICompatibleClient
	var oracle decision.Oracle
	if cfg.Mode == domain.ModeAI {
		llm = clients.NewOpenAICompatibleClient(cfg.LLMAPIURL, cfg.LLMAPIKey, cfg.Model)
		oracle = registry.Oracle(llm)
	}

	orchestrator, err := decision.NewOrchestrator(
		logger, oracle, registry.RulePolicy(), domain.NewRunStatistics(),
		cfg.Mode, cfg.WaitBudget)
	if err != nil {
		return err
	}

	store, err := decisions.NewWALStore(filepath.Join(cfg.DataDir, "wal", "decisions"))
	if err != nil {
		return err
	}
	defer store.Close()

	var debateClient debate.ChatClient
	if llm != nil {
		debateClient = llm
	}
	debates := debate.NewGenerator(logger, debateClient)

	sim, err := internal.NewSimulator(cfg, logger, registry, orchestrator,
		history, fearGreed, newsCache, store, debates)
	if err != nil {
		return err
	}

	return sim.Run(ctx)
}

// klineProvider selects the exchange the candle history is loaded from.
// Only public market data endpoints are used, no API keys are needed.
func klineProvider(ctx context.Context, cfg config.Config) (collector.KlineProvider, error) {
	switch cfg.Platform {
	case "binance":
		return collector.NewBinanceKlineProvider(binance.NewClient("", "")), nil
	case "bybit":
		return collector.NewBybitKlineProvider(bybit.NewClient()), nil
	case "hyperliquid":
		info := hyperliquid.NewInfo(ctx, hyperliquidAPIURL, true, nil, nil)
		return collector.NewHyperliquidKlineProvider(info), nil
	default:
		return nil, errors.Errorf("unsupported platform: %s", cfg.Platform)
	}
}
