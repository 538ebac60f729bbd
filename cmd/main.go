package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"crypto-ticker-core/config"
	"crypto-ticker-core/logger"
	"crypto-ticker-core/mempool"
	"crypto-ticker-core/miners"
	"crypto-ticker-core/models"
	"crypto-ticker-core/rest"
	"crypto-ticker-core/rotator"
	"crypto-ticker-core/state"
	"crypto-ticker-core/stream"
	"crypto-ticker-core/symbols"
	"crypto-ticker-core/worker"
)

const bootstrapTimeout = 90 * time.Second

func main() {
	configPath := flag.String("config", "config.json", "path to config.json")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	log := logger.New(cfg.LogLevel)
	defer log.Sync()
	if err != nil {
		log.Warn("using default configuration", zap.Error(err))
	}

	registry := symbols.NewRegistry(cfg)
	market := state.New(cfg, registry, log)

	log.Info("starting crypto ticker core",
		zap.Strings("main_symbols", registry.Main()),
		zap.Int("marquee_symbols", len(registry.Marquee())),
		zap.Int("miners", len(cfg.MinersIPs)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fallback := rest.NewFallbackWorker(
		registry, market,
		rest.NewBinanceClient(), rest.NewKrakenClient(), rest.NewCoinGeckoClient(),
		cfg.CandleSeconds, cfg.MaxCandles,
		log,
	)

	// Initial REST load so the first frame has data to show.
	bootCtx, bootCancel := context.WithTimeout(ctx, bootstrapTimeout)
	fallback.Bootstrap(bootCtx)
	bootCancel()

	// Streaming feeds and the rotator run as plain goroutines; they manage
	// their own reconnect loops and stop on context cancellation.
	var wg sync.WaitGroup
	feeds := []stream.Feed{
		stream.NewBinanceFeed(registry.Symbols(models.ProviderBinance), market, log),
		stream.NewKrakenFeed(registry.KrakenPairs(), market, log),
	}
	for _, feed := range feeds {
		wg.Add(1)
		go func(f stream.Feed) {
			defer wg.Done()
			f.Run(ctx)
		}(feed)
	}

	rot := rotator.New(registry.Main(), cfg.RotationInterval, market, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		rot.Run(ctx)
	}()

	// Fixed-cadence pollers share the cron-backed worker manager.
	manager := worker.NewManager(log)
	jobs := []*worker.JobConfig{
		{
			Name:        "miners",
			Schedule:    every(cfg.MinerPollInterval),
			Job:         miners.NewPoller(cfg.MinersIPs, market, log),
			Enabled:     len(cfg.MinersIPs) > 0,
			Description: "local miner telemetry poll",
		},
		{
			Name:        "mempool",
			Schedule:    every(cfg.MempoolPollInterval),
			Job:         mempool.NewPoller(market, log),
			Enabled:     true,
			Description: "bitcoin network statistics poll",
		},
		{
			Name:        "rest-fallback",
			Schedule:    every(cfg.MarqueeRefreshInterval),
			Job:         fallback,
			Enabled:     true,
			Description: "marquee batch refresh and stale-symbol fallback",
		},
	}
	for _, job := range jobs {
		if err := manager.Register(job); err != nil {
			log.Error("job registration failed", zap.String("job", job.Name), zap.Error(err))
		}
	}
	manager.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	cancel()
	manager.Stop()
	wg.Wait()

	// Readers may still take a final, valid snapshot after shutdown.
	snap := market.Snapshot()
	log.Info("final state",
		zap.String("active_symbol", snap.ActiveSymbol),
		zap.Int("quotes", len(snap.Quotes)),
		zap.String("health", string(snap.Health.Overall)))
}

func every(d time.Duration) string {
	return fmt.Sprintf("@every %s", d)
}
