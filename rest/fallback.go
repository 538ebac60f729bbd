package rest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"crypto-ticker-core/models"
	"crypto-ticker-core/symbols"
)

// MarketSink is the slice of the shared market state the REST side needs:
// quote writes, staleness queries, and candle seeding for the bootstrap.
type MarketSink interface {
	ApplyQuote(models.PriceQuote) bool
	StaleSymbols(now time.Time) []string
	ActiveSymbol() string
	SeedCandles(symbol string, history []models.Candle)
}

// FallbackWorker owns all scheduled REST activity: the startup bootstrap,
// the per-cycle stale-symbol sweep, and the batch refresh of symbols that
// have no stream at all. One failed symbol never blocks the others; the
// next scheduled cycle is the retry.
type FallbackWorker struct {
	registry  *symbols.Registry
	sink      MarketSink
	binance   *BinanceClient
	kraken    *KrakenClient
	coingecko *CoinGeckoClient
	log       *zap.Logger

	candleSeconds int
	maxCandles    int
}

// NewFallbackWorker wires the three provider clients to the market sink.
func NewFallbackWorker(
	registry *symbols.Registry,
	sink MarketSink,
	binance *BinanceClient,
	kraken *KrakenClient,
	coingecko *CoinGeckoClient,
	candleSeconds, maxCandles int,
	log *zap.Logger,
) *FallbackWorker {
	return &FallbackWorker{
		registry:      registry,
		sink:          sink,
		binance:       binance,
		kraken:        kraken,
		coingecko:     coingecko,
		candleSeconds: candleSeconds,
		maxCandles:    maxCandles,
		log:           log.With(zap.String("component", "rest-fallback")),
	}
}

// Name identifies the worker to the scheduler.
func (w *FallbackWorker) Name() string { return "rest-fallback" }

// Run executes one scheduled cycle: refresh the streamless batch, then
// fetch every symbol whose quote has gone stale.
func (w *FallbackWorker) Run(ctx context.Context) {
	w.refreshCoinGecko(ctx)
	w.sweepStale(ctx)
}

// Bootstrap performs the initial REST load: a quote for every tracked
// symbol and kline history for the active main symbol, so the display has
// data before the first stream tick arrives. Individual failures are
// logged and skipped.
func (w *FallbackWorker) Bootstrap(ctx context.Context) {
	for _, sym := range w.registry.Symbols(models.ProviderBinance) {
		quote, err := w.binance.FetchQuote(ctx, sym)
		if err != nil {
			w.log.Warn("bootstrap quote failed", zap.String("symbol", sym), zap.Error(err))
			continue
		}
		w.sink.ApplyQuote(quote)
	}

	w.fetchKrakenBatch(ctx, w.registry.KrakenPairs())
	w.refreshCoinGecko(ctx)
	w.seedActiveCandles(ctx)
}

// seedActiveCandles loads chart history for the active symbol when its
// provider serves klines (only Binance does).
func (w *FallbackWorker) seedActiveCandles(ctx context.Context) {
	active := w.sink.ActiveSymbol()
	if active == "" || w.registry.Provider(active) != models.ProviderBinance {
		return
	}

	history, err := w.binance.FetchRecentCandles(ctx, active, w.candleSeconds, w.maxCandles)
	if err != nil {
		w.log.Warn("candle bootstrap failed", zap.String("symbol", active), zap.Error(err))
		return
	}
	w.sink.SeedCandles(active, history)
	w.log.Info("candle history seeded",
		zap.String("symbol", active), zap.Int("candles", len(history)))
}

// sweepStale fetches a fresh quote for each stale symbol through its own
// provider route. Batching providers (Kraken, CoinGecko) are queried once
// for all their stale symbols; Binance symbols are fetched one by one.
func (w *FallbackWorker) sweepStale(ctx context.Context) {
	stale := w.sink.StaleSymbols(time.Now())
	if len(stale) == 0 {
		return
	}

	krakenPairs := make(map[string]string)

	for _, sym := range stale {
		switch w.registry.Provider(sym) {
		case models.ProviderKraken:
			if pair, ok := w.registry.KrakenPair(sym); ok {
				krakenPairs[sym] = pair
			}
		case models.ProviderCoinGecko:
			// Already covered by the batch refresh this cycle.
		default:
			quote, err := w.binance.FetchQuote(ctx, sym)
			if err != nil {
				w.log.Warn("fallback fetch failed", zap.String("symbol", sym), zap.Error(err))
				continue
			}
			if w.sink.ApplyQuote(quote) {
				w.log.Info("stale quote refreshed via rest", zap.String("symbol", sym))
			}
		}
	}

	w.fetchKrakenBatch(ctx, krakenPairs)
}

func (w *FallbackWorker) fetchKrakenBatch(ctx context.Context, pairs map[string]string) {
	if len(pairs) == 0 {
		return
	}
	quotes, err := w.kraken.FetchQuotes(ctx, pairs)
	if err != nil {
		w.log.Warn("kraken batch fetch failed", zap.Int("pairs", len(pairs)), zap.Error(err))
		return
	}
	for _, q := range quotes {
		w.sink.ApplyQuote(q)
	}
}

// refreshCoinGecko re-fetches the whole CoinGecko-routed set in one batch;
// those symbols have no stream, so the scheduled refresh is their only
// source.
func (w *FallbackWorker) refreshCoinGecko(ctx context.Context) {
	ids := w.registry.CoinGeckoIDs()
	if len(ids) == 0 {
		return
	}
	quotes, err := w.coingecko.FetchQuotes(ctx, ids)
	if err != nil {
		w.log.Warn("coingecko batch fetch failed", zap.Int("coins", len(ids)), zap.Error(err))
		return
	}
	for _, q := range quotes {
		w.sink.ApplyQuote(q)
	}
}
