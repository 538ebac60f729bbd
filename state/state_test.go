package state

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"crypto-ticker-core/config"
	"crypto-ticker-core/models"
	"crypto-ticker-core/symbols"
)

func testConfig() *config.Config {
	return &config.Config{
		MainSymbols:          []string{"BTCUSDT", "ETHUSDT"},
		MarqueeSymbols:       []string{"SOLUSDT", "RUNECOIN"},
		CandleSeconds:        60,
		MaxCandles:           14,
		DataTimeout:          300 * time.Second,
		MinerPollInterval:    15 * time.Second,
		MinersIPs:            []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"},
		MinerActiveThreshold: 0.25,
		CoinGeckoIDs:         map[string]string{"runecoin": "runecoin"},
	}
}

func newTestState(cfg *config.Config) *MarketState {
	return New(cfg, symbols.NewRegistry(cfg), zap.NewNop())
}

func quote(sym string, price float64, src models.QuoteSource, at time.Time) models.PriceQuote {
	return models.PriceQuote{Symbol: sym, Price: price, Change24h: 1.5, Source: src, ObservedAt: at}
}

func TestApplyQuoteTimestampsAreMonotonicAcrossSources(t *testing.T) {
	s := newTestState(testConfig())
	base := time.Now()

	require.True(t, s.ApplyQuote(quote("BTCUSDT", 100, models.SourceStream, base)))
	// A REST fallback result observed earlier must not regress the price.
	assert.False(t, s.ApplyQuote(quote("BTCUSDT", 90, models.SourceREST, base.Add(-time.Second))))
	// Equal timestamps lose too: only strictly newer wins.
	assert.False(t, s.ApplyQuote(quote("BTCUSDT", 95, models.SourceREST, base)))
	require.True(t, s.ApplyQuote(quote("BTCUSDT", 101, models.SourceREST, base.Add(time.Second))))

	snap := s.Snapshot()
	assert.Equal(t, 101.0, snap.Quotes["BTCUSDT"].Price)
	assert.Equal(t, models.SourceREST, snap.Quotes["BTCUSDT"].Source)
}

func TestApplyQuoteRejectsUntrackedAndNegative(t *testing.T) {
	s := newTestState(testConfig())

	assert.False(t, s.ApplyQuote(quote("DOGEUSDT", 1, models.SourceStream, time.Now())))
	assert.False(t, s.ApplyQuote(quote("BTCUSDT", -1, models.SourceStream, time.Now())))
}

func TestActiveSymbolQuotesFeedCandles(t *testing.T) {
	s := newTestState(testConfig())
	base := time.Unix(1700000040, 0)

	for i, price := range []float64{100, 105, 95, 102} {
		s.ApplyQuote(quote("BTCUSDT", price, models.SourceStream, base.Add(time.Duration(i)*time.Second)))
	}
	// Quotes for non-active symbols never touch the chart.
	s.ApplyQuote(quote("ETHUSDT", 9999, models.SourceStream, base.Add(5*time.Second)))

	snap := s.Snapshot()
	require.Len(t, snap.Candles, 1)
	assert.Equal(t, 100.0, snap.Candles[0].Open)
	assert.Equal(t, 105.0, snap.Candles[0].High)
	assert.Equal(t, 95.0, snap.Candles[0].Low)
	assert.Equal(t, 102.0, snap.Candles[0].Close)
}

func TestRotationResetsCandleHistory(t *testing.T) {
	s := newTestState(testConfig())
	s.ApplyQuote(quote("BTCUSDT", 100, models.SourceStream, time.Now()))
	require.NotEmpty(t, s.Snapshot().Candles)

	s.SetActiveSymbol("ETHUSDT")

	assert.Equal(t, "ETHUSDT", s.ActiveSymbol())
	assert.Empty(t, s.Snapshot().Candles)
}

func TestSeedCandlesIgnoredForInactiveSymbol(t *testing.T) {
	s := newTestState(testConfig())
	history := []models.Candle{{Start: time.Unix(1700000040, 0), Open: 1, High: 1, Low: 1, Close: 1}}

	s.SeedCandles("ETHUSDT", history)
	assert.Empty(t, s.Snapshot().Candles)

	s.SeedCandles("BTCUSDT", history)
	assert.Len(t, s.Snapshot().Candles, 1)
}

func TestStaleSymbols(t *testing.T) {
	cfg := testConfig()
	s := newTestState(cfg)
	now := time.Now()

	s.ApplyQuote(quote("BTCUSDT", 100, models.SourceStream, now))
	s.ApplyQuote(quote("ETHUSDT", 200, models.SourceStream, now.Add(-cfg.DataTimeout-time.Second)))

	stale := s.StaleSymbols(now)
	assert.NotContains(t, stale, "BTCUSDT")
	assert.Contains(t, stale, "ETHUSDT")
	// Symbols never quoted are stale too.
	assert.Contains(t, stale, "SOLUSDT")
}

func TestMinerReadingMergeRetainsLastKnownOnUnreachable(t *testing.T) {
	s := newTestState(testConfig())
	seen := time.Now()

	s.ApplyMinerReading(models.MinerReading{
		Host: "10.0.0.1", HashrateTH: 1.2, BestDifficulty: 4.2e6, LastSeen: seen, Reachable: true,
	})
	s.ApplyMinerReading(models.MinerReading{Host: "10.0.0.1", Reachable: false})

	snap := s.Snapshot()
	agg := snap.Miners
	assert.Equal(t, 0, agg.ReachableCount)
	// Achieved best difficulty survives the drop.
	assert.Equal(t, 4.2e6, agg.BestDifficulty)
	// Unreachable miners contribute nothing to the live total.
	assert.Equal(t, 0.0, agg.TotalHashrateTH)
}

func TestMinerBestDifficultyNeverRegresses(t *testing.T) {
	s := newTestState(testConfig())

	s.ApplyMinerReading(models.MinerReading{
		Host: "10.0.0.1", HashrateTH: 1.0, BestDifficulty: 9e6, LastSeen: time.Now(), Reachable: true,
	})
	s.ApplyMinerReading(models.MinerReading{
		Host: "10.0.0.1", HashrateTH: 1.0, BestDifficulty: 1e6, LastSeen: time.Now(), Reachable: true,
	})

	assert.Equal(t, 9e6, s.Snapshot().Miners.BestDifficulty)
}

func TestCommitMinerCycleBoundsHashHistory(t *testing.T) {
	cfg := testConfig()
	cfg.MaxCandles = 3
	s := newTestState(cfg)

	s.ApplyMinerReading(models.MinerReading{
		Host: "10.0.0.1", HashrateTH: 1.0, LastSeen: time.Now(), Reachable: true,
	})
	for i := 0; i < 10; i++ {
		s.CommitMinerCycle()
	}

	assert.Len(t, s.Snapshot().HashHistory, 3)
}

func TestMarqueeRevisionTracksMarqueePriceChanges(t *testing.T) {
	s := newTestState(testConfig())
	base := time.Now()
	rev := s.MarqueeRevision()

	// Main-only symbol changes do not bump the revision.
	s.ApplyQuote(quote("BTCUSDT", 100, models.SourceStream, base))
	assert.Equal(t, rev, s.MarqueeRevision())

	s.ApplyQuote(quote("SOLUSDT", 50, models.SourceStream, base))
	assert.Equal(t, rev+1, s.MarqueeRevision())

	// Same price again: no visual change, no bump.
	s.ApplyQuote(quote("SOLUSDT", 50, models.SourceStream, base.Add(time.Second)))
	assert.Equal(t, rev+1, s.MarqueeRevision())
}

func TestSnapshotIsIsolatedFromLiveState(t *testing.T) {
	s := newTestState(testConfig())
	s.ApplyQuote(quote("BTCUSDT", 100, models.SourceStream, time.Now()))

	snap := s.Snapshot()
	snap.Quotes["BTCUSDT"] = models.PriceQuote{Symbol: "BTCUSDT", Price: -999}
	if len(snap.Candles) > 0 {
		snap.Candles[0].High = -999
	}

	fresh := s.Snapshot()
	assert.Equal(t, 100.0, fresh.Quotes["BTCUSDT"].Price)
	require.NotEmpty(t, fresh.Candles)
	assert.Equal(t, 100.0, fresh.Candles[0].High)
}

func TestSnapshotCarriesBothOverlaySeries(t *testing.T) {
	s := newTestState(testConfig())
	base := time.Unix(1700000040, 0)

	history := make([]models.Candle, 6)
	for i := range history {
		price := 100.0 + float64(i)
		history[i] = models.Candle{
			Start: base.Add(time.Duration(i) * time.Minute), Duration: time.Minute,
			Open: price, High: price, Low: price, Close: price,
		}
	}
	s.SeedCandles("BTCUSDT", history)

	snap := s.Snapshot()
	require.Len(t, snap.Candles, 6)
	require.Len(t, snap.Overlay, 6)
	require.Len(t, snap.OverlayEMA, 6)

	// Both series share the warmup window and track the closes after it.
	for i := 0; i < 4; i++ {
		assert.True(t, math.IsNaN(snap.Overlay[i]), "sma warmup position %d", i)
		assert.True(t, math.IsNaN(snap.OverlayEMA[i]), "ema warmup position %d", i)
	}
	assert.InDelta(t, 102.0, snap.Overlay[4], 1e-9)
	assert.False(t, math.IsNaN(snap.OverlayEMA[5]))
}

func TestSnapshotHealthReflectsFreshness(t *testing.T) {
	cfg := testConfig()
	cfg.MinersIPs = nil // hidden subsystem must not drag health down
	s := newTestState(cfg)
	now := time.Now()

	s.ApplyQuote(quote("BTCUSDT", 100, models.SourceStream, now))
	s.SetNetworkStats(models.NetworkStats{BlockHeight: 800000, ObservedAt: now})

	snap := s.Snapshot()
	assert.Equal(t, models.HealthGreen, snap.Health.Overall)
	assert.False(t, snap.Health.MinersTracked)
	assert.Equal(t, models.MinerHidden, snap.Miners.Health)
}
