package state

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"crypto-ticker-core/candles"
	"crypto-ticker-core/config"
	"crypto-ticker-core/health"
	"crypto-ticker-core/indicators"
	"crypto-ticker-core/miners"
	"crypto-ticker-core/models"
	"crypto-ticker-core/symbols"
)

// minerTimeoutFactor turns the poll interval into the staleness timeout for
// the miner subsystem: one missed cycle is tolerated, two are not.
const minerTimeoutFactor = 2

// MarketState is the single source of truth every producer writes into and
// every reader snapshots from. One coarse RWMutex guards all fields; writes
// hold it only for the duration of a field update, reads only for the
// duration of a copy, so neither side can block the other for long.
type MarketState struct {
	mu  sync.RWMutex
	log *zap.Logger

	registry *symbols.Registry
	cfg      *config.Config

	quotes  map[string]models.PriceQuote
	builder *candles.Builder
	active  string

	readings    map[string]models.MinerReading
	minerOrder  []string
	hashHistory []float64

	network models.NetworkStats

	marqueeRev uint64
}

// New builds the market state for the configured symbol universe. The first
// main symbol starts active.
func New(cfg *config.Config, registry *symbols.Registry, log *zap.Logger) *MarketState {
	s := &MarketState{
		log:      log,
		registry: registry,
		cfg:      cfg,
		quotes:   make(map[string]models.PriceQuote),
		builder:  candles.NewBuilder(cfg.CandleSeconds, cfg.MaxCandles),
		readings: make(map[string]models.MinerReading),
	}
	for _, ip := range cfg.MinersIPs {
		s.minerOrder = append(s.minerOrder, ip)
	}
	if main := registry.Main(); len(main) > 0 {
		s.active = main[0]
	}
	return s
}

// ApplyQuote stores a quote if it is strictly newer than the one already
// held for the symbol; older arrivals (reconnects racing REST fallbacks)
// are discarded so readers never observe a temporal regression. Quotes for
// the active symbol also feed the candle builder. Reports whether the
// quote was applied.
func (s *MarketState) ApplyQuote(q models.PriceQuote) bool {
	sym := symbols.Canonical(q.Symbol)
	if !s.registry.Tracks(sym) || q.Price < 0 {
		return false
	}
	q.Symbol = sym

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.quotes[sym]; ok && !q.ObservedAt.After(prev.ObservedAt) {
		return false
	}

	if s.registry.IsMarquee(sym) {
		if prev, ok := s.quotes[sym]; !ok || prev.Price != q.Price {
			s.marqueeRev++
		}
	}
	s.quotes[sym] = q

	if sym == s.active {
		s.builder.Apply(q.Price, q.ObservedAt)
	}
	return true
}

// ActiveSymbol returns the currently charted primary symbol.
func (s *MarketState) ActiveSymbol() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SetActiveSymbol switches the charted symbol and discards the candle
// history, which belonged to the previous instrument.
func (s *MarketState) SetActiveSymbol(symbol string) {
	sym := symbols.Canonical(symbol)

	s.mu.Lock()
	defer s.mu.Unlock()

	if sym == s.active {
		return
	}
	s.active = sym
	s.builder.Reset()
	s.log.Info("active symbol rotated", zap.String("symbol", sym))
}

// SeedCandles installs bootstrap candle history for a symbol. Ignored when
// the symbol is no longer active, since the history would chart the wrong
// instrument.
func (s *MarketState) SeedCandles(symbol string, history []models.Candle) {
	sym := symbols.Canonical(symbol)

	s.mu.Lock()
	defer s.mu.Unlock()

	if sym != s.active {
		return
	}
	s.builder.Seed(history)
}

// StaleSymbols returns every tracked symbol whose quote is older than the
// configured data timeout (or missing entirely) at the given instant.
func (s *MarketState) StaleSymbols(now time.Time) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stale []string
	for _, sym := range s.registry.All() {
		if s.quotes[sym].IsStale(now, s.cfg.DataTimeout) {
			stale = append(stale, sym)
		}
	}
	return stale
}

// ApplyMinerReading merges one miner's poll result. An unreachable reading
// keeps the miner's last known hashrate, best difficulty and last-seen
// time so the display decays instead of zeroing, but clears the reachable
// bit used by the aggregate counts.
func (s *MarketState) ApplyMinerReading(r models.MinerReading) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.readings[r.Host]; ok && !r.Reachable {
		prev.Reachable = false
		s.readings[r.Host] = prev
		return
	}
	if !r.Reachable {
		s.readings[r.Host] = r
		return
	}
	if prev, ok := s.readings[r.Host]; ok && prev.BestDifficulty > r.BestDifficulty {
		// Session best is an achieved result; never regress it.
		r.BestDifficulty = prev.BestDifficulty
	}
	s.readings[r.Host] = r
}

// CommitMinerCycle appends the current aggregate hashrate to the bounded
// history. Called once per poll cycle after all readings landed.
func (s *MarketState) CommitMinerCycle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	agg := miners.Aggregate(s.currentReadings(), len(s.minerOrder), s.cfg.MinerActiveThreshold)
	s.hashHistory = append(s.hashHistory, agg.TotalHashrateTH)
	for len(s.hashHistory) > s.cfg.MaxCandles {
		s.hashHistory = s.hashHistory[1:]
	}
}

// SetNetworkStats stores the latest network statistics record.
func (s *MarketState) SetNetworkStats(ns models.NetworkStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.network = ns
}

// Snapshot returns a self-contained copy of the current state plus the
// derived miner aggregate, indicator overlay and health report. It is a
// copy, not a recomputation of any network state, and is cheap enough to
// call once per rendered frame.
func (s *MarketState) Snapshot() models.Snapshot {
	now := time.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	quotes := make(map[string]models.PriceQuote, len(s.quotes))
	for sym, q := range s.quotes {
		quotes[sym] = q
	}

	series := s.builder.Series()
	hashHistory := append([]float64(nil), s.hashHistory...)
	agg := miners.Aggregate(s.currentReadings(), len(s.minerOrder), s.cfg.MinerActiveThreshold)

	return models.Snapshot{
		Quotes:          quotes,
		ActiveSymbol:    s.active,
		Candles:         series,
		Overlay:         indicators.SMA(series, indicators.OverlayPeriod),
		OverlayEMA:      indicators.EMA(series, indicators.OverlayPeriod),
		HashHistory:     hashHistory,
		Miners:          agg,
		Network:         s.network,
		Health:          s.healthReport(now),
		MarqueeRevision: s.marqueeRev,
		TakenAt:         now,
	}
}

// MarqueeRevision increments whenever a marquee symbol's price changes, so
// renderers can skip rebuilding the marquee texture when nothing moved.
func (s *MarketState) MarqueeRevision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.marqueeRev
}

// currentReadings must be called with the lock held.
func (s *MarketState) currentReadings() []models.MinerReading {
	out := make([]models.MinerReading, 0, len(s.readings))
	for _, ip := range s.minerOrder {
		if r, ok := s.readings[ip]; ok {
			out = append(out, r)
		}
	}
	return out
}

// healthReport must be called with the lock held.
func (s *MarketState) healthReport(now time.Time) models.HealthReport {
	var priceLast time.Time
	for _, q := range s.quotes {
		if q.ObservedAt.After(priceLast) {
			priceLast = q.ObservedAt
		}
	}

	var minerLast time.Time
	for _, r := range s.readings {
		if r.LastSeen.After(minerLast) {
			minerLast = r.LastSeen
		}
	}

	return health.Classify(health.Inputs{
		Now:                now,
		PriceLastSuccess:   priceLast,
		MinerLastSuccess:   minerLast,
		NetworkLastSuccess: s.network.ObservedAt,
		PriceTimeout:       s.cfg.DataTimeout,
		MinerTimeout:       minerTimeoutFactor * s.cfg.MinerPollInterval,
		NetworkTimeout:     s.cfg.DataTimeout,
		MinersTracked:      len(s.minerOrder) > 0,
	})
}
