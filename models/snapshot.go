package models

import "time"

// Snapshot is the immutable copy of market state handed to readers.
// It is safe to retain and read from any goroutine; nothing in it aliases
// the live state.
type Snapshot struct {
	Quotes          map[string]PriceQuote `json:"quotes"`
	ActiveSymbol    string                `json:"active_symbol"`
	Candles         []Candle              `json:"candles"`
	Overlay         []float64             `json:"overlay"`
	OverlayEMA      []float64             `json:"overlay_ema"`
	HashHistory     []float64             `json:"hash_history"`
	Miners          MinerAggregate        `json:"miners"`
	Network         NetworkStats          `json:"network"`
	Health          HealthReport          `json:"health"`
	MarqueeRevision uint64                `json:"marquee_revision"`
	TakenAt         time.Time             `json:"taken_at"`
}
