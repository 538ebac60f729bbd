package models

import "time"

// Provider identifies which upstream answers for a symbol.
type Provider string

const (
	ProviderBinance   Provider = "binance"
	ProviderKraken    Provider = "kraken"
	ProviderCoinGecko Provider = "coingecko"
)

// QuoteSource distinguishes how a quote was obtained. The freshness logic
// treats both the same; only timestamps decide which quote wins.
type QuoteSource string

const (
	SourceStream QuoteSource = "stream"
	SourceREST   QuoteSource = "rest"
)

// PriceQuote is one observation of a symbol's price. ObservedAt is the
// time the value was produced upstream, not when it was stored.
type PriceQuote struct {
	Symbol     string      `json:"symbol"`
	Price      float64     `json:"price"`
	Change24h  float64     `json:"change_24h"`
	Source     QuoteSource `json:"source"`
	ObservedAt time.Time   `json:"observed_at"`
}

// IsStale reports whether the quote is older than the given timeout at
// the given instant. A zero ObservedAt (never updated) is always stale.
func (q PriceQuote) IsStale(now time.Time, timeout time.Duration) bool {
	if q.ObservedAt.IsZero() {
		return true
	}
	return now.Sub(q.ObservedAt) > timeout
}
