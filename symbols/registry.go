package symbols

import (
	"strings"

	"crypto-ticker-core/config"
	"crypto-ticker-core/models"
)

// DefaultDecimals is the display precision used for symbols without an
// explicit override.
const DefaultDecimals = 2

// Registry is the static routing table from canonical symbol to provider,
// exchange-specific pair spelling, and display precision. It is built once
// from configuration and never mutated, so it is safe for concurrent reads.
type Registry struct {
	main    []string
	marquee []string
	all     []string

	providers    map[string]models.Provider
	krakenPairs  map[string]string
	coingeckoIDs map[string]string
	decimals     map[string]int
}

// NewRegistry canonicalizes the configured symbol lists (uppercase) and
// resolves each symbol's provider: kraken_pairs and coingecko_ids override
// the Binance default.
func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{
		providers:    make(map[string]models.Provider),
		krakenPairs:  make(map[string]string),
		coingeckoIDs: make(map[string]string),
		decimals:     make(map[string]int),
	}

	for key, pair := range cfg.KrakenPairs {
		r.krakenPairs[Canonical(key)] = pair
	}
	for key, id := range cfg.CoinGeckoIDs {
		r.coingeckoIDs[Canonical(key)] = id
	}
	for key, dec := range cfg.PriceDecimals {
		r.decimals[Canonical(key)] = dec
	}

	seen := make(map[string]bool)
	add := func(raw string, main bool) {
		sym := Canonical(raw)
		if sym == "" {
			return
		}
		if main {
			r.main = append(r.main, sym)
		} else {
			r.marquee = append(r.marquee, sym)
		}
		if seen[sym] {
			return
		}
		seen[sym] = true
		r.all = append(r.all, sym)

		switch {
		case r.krakenPairs[sym] != "":
			r.providers[sym] = models.ProviderKraken
		case r.coingeckoIDs[sym] != "":
			r.providers[sym] = models.ProviderCoinGecko
		default:
			r.providers[sym] = models.ProviderBinance
		}
	}

	for _, s := range cfg.MainSymbols {
		add(s, true)
	}
	for _, s := range cfg.MarqueeSymbols {
		add(s, false)
	}

	return r
}

// Canonical normalizes a symbol to its canonical uppercase form.
func Canonical(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Main returns the primary rotation set in configured order.
func (r *Registry) Main() []string { return r.main }

// Marquee returns the secondary scroll set in configured order.
func (r *Registry) Marquee() []string { return r.marquee }

// All returns every tracked symbol, deduplicated, main symbols first.
func (r *Registry) All() []string { return r.all }

// Tracks reports whether the symbol is part of the configured universe.
func (r *Registry) Tracks(symbol string) bool {
	_, ok := r.providers[Canonical(symbol)]
	return ok
}

// IsMarquee reports whether the symbol belongs to the marquee set.
func (r *Registry) IsMarquee(symbol string) bool {
	sym := Canonical(symbol)
	for _, m := range r.marquee {
		if m == sym {
			return true
		}
	}
	return false
}

// Provider returns the routing for a symbol. Untracked symbols route to
// Binance, the default provider.
func (r *Registry) Provider(symbol string) models.Provider {
	if p, ok := r.providers[Canonical(symbol)]; ok {
		return p
	}
	return models.ProviderBinance
}

// Symbols returns every tracked symbol routed to the given provider.
func (r *Registry) Symbols(p models.Provider) []string {
	var out []string
	for _, sym := range r.all {
		if r.providers[sym] == p {
			out = append(out, sym)
		}
	}
	return out
}

// KrakenPair returns the Kraken pair spelling (e.g. "XMR/USDT") for a
// Kraken-routed symbol.
func (r *Registry) KrakenPair(symbol string) (string, bool) {
	pair, ok := r.krakenPairs[Canonical(symbol)]
	return pair, ok
}

// KrakenPairs returns the symbol -> pair spelling map for every
// Kraken-routed symbol in the tracked universe.
func (r *Registry) KrakenPairs() map[string]string {
	out := make(map[string]string)
	for _, sym := range r.Symbols(models.ProviderKraken) {
		out[sym] = r.krakenPairs[sym]
	}
	return out
}

// CoinGeckoID returns the CoinGecko coin id for a CoinGecko-routed symbol.
func (r *Registry) CoinGeckoID(symbol string) (string, bool) {
	id, ok := r.coingeckoIDs[Canonical(symbol)]
	return id, ok
}

// CoinGeckoIDs returns the symbol -> coin id map for every CoinGecko-routed
// symbol in the tracked universe.
func (r *Registry) CoinGeckoIDs() map[string]string {
	out := make(map[string]string)
	for _, sym := range r.Symbols(models.ProviderCoinGecko) {
		out[sym] = r.coingeckoIDs[sym]
	}
	return out
}

// Decimals returns the display precision for a symbol.
func (r *Registry) Decimals(symbol string) int {
	if d, ok := r.decimals[Canonical(symbol)]; ok {
		return d
	}
	return DefaultDecimals
}
