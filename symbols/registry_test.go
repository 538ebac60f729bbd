package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-ticker-core/config"
	"crypto-ticker-core/models"
)

func testConfig() *config.Config {
	return &config.Config{
		MainSymbols:    []string{"btcusdt"},
		MarqueeSymbols: []string{"ethusdt", "xmrusdt", "runecoin", "btcusdt"},
		KrakenPairs:    map[string]string{"xmrusdt": "XMR/USDT"},
		CoinGeckoIDs:   map[string]string{"runecoin": "runecoin"},
		PriceDecimals:  map[string]int{"runecoin": 8},
	}
}

func TestRegistryCanonicalizesAndDeduplicates(t *testing.T) {
	r := NewRegistry(testConfig())

	assert.Equal(t, []string{"BTCUSDT"}, r.Main())
	assert.Equal(t, []string{"ETHUSDT", "XMRUSDT", "RUNECOIN", "BTCUSDT"}, r.Marquee())
	// BTCUSDT appears in both lists but is tracked once, main first.
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT", "XMRUSDT", "RUNECOIN"}, r.All())
}

func TestProviderResolutionOverridesDefault(t *testing.T) {
	r := NewRegistry(testConfig())

	assert.Equal(t, models.ProviderBinance, r.Provider("BTCUSDT"))
	assert.Equal(t, models.ProviderBinance, r.Provider("ethusdt"))
	assert.Equal(t, models.ProviderKraken, r.Provider("XMRUSDT"))
	assert.Equal(t, models.ProviderCoinGecko, r.Provider("RUNECOIN"))
	// Untracked symbols route to the default.
	assert.Equal(t, models.ProviderBinance, r.Provider("DOGEUSDT"))
}

func TestTracksAndMarqueeMembership(t *testing.T) {
	r := NewRegistry(testConfig())

	assert.True(t, r.Tracks("btcusdt"))
	assert.False(t, r.Tracks("DOGEUSDT"))
	assert.True(t, r.IsMarquee("ETHUSDT"))
	assert.True(t, r.IsMarquee("BTCUSDT")) // listed in both sets
	assert.False(t, r.IsMarquee("DOGEUSDT"))
}

func TestSymbolsByProvider(t *testing.T) {
	r := NewRegistry(testConfig())

	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, r.Symbols(models.ProviderBinance))
	assert.Equal(t, []string{"XMRUSDT"}, r.Symbols(models.ProviderKraken))
	assert.Equal(t, []string{"RUNECOIN"}, r.Symbols(models.ProviderCoinGecko))
}

func TestKrakenAndCoinGeckoLookups(t *testing.T) {
	r := NewRegistry(testConfig())

	pair, ok := r.KrakenPair("xmrusdt")
	require.True(t, ok)
	assert.Equal(t, "XMR/USDT", pair)
	_, ok = r.KrakenPair("BTCUSDT")
	assert.False(t, ok)

	assert.Equal(t, map[string]string{"XMRUSDT": "XMR/USDT"}, r.KrakenPairs())
	assert.Equal(t, map[string]string{"RUNECOIN": "runecoin"}, r.CoinGeckoIDs())

	id, ok := r.CoinGeckoID("RUNECOIN")
	require.True(t, ok)
	assert.Equal(t, "runecoin", id)
}

func TestDecimalsFallBackToDefault(t *testing.T) {
	r := NewRegistry(testConfig())

	assert.Equal(t, 8, r.Decimals("runecoin"))
	assert.Equal(t, DefaultDecimals, r.Decimals("BTCUSDT"))
}

func TestCanonicalTrimsAndUppercases(t *testing.T) {
	assert.Equal(t, "BTCUSDT", Canonical("  btcusdt "))
	assert.Equal(t, "", Canonical("   "))
}
