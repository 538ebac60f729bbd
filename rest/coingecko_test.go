package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-ticker-core/models"
)

func coingeckoTestServer(t *testing.T, handler http.HandlerFunc) *CoinGeckoClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &CoinGeckoClient{baseURL: srv.URL, client: srv.Client()}
}

func TestFetchQuotesDecodesSimplePrice(t *testing.T) {
	c := coingeckoTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/simple/price", r.URL.Path)
		require.Equal(t, "monero,zephyr-protocol", r.URL.Query().Get("ids"))
		require.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		require.Equal(t, "true", r.URL.Query().Get("include_24hr_change"))
		w.Write([]byte(`{
			"monero":          {"usd": 161.2, "usd_24h_change": -0.8},
			"zephyr-protocol": {"usd": 1.05, "usd_24h_change": 3.4}
		}`))
	})

	quotes, err := c.FetchQuotes(context.Background(), map[string]string{
		"XMRUSDT": "monero",
		"ZEPH":    "zephyr-protocol",
	})
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	bySym := make(map[string]models.PriceQuote)
	for _, q := range quotes {
		bySym[q.Symbol] = q
	}
	assert.Equal(t, 161.2, bySym["XMRUSDT"].Price)
	assert.Equal(t, -0.8, bySym["XMRUSDT"].Change24h)
	assert.Equal(t, 1.05, bySym["ZEPH"].Price)
	assert.Equal(t, models.SourceREST, bySym["ZEPH"].Source)
}

func TestFetchQuotesSkipsCoinsWithoutAPrice(t *testing.T) {
	c := coingeckoTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"monero":          {"usd": 161.2},
			"zephyr-protocol": {"usd_24h_change": 3.4}
		}`))
	})

	quotes, err := c.FetchQuotes(context.Background(), map[string]string{
		"XMRUSDT": "monero",
		"ZEPH":    "zephyr-protocol",
	})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "XMRUSDT", quotes[0].Symbol)
	// Missing change is reported as zero, not an error.
	assert.Zero(t, quotes[0].Change24h)
}

func TestFetchQuotesWithNoCoinsIsANoOp(t *testing.T) {
	c := coingeckoTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	quotes, err := c.FetchQuotes(context.Background(), map[string]string{})
	require.NoError(t, err)
	assert.Nil(t, quotes)
}

func TestFetchQuotesPropagatesTransportError(t *testing.T) {
	c := coingeckoTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := c.FetchQuotes(context.Background(), map[string]string{"XMRUSDT": "monero"})
	assert.Error(t, err)
}
