package rest

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"crypto-ticker-core/models"
)

const coingeckoBaseURL = "https://api.coingecko.com"

// coingeckoEntry is one coin's simple-price record. Pointers distinguish a
// missing field from a zero value; a missing price fails that coin closed.
type coingeckoEntry struct {
	USD       *float64 `json:"usd"`
	Change24h *float64 `json:"usd_24h_change"`
}

// CoinGeckoClient fetches quotes for coins that have no exchange stream,
// batched into a single simple-price request.
type CoinGeckoClient struct {
	baseURL string
	client  *http.Client
}

// NewCoinGeckoClient returns a client against the public CoinGecko API.
func NewCoinGeckoClient() *CoinGeckoClient {
	return &CoinGeckoClient{baseURL: coingeckoBaseURL, client: newHTTPClient()}
}

// FetchQuotes returns one REST-sourced quote per coin that reported a
// price. idBySymbol maps canonical symbol -> CoinGecko coin id.
func (c *CoinGeckoClient) FetchQuotes(ctx context.Context, idBySymbol map[string]string) ([]models.PriceQuote, error) {
	if len(idBySymbol) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(idBySymbol))
	symbolByID := make(map[string]string, len(idBySymbol))
	for sym, id := range idBySymbol {
		ids = append(ids, id)
		symbolByID[id] = sym
	}
	sort.Strings(ids)

	params := url.Values{
		"ids":                 {strings.Join(ids, ",")},
		"vs_currencies":       {"usd"},
		"include_24hr_change": {"true"},
	}

	result := make(map[string]coingeckoEntry)
	if err := getJSON(ctx, c.client, c.baseURL+"/api/v3/simple/price", params, &result); err != nil {
		return nil, err
	}

	now := time.Now()
	var quotes []models.PriceQuote
	for id, entry := range result {
		symbol, ok := symbolByID[id]
		if !ok || entry.USD == nil {
			continue
		}
		var change float64
		if entry.Change24h != nil {
			change = *entry.Change24h
		}
		quotes = append(quotes, models.PriceQuote{
			Symbol:     symbol,
			Price:      *entry.USD,
			Change24h:  change,
			Source:     models.SourceREST,
			ObservedAt: now,
		})
	}
	return quotes, nil
}
