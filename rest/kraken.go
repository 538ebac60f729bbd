package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crypto-ticker-core/models"
)

const krakenBaseURL = "https://api.kraken.com"

// krakenTicker mirrors the public Ticker result entry: c = [last, lot
// volume], o = [today's open, 24h open].
type krakenTicker struct {
	C []string `json:"c"`
	O []string `json:"o"`
}

// KrakenClient fetches current quotes for Kraken-routed symbols in one
// batched request.
type KrakenClient struct {
	baseURL string
	client  *http.Client
}

// NewKrakenClient returns a client against the public Kraken API.
func NewKrakenClient() *KrakenClient {
	return &KrakenClient{baseURL: krakenBaseURL, client: newHTTPClient()}
}

// FetchQuotes returns one REST-sourced quote per resolvable symbol in
// pairBySymbol (canonical symbol -> pair spelling like "XMR/USDT").
// Symbols Kraken does not answer for are skipped, not failed.
func (c *KrakenClient) FetchQuotes(ctx context.Context, pairBySymbol map[string]string) ([]models.PriceQuote, error) {
	if len(pairBySymbol) == 0 {
		return nil, nil
	}

	pairs := make([]string, 0, len(pairBySymbol))
	for _, pair := range pairBySymbol {
		pairs = append(pairs, strings.ReplaceAll(pair, "/", ""))
	}

	var payload struct {
		Error  []string                `json:"error"`
		Result map[string]krakenTicker `json:"result"`
	}
	params := url.Values{"pair": {strings.Join(pairs, ",")}}
	if err := getJSON(ctx, c.client, c.baseURL+"/0/public/Ticker", params, &payload); err != nil {
		return nil, err
	}
	if len(payload.Error) > 0 {
		return nil, fmt.Errorf("kraken ticker error: %s", strings.Join(payload.Error, "; "))
	}

	now := time.Now()
	var quotes []models.PriceQuote
	for apiPair, ticker := range payload.Result {
		symbol, ok := matchKrakenPair(apiPair, pairBySymbol)
		if !ok || len(ticker.C) < 1 {
			continue
		}
		price, err := strconv.ParseFloat(ticker.C[0], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing last price %q for %s: %w", ticker.C[0], apiPair, err)
		}

		// The REST ticker carries no direct 24h change; derive it from the
		// 24h open when present.
		var change float64
		if len(ticker.O) >= 2 {
			if open, err := strconv.ParseFloat(ticker.O[1], 64); err == nil && open > 0 {
				change = (price - open) / open * 100
			}
		}

		quotes = append(quotes, models.PriceQuote{
			Symbol:     symbol,
			Price:      price,
			Change24h:  change,
			Source:     models.SourceREST,
			ObservedAt: now,
		})
	}
	return quotes, nil
}

// matchKrakenPair maps a result key back to the canonical symbol. Kraken
// rewrites pair spellings (XBT prefixes, Z/X asset codes), so exact match
// is tried first and containment second.
func matchKrakenPair(apiPair string, pairBySymbol map[string]string) (string, bool) {
	for sym, pair := range pairBySymbol {
		if strings.ReplaceAll(pair, "/", "") == apiPair {
			return sym, true
		}
	}
	for sym, pair := range pairBySymbol {
		if strings.Contains(apiPair, strings.ReplaceAll(pair, "/", "")) {
			return sym, true
		}
	}
	return "", false
}
