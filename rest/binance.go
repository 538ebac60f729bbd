package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crypto-ticker-core/models"
)

const binanceBaseURL = "https://api.binance.com"

// BinanceClient fetches quotes and kline history over the Binance REST API.
// Used for the initial bootstrap and as the stale-symbol fallback for
// Binance-routed symbols.
type BinanceClient struct {
	baseURL string
	client  *http.Client
}

// NewBinanceClient returns a client against the public Binance API.
func NewBinanceClient() *BinanceClient {
	return &BinanceClient{baseURL: binanceBaseURL, client: newHTTPClient()}
}

// FetchQuote returns the current price and 24h change for one symbol,
// tagged as a REST-sourced quote.
func (c *BinanceClient) FetchQuote(ctx context.Context, symbol string) (models.PriceQuote, error) {
	var ticker struct {
		LastPrice          string `json:"lastPrice"`
		PriceChangePercent string `json:"priceChangePercent"`
	}
	params := url.Values{"symbol": {strings.ToUpper(symbol)}}
	if err := getJSON(ctx, c.client, c.baseURL+"/api/v3/ticker/24hr", params, &ticker); err != nil {
		return models.PriceQuote{}, err
	}
	if ticker.LastPrice == "" {
		return models.PriceQuote{}, fmt.Errorf("ticker response for %s missing lastPrice", symbol)
	}

	price, err := strconv.ParseFloat(ticker.LastPrice, 64)
	if err != nil {
		return models.PriceQuote{}, fmt.Errorf("parsing lastPrice %q: %w", ticker.LastPrice, err)
	}
	change, err := strconv.ParseFloat(ticker.PriceChangePercent, 64)
	if err != nil {
		return models.PriceQuote{}, fmt.Errorf("parsing priceChangePercent %q: %w", ticker.PriceChangePercent, err)
	}

	return models.PriceQuote{
		Symbol:     strings.ToUpper(symbol),
		Price:      price,
		Change24h:  change,
		Source:     models.SourceREST,
		ObservedAt: time.Now(),
	}, nil
}

// FetchRecentCandles returns up to limit recent candles for the symbol at
// the requested bucket size, oldest first, for seeding the chart history.
func (c *BinanceClient) FetchRecentCandles(ctx context.Context, symbol string, bucketSeconds, limit int) ([]models.Candle, error) {
	params := url.Values{
		"symbol":   {strings.ToUpper(symbol)},
		"interval": {binanceInterval(bucketSeconds)},
		"limit":    {strconv.Itoa(limit)},
	}

	var rows [][]json.RawMessage
	if err := getJSON(ctx, c.client, c.baseURL+"/api/v3/klines", params, &rows); err != nil {
		return nil, err
	}

	duration := time.Duration(bucketSeconds) * time.Second
	out := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		candle, err := parseKlineRow(row, duration)
		if err != nil {
			return nil, fmt.Errorf("parsing kline for %s: %w", symbol, err)
		}
		out = append(out, candle)
	}
	return out, nil
}

// parseKlineRow decodes one kline array:
// [openTime(ms), open, high, low, close, volume, ...]; OHLC come as strings.
func parseKlineRow(row []json.RawMessage, duration time.Duration) (models.Candle, error) {
	if len(row) < 5 {
		return models.Candle{}, fmt.Errorf("kline row has %d fields, want at least 5", len(row))
	}

	var openTimeMS int64
	if err := json.Unmarshal(row[0], &openTimeMS); err != nil {
		return models.Candle{}, fmt.Errorf("decoding open time: %w", err)
	}

	var ohlc [4]float64
	for i := 0; i < 4; i++ {
		var raw string
		if err := json.Unmarshal(row[i+1], &raw); err != nil {
			return models.Candle{}, fmt.Errorf("decoding OHLC field %d: %w", i, err)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return models.Candle{}, fmt.Errorf("parsing OHLC field %d %q: %w", i, raw, err)
		}
		ohlc[i] = v
	}

	return models.Candle{
		Start:    time.Unix(openTimeMS/1000, 0),
		Duration: duration,
		Open:     ohlc[0],
		High:     ohlc[1],
		Low:      ohlc[2],
		Close:    ohlc[3],
	}, nil
}

// binanceInterval maps a bucket size to the closest supported kline
// interval; unsupported sizes fall back to 1m, the dashboard default.
func binanceInterval(bucketSeconds int) string {
	switch bucketSeconds {
	case 60:
		return "1m"
	case 180:
		return "3m"
	case 300:
		return "5m"
	case 900:
		return "15m"
	case 1800:
		return "30m"
	case 3600:
		return "1h"
	default:
		return "1m"
	}
}
