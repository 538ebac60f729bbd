package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"crypto-ticker-core/models"
)

const krakenWSURL = "wss://ws.kraken.com"

// krakenSubscribe is the subscription request sent on every (re)connect.
type krakenSubscribe struct {
	Event        string   `json:"event"`
	Pair         []string `json:"pair"`
	Subscription struct {
		Name string `json:"name"`
	} `json:"subscription"`
}

// krakenEvent covers status/heartbeat/error frames.
type krakenEvent struct {
	Event        string `json:"event"`
	Status       string `json:"status"`
	ErrorMessage string `json:"errorMessage"`
}

// krakenTickerData is the ticker payload: c = [last, lot volume],
// o = [today's open, 24h open].
type krakenTickerData struct {
	C []string `json:"c"`
	O []string `json:"o"`
}

// KrakenFeed streams ticker updates for the pairs a registry routes to
// Kraken. Subscription happens with the full pair list in one message, so
// no partial subscription is ever treated as connected.
type KrakenFeed struct {
	url string
	// pairBySymbol maps canonical symbol -> Kraken pair spelling ("XMR/USDT").
	pairBySymbol map[string]string
	sink         QuoteSink
	dialer       *websocket.Dialer
	log          *zap.Logger
}

// NewKrakenFeed builds a feed over the symbol -> pair spelling map. A feed
// over an empty map is a no-op.
func NewKrakenFeed(pairBySymbol map[string]string, sink QuoteSink, log *zap.Logger) *KrakenFeed {
	return &KrakenFeed{
		url:          krakenWSURL,
		pairBySymbol: pairBySymbol,
		sink:         sink,
		dialer:       websocket.DefaultDialer,
		log:          log.With(zap.String("feed", "kraken")),
	}
}

// Name identifies the feed in logs and health output.
func (f *KrakenFeed) Name() string { return "kraken" }

// Run maintains the connection until ctx is cancelled, backing off between
// attempts.
func (f *KrakenFeed) Run(ctx context.Context) {
	if len(f.pairBySymbol) == 0 {
		return
	}

	bo := newBackoff()
	for ctx.Err() == nil {
		connID := uuid.NewString()[:8]
		log := f.log.With(zap.String("conn_id", connID))

		err := f.runConn(ctx, log, bo)
		if ctx.Err() != nil {
			return
		}
		delay := bo.Delay()
		if err != nil && strings.Contains(strings.ToLower(err.Error()), "restarting, please reconnect") {
			// Routine server maintenance, not a fault.
			log.Info("server requested reconnect", zap.Duration("backoff", delay))
		} else {
			log.Warn("connection lost, reconnecting",
				zap.Error(err), zap.Duration("backoff", delay))
		}
		sleep(ctx, delay)
	}
}

func (f *KrakenFeed) runConn(ctx context.Context, log *zap.Logger, bo *backoff) error {
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dialing kraken stream: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	sub := krakenSubscribe{Event: "subscribe"}
	for _, pair := range f.pairBySymbol {
		sub.Pair = append(sub.Pair, pair)
	}
	sub.Subscription.Name = "ticker"

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribing to %d pairs: %w", len(sub.Pair), err)
	}
	log.Info("subscription sent", zap.Int("pairs", len(sub.Pair)))

	// The backoff schedule resets only once a ticker frame has been parsed.
	// A server that accepts the subscribe and immediately drops must keep
	// the schedule growing.
	healthy := false
	conn.SetReadDeadline(time.Now().Add(readDeadline))
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("reading kraken message: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(readDeadline))

		quote, ok, err := f.parseMessage(message)
		if err != nil {
			log.Warn("malformed ticker message", zap.Error(err))
			continue
		}
		if ok {
			if !healthy {
				healthy = true
				bo.Reset()
			}
			f.sink.ApplyQuote(quote)
		}
	}
}

// parseMessage decodes one frame. Event frames (status, heartbeat) and
// unknown channels return ok=false; ticker frames with a malformed payload
// return an error and never a partially populated quote.
func (f *KrakenFeed) parseMessage(message []byte) (models.PriceQuote, bool, error) {
	trimmed := strings.TrimSpace(string(message))
	if strings.HasPrefix(trimmed, "{") {
		var ev krakenEvent
		if err := json.Unmarshal(message, &ev); err == nil && ev.Event == "subscriptionStatus" && ev.Status == "error" {
			return models.PriceQuote{}, false, fmt.Errorf("subscription rejected: %s", ev.ErrorMessage)
		}
		return models.PriceQuote{}, false, nil
	}

	var frame []json.RawMessage
	if err := json.Unmarshal(message, &frame); err != nil || len(frame) < 4 {
		return models.PriceQuote{}, false, nil
	}

	var channel string
	if err := json.Unmarshal(frame[2], &channel); err != nil || channel != "ticker" {
		return models.PriceQuote{}, false, nil
	}

	var pair string
	if err := json.Unmarshal(frame[3], &pair); err != nil {
		return models.PriceQuote{}, false, fmt.Errorf("decoding pair name: %w", err)
	}
	symbol, ok := f.symbolForPair(pair)
	if !ok {
		return models.PriceQuote{}, false, nil
	}

	var data krakenTickerData
	if err := json.Unmarshal(frame[1], &data); err != nil {
		return models.PriceQuote{}, false, fmt.Errorf("decoding ticker payload: %w", err)
	}
	if len(data.C) < 1 || len(data.O) < 2 {
		return models.PriceQuote{}, false, fmt.Errorf("ticker payload missing c/o fields for %s", pair)
	}

	price, err := strconv.ParseFloat(data.C[0], 64)
	if err != nil {
		return models.PriceQuote{}, false, fmt.Errorf("parsing last price %q: %w", data.C[0], err)
	}
	if price < 0 {
		return models.PriceQuote{}, false, fmt.Errorf("negative price %f for %s", price, pair)
	}

	open24h, err := strconv.ParseFloat(data.O[1], 64)
	if err != nil {
		return models.PriceQuote{}, false, fmt.Errorf("parsing 24h open %q: %w", data.O[1], err)
	}
	var change float64
	if open24h > 0 {
		change = (price - open24h) / open24h * 100
	}

	return models.PriceQuote{
		Symbol:     symbol,
		Price:      price,
		Change24h:  change,
		Source:     models.SourceStream,
		ObservedAt: time.Now(),
	}, true, nil
}

// symbolForPair maps a pair name from the wire back to the canonical
// symbol, tolerating Kraken's varying pair spellings the way the REST side
// does: exact match first, then slash-insensitive containment.
func (f *KrakenFeed) symbolForPair(pair string) (string, bool) {
	for sym, p := range f.pairBySymbol {
		if p == pair {
			return sym, true
		}
	}
	clean := strings.ReplaceAll(pair, "/", "")
	for sym, p := range f.pairBySymbol {
		if strings.Contains(clean, strings.ReplaceAll(p, "/", "")) {
			return sym, true
		}
	}
	return "", false
}
