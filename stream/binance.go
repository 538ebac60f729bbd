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

const binanceWSBase = "wss://stream.binance.com:9443/ws"

// binanceTicker is the 24hr ticker stream payload. Unknown fields are
// ignored; missing required ones fail the message closed.
type binanceTicker struct {
	Symbol    string `json:"s"`
	LastPrice string `json:"c"`
	ChangePct string `json:"P"`
	EventTime int64  `json:"E"` // ms
}

// BinanceFeed streams 24hr ticker updates for its symbol set over one
// combined-stream connection. The subscription is part of the URL, so every
// reconnect resubscribes the full set atomically.
type BinanceFeed struct {
	url     string
	symbols []string
	sink    QuoteSink
	dialer  *websocket.Dialer
	log     *zap.Logger
}

// NewBinanceFeed builds a feed for the given symbols. A feed over an empty
// set is a no-op.
func NewBinanceFeed(syms []string, sink QuoteSink, log *zap.Logger) *BinanceFeed {
	streams := make([]string, len(syms))
	for i, s := range syms {
		streams[i] = strings.ToLower(s) + "@ticker"
	}
	return &BinanceFeed{
		url:     binanceWSBase + "/" + strings.Join(streams, "/"),
		symbols: syms,
		sink:    sink,
		dialer:  websocket.DefaultDialer,
		log:     log.With(zap.String("feed", "binance")),
	}
}

// Name identifies the feed in logs and health output.
func (f *BinanceFeed) Name() string { return "binance" }

// Run maintains the connection until ctx is cancelled, backing off between
// attempts.
func (f *BinanceFeed) Run(ctx context.Context) {
	if len(f.symbols) == 0 {
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
		log.Warn("connection lost, reconnecting",
			zap.Error(err), zap.Duration("backoff", delay))
		sleep(ctx, delay)
	}
}

func (f *BinanceFeed) runConn(ctx context.Context, log *zap.Logger, bo *backoff) error {
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dialing binance stream: %w", err)
	}
	defer conn.Close()

	// Unblock the read loop when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	log.Info("connected", zap.Int("symbols", len(f.symbols)))

	// The backoff schedule resets only once the connection has delivered a
	// parsed ticker. A server that accepts dials and immediately drops them
	// must keep the schedule growing.
	healthy := false
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("reading binance message: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(readDeadline))

		quote, ok, err := parseBinanceTicker(message)
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

// parseBinanceTicker decodes one stream message. Non-ticker frames return
// ok=false; ticker frames with malformed required fields return an error
// and never a partially populated quote.
func parseBinanceTicker(message []byte) (models.PriceQuote, bool, error) {
	var t binanceTicker
	if err := json.Unmarshal(message, &t); err != nil {
		return models.PriceQuote{}, false, nil // not a ticker frame
	}
	if t.Symbol == "" {
		return models.PriceQuote{}, false, nil
	}

	price, err := strconv.ParseFloat(t.LastPrice, 64)
	if err != nil {
		return models.PriceQuote{}, false, fmt.Errorf("parsing last price %q: %w", t.LastPrice, err)
	}
	if price < 0 {
		return models.PriceQuote{}, false, fmt.Errorf("negative price %f for %s", price, t.Symbol)
	}
	change, err := strconv.ParseFloat(t.ChangePct, 64)
	if err != nil {
		return models.PriceQuote{}, false, fmt.Errorf("parsing change percent %q: %w", t.ChangePct, err)
	}

	observed := time.Now()
	if t.EventTime > 0 {
		observed = time.Unix(t.EventTime/1000, (t.EventTime%1000)*int64(time.Millisecond))
	}

	return models.PriceQuote{
		Symbol:     strings.ToUpper(t.Symbol),
		Price:      price,
		Change24h:  change,
		Source:     models.SourceStream,
		ObservedAt: observed,
	}, true, nil
}
